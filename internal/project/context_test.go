package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/errors"
	"codeqa/internal/testutil"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"directory", dir, false},
		{"missing", filepath.Join(dir, "nope"), true},
		{"file", file, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := Resolve(tt.path, Options{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.InvalidPath, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(pc.Root))
		})
	}
}

func TestWalk_OrderAndIgnores(t *testing.T) {
	root := t.TempDir()
	testutil.AddFiles(t, root, map[string]string{
		"b.py":                  "print(1)\n",
		"a/z.go":                "package a\n",
		"a/b.go":                "package a\n",
		"node_modules/x/i.js":   "ignored",
		".git/config":           "ignored",
		".github/workflows/c.y": "hidden dir",
		".env":                  "KEY=1\n",
	})

	pc, err := Resolve(root, Options{IgnoreDirs: []string{"node_modules", ".git"}, SkipHidden: true})
	require.NoError(t, err)

	var got []string
	itemErrs, err := pc.Walk(context.Background(), func(f File) error {
		got = append(got, f.Rel)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, itemErrs)
	assert.Equal(t, []string{".env", "a/b.go", "a/z.go", "b.py"}, got)
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	testutil.AddFiles(t, root, map[string]string{"a.txt": "a"})
	pc, err := Resolve(root, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pc.Walk(ctx, func(File) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadText(t *testing.T) {
	root := t.TempDir()
	testutil.AddFiles(t, root, map[string]string{
		"text.txt": "hello\n",
		"blob.dat": "ab\x00cd",
		"big.txt":  "0123456789",
		"img.png":  "not really a png",
	})
	pc, err := Resolve(root, Options{MaxFileSizeBytes: 8})
	require.NoError(t, err)

	files := map[string]File{}
	_, err = pc.Walk(context.Background(), func(f File) error {
		files[f.Name] = f
		return nil
	})
	require.NoError(t, err)

	data, err := pc.ReadText(files["text.txt"])
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = pc.ReadText(files["blob.dat"])
	assert.ErrorIs(t, err, ErrBinary)
	assert.True(t, IsSkip(err))

	_, err = pc.ReadText(files["big.txt"])
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = pc.ReadText(files["img.png"])
	assert.ErrorIs(t, err, ErrBinary)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Language
		ok    bool
	}{
		{"go", map[string]string{"go.mod": "module x\n"}, LangGo, true},
		{"typescript", map[string]string{"package.json": "{}", "tsconfig.json": "{}"}, LangTypeScript, true},
		{"javascript", map[string]string{"package.json": "{}", "index.js": ""}, LangJavaScript, true},
		{"python", map[string]string{"requirements.txt": "flask\n"}, LangPython, true},
		{"dart", map[string]string{"pubspec.yaml": "name: x\n"}, LangDart, true},
		{"none", map[string]string{"README.md": "#"}, LangUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			testutil.AddFiles(t, root, tt.files)
			pc, err := Resolve(root, Options{})
			require.NoError(t, err)
			lang, _, ok := pc.DetectLanguage()
			assert.Equal(t, tt.want, lang)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
