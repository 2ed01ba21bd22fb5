package service

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

func TestTree(t *testing.T) {
	svc := newService(t)
	root := testutil.SampleProject(t)
	testutil.AddFiles(t, root, map[string]string{".hidden/x.txt": "x", "a/b/c/d.txt": "deep"})

	entries, err := svc.Tree(context.Background(), root, 0)
	require.NoError(t, err)

	byPath := map[string]TreeEntry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	assert.Equal(t, "directory", byPath["static"].Type)
	assert.Equal(t, "file", byPath["app.py"].Type)
	assert.Positive(t, byPath["app.py"].Size)
	assert.Contains(t, byPath, "a/b/c")
	assert.NotContains(t, byPath, "a/b/c/d.txt")
	assert.NotContains(t, byPath, "node_modules")
	assert.NotContains(t, byPath, ".hidden")

	// directories come before files at the top level
	assert.Equal(t, "directory", entries[0].Type)

	_, err = svc.Tree(context.Background(), filepath.Join(root, "missing"), 1)
	assert.True(t, errors.Is(err, errors.InvalidPath))
}

func TestReadFile(t *testing.T) {
	svc := newService(t)
	root := testutil.SampleProject(t)
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("nope"), 0o644))
	testutil.AddFiles(t, root, map[string]string{"bin.dat": "a\x00b"})

	fc, err := svc.ReadFile(root, "app.py")
	require.NoError(t, err)
	assert.Equal(t, "app.py", fc.Name)
	assert.Contains(t, fc.Content, "hunter2")

	for _, rel := range []string{"", "../secret.txt", outside, "missing.py", "static", "bin.dat"} {
		_, err := svc.ReadFile(root, rel)
		assert.True(t, errors.Is(err, errors.InvalidPath), rel)
	}
}
