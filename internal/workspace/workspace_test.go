package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/config"
	"codeqa/internal/errors"
	"codeqa/internal/testutil"
)

func newManager(t *testing.T, local string) *Manager {
	t.Helper()
	cfg := config.DefaultConfig().Workspace
	cfg.LocalProject = local
	cfg.CloneDir = t.TempDir()
	return NewManager(cfg, "git", nil)
}

func TestResolve_LocalAndPath(t *testing.T) {
	local := t.TempDir()
	m := newManager(t, local)

	for _, ref := range []string{"", "local", "  local "} {
		ws, err := m.Resolve(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, SourceLocal, ws.Source)
		assert.Equal(t, filepath.Clean(local), ws.Path)
	}

	other := t.TempDir()
	ws, err := m.Resolve(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, SourcePath, ws.Source)
	assert.Equal(t, other, ws.Path)

	_, err = m.Resolve(context.Background(), filepath.Join(other, "missing"))
	assert.Equal(t, errors.InvalidPath, errors.CodeOf(err))
}

func TestResolve_RejectsURLs(t *testing.T) {
	m := newManager(t, t.TempDir())
	m.WithCloner(func(context.Context, string, string) error {
		t.Fatal("clone must not be called")
		return nil
	})
	for _, ref := range []string{
		"https://evil.example.com/owner/repo",
		"http://github.com/owner/repo",
		"file:///etc",
		"https://github.com/owner",
		"https://user:pw@github.com/owner/repo",
		"https://github.com/owner/../../repo",
		"git@evil.example.com:owner/repo.git",
		"ssh://github.com/owner/repo",
	} {
		_, err := m.Resolve(context.Background(), ref)
		assert.Equal(t, errors.InvalidPath, errors.CodeOf(err), ref)
	}
}

func TestResolve_CloneAndClose(t *testing.T) {
	m := newManager(t, t.TempDir())
	var gotURL string
	m.WithCloner(func(_ context.Context, url, dir string) error {
		gotURL = url
		return os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644)
	})

	for _, ref := range []string{"https://github.com/owner/repo.git", "git@gitlab.com:group/sub/repo.git"} {
		ws, err := m.Resolve(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, SourceClone, ws.Source)
		assert.Equal(t, ref, gotURL)
		assert.FileExists(t, filepath.Join(ws.Path, "README.md"))
	}

	require.Len(t, m.clones, 2)
	dirs := append([]string(nil), m.clones...)
	require.NoError(t, m.Close())
	for _, d := range dirs {
		assert.NoDirExists(t, d)
	}
}

func TestResolve_CloneFailureCleansUp(t *testing.T) {
	m := newManager(t, t.TempDir())
	var dir string
	m.WithCloner(func(_ context.Context, _ string, d string) error {
		dir = d
		return errors.Newf(errors.AnalyzerInternal, "boom")
	})
	_, err := m.Resolve(context.Background(), "https://github.com/owner/repo")
	require.Error(t, err)
	assert.NoDirExists(t, dir)
	assert.Empty(t, m.clones)
}

func TestGitCloner(t *testing.T) {
	src := testutil.GitRepo(t, testutil.Commit{
		Author: "alice", Date: "2026-01-01T00:00:00Z", Message: "init",
		Files: map[string]string{"main.go": "package main\n"},
	})
	dst := filepath.Join(t.TempDir(), "clone")
	err := GitCloner("git", 30*time.Second)(context.Background(), "file://"+src, dst)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dst, "main.go"))

	err = GitCloner("git", 30*time.Second)(context.Background(), "file://"+filepath.Join(src, "nope"), filepath.Join(t.TempDir(), "x"))
	assert.Equal(t, errors.AnalyzerInternal, errors.CodeOf(err))
}
