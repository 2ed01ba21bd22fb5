// Package testutil builds throwaway project trees and git repositories for
// analyzer, dispatcher and surface tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// WriteTree creates files (slash-separated relative path → content) under a
// fresh temp dir and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	AddFiles(t, root, files)
	return root
}

// AddFiles writes files into an existing root.
func AddFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// SampleFiles is a small polyglot web project that every analyzer has
// something to say about.
func SampleFiles() map[string]string {
	return map[string]string{
		"requirements.txt": "flask==2.3.0\nrequests>=2.31\n# comment\n",
		"package.json":     `{"name":"web","dependencies":{"express":"^4.18.0"},"devDependencies":{"jest":"^29.0.0"}}`,
		"app.py": "from flask import Flask\n" +
			"app = Flask(__name__)\n\n" +
			"# TODO: add auth\n" +
			"@app.route(\"/users\")\n" +
			"def users():\n" +
			"    password = \"hunter2\"\n" +
			"    return eval(\"[]\")\n",
		"server.js": "const express = require('express');\n" +
			"const app = express();\n" +
			"// FIXME later\n" +
			"app.get('/health', (req, res) => res.send('ok'));\n",
		"tests/test_app.py":   "def test_users():\n    assert True\n",
		"static/style.css":    "body { margin: 0; }\n",
		"config.yaml":         "debug: false\n",
		"schema.sql":          "CREATE TABLE users (id INTEGER);\n",
		"node_modules/x/i.js": "// TODO ignored\n",
	}
}

// SampleProject writes SampleFiles to a temp dir.
func SampleProject(t *testing.T) string {
	t.Helper()
	return WriteTree(t, SampleFiles())
}

// RequireGit skips the test when no git binary is on PATH.
func RequireGit(t *testing.T) string {
	t.Helper()
	bin, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not available")
	}
	return bin
}

// Commit describes one fixture commit.
type Commit struct {
	Author  string
	Date    string // RFC 3339
	Message string
	Files   map[string]string
}

// GitRepo initializes a repository under a temp dir and replays commits.
func GitRepo(t *testing.T, commits ...Commit) string {
	t.Helper()
	RequireGit(t)
	root := t.TempDir()
	Git(t, root, nil, "init", "-q")
	for _, c := range commits {
		AddFiles(t, root, c.Files)
		Git(t, root, nil, "add", "-A")
		env := []string{
			"GIT_AUTHOR_NAME=" + c.Author,
			"GIT_AUTHOR_EMAIL=" + c.Author + "@example.com",
			"GIT_COMMITTER_NAME=" + c.Author,
			"GIT_COMMITTER_EMAIL=" + c.Author + "@example.com",
			"GIT_AUTHOR_DATE=" + c.Date,
			"GIT_COMMITTER_DATE=" + c.Date,
		}
		Git(t, root, env, "commit", "-q", "--allow-empty", "-m", c.Message)
	}
	return root
}

// Git runs a git command in dir, failing the test on error.
func Git(t *testing.T, dir string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "commit.gpgsign=false"}, args...)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}
