// Package paths resolves codeqa's per-user directories and keeps file
// access inside a project root.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnvVar overrides the codeqa home directory.
	HomeEnvVar = "CODEQA_HOME"
	// HistoryFile is the execution history database inside the home dir.
	HistoryFile = "history.db"
	// ReposSubdir holds cloned repositories.
	ReposSubdir = "repos"
)

// Home returns $CODEQA_HOME, or ~/.config/codeqa.
func Home() (string, error) {
	if h := os.Getenv(HomeEnvVar); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "codeqa"), nil
}

// HistoryPath returns the default history database path.
func HistoryPath() (string, error) {
	h, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, HistoryFile), nil
}

// ReposDir returns the default clone directory.
func ReposDir() (string, error) {
	h, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ReposSubdir), nil
}

// CanonicalizePath converts an absolute path to a root-relative,
// slash-separated path. Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot reports whether path resolves to root or something below it.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRoot joins a root with a slash-separated relative path.
func JoinRoot(root string, rel string) string {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
