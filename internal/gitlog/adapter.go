// Package gitlog summarizes a project's commit history through the git CLI.
package gitlog

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"codeqa/internal/errors"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 30 * time.Second

// Adapter runs read-only git commands against one repository.
type Adapter struct {
	root    string
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdapter creates an adapter rooted at root.
func NewAdapter(root, binary string, timeout time.Duration, logger *slog.Logger) *Adapter {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{root: root, binary: binary, timeout: timeout, logger: logger}
}

// TopLevel returns the root of the work tree containing the adapter root,
// or "" when there is none.
func (a *Adapter) TopLevel(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		if errors.Is(err, errors.Timeout) || stderrors.Is(err, context.Canceled) || isNotFound(err) {
			return "", err
		}
		return "", nil
	}
	return filepath.FromSlash(out), nil
}

// HasHead reports whether the repository has at least one commit.
func (a *Adapter) HasHead(ctx context.Context) (bool, error) {
	_, err := a.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		if errors.Is(err, errors.Timeout) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// run executes git with the adapter timeout and returns trimmed stdout.
func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Dir = a.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	a.logger.Debug("executing git command", "args", args, "timeout", a.timeout.String())

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New(errors.Timeout, "git command timed out", err).
				WithDetails(map[string]interface{}{"args": args, "timeoutMs": a.timeout.Milliseconds()})
		}
		if stderrors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return "", errors.New(errors.AnalyzerInternal, "git command failed", err).
				WithDetails(map[string]interface{}{"args": args, "stderr": strings.TrimSpace(stderr.String())})
		}
		return "", errors.New(errors.AnalyzerInternal, "failed to execute git", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// runLines is run split into non-empty lines.
func (a *Adapter) runLines(ctx context.Context, args ...string) ([]string, error) {
	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return []string{}, nil
	}
	lines := strings.Split(out, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, nil
}

func sameDir(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}

func isNotFound(err error) bool {
	return stderrors.Is(err, exec.ErrNotFound)
}
