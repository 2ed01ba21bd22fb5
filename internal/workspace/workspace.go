// Package workspace turns a repository reference (the token "local", a
// directory path or a git URL) into a directory the analyzers can read.
package workspace

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"codeqa/internal/config"
	"codeqa/internal/errors"
	"codeqa/internal/project"
)

// Source tells how a workspace was materialized.
type Source string

const (
	SourceLocal Source = "local"
	SourcePath  Source = "path"
	SourceClone Source = "clone"
)

// LocalToken selects the configured local project.
const LocalToken = "local"

var (
	scpLike  = regexp.MustCompile(`^git@([A-Za-z0-9.-]+):([A-Za-z0-9._/-]+?)(\.git)?$`)
	repoPath = regexp.MustCompile(`^/?[A-Za-z0-9._-]+/[A-Za-z0-9._/-]+$`)
)

// Workspace is a materialized repository.
type Workspace struct {
	Path   string `json:"path"`
	Source Source `json:"source"`
	URL    string `json:"url,omitempty"`
}

// Cloner fetches url into dir.
type Cloner func(ctx context.Context, url, dir string) error

// Manager resolves references and owns the clones it creates.
type Manager struct {
	cfg    config.WorkspaceConfig
	clone  Cloner
	logger *slog.Logger

	mu     sync.Mutex
	clones []string
}

// NewManager creates a Manager that clones with the git binary.
func NewManager(cfg config.WorkspaceConfig, gitBinary string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if gitBinary == "" {
		gitBinary = "git"
	}
	timeout := time.Duration(cfg.CloneTimeoutMs) * time.Millisecond
	return &Manager{cfg: cfg, clone: GitCloner(gitBinary, timeout), logger: logger}
}

// WithCloner replaces the clone function.
func (m *Manager) WithCloner(c Cloner) *Manager {
	m.clone = c
	return m
}

// Resolve materializes ref. An empty ref means "local".
func (m *Manager) Resolve(ctx context.Context, ref string) (*Workspace, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "" || ref == LocalToken:
		p, err := checkDir(m.cfg.LocalProject)
		if err != nil {
			return nil, err
		}
		return &Workspace{Path: p, Source: SourceLocal}, nil
	case isRemote(ref):
		return m.cloneRemote(ctx, ref)
	default:
		p, err := checkDir(ref)
		if err != nil {
			return nil, err
		}
		return &Workspace{Path: p, Source: SourcePath}, nil
	}
}

// Close removes every clone this manager created.
func (m *Manager) Close() error {
	m.mu.Lock()
	dirs := m.clones
	m.clones = nil
	m.mu.Unlock()

	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func (m *Manager) cloneRemote(ctx context.Context, ref string) (*Workspace, error) {
	if err := m.checkURL(ref); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(m.cfg.CloneDir, "codeqa-clone-*")
	if err != nil {
		return nil, fmt.Errorf("creating clone directory: %w", err)
	}

	m.logger.Info("cloning repository", "url", ref, "dir", dir)
	start := time.Now()
	if err := m.clone(ctx, ref, dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	m.logger.Info("repository cloned", "url", ref, "elapsedMs", time.Since(start).Milliseconds())

	m.mu.Lock()
	m.clones = append(m.clones, dir)
	m.mu.Unlock()
	return &Workspace{Path: dir, Source: SourceClone, URL: ref}, nil
}

// checkURL accepts https and scp-like git URLs on an allowed host with an
// owner/repo style path.
func (m *Manager) checkURL(ref string) error {
	var host, path string
	if sm := scpLike.FindStringSubmatch(ref); sm != nil {
		host, path = sm[1], sm[2]
	} else {
		u, err := url.Parse(ref)
		if err != nil || u.Scheme != "https" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
			return errors.Newf(errors.InvalidPath, "unsupported repository URL %q", ref)
		}
		host, path = u.Hostname(), strings.TrimSuffix(u.Path, ".git")
	}
	if !repoPath.MatchString(path) || strings.Contains(path, "..") {
		return errors.Newf(errors.InvalidPath, "repository URL %q does not name a repository", ref)
	}
	for _, h := range m.cfg.AllowedHosts {
		if strings.EqualFold(h, host) {
			return nil
		}
	}
	return errors.Newf(errors.InvalidPath, "repository host %q is not allowed", host).
		WithDetails(map[string]any{"allowedHosts": m.cfg.AllowedHosts})
}

func isRemote(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "git@")
}

func checkDir(path string) (string, error) {
	pc, err := project.Resolve(path, project.Options{})
	if err != nil {
		return "", err
	}
	return pc.Root, nil
}

// GitCloner returns a Cloner running a shallow git clone.
func GitCloner(binary string, timeout time.Duration) Cloner {
	return func(ctx context.Context, url, dir string) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		cmd := exec.CommandContext(ctx, binary, "clone", "--depth", "1", "--quiet", "--", url, dir)
		cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.New(errors.Timeout, "git clone timed out", err)
			}
			return errors.New(errors.AnalyzerInternal, "git clone failed", err).
				WithDetails(map[string]any{"url": url, "stderr": strings.TrimSpace(stderr.String())})
		}
		return nil
	}
}
