// Package service bundles the registry, executor and dispatcher behind the
// three core operations every outer surface uses.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codeqa/internal/config"
	"codeqa/internal/dispatch"
	"codeqa/internal/envelope"
	"codeqa/internal/executor"
	"codeqa/internal/llm"
	"codeqa/internal/paths"
	"codeqa/internal/project"
	"codeqa/internal/registry"
	"codeqa/internal/storage"
	"codeqa/internal/tools"
	"codeqa/internal/workspace"
)

// Service is the core facade.
type Service struct {
	cfg        *config.Config
	registry   *registry.Registry
	executor   *executor.Executor
	dispatcher *dispatch.Dispatcher
	history    *storage.DB
	workspaces *workspace.Manager
	enhancer   dispatch.Enhancer
	logger     *slog.Logger
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every execution and question in db.
func WithHistory(db *storage.DB) Option {
	return func(s *Service) { s.history = db }
}

// WithEnhancer overrides the enhancer built from the llm config.
func WithEnhancer(e dispatch.Enhancer) Option {
	return func(s *Service) { s.enhancer = e }
}

// WithClock replaces time.Now for executions and questions.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New registers the built-in tools and wires the executor and dispatcher.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{cfg: cfg, logger: logger, clock: time.Now}
	if e := llm.New(cfg.LLM); e != nil {
		s.enhancer = e
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry = registry.New()
	if err := tools.Register(s.registry, cfg, logger); err != nil {
		return nil, err
	}

	execOpts := []executor.Option{executor.WithClock(s.clock)}
	if s.history != nil {
		execOpts = append(execOpts, executor.WithRecorder(s.history))
	}
	s.executor = executor.New(s.registry, WalkOptions(cfg), logger, execOpts...)
	s.dispatcher = dispatch.New(s.executor, dispatch.Options{
		Keywords: tools.Keywords(cfg.Dispatch),
		Fallback: cfg.Dispatch.Fallback,
		MaxTools: cfg.Dispatch.MaxTools,
		Answer:   tools.Answer,
		Enhancer: s.enhancer,
	}, logger)
	s.workspaces = workspace.NewManager(cfg.Workspace, cfg.Git.Binary, logger)
	return s, nil
}

// WalkOptions converts the walk config section.
func WalkOptions(cfg *config.Config) project.Options {
	return project.Options{
		IgnoreDirs:       cfg.Walk.IgnoreDirs,
		SkipHidden:       cfg.Walk.SkipHidden,
		MaxFileSizeBytes: cfg.Walk.MaxFileSizeBytes,
	}
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.cfg }

// History returns the history store, or nil when history is disabled.
func (s *Service) History() *storage.DB { return s.history }

// Workspaces returns the repository manager.
func (s *Service) Workspaces() *workspace.Manager { return s.workspaces }

// ListTools returns every registered descriptor in registration order.
func (s *Service) ListTools() []registry.ToolDescriptor {
	return s.registry.List()
}

// ExecuteTool runs one tool. The error is non-nil only for an unknown tool.
func (s *Service) ExecuteTool(ctx context.Context, toolID string, params map[string]any, projectPath string) (*envelope.AnalysisResult, error) {
	return s.executor.Execute(ctx, toolID, params, projectPath)
}

// AnswerQuestion dispatches question against projectPath and records it
// when history is enabled.
func (s *Service) AnswerQuestion(ctx context.Context, question, projectPath string) (*envelope.DispatchResult, error) {
	id := uuid.NewString()
	askedAt := s.clock()
	res, err := s.dispatcher.Analyze(storage.WithQuestionID(ctx, id), question, projectPath)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if err := s.history.RecordQuestion(ctx, id, askedAt, res); err != nil {
			s.logger.Warn("failed to record question", "error", err.Error())
		}
	}
	return res, nil
}

// Score returns the keyword matches for question without running anything.
func (s *Service) Score(question string) []envelope.ToolMatch {
	return s.dispatcher.Score(question)
}

// Select returns the tools AnswerQuestion would run for question.
func (s *Service) Select(question string) ([]envelope.ToolMatch, bool) {
	return s.dispatcher.Select(question)
}

// ResolveRepo materializes a repository reference.
func (s *Service) ResolveRepo(ctx context.Context, ref string) (*workspace.Workspace, error) {
	return s.workspaces.Resolve(ctx, ref)
}

// AIStatus describes the answer enhancer.
type AIStatus struct {
	Enabled    bool   `json:"enabled"`
	HasAPIKey  bool   `json:"hasApiKey"`
	Model      string `json:"model,omitempty"`
	Configured bool   `json:"configured"`
}

// AIStatus reports whether answers are rewritten by the LLM enhancer.
func (s *Service) AIStatus() AIStatus {
	return AIStatus{
		Enabled:    s.cfg.LLM.Enabled,
		HasAPIKey:  s.cfg.LLM.APIKey != "",
		Model:      s.cfg.LLM.Model,
		Configured: s.enhancer != nil,
	}
}

// Close removes clones and closes the history store.
func (s *Service) Close() error {
	err := s.workspaces.Close()
	if s.history != nil {
		if herr := s.history.Close(); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

// OpenHistory opens the history store named by cfg, defaulting to the
// per-user history path. It returns nil when history is disabled.
func OpenHistory(cfg *config.Config, logger *slog.Logger) (*storage.DB, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path := cfg.History.Path
	if path == "" {
		p, err := paths.HistoryPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return storage.Open(path, logger)
}
