// Package executor runs a registered tool against a project path inside a
// fault boundary and always returns a uniform envelope.
package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"codeqa/internal/envelope"
	"codeqa/internal/errors"
	"codeqa/internal/project"
	"codeqa/internal/registry"
	"codeqa/internal/slogutil"
)

// Execution is what a Recorder receives after every run.
type Execution struct {
	ToolID      string
	ProjectPath string
	Params      map[string]any
	Result      *envelope.AnalysisResult
}

// Recorder persists executions. Failures are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, exec Execution) error
}

// Executor validates requests and invokes analyzers.
type Executor struct {
	registry *registry.Registry
	walk     project.Options
	logger   *slog.Logger
	recorder Recorder
	clock    func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithRecorder notifies r after each execution.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

// New creates an executor over reg. walk configures project enumeration.
func New(reg *registry.Registry, walk project.Options, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	e := &Executor{
		registry: reg,
		walk:     walk,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor resolves tools from.
func (e *Executor) Registry() *registry.Registry {
	return e.registry
}

// Execute runs toolID against projectPath. The returned error is non-nil
// only for an unknown tool id; every other failure is reported inside the
// envelope.
func (e *Executor) Execute(ctx context.Context, toolID string, params map[string]any, projectPath string) (*envelope.AnalysisResult, error) {
	tool, err := e.registry.Get(toolID)
	if err != nil {
		e.logger.Warn("unknown tool requested", "tool", toolID)
		return nil, err
	}

	b := envelope.StartAt(toolID, e.clock).Meta(metaFor(tool.Descriptor))
	var res *envelope.AnalysisResult

	proj, err := project.Resolve(projectPath, e.walk)
	if err != nil {
		res = b.Fail(err)
	} else if validated, verr := tool.Validate(params); verr != nil {
		res = b.Fail(verr)
	} else {
		payload, runErr := e.invoke(ctx, tool, proj, validated)
		if runErr != nil {
			res = b.Fail(runErr)
		} else {
			res = b.OK(payload)
		}
	}

	attrs := []any{"tool", toolID, "project", projectPath, "status", res.Status, "elapsedMs", res.ElapsedMs}
	if res.Error != nil {
		attrs = append(attrs, "kind", res.Error.Kind)
		e.logger.Warn("tool failed", append(attrs, "error", res.Error.Message)...)
	} else {
		e.logger.Info("tool executed", attrs...)
	}

	if e.recorder != nil {
		rec := Execution{ToolID: toolID, ProjectPath: projectPath, Params: params, Result: res}
		if err := e.recorder.Record(ctx, rec); err != nil {
			e.logger.Warn("recording execution failed", "tool", toolID, "error", err)
		}
	}
	return res, nil
}

// invoke calls the analyzer, converting panics and untyped errors to
// ANALYZER_INTERNAL while keeping the codes of typed errors.
func (e *Executor) invoke(ctx context.Context, tool *registry.Tool, proj *project.Context, params registry.Params) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked", "tool", tool.Descriptor.ID, "panic", r, "stack", string(debug.Stack()))
			payload = nil
			err = errors.New(errors.AnalyzerInternal, fmt.Sprintf("analyzer %s panicked: %v", tool.Descriptor.ID, r), nil)
		}
	}()

	payload, err = tool.Analyzer(ctx, proj, params)
	if err == nil {
		return payload, nil
	}

	var ae *errors.AnalysisError
	switch {
	case errors.As(err, &ae):
		return nil, err
	case stderrors.Is(err, context.DeadlineExceeded):
		return nil, errors.New(errors.Timeout, "analysis exceeded its deadline", err)
	default:
		return nil, errors.New(errors.AnalyzerInternal, fmt.Sprintf("analyzer %s failed", tool.Descriptor.ID), err)
	}
}

func metaFor(d registry.ToolDescriptor) *envelope.Meta {
	if d.Advisory {
		return &envelope.Meta{Confidence: envelope.TierLow, Advisory: true}
	}
	return &envelope.Meta{Confidence: envelope.TierHigh}
}
