package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"codeqa/internal/errors"
)

// Builder assembles an AnalysisResult while a tool runs.
type Builder struct {
	res   *AnalysisResult
	clock func() time.Time
}

// StartAt begins timing an execution of toolID against clock.
func StartAt(toolID string, clock func() time.Time) *Builder {
	return &Builder{
		res:   &AnalysisResult{ToolID: toolID, StartedAt: clock().UTC()},
		clock: clock,
	}
}

// Meta attaches metadata.
func (b *Builder) Meta(m *Meta) *Builder {
	b.res.Meta = m
	return b
}

// OK finishes with a payload. A payload that cannot be reduced to JSON
// primitives turns the result into an ANALYZER_INTERNAL error.
func (b *Builder) OK(payload any) *AnalysisResult {
	normalized, err := Normalize(payload)
	if err != nil {
		return b.Fail(errors.New(errors.AnalyzerInternal, "payload is not serializable", err))
	}
	b.res.Status = StatusOK
	b.res.Payload = normalized
	return b.finish()
}

// Fail finishes with an error.
func (b *Builder) Fail(err error) *AnalysisResult {
	b.res.Status = StatusError
	b.res.Payload = nil
	b.res.Error = DetailFrom(err)
	return b.finish()
}

func (b *Builder) finish() *AnalysisResult {
	b.res.ElapsedMs = b.clock().Sub(b.res.StartedAt).Milliseconds()
	if b.res.ElapsedMs < 0 {
		b.res.ElapsedMs = 0
	}
	return b.res
}

// DetailFrom converts an error to its serializable form. Errors without a
// code are reported as ANALYZER_INTERNAL.
func DetailFrom(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var ae *errors.AnalysisError
	if errors.As(err, &ae) {
		return &ErrorDetail{
			Kind:           ae.Code,
			Message:        err.Error(),
			Details:        ae.Details,
			SuggestedFixes: ae.SuggestedFixes,
		}
	}
	return &ErrorDetail{Kind: errors.AnalyzerInternal, Message: err.Error()}
}

// Normalize reduces v to JSON primitives, []any and map[string]any.
func Normalize(v any) (any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return out, nil
}
