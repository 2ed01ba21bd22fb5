// Package envelope defines the uniform result shapes every tool execution
// and every dispatched question produce.
package envelope

import (
	"time"

	"codeqa/internal/errors"
)

// Status is the outcome of one tool execution.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ConfidenceTier represents how much a payload can be trusted.
type ConfidenceTier string

const (
	// TierHigh indicates parsed manifests or git metadata.
	TierHigh ConfidenceTier = "high"
	// TierLow indicates pattern-based heuristics.
	TierLow ConfidenceTier = "low"
)

// ErrorDetail is the serializable form of a failed execution.
type ErrorDetail struct {
	Kind           errors.ErrorCode   `json:"kind"`
	Message        string             `json:"message"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// Meta holds result metadata.
type Meta struct {
	Confidence ConfidenceTier `json:"confidence,omitempty"`
	Advisory   bool           `json:"advisory,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// AnalysisResult is the envelope for one tool execution. Exactly one of
// Payload and Error is set, matching Status.
type AnalysisResult struct {
	ToolID    string       `json:"toolId"`
	Status    Status       `json:"status"`
	Payload   any          `json:"payload,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Meta      *Meta        `json:"meta,omitempty"`
	StartedAt time.Time    `json:"startedAt"`
	ElapsedMs int64        `json:"elapsedMs"`
}

// OK reports whether the execution succeeded.
func (r *AnalysisResult) OK() bool {
	return r != nil && r.Status == StatusOK
}

// ToolMatch is one selected tool and its keyword score.
type ToolMatch struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// AnswerSource tells whether the answer came from templates or an LLM.
type AnswerSource string

const (
	AnswerTemplate AnswerSource = "template"
	AnswerLLM      AnswerSource = "llm"
)

// DispatchResult is the envelope for a dispatched question.
type DispatchResult struct {
	Question     string                     `json:"question"`
	ProjectPath  string                     `json:"projectPath"`
	MatchedTools []ToolMatch                `json:"matchedTools"`
	Fallback     bool                       `json:"fallback"`
	Results      map[string]*AnalysisResult `json:"results"`
	Answer       string                     `json:"answer"`
	AnswerSource AnswerSource               `json:"answerSource"`
	ElapsedMs    int64                      `json:"elapsedMs"`
}

// MatchedIDs returns the selected tool ids in relevance order.
func (d *DispatchResult) MatchedIDs() []string {
	ids := make([]string, len(d.MatchedTools))
	for i, m := range d.MatchedTools {
		ids[i] = m.ID
	}
	return ids
}

// Response wraps any outer-surface reply (HTTP, MCP, CLI json) with a
// schema version.
type Response struct {
	SchemaVersion string       `json:"schemaVersion"`
	Data          interface{}  `json:"data,omitempty"`
	Error         *ErrorDetail `json:"error,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Wrap builds a successful Response.
func Wrap(data interface{}) *Response {
	return &Response{SchemaVersion: CurrentSchemaVersion, Data: data}
}

// WrapError builds a failed Response from any error.
func WrapError(err error) *Response {
	return &Response{SchemaVersion: CurrentSchemaVersion, Error: DetailFrom(err)}
}
