// Package errors defines the typed failure taxonomy shared by the registry,
// executor, analyzers and the outer surfaces.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnknownTool indicates a tool id that is not registered
	UnknownTool ErrorCode = "UNKNOWN_TOOL"
	// DuplicateTool indicates a second registration under an existing id
	DuplicateTool ErrorCode = "DUPLICATE_TOOL"
	// ParameterError indicates parameters that do not satisfy the tool schema
	ParameterError ErrorCode = "PARAMETER_ERROR"
	// InvalidPath indicates a project path that is missing, not a directory or unreadable
	InvalidPath ErrorCode = "INVALID_PATH"
	// NotAGitRepo indicates the project has no git metadata
	NotAGitRepo ErrorCode = "NOT_A_GIT_REPO"
	// ScanItemFailed indicates a single file or manifest could not be processed
	ScanItemFailed ErrorCode = "SCAN_ITEM_FAILED"
	// AnalyzerInternal indicates an unexpected analyzer failure
	AnalyzerInternal ErrorCode = "ANALYZER_INTERNAL"
	// Timeout indicates an external command or request timed out
	Timeout ErrorCode = "TIMEOUT"
	// NotFound indicates a stored record that does not exist
	NotFound ErrorCode = "NOT_FOUND"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// AnalysisError is a typed error carrying a stable code, a message and
// optional suggestions.
type AnalysisError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an AnalysisError with the default suggested fixes for code.
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates an AnalysisError with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *AnalysisError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AnalysisError in err's chain, or
// AnalyzerInternal when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return AnalyzerInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var ae *AnalysisError
	return stderrors.As(err, &ae) && ae.Code == code
}

// As exposes the standard library As for callers that import this package
// under the name errors.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	UnknownTool: {
		{
			Type:        RunCommand,
			Command:     "codeqa tools",
			Safe:        true,
			Description: "List the registered tool ids",
		},
	},
	NotAGitRepo: {
		{
			Type:        RunCommand,
			Command:     "git init",
			Description: "Initialize a git repository in the project root",
		},
	},
	InvalidPath: {
		{
			Type:        RunCommand,
			Command:     "codeqa run <tool> --project <dir>",
			Safe:        true,
			Description: "Point --project at an existing, readable directory",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "codeqa config show",
			Safe:        true,
			Description: "Check git.timeoutMs and raise it for large repositories",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
