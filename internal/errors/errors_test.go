package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAnalysisError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InvalidPath,
			message:   "project path does not exist",
			cause:     stderrors.New("stat /nope: no such file or directory"),
			wantParts: []string{"INVALID_PATH", "project path does not exist", "no such file"},
		},
		{
			name:      "without cause",
			code:      UnknownTool,
			message:   "tool 'nope' is not registered",
			wantParts: []string{"UNKNOWN_TOOL", "tool 'nope' is not registered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestAnalysisError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New(AnalyzerInternal, "something went wrong", cause)
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if Newf(Timeout, "git log timed out after %dms", 100).Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("reading history: %w", New(NotAGitRepo, "not a git repository", nil))

	if got := CodeOf(wrapped); got != NotAGitRepo {
		t.Errorf("CodeOf(wrapped) = %v, want %v", got, NotAGitRepo)
	}
	if got := CodeOf(stderrors.New("plain")); got != AnalyzerInternal {
		t.Errorf("CodeOf(plain) = %v, want %v", got, AnalyzerInternal)
	}
	if !Is(wrapped, NotAGitRepo) {
		t.Errorf("Is(wrapped, NotAGitRepo) = false")
	}
	if Is(wrapped, InvalidPath) {
		t.Errorf("Is(wrapped, InvalidPath) = true")
	}
}

func TestSuggestedFixes(t *testing.T) {
	err := New(NotAGitRepo, "not a git repository", nil)
	if len(err.SuggestedFixes) == 0 || err.SuggestedFixes[0].Command != "git init" {
		t.Errorf("SuggestedFixes = %+v, want git init", err.SuggestedFixes)
	}
	if GetSuggestedFixes(ScanItemFailed) != nil {
		t.Errorf("ScanItemFailed should have no suggested fixes")
	}
}

func TestWithDetails(t *testing.T) {
	err := Newf(ParameterError, "bad params").WithDetails(map[string]string{"top_n": "expected integer"})
	if err.Details == nil {
		t.Fatal("Details not set")
	}
}
