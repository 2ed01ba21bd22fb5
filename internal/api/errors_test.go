package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeqa/internal/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.UnknownTool, http.StatusNotFound},
		{errors.NotFound, http.StatusNotFound},
		{errors.DuplicateTool, http.StatusConflict},
		{errors.ParameterError, http.StatusBadRequest},
		{errors.InvalidPath, http.StatusBadRequest},
		{errors.NotAGitRepo, http.StatusUnprocessableEntity},
		{errors.Timeout, http.StatusGatewayTimeout},
		{errors.AnalyzerInternal, http.StatusInternalServerError},
		{errors.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}
