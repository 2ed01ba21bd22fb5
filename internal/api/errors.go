package api

import (
	"encoding/json"
	"net/http"

	"codeqa/internal/envelope"
	"codeqa/internal/errors"
)

// WriteJSON writes v wrapped in a schema-versioned envelope.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	writeResponse(w, status, envelope.Wrap(v))
}

// WriteError writes err with the status mapped from its code.
func WriteError(w http.ResponseWriter, err error) {
	writeResponse(w, StatusFor(errors.CodeOf(err)), envelope.WrapError(err))
}

func writeResponse(w http.ResponseWriter, status int, resp *envelope.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusFor maps error codes to HTTP status codes
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.UnknownTool, errors.NotFound:
		return http.StatusNotFound // 404
	case errors.DuplicateTool:
		return http.StatusConflict // 409
	case errors.ParameterError, errors.InvalidPath:
		return http.StatusBadRequest // 400
	case errors.NotAGitRepo, errors.ScanItemFailed:
		return http.StatusUnprocessableEntity // 422
	case errors.Timeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
