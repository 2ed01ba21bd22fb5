// Package mcp exposes the tools over the Model Context Protocol: JSON-RPC 2.0,
// one message per line on stdin and stdout.
package mcp

import (
	"encoding/json"

	"codeqa/internal/envelope"
	"codeqa/internal/errors"
)

// MCPMessage is a JSON-RPC 2.0 request, notification or response.
type MCPMessage struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *MCPError       `json:"error,omitempty"`
}

// MCPError is a JSON-RPC 2.0 error object.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *MCPError) Error() string { return e.Message }

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewErrorMessage builds an error response.
func NewErrorMessage(id interface{}, code int, message string, data interface{}) *MCPMessage {
	return &MCPMessage{Jsonrpc: "2.0", Id: id, Error: &MCPError{Code: code, Message: message, Data: data}}
}

// NewResultMessage builds a success response.
func NewResultMessage(id interface{}, result interface{}) *MCPMessage {
	return &MCPMessage{Jsonrpc: "2.0", Id: id, Result: result}
}

// errorMessageFrom maps an AnalysisError to a JSON-RPC error carrying the
// serialized detail as data.
func errorMessageFrom(id interface{}, err error) *MCPMessage {
	code := InternalError
	switch errors.CodeOf(err) {
	case errors.UnknownTool, errors.ParameterError:
		code = InvalidParams
	}
	return NewErrorMessage(id, code, err.Error(), envelope.DetailFrom(err))
}

// IsRequest reports whether the message expects a response.
func (m *MCPMessage) IsRequest() bool { return m.Method != "" && m.Id != nil }

// IsNotification reports whether the message is a request without an id.
func (m *MCPMessage) IsNotification() bool { return m.Method != "" && m.Id == nil }

// IsResponse reports whether the message answers a request.
func (m *MCPMessage) IsResponse() bool {
	return m.Method == "" && m.Id != nil && (m.Result != nil || m.Error != nil)
}
