package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"codeqa/internal/envelope"
	"codeqa/internal/errors"
)

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// handleMessage processes an incoming MCP message and returns a response
func (s *MCPServer) handleMessage(ctx context.Context, msg *MCPMessage) *MCPMessage {
	if msg.Jsonrpc != "2.0" {
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: jsonrpc must be \"2.0\"", nil)
	}
	// the server never issues requests, so client responses are dropped
	if msg.IsResponse() {
		return nil
	}
	if msg.IsNotification() {
		s.logger.Debug("notification", "method", msg.Method)
		return nil
	}
	if !msg.IsRequest() {
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
	}

	s.logger.Debug("handling request", "method", msg.Method, "id", msg.Id)

	switch msg.Method {
	case "initialize":
		params := map[string]interface{}{}
		_ = decodeParams(msg.Params, &params)
		return NewResultMessage(msg.Id, s.handleInitialize(params))
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{"tools": s.tools})
	case "tools/call":
		return s.handleCallToolRequest(ctx, msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleCallToolRequest handles the tools/call request
func (s *MCPServer) handleCallToolRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	var params callParams
	if err := decodeParams(msg.Params, &params); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}
	if params.Name == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: name is required", nil)
	}
	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	s.logger.Info("calling tool", "tool", params.Name)

	if params.Name == AskQuestionTool {
		return NewResultMessage(msg.Id, s.callAsk(ctx, args))
	}
	result, err := s.callTool(ctx, params.Name, args)
	if errors.Is(err, errors.UnknownTool) {
		return errorMessageFrom(msg.Id, err)
	}
	if err != nil {
		return NewResultMessage(msg.Id, errorResult(err))
	}
	return NewResultMessage(msg.Id, result)
}

func (s *MCPServer) callTool(ctx context.Context, name string, args map[string]interface{}) (*CallToolResult, error) {
	projectPath, err := s.projectFor(ctx, args)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.ExecuteTool(ctx, name, args, projectPath)
	if err != nil {
		return nil, err
	}
	text, err := json.Marshal(envelope.Wrap(res))
	if err != nil {
		return nil, errors.New(errors.AnalyzerInternal, "marshal response", err)
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: !res.OK(),
	}, nil
}

func (s *MCPServer) callAsk(ctx context.Context, args map[string]interface{}) *CallToolResult {
	question, _ := args["question"].(string)
	delete(args, "question")
	projectPath, err := s.projectFor(ctx, args)
	if err != nil {
		return errorResult(err)
	}
	res, err := s.svc.AnswerQuestion(ctx, question, projectPath)
	if err != nil {
		return errorResult(errors.New(errors.Timeout, "question cancelled", err))
	}
	text, err := json.Marshal(envelope.Wrap(res))
	if err != nil {
		return errorResult(errors.New(errors.AnalyzerInternal, "marshal response", err))
	}
	return &CallToolResult{Content: []Content{
		{Type: "text", Text: res.Answer},
		{Type: "text", Text: string(text)},
	}}
}

// projectFor removes the location arguments from args and returns the
// directory to analyze.
func (s *MCPServer) projectFor(ctx context.Context, args map[string]interface{}) (string, error) {
	project, _ := args["project"].(string)
	repo, _ := args["repo"].(string)
	delete(args, "project")
	delete(args, "repo")

	if repo != "" {
		ws, err := s.svc.ResolveRepo(ctx, repo)
		if err != nil {
			return "", err
		}
		return ws.Path, nil
	}
	if project == "" {
		project = s.svc.Config().Workspace.LocalProject
	}
	return project, nil
}

func errorResult(err error) *CallToolResult {
	text, _ := json.Marshal(envelope.WrapError(err))
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(text)}},
		IsError: true,
	}
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}
