package mcp

import (
	"codeqa/internal/registry"
)

// AskQuestionTool answers a free-text question with the dispatcher.
const AskQuestionTool = "ask_question"

// Tool is an MCP tool definition.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Content is one item of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

var locationProps = map[string]interface{}{
	"project": map[string]interface{}{
		"type":        "string",
		"description": "Project directory to analyze. Defaults to the configured local project.",
	},
	"repo": map[string]interface{}{
		"type":        "string",
		"description": "Repository to analyze instead of project: \"local\", a directory or an https/git@ URL on an allowed host.",
	},
}

// buildTools lists every registered tool plus ask_question.
func (s *MCPServer) buildTools() []Tool {
	descs := s.svc.ListTools()
	tools := make([]Tool, 0, len(descs)+1)
	for _, d := range descs {
		tools = append(tools, Tool{
			Name:        d.ID,
			Description: describe(d),
			InputSchema: withLocation(d.JSONSchema()),
		})
	}
	tools = append(tools, Tool{
		Name:        AskQuestionTool,
		Description: "Answer a natural-language question about a project by running the most relevant analysis tools.",
		InputSchema: withLocation(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question, e.g. \"what dependencies does this use?\"",
				},
			},
			"required":             []interface{}{"question"},
			"additionalProperties": false,
		}),
	})
	return tools
}

func describe(d registry.ToolDescriptor) string {
	if d.Advisory {
		return d.Description + " Results are heuristic and advisory."
	}
	return d.Description
}

func withLocation(schema map[string]interface{}) map[string]interface{} {
	props, _ := schema["properties"].(map[string]interface{})
	if props == nil {
		props = map[string]interface{}{}
		schema["properties"] = props
	}
	for k, v := range locationProps {
		props[k] = v
	}
	return schema
}
