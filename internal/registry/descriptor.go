// Package registry holds the process-wide table of analysis tools: their
// descriptors, parameter schemas and analyzer functions.
package registry

import (
	"context"
	"fmt"

	"codeqa/internal/project"
)

// Kind identifies which analyzer family a tool belongs to.
type Kind string

const (
	KindDependency   Kind = "dependency"
	KindMetrics      Kind = "metrics"
	KindSecurity     Kind = "security"
	KindGitHistory   Kind = "git_history"
	KindTaskComments Kind = "task_comments"
	KindArchitecture Kind = "architecture"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array" // array of strings
)

// ParamSpec describes one named parameter.
type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
	Minimum     *int      `json:"minimum,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// ToolDescriptor is the immutable public description of a tool.
type ToolDescriptor struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description"`
	Kind        Kind        `json:"kind"`
	Parameters  []ParamSpec `json:"parameters"`
	// Advisory marks tools whose output comes from naming and pattern
	// heuristics rather than parsed metadata.
	Advisory bool `json:"advisory,omitempty"`
}

// Analyzer computes a tool's payload for one project. It must not write to
// the project and should return typed errors from internal/errors for
// conditions that have a code.
type Analyzer func(ctx context.Context, proj *project.Context, params Params) (any, error)

// Min is a helper for ParamSpec.Minimum literals.
func Min(n int) *int { return &n }

// JSONSchema renders the descriptor's parameters as a JSON Schema object
// that rejects unknown keys.
func (d ToolDescriptor) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := []any{}
	for _, p := range d.Parameters {
		prop := map[string]any{"type": string(p.Type)}
		if p.Type == TypeArray {
			prop["items"] = map[string]any{"type": "string"}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (d ToolDescriptor) check() error {
	if d.ID == "" {
		return fmt.Errorf("tool id is empty")
	}
	seen := map[string]bool{}
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter with empty name", d.ID)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: duplicate parameter %s", d.ID, p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray:
		default:
			return fmt.Errorf("tool %s: parameter %s has unsupported type %q", d.ID, p.Name, p.Type)
		}
		if p.Default != nil {
			if _, err := coerce(p, p.Default); err != nil {
				return fmt.Errorf("tool %s: default of %s: %w", d.ID, p.Name, err)
			}
		}
	}
	return nil
}

func (d ToolDescriptor) clone() ToolDescriptor {
	c := d
	c.Parameters = make([]ParamSpec, len(d.Parameters))
	for i, p := range d.Parameters {
		cp := p
		if p.Minimum != nil {
			m := *p.Minimum
			cp.Minimum = &m
		}
		cp.Enum = append([]string(nil), p.Enum...)
		if arr, ok := p.Default.([]string); ok {
			cp.Default = append([]string(nil), arr...)
		}
		c.Parameters[i] = cp
	}
	return c
}
