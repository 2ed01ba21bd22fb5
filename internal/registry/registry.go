package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"codeqa/internal/errors"
)

// Tool is a registered descriptor with its analyzer and compiled schema.
type Tool struct {
	Descriptor ToolDescriptor
	Analyzer   Analyzer
	Order      int

	schema *jsonschema.Schema
}

// Registry maps tool ids to tools. It is populated once at startup and
// read-only afterwards, so it carries no locks.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate ids fail with DUPLICATE_TOOL; malformed
// descriptors fail with PARAMETER_ERROR.
func (r *Registry) Register(desc ToolDescriptor, analyzer Analyzer) error {
	if _, exists := r.tools[desc.ID]; exists {
		return errors.Newf(errors.DuplicateTool, "tool %q is already registered", desc.ID)
	}
	if analyzer == nil {
		return errors.Newf(errors.ParameterError, "tool %q has no analyzer", desc.ID)
	}
	if err := desc.check(); err != nil {
		return errors.New(errors.ParameterError, "invalid tool descriptor", err)
	}

	schema, err := compileSchema(desc)
	if err != nil {
		return errors.New(errors.ParameterError, fmt.Sprintf("tool %q has an invalid parameter schema", desc.ID), err)
	}

	r.tools[desc.ID] = &Tool{
		Descriptor: desc.clone(),
		Analyzer:   analyzer,
		Order:      len(r.order),
		schema:     schema,
	}
	r.order = append(r.order, desc.ID)
	return nil
}

// MustRegister is Register for built-in tables; it panics on error.
func (r *Registry) MustRegister(desc ToolDescriptor, analyzer Analyzer) {
	if err := r.Register(desc, analyzer); err != nil {
		panic(err)
	}
}

// Get returns the tool with id, or UNKNOWN_TOOL.
func (r *Registry) Get(id string) (*Tool, error) {
	t, ok := r.tools[id]
	if !ok {
		return nil, errors.Newf(errors.UnknownTool, "tool %q is not registered", id).
			WithDetails(map[string]any{"available": r.IDs()})
	}
	return t, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.tools[id]
	return ok
}

// List returns copies of all descriptors in registration order.
func (r *Registry) List() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id].Descriptor.clone())
	}
	return out
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Order returns the registration index of id, or -1.
func (r *Registry) Order(id string) int {
	if t, ok := r.tools[id]; ok {
		return t.Order
	}
	return -1
}

// Validate checks params against the tool's schema and returns them with
// defaults applied. Unknown keys, missing required keys and type
// mismatches fail with PARAMETER_ERROR.
func (t *Tool) Validate(params map[string]any) (Params, error) {
	if params == nil {
		params = map[string]any{}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.New(errors.ParameterError, "parameters are not JSON-encodable", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(errors.ParameterError, "parameters are not valid JSON", err)
	}
	if err := t.schema.Validate(inst); err != nil {
		return nil, errors.New(errors.ParameterError,
			fmt.Sprintf("invalid parameters for %s", t.Descriptor.ID), flattenValidation(err))
	}

	obj, _ := inst.(map[string]any)
	out := make(Params, len(t.Descriptor.Parameters))
	for _, spec := range t.Descriptor.Parameters {
		v, ok := obj[spec.Name]
		if !ok {
			if spec.Default == nil {
				continue
			}
			v = spec.Default
		}
		cv, err := coerce(spec, v)
		if err != nil {
			return nil, errors.New(errors.ParameterError, "parameter "+spec.Name, err)
		}
		out[spec.Name] = cv
	}
	return out, nil
}

// Validate is a convenience for Get followed by Tool.Validate.
func (r *Registry) Validate(id string, params map[string]any) (Params, error) {
	t, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return t.Validate(params)
}

func compileSchema(desc ToolDescriptor) (*jsonschema.Schema, error) {
	// round-trip so the compiler sees plain JSON values
	raw, err := json.Marshal(desc.JSONSchema())
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	url := desc.ID + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// flattenValidation turns a multi-line schema validation error into one line.
func flattenValidation(err error) error {
	lines := strings.Split(err.Error(), "\n")
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "- ")
		if l == "" || strings.HasPrefix(l, "jsonschema validation failed") {
			continue
		}
		parts = append(parts, l)
	}
	if len(parts) == 0 {
		return err
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}
