package registry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Params are validated parameter values with defaults applied. Integers are
// int, numbers float64, arrays []string.
type Params map[string]any

// Int returns the integer parameter name, or 0.
func (p Params) Int(name string) int {
	v, _ := p[name].(int)
	return v
}

// Float returns the number parameter name, or 0.
func (p Params) Float(name string) float64 {
	v, _ := p[name].(float64)
	return v
}

// Bool returns the boolean parameter name, or false.
func (p Params) Bool(name string) bool {
	v, _ := p[name].(bool)
	return v
}

// String returns the string parameter name, or "".
func (p Params) String(name string) string {
	v, _ := p[name].(string)
	return v
}

// Strings returns the array parameter name, or nil.
func (p Params) Strings(name string) []string {
	v, _ := p[name].([]string)
	return v
}

// coerce converts a decoded JSON value (or a Go literal used as a default)
// to the Go type Params promises for spec.
func coerce(spec ParamSpec, v any) (any, error) {
	switch spec.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i), nil
			}
			if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
				return int(f), nil
			}
		}
	case TypeNumber:
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case float64:
			return n, nil
		case json.Number:
			return n.Float64()
		}
	case TypeArray:
		switch arr := v.(type) {
		case []string:
			return append([]string(nil), arr...), nil
		case []any:
			out := make([]string, 0, len(arr))
			for _, item := range arr {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected array of strings")
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", spec.Type, v)
}
