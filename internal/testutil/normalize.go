package testutil

import (
	"encoding/json"
	"testing"
)

// volatileFields change between otherwise identical runs.
var volatileFields = map[string]bool{
	"elapsedMs": true,
	"startedAt": true,
}

// StripVolatile round-trips v through JSON and drops timing fields at any
// depth, so two runs over the same tree compare equal.
func StripVolatile(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return strip(out)
}

func strip(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			if volatileFields[k] {
				continue
			}
			res[k] = strip(item)
		}
		return res
	case []any:
		for i := range val {
			val[i] = strip(val[i])
		}
		return val
	default:
		return v
	}
}
