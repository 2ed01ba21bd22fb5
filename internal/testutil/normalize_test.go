package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripVolatile(t *testing.T) {
	in := map[string]any{
		"elapsedMs": 12,
		"toolId":    "x",
		"results": []any{
			map[string]any{"startedAt": "now", "status": "ok"},
		},
	}
	got := StripVolatile(t, in)
	assert.Equal(t, map[string]any{
		"toolId":  "x",
		"results": []any{map[string]any{"status": "ok"}},
	}, got)
}
