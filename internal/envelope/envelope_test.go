package envelope

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/errors"
)

func fakeClock(steps ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := steps[i]
		if i < len(steps)-1 {
			i++
		}
		return t
	}
}

type typedPayload struct {
	Total int            `json:"total"`
	Items []string       `json:"items"`
	Map   map[string]int `json:"map"`
}

func TestBuilderOK(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	res := StartAt("analyze_code_metrics", fakeClock(t0, t0.Add(42*time.Millisecond))).
		OK(typedPayload{Total: 3, Items: []string{"a"}, Map: map[string]int{".go": 2}})

	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.OK())
	assert.Nil(t, res.Error)
	assert.Equal(t, int64(42), res.ElapsedMs)

	payload, ok := res.Payload.(map[string]any)
	require.True(t, ok, "payload should be a generic map, got %T", res.Payload)
	assert.Equal(t, float64(3), payload["total"])
	assert.Equal(t, []any{"a"}, payload["items"])
	assert.Equal(t, map[string]any{".go": float64(2)}, payload["map"])
}

func TestBuilderFail(t *testing.T) {
	typed := fmt.Errorf("history: %w", errors.New(errors.NotAGitRepo, "not a git repository", nil))
	res := StartAt("analyze_git_history", time.Now).Fail(typed)

	assert.Equal(t, StatusError, res.Status)
	assert.Nil(t, res.Payload)
	require.NotNil(t, res.Error)
	assert.Equal(t, errors.NotAGitRepo, res.Error.Kind)
	assert.NotEmpty(t, res.Error.SuggestedFixes)

	plain := StartAt("x", time.Now).Fail(stderrors.New("boom"))
	assert.Equal(t, errors.AnalyzerInternal, plain.Error.Kind)
}

func TestBuilderOK_Unserializable(t *testing.T) {
	res := StartAt("x", time.Now).OK(map[string]any{"ch": make(chan int)})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, errors.AnalyzerInternal, res.Error.Kind)
}

func TestNormalizeNil(t *testing.T) {
	v, err := Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, v)
}

func TestResponseJSON(t *testing.T) {
	data, err := json.Marshal(Wrap(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"schemaVersion":"1.0","data":{"n":1}}`, string(data))

	data, err = json.Marshal(WrapError(errors.Newf(errors.UnknownTool, "tool %q is not registered", "x")))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "UNKNOWN_TOOL", decoded["error"].(map[string]any)["kind"])
}

func TestMatchedIDs(t *testing.T) {
	d := &DispatchResult{MatchedTools: []ToolMatch{{ID: "a", Score: 2}, {ID: "b", Score: 1}}}
	assert.Equal(t, []string{"a", "b"}, d.MatchedIDs())
}
