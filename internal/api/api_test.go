package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeqa/internal/config"
	"codeqa/internal/service"
	"codeqa/internal/storage"
	"codeqa/internal/testutil"
)

type apiResponse struct {
	SchemaVersion string          `json:"schemaVersion"`
	Data          json.RawMessage `json:"data"`
	Error         *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, opts ...service.Option) (*Server, string) {
	t.Helper()
	root := testutil.SampleProject(t)
	cfg := config.DefaultConfig()
	cfg.Workspace.LocalProject = root
	svc, err := service.New(cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return NewServer(svc, cfg.Server, nil), root
}

func do(t *testing.T, s *Server, method, target string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var h HealthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 6, h.Tools)
	assert.False(t, h.History)
}

func TestRequestIDPropagates(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tools []struct {
		ID         string `json:"id"`
		Parameters []any  `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tools))
	require.Len(t, tools, 6)
	assert.Equal(t, "analyze_dependencies", tools[0].ID)
}

func TestExecuteTool(t *testing.T) {
	s, root := newTestServer(t)

	rec, resp := do(t, s, http.MethodPost, "/api/tools/find_todos_and_fixmes/execute", ExecuteRequest{Project: root})
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		ToolID  string         `json:"toolId"`
		Status  string         `json:"status"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, "ok", res.Status)
	assert.EqualValues(t, 2, res.Payload["total"])

	// local project is the default
	rec, _ = do(t, s, http.MethodPost, "/api/tools/analyze_code_metrics/execute", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecuteTool_Errors(t *testing.T) {
	s, root := newTestServer(t)

	rec, resp := do(t, s, http.MethodPost, "/api/tools/nope/execute", ExecuteRequest{Project: root})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_TOOL", resp.Error.Kind)

	// analyzer failures stay inside the envelope
	rec, resp = do(t, s, http.MethodPost, "/api/tools/analyze_git_history/execute", ExecuteRequest{Project: filepath.Join(root, "missing")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "INVALID_PATH")

	rec, resp = do(t, s, http.MethodPost, "/api/tools/analyze_code_metrics/execute", ExecuteRequest{Project: root, Params: map[string]any{"top_n": "x"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), "PARAMETER_ERROR")

	rec, resp = do(t, s, http.MethodPost, "/api/repos", RepoRequest{Repo: "https://evil.example.com/a/b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PATH", resp.Error.Kind)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "PARAMETER_ERROR")
}

func TestAsk(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "h.db"), nil)
	require.NoError(t, err)
	s, root := newTestServer(t, service.WithHistory(db))

	rec, resp := do(t, s, http.MethodPost, "/api/ask", AskRequest{Question: "what dependencies does this use?", Project: root})
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		MatchedTools []struct{ ID string } `json:"matchedTools"`
		Answer       string                `json:"answer"`
		Fallback     bool                  `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	require.Len(t, res.MatchedTools, 1)
	assert.Equal(t, "analyze_dependencies", res.MatchedTools[0].ID)
	assert.NotEmpty(t, res.Answer)
	assert.False(t, res.Fallback)

	rec, resp = do(t, s, http.MethodGet, "/api/history/questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qs []storage.Question
	require.NoError(t, json.Unmarshal(resp.Data, &qs))
	assert.Len(t, qs, 1)

	rec, resp = do(t, s, http.MethodGet, "/api/history/runs?tool=analyze_dependencies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []storage.Run
	require.NoError(t, json.Unmarshal(resp.Data, &runs))
	require.Len(t, runs, 1)

	rec, _ = do(t, s, http.MethodGet, "/api/history/runs/"+runs[0].ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, resp = do(t, s, http.MethodGet, "/api/history/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Kind)

	rec, _ = do(t, s, http.MethodGet, "/api/history/runs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTreeAndFile(t *testing.T) {
	s, _ := newTestServer(t)

	rec, resp := do(t, s, http.MethodGet, "/api/tree?depth=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []service.TreeEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	for _, e := range entries {
		assert.Zero(t, e.Depth)
	}

	rec, resp = do(t, s, http.MethodGet, "/api/file?path=server.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fc service.FileContent
	require.NoError(t, json.Unmarshal(resp.Data, &fc))
	assert.Contains(t, fc.Content, "/health")

	rec, _ = do(t, s, http.MethodGet, "/api/file?path=../../etc/passwd", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec, resp := do(t, s, http.MethodGet, "/api/ai/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st service.AIStatus
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.False(t, st.Configured)
}
