package api

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"codeqa/internal/errors"
	"codeqa/internal/storage"
)

const maxBodyBytes = 1 << 20

// ExecuteRequest is the body of POST /api/tools/{id}/execute.
type ExecuteRequest struct {
	Project string         `json:"project"`
	Repo    string         `json:"repo"`
	Params  map[string]any `json:"params"`
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
	Project  string `json:"project"`
	Repo     string `json:"repo"`
}

// RepoRequest is the body of POST /api/repos.
type RepoRequest struct {
	Repo string `json:"repo"`
}

// GET /api/tools
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.svc.ListTools())
}

// POST /api/tools/{id}/execute
// Analyzer failures are reported inside the envelope with status 200; only an
// unknown tool or an unusable request is an HTTP error.
func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	projectPath, err := s.projectFor(r.Context(), req.Project, req.Repo)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.svc.ExecuteTool(r.Context(), chi.URLParam(r, "id"), req.Params, projectPath)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// POST /api/ask
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	projectPath, err := s.projectFor(r.Context(), req.Project, req.Repo)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := s.svc.AnswerQuestion(r.Context(), req.Question, projectPath)
	if err != nil {
		WriteError(w, errors.New(errors.Timeout, "request cancelled", err))
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// POST /api/repos
func (s *Server) handleResolveRepo(w http.ResponseWriter, r *http.Request) {
	var req RepoRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	ws, err := s.svc.ResolveRepo(r.Context(), req.Repo)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ws)
}

// GET /api/tree?project=&depth=
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	depth, err := intQuery(r, "depth")
	if err != nil {
		WriteError(w, err)
		return
	}
	entries, err := s.svc.Tree(r.Context(), s.projectOrLocal(r.URL.Query().Get("project")), depth)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

// GET /api/file?project=&path=
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fc, err := s.svc.ReadFile(s.projectOrLocal(q.Get("project")), q.Get("path"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, fc)
}

// GET /api/ai/status
func (s *Server) handleAIStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.svc.AIStatus())
}

// GET /api/history/questions?limit=
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	db := s.svc.History()
	if db == nil {
		WriteJSON(w, http.StatusOK, []storage.Question{})
		return
	}
	qs, err := db.ListQuestions(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, qs)
}

// GET /api/history/runs?tool=&limit=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	db := s.svc.History()
	if db == nil {
		WriteJSON(w, http.StatusOK, []storage.Run{})
		return
	}
	runs, err := db.ListRuns(r.Context(), storage.RunFilter{ToolID: r.URL.Query().Get("tool"), Limit: limit})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, runs)
}

// GET /api/history/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	db := s.svc.History()
	if db == nil {
		WriteError(w, errors.Newf(errors.NotFound, "history is disabled"))
		return
	}
	run, err := db.GetRun(r.Context(), id)
	if stderrors.Is(err, sql.ErrNoRows) {
		WriteError(w, errors.Newf(errors.NotFound, "run %q not found", id))
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// projectFor picks the project directory for a request. A repo reference is
// materialized first; otherwise the project path goes to the core as is so
// that path problems surface inside the result envelopes.
func (s *Server) projectFor(ctx context.Context, project, repo string) (string, error) {
	if repo != "" {
		ws, err := s.svc.ResolveRepo(ctx, repo)
		if err != nil {
			return "", err
		}
		return ws.Path, nil
	}
	return s.projectOrLocal(project), nil
}

func (s *Server) projectOrLocal(project string) string {
	if project == "" {
		return s.svc.Config().Workspace.LocalProject
	}
	return project
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.New(errors.ParameterError, "invalid JSON body", err)
	}
	return nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Newf(errors.ParameterError, "query parameter %s must be a non-negative integer", name)
	}
	return n, nil
}
