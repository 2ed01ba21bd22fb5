package api

import (
	"net/http"
	"time"

	"codeqa/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Tools     int       `json:"tools"`
	History   bool      `json:"history"`
	LLM       bool      `json:"llm"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Tools:     len(s.svc.ListTools()),
		History:   s.svc.History() != nil,
		LLM:       s.svc.AIStatus().Configured,
	})
}
