package api

import "github.com/go-chi/chi/v5"

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{id}/execute", s.handleExecuteTool)
		r.Post("/ask", s.handleAsk)
		r.Post("/repos", s.handleResolveRepo)

		r.Get("/tree", s.handleTree)
		r.Get("/file", s.handleFile)
		r.Get("/ai/status", s.handleAIStatus)

		r.Get("/history/questions", s.handleListQuestions)
		r.Get("/history/runs", s.handleListRuns)
		r.Get("/history/runs/{id}", s.handleGetRun)
	})
}
