package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket progress stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// API routes - Profiles and credentials
	mux.HandleFunc("/api/profiles", s.app.ProfileHandler.ListHandler)
	mux.HandleFunc("/api/credentials", s.app.CredentialsHandler.ListHandler)
	mux.HandleFunc("/api/credentials/load", s.app.CredentialsHandler.LoadHandler)

	// API routes - Login
	mux.HandleFunc("/api/login", s.app.LoginHandler.LoginManyHandler) // POST {"profiles": [...]}
	mux.HandleFunc("/api/login/", s.app.LoginHandler.LoginHandler)    // POST /{ref}

	// API routes - Batch runs
	mux.HandleFunc("/api/batch", s.app.RunsHandler.BatchHandler)
	mux.HandleFunc("/api/runs", s.app.RunsHandler.ListHandler)
	mux.HandleFunc("/api/runs/", s.handleRunRoutes)

	// API routes - Scheduler
	mux.HandleFunc("/api/schedule", s.app.SchedulerHandler.StatusHandler)
	mux.HandleFunc("/api/schedule/trigger", s.app.SchedulerHandler.TriggerHandler)

	// 404 for everything else
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleRunRoutes serves /api/runs/ (list) and /api/runs/{id}
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
			RouteCollectionOrItem(w, r, "/api/runs/", s.app.RunsHandler.ListHandler, s.app.RunsHandler.GetHandler)
		},
	})
}
