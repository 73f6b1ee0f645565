// Package server provides the HTTP server for browsing tailgate runs and
// following a running pipeline live.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/tailgate/internal/config"
	"github.com/ayusman/tailgate/internal/server/api"
	"github.com/ayusman/tailgate/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Base is the configuration new runs start from.
	Base     config.Config
	Launcher api.Launcher
	Hub      *LiveHub
}

// Server represents the HTTP server for the tailgate application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/variants", api.NewVariantsHandler())

	// Register run API handler if Store is configured
	if s.config.Store != nil {
		runHandler := api.NewRunHandler(s.config.Store, s.config.Base, s.config.Launcher)
		s.mux.Handle("/api/runs", runHandler)
		s.mux.Handle("/api/runs/", runHandler)
	}

	// Register live statistics WebSocket endpoint if a hub is configured
	if s.config.Hub != nil {
		s.mux.Handle("/api/live", s.config.Hub)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Hub != nil {
		response["live_clients"] = s.config.Hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
