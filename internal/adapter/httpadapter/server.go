package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxLocationBody = 64 << 10

// Sidebar is the document the server drives and renders.
type Sidebar interface {
	Navigate(url, header string)
	Render(w io.Writer) error
}

// LocationRequest moves the sidebar to a new page.
type LocationRequest struct {
	URL    string `json:"url"`
	Header string `json:"header"`
}

// Server exposes the sidebar plus health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	sidebar    Sidebar
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /location,
// and /sidebar routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, sidebar Sidebar, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sidebar: sidebar,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /location", s.handleLocation)
	mux.HandleFunc("GET /sidebar", s.handleSidebar)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLocationBody)).Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.URL == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	s.sidebar.Navigate(req.URL, req.Header)
	s.logger.Debug("location updated", "url", req.URL, "header", req.Header)
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleSidebar(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.sidebar.Render(w); err != nil {
		s.logger.Error("render sidebar", "error", err)
	}
}
