// Package httpapi exposes the engine's workspace, run, and terminal
// operations as the HTTP surface described for the editor frontend: file
// tree/read/write routes, the chat/run lifecycle routes, and terminal
// session routes, all under /api.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/agent-engine/internal/config"
	"github.com/haasonsaas/agent-engine/internal/engine"
	"github.com/haasonsaas/agent-engine/internal/observability"
	"github.com/haasonsaas/agent-engine/internal/terminalsvc"
	"github.com/haasonsaas/agent-engine/internal/workspace"
)

// Server wires the engine's run registry, workspace, and terminal manager
// behind the HTTP surface.
type Server struct {
	addr      string
	fs        *workspace.FS
	runs      *engine.Registry
	terminals *terminalsvc.Manager
	providers config.ProvidersConfig
	logger    *slog.Logger
	metrics   *observability.Metrics
	access    *observability.Logger

	httpServer *http.Server
	listener   net.Listener
}

// New builds a Server. addr is the listen address (e.g. ":8080"). metrics
// may be nil, in which case request metrics are not recorded.
func New(addr string, fs *workspace.FS, runs *engine.Registry, terminals *terminalsvc.Manager, providers config.ProvidersConfig, logger *slog.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	access := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
	return &Server{addr: addr, fs: fs, runs: runs, terminals: terminals, providers: providers, logger: logger, metrics: metrics, access: access}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/api/files/tree", s.handleFilesTree)
	mux.HandleFunc("/api/files/read", s.handleFilesRead)
	mux.HandleFunc("/api/files/write", s.handleFilesWrite)
	mux.HandleFunc("/api/files/create", s.handleFilesCreate)
	mux.HandleFunc("/api/files/delete", s.handleFilesDelete)
	mux.HandleFunc("/api/files/rename", s.handleFilesRename)

	mux.HandleFunc("/api/ai/providers", s.handleAIProviders)
	mux.HandleFunc("/api/ai/chat", s.handleAIChat)
	mux.HandleFunc("/api/ai/runs", s.handleAIRunsList)
	mux.HandleFunc("/api/ai/runs/start", s.handleAIRunsStart)
	mux.HandleFunc("/api/ai/runs/", s.handleAIRunsByID)

	mux.HandleFunc("/api/terminal/sessions", s.handleTerminalCreate)
	mux.HandleFunc("/api/terminal/sessions/", s.handleTerminalByID)

	return s.withAccessLog(mux)
}

// statusRecorder captures the status code a handler wrote so the access-log
// middleware can report it after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withAccessLog wraps next with request timing, Prometheus HTTP metrics, and
// a redaction-aware access log line per request.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		statusStr := fmt.Sprintf("%d", rec.status)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, statusStr, elapsed.Seconds())
		}
		s.access.Info(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", elapsed.Milliseconds())
	})
}

// Start begins serving on s.addr in a background goroutine. It returns once
// the listener is bound; Serve errors after that point are logged, not
// returned.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.addr, err)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("httpapi listening", "addr", s.addr)
	return nil
}

// Stop gracefully shuts the server down, waiting up to the context deadline
// for in-flight requests to finish.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
