// Package server exposes the HTTP front-end: template loading, project
// generation, and the static form page.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/kavindra/stencil/internal/metrics"
	"github.com/kavindra/stencil/pkg/engine"
	"github.com/kavindra/stencil/pkg/source"
	"github.com/kavindra/stencil/pkg/store"
)

// Server is the scaffolding web server
type Server struct {
	options        Options
	server         *http.Server
	acquirer       *source.Acquirer
	store          *store.Store
	engine         *engine.Engine
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// Options configures the server
type Options struct {
	Host string
	Port int
}

// New creates a new Server
func New(options Options, acquirer *source.Acquirer, st *store.Store, eng *engine.Engine, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 8080
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if acquirer == nil {
		return nil, fmt.Errorf("acquirer is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}

	return &Server{
		options:   options,
		acquirer:  acquirer,
		store:     st,
		engine:    eng,
		metrics:   m,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Handler returns the root HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/load", s.handleLoad)
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	return s.middleware(mux)
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down server")

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

type ctxKey int

const requestIDKey ctxKey = 0

// middleware wraps every request with a request id, in-flight tracking,
// shutdown rejection, and panic recovery.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		reqID, err := gonanoid.New()
		if err != nil {
			reqID = "unknown"
		}
		w.Header().Set("X-Request-ID", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID))

		defer func() {
			if rec := recover(); rec != nil {
				lg := s.requestLogger(r)
				lg.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("Panic while handling request")
				s.respondError(w, r, http.StatusInternalServerError, genericErrorMessage)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestLogger returns a child logger carrying the request id.
func (s *Server) requestLogger(r *http.Request) zerolog.Logger {
	reqID, _ := r.Context().Value(requestIDKey).(string)
	return s.logger.With().Str("request_id", reqID).Logger()
}

// handleIndex serves the form page at / and a content-negotiated 404 for
// every other unmatched path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, r, http.StatusNotFound, "Page Not Found")
		return
	}
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, nil); err != nil {
		lg := s.requestLogger(r)
		lg.Error().Err(err).Msg("Failed to render index page")
	}
}

// handleHealth reports basic liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"sessions":  s.store.Count(),
		"timestamp": time.Now().UnixMilli(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes an error as JSON for JSON-preferring clients and as
// the HTML error page otherwise.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		s.respondJSON(w, status, map[string]string{"error": message})
		return
	}
	s.renderErrorPage(w, status, message)
}

// wantsJSON reports whether the client prefers a structured error over a
// page: it accepts JSON and does not accept HTML.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	acceptsJSON := strings.Contains(accept, "application/json") || strings.Contains(accept, "*/*")
	acceptsHTML := strings.Contains(accept, "text/html")
	return acceptsJSON && !acceptsHTML
}

// isJSONRequest reports whether the request carries a JSON body
func isJSONRequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
