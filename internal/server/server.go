// Package server provides the HTTP REST API for the UI builder.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/server/middleware"
	"github.com/jonathan/ui-builder/internal/server/ratelimit"
)

const maxBodyBytes = 1 << 20

// TargetLister reports the deployable targets.
type TargetLister interface {
	Targets() []string
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	orch        *pipeline.Orchestrator
	events      *Hub
	targets     TargetLister
	health      HealthChecker
	rateLimiter *ratelimit.Limiter
	log         logger.Logger

	pollInterval    time.Duration
	shutdownTimeout time.Duration
	closing         chan struct{}
}

// Config holds server configuration
type Config struct {
	Port            int
	RateLimit       *ratelimit.Config
	ShutdownTimeout time.Duration
	// PollInterval bounds how stale an event stream can get when a wake-up
	// is missed.
	PollInterval time.Duration
}

// Deps are the collaborators the handlers serve.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Events       *Hub
	Targets      TargetLister
	Health       HealthChecker
	Gatherer     prometheus.Gatherer
	Log          logger.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("server requires an orchestrator")
	}
	if deps.Events == nil {
		deps.Events = NewHub()
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	s := &Server{
		orch:            deps.Orchestrator,
		events:          deps.Events,
		targets:         deps.Targets,
		health:          deps.Health,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		log:             deps.Log,
		pollInterval:    cfg.PollInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
		closing:         make(chan struct{}),
	}

	mux := http.NewServeMux()

	// Jobs
	mux.HandleFunc("POST /jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /jobs/{id}/events", s.handleJobEvents)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancelJob)

	// History and templates
	mux.HandleFunc("GET /history", s.handleListHistory)
	mux.HandleFunc("GET /history/stats", s.handleHistoryStats)
	mux.HandleFunc("GET /history/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /history/{id}", s.handleGetHistory)
	mux.HandleFunc("DELETE /history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("GET /templates", s.handleListTemplates)
	mux.HandleFunc("POST /templates/{id}/apply", s.handleApplyTemplate)

	// Standalone tools
	mux.HandleFunc("POST /validate", s.handleValidate)
	mux.HandleFunc("POST /validate/fix", s.handleApplyFixes)
	mux.HandleFunc("GET /validate/rules", s.handleListRules)
	mux.HandleFunc("POST /tests/generate", s.handleGenerateTests)
	mux.HandleFunc("GET /deploy/targets", s.handleListTargets)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	s.handler = middleware.Chain(mux,
		middleware.Recover(s.log),
		middleware.RequestID,
		middleware.Logging(s.log),
		middleware.CORS,
		s.withRateLimit,
	)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second, // event streams lift their own deadline
		IdleTimeout:       60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(func() { close(s.closing) })

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done, then drains HTTP connections and the
// orchestrator.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", logger.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	s.rateLimiter.Stop()
	if err := s.orch.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown failed: %w", err))
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn("health check failed", logger.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode JSON response", logger.Error(err))
	}
}

// errorResponse writes an error JSON response for err.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetRequestID(r)),
			logger.Error(err),
		)
	}
	s.jsonResponse(w, status, ErrorResponse{Error: errorMessage(err), Kind: string(errorKind(err))})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidRequest("request body is empty")
		}
		return apperr.InvalidRequest("invalid request body: %v", err)
	}
	return nil
}

// extractClientID extracts the client identifier from the request.
// X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate limit exceeded, please try again later",
		"kind":      "rate_limited",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	s.log.Info("rate limit exceeded",
		logger.String("client", s.extractClientID(r)),
		logger.String("path", r.URL.Path),
		logger.Int("limit", info.Limit),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
