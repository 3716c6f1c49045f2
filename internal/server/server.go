// Package server provides the HTTP API for the application tracker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/importer"
	"github.com/jonathan/application-tracker/internal/server/ratelimit"
	"github.com/jonathan/application-tracker/internal/status"
	"github.com/jonathan/application-tracker/internal/tracker"
	"golang.org/x/sync/errgroup"
)

// Importer runs a portal import and reports the message to show the user.
type Importer interface {
	Run(ctx context.Context, creds importer.Credentials) (string, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       db.Store
	service     *tracker.Service
	importer    Importer
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port       int
	Store      db.Store
	Importer   Importer
	Normalizer *status.Normalizer
	Clock      tracker.Clock
	// RateLimit defaults to ratelimit.LoadConfig().
	RateLimit *ratelimit.Config
}

// New creates a new server instance. The store stays owned by the caller.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server config: store is required")
	}
	if cfg.Importer == nil {
		return nil, fmt.Errorf("server config: importer is required")
	}
	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		store:       cfg.Store,
		service:     tracker.NewService(cfg.Store, cfg.Normalizer, cfg.Clock),
		importer:    cfg.Importer,
		rateLimiter: ratelimit.NewLimiter(rl),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 360 * time.Second, // an import waits for the whole crawl
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.HandleFunc("GET /applications", s.handleListApplications)
	mux.HandleFunc("POST /applications", s.handleCreateApplication)
	mux.HandleFunc("GET /applications/export", s.handleExport)
	mux.HandleFunc("GET /applications/{id}", s.handleGetApplication)
	mux.HandleFunc("PUT /applications/{id}", s.handleUpdateApplication)
	mux.HandleFunc("DELETE /applications/{id}", s.handleDeleteApplication)

	mux.HandleFunc("POST /import", s.handleImport)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[server] Listening on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Println("[server] Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("[server] Stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging. Request bodies are never logged.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[server] %s %s %d in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// messageResponse writes a 200 with a user-facing message
func (s *Server) messageResponse(w http.ResponseWriter, message string) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": message})
}

// extractClientID uses the IP address from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d RetryAfter=%s",
		info.Limit, info.Remaining, info.RetryAfter.Round(time.Second))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
