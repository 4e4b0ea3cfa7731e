// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeranaias/promptforge/internal/auth"
	"github.com/jeranaias/promptforge/internal/prompt"
	"github.com/jeranaias/promptforge/internal/store"
	"github.com/rs/zerolog"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:5000"

	// SessionCookie names the HttpOnly cookie that carries the session token.
	SessionCookie = "promptforge_session"

	// MaxRequestBodySize is the maximum size for request body to prevent DoS (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxInputLength bounds user_input and generated_prompt.
	MaxInputLength = 20000

	// DefaultRateLimit is requests per minute per client IP.
	DefaultRateLimit = 120
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks server usage statistics.
type ServerStats struct {
	TotalRequests int64
	Generations   int64
	Registrations int64
	Logins        int64
	StartTime     time.Time
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalRequests int64  `json:"total_requests"`
	Generations   int64  `json:"generations"`
	Registrations int64  `json:"registrations"`
	Logins        int64  `json:"logins"`
	Uptime        string `json:"uptime"`
}

// Snapshot returns a copy of the current counters.
func (s *ServerStats) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests: atomic.LoadInt64(&s.TotalRequests),
		Generations:   atomic.LoadInt64(&s.Generations),
		Registrations: atomic.LoadInt64(&s.Registrations),
		Logins:        atomic.LoadInt64(&s.Logins),
		Uptime:        time.Since(s.StartTime).Round(time.Second).String(),
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr    string
	Store   *store.Store
	Auth    *auth.Service
	Catalog *prompt.Catalog
	Logger  zerolog.Logger

	// CORSOrigins lists browser origins allowed to send credentials.
	CORSOrigins []string
	// RateLimitPerMinute is the per-IP budget. Zero uses DefaultRateLimit;
	// negative disables limiting.
	RateLimitPerMinute int
	Version            string
	// SecureCookies marks the session cookie Secure (HTTPS deployments).
	SecureCookies bool
	// Lockout throttles repeated failed logins per email. Nil uses
	// auth defaults.
	Lockout *auth.Lockout
}

// Server is the promptforge HTTP API.
type Server struct {
	addr       string
	store      *store.Store
	auth       *auth.Service
	catalog    *prompt.Catalog
	logger     zerolog.Logger
	version    string
	secure     bool
	stats      *ServerStats
	limiter    *RateLimiter
	lockout    *auth.Lockout
	handler    http.Handler
	httpServer *http.Server
}

// New builds a server and its route table. Store and Auth are required.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("server: auth service is required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Catalog == nil {
		opts.Catalog = prompt.NewCatalog()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		addr:    opts.Addr,
		store:   opts.Store,
		auth:    opts.Auth,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		version: opts.Version,
		secure:  opts.SecureCookies,
		stats:   NewServerStats(),
		lockout: opts.Lockout,
	}
	if s.lockout == nil {
		s.lockout = auth.NewLockout(auth.WithLockoutLogger(opts.Logger))
	}

	limit := opts.RateLimitPerMinute
	if limit == 0 {
		limit = DefaultRateLimit
	}
	if limit > 0 {
		s.limiter = NewRateLimiter(limit)
	}

	s.handler = s.routes(DefaultCORSConfig(opts.CORSOrigins))
	return s, nil
}

// routes wires middleware and handlers. Order matters: request IDs first so
// every log line carries one, recovery next so panics in later middleware are
// caught.
func (s *Server) routes(cors *CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	r.Use(SecurityHeadersMiddleware())
	r.Use(CORSMiddleware(cors))
	r.Use(s.countRequests)
	if s.limiter != nil {
		r.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
	r.Use(SessionMiddleware(s.auth))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.With(RequireAuth(s.logger)).Get("/me", s.handleMe)
		})

		r.Post("/generate-prompt", s.handleGeneratePrompt)

		r.Route("/prompts", func(r chi.Router) {
			r.Use(RequireAuth(s.logger))
			r.Get("/", s.handleListPrompts)
			r.Post("/", s.handleCreatePrompt)
			r.Get("/{id}", s.handleGetPrompt)
			r.Put("/{id}", s.handleUpdatePrompt)
			r.Delete("/{id}", s.handleDeletePrompt)
		})
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.stats.TotalRequests, 1)
		next.ServeHTTP(w, r)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stats returns the live counters.
func (s *Server) Stats() *ServerStats {
	return s.stats
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info().
		Str("addr", s.addr).
		Str("version", s.version).
		Msg("SERVER_START")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info().Msg("SERVER_SHUTDOWN")
	return s.httpServer.Shutdown(ctx)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// with a 10 second grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

// envelope is the shape of every response body.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "error": message})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}
