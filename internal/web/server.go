// Package web provides the HTTP API for the curation backend.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/traditional-medicine/mapcurator/internal/config"
	"github.com/traditional-medicine/mapcurator/internal/core"
)

// Server is the HTTP server for the curation API.
type Server struct {
	lifecycle *core.Lifecycle
	enricher  *core.Enricher
	reset     *core.ResetManager
	stats     *core.Stats

	cfg    config.ServerConfig
	router *chi.Mux
	server *http.Server
}

// Deps bundles the engines the server exposes.
type Deps struct {
	Lifecycle *core.Lifecycle
	Enricher  *core.Enricher
	Reset     *core.ResetManager
	Stats     *core.Stats
}

// NewServer creates a new Server instance.
func NewServer(deps Deps, cfg config.ServerConfig, rate config.RateLimitConfig, sec config.SecurityConfig) *Server {
	s := &Server{
		lifecycle: deps.Lifecycle,
		enricher:  deps.Enricher,
		reset:     deps.Reset,
		stats:     deps.Stats,
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware(rate, sec)
	s.setupRoutes(rate)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(rate config.RateLimitConfig, sec config.SecurityConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(trustedRealIP(sec.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	timeout := s.cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	s.router.Use(middleware.Timeout(timeout))

	// Security hardening
	s.router.Use(securityHeaders(sec.EnableCSP))

	// Request provenance for audit records
	s.router.Use(requestProvenance)

	if rate.Enabled {
		limiter := newRateLimiter(rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes. Curation writes sit behind a
// tighter rate limit than the read surface.
func (s *Server) setupRoutes(rate config.RateLimitConfig) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/admin", func(r chi.Router) {
		// Read surface
		r.Get("/stats", s.handleStats)
		r.Get("/completeness", s.handleCompleteness)
		r.Get("/rejected", s.handleRejected)
		r.Get("/master-map", s.handleMasterMap)
		r.Get("/audit", s.handleAuditLog)
		r.Get("/reset/status", s.handleResetStatus)

		// Curation writes
		r.Group(func(r chi.Router) {
			if rate.Enabled && rate.MutationLimit > 0 {
				limiter := newRateLimiter(rate.MutationLimit, time.Minute)
				r.Use(limiter.middleware)
			}

			r.Post("/curation", s.handleSubmitCuration)
			r.Post("/commit", s.handleCommit)
			r.Post("/undo", s.handleUndo)
			r.Post("/revert", s.handleRevert)
			r.Post("/remap", s.handleRemap)
			r.Post("/verify-ai", s.handleVerifyAI)
			r.Put("/master-mapping", s.handleUpdateMasterMapping)

			r.Post("/entries", s.handleAddEntry)
			r.Post("/entries/{name}/enrich", s.handleEnrichEntry)
			r.Post("/reset", s.handleStartReset)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	log.Printf("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// requestProvenance copies the caller's identity headers into the
// context so audit records can name who acted, from where.
func requestProvenance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), r.RemoteAddr)
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		if actor := r.Header.Get("X-Actor"); actor != "" {
			ctx = core.ContextWithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// JSON API only; no resource loading at all
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'none'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	// Start cleanup goroutine
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// Use X-Real-IP if set (by RealIP middleware)
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","code":"REQ003"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
