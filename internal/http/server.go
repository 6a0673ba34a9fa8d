// Package http exposes the budget engine as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetcal/internal/cache"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
)

// Options tunes the server; zero values pick sensible defaults.
type Options struct {
	CacheTTL         time.Duration
	ProjectionMonths int
}

type Server struct {
	http.Server
	service     *services.BudgetService
	rateLimiter *rateLimiter

	projectionMonths int

	// Cached encoded responses for GET report endpoints, keyed by
	// path, query and engine version.
	reportCache *cache.LRUCache[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.BudgetService, opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.ProjectionMonths <= 0 {
		opts.ProjectionMonths = 24
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:          svc,
		rateLimiter:      newRateLimiter(),
		projectionMonths: opts.ProjectionMonths,
		reportCache:      cache.NewLRUCache[[]byte](200, opts.CacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/balance", s.withSecurityHeaders(s.handleGetBalance))
	mux.HandleFunc("PUT /api/balance", s.withSecurityHeaders(s.handleSetBalance))

	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/reports/month", s.withSecurityHeaders(s.handleMonthReport))
	mux.HandleFunc("GET /api/reports/range", s.withSecurityHeaders(s.handleRangeReport))
	mux.HandleFunc("GET /api/projections", s.withSecurityHeaders(s.handleProjections))
	mux.HandleFunc("GET /api/projections/weekly", s.withSecurityHeaders(s.handleWeeklyProjections))

	mux.HandleFunc("GET /api/categories", s.withSecurityHeaders(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withSecurityHeaders(s.handleAddCategory))
	mux.HandleFunc("DELETE /api/categories", s.withSecurityHeaders(s.handleRemoveCategory))

	mux.HandleFunc("GET /api/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("POST /api/reset", s.withSecurityHeaders(s.handleReset))

	return s
}

// startCacheCleanup runs periodic cleanup for the report cache
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.reportCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// cacheKey builds the report cache key from the request and the current
// engine version, so every mutation invalidates all cached reports.
func (s *Server) cacheKey(r *http.Request) string {
	return fmt.Sprintf("%s?%s|v%d", r.URL.Path, r.URL.RawQuery, s.service.Engine().Version())
}

// cachedReport serves a GET report from the cache or computes, caches
// and serves it.
func (s *Server) cachedReport(w http.ResponseWriter, r *http.Request, compute func() (any, error)) {
	key := s.cacheKey(r)
	if body, ok := s.reportCache.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	v, err := compute()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode report", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.reportCache.Set(key, body)
	writeRawJSON(w, http.StatusOK, body)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
