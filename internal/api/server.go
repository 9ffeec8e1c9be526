// Package api exposes the operational HTTP interface: campaign
// management, the human review gates and quota visibility.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/config"
	"github.com/leadtrail/leadtrail/internal/hunterio"
	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/logging"
	"github.com/leadtrail/leadtrail/internal/metrics"
)

// HunterQuota reports live Hunter.io credits. Optional.
type HunterQuota interface {
	CheckQuota(ctx context.Context) (hunterio.Quota, error)
}

// SnovBalance reports the live Snov.io balance. Optional.
type SnovBalance interface {
	CheckBalance(ctx context.Context) (float64, error)
}

// Server wires HTTP handlers to the store and quota providers.
type Server struct {
	router chi.Router
	store  lead.Store
	idGen  lead.IDGenerator
	clock  lead.Clock
	cfg    config.Config
	hunter HunterQuota
	snov   SnovBalance
}

// NewServer constructs a Server with middleware and routes. The hunter
// and snov providers may be nil; the quotas endpoint then reports the
// stored search balance only.
func NewServer(
	store lead.Store,
	idGen lead.IDGenerator,
	clock lead.Clock,
	cfg config.Config,
	hunter HunterQuota,
	snov SnovBalance,
) *Server {
	s := &Server{
		store:  store,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		hunter: hunter,
		snov:   snov,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Server.AuthEnabled {
		r.Use(apiKeyMiddleware(cfg.Server.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.createCampaign)
			r.Route("/{campaign_id}", func(r chi.Router) {
				r.Get("/", s.getCampaign)
				r.Get("/progress", s.getProgress)
				r.Post("/companies", s.addCompanyNumbers)
			})
		})
		r.Route("/companies/{company_id}", func(r chi.Router) {
			r.Get("/", s.getCompany)
			r.Post("/employee-review", s.submitEmployeeReview)
		})
		r.Route("/hunts/{hunt_id}", func(r chi.Router) {
			r.Get("/", s.getHunt)
			r.Post("/approve", s.approveDomain)
		})
		r.Get("/quotas", s.getQuotas)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard dependency; a failing read means the
	// service cannot do useful work.
	if _, err := s.store.GetSERPQuota(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, duration)
		logging.L.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.L.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.L.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
