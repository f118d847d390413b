// Package api exposes the warp registry over HTTP. Teleportation is not
// exposed here; it requires a host execution context that remote callers do
// not have.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
	"github.com/dasjeff/warppoint/internal/services/warp/ratelimit"
	"github.com/dasjeff/warppoint/internal/services/warp/service"
)

const (
	apiKeyHeader = "X-API-Key"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config carries the HTTP surface settings.
type Config struct {
	Addr string
	// APIKey must be non-empty; requests without a matching key are
	// rejected before any other processing.
	APIKey string
	// AllowedIPs optionally restricts callers by remote address. Empty
	// means any address.
	AllowedIPs []string
	// Limiter optionally throttles requests per client address.
	Limiter *ratelimit.Limiter
}

// Server serves the registry's REST routes.
type Server struct {
	cfg        Config
	svc        *service.Service
	httpServer *http.Server
	allowed    map[string]struct{}
}

// NewServer builds a Server for svc. The API key is required.
func NewServer(svc *service.Service, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}

	s := &Server{cfg: cfg, svc: svc}
	if len(cfg.AllowedIPs) > 0 {
		s.allowed = make(map[string]struct{}, len(cfg.AllowedIPs))
		for _, ip := range cfg.AllowedIPs {
			s.allowed[strings.TrimSpace(ip)] = struct{}{}
		}
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.guard(s.routes()),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler returns the fully guarded route handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /api/owners", s.handleListOwners)
	mux.HandleFunc(http.MethodGet+" /api/owners/{id}", s.handleGetOwner)
	mux.HandleFunc(http.MethodGet+" /api/owners/{id}/warps", s.handleListWarps)
	mux.HandleFunc(http.MethodDelete+" /api/owners/{id}/warps/{name}", s.handleDeleteWarp)
	mux.HandleFunc(http.MethodGet+" /api/owners/{id}/limit", s.handleGetLimit)
	mux.HandleFunc(http.MethodPut+" /api/owners/{id}/limit", s.handleSetLimit)
	mux.HandleFunc(http.MethodPost+" /api/warps", s.handleCreateWarp)
	mux.HandleFunc(http.MethodPost+" /api/warps/transfer", s.handleTransferWarp)
	mux.HandleFunc(http.MethodGet+" /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	return mux
}

// guard applies, in order, the API key check, the address allowlist, and the
// per-client rate limit. Authentication runs first so an unauthenticated
// flood never consumes rate limit budget.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(apiKeyHeader) != s.cfg.APIKey {
			writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api key")
			return
		}
		ip := clientIP(r)
		if s.allowed != nil {
			if _, ok := s.allowed[ip]; !ok {
				writeFailure(w, http.StatusForbidden, "FORBIDDEN", "address not allowed")
				return
			}
		}
		if s.cfg.Limiter != nil && !s.cfg.Limiter.Allow(ip) {
			writeError(w, apperrors.New(apperrors.CodeRateLimited, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ListenAndServe runs the HTTP server until the context ends, then drains
// in-flight requests before closing.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("api server is nil")
	}

	serveErr := make(chan error, 1)
	log.Printf("warp api listening on %s", s.cfg.Addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
