// Package httpadapter serves the operational endpoints: liveness, readiness
// and Prometheus metrics.
package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// Handler routes GET /healthz, /readyz and /metrics.
func Handler(ready sharedobs.ReadinessChecker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Server runs Handler on its own listener, separate from the forecast API.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      Handler(ready),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens until Shutdown. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("ops server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Check is one named readiness test, such as the sample store ping or the
// ingest pipeline's first-batch flag.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Readiness is ready only when every check passes. Each check runs under its
// own deadline and failures are reported together, prefixed by name.
type Readiness []Check

func (r Readiness) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range r {
		if c.Fn == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Fn(checkCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}
