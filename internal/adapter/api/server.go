package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Server runs the forecast API on its own listener, separate from the ops
// endpoints.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// NewServer creates a Server for deps listening on addr.
func NewServer(addr string, deps Deps) *Server {
	return &Server{app: NewApp(deps), addr: addr, logger: deps.Logger}
}

// Start begins listening and blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
