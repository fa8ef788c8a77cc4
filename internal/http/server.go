// Package http provides the HTTP servers and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fieldvault/fieldvault/internal/errors"
	"github.com/fieldvault/fieldvault/internal/store"
)

// Server is the API HTTP server. It owns the Gin engine: health and
// readiness endpoints are registered at construction, API routes are added by
// the caller through Router before Start.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
	kv     store.KV
}

// NewServer creates the API server. The KV store backs the readiness probe;
// a nil store reports not ready.
func NewServer(kv store.KV, host string, port int, logger *slog.Logger) *Server {
	s := &Server{
		logger: logger,
		kv:     kv,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)
	s.router = router

	return s
}

// Router exposes the Gin engine so the application can register middleware
// and API routes before Start.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the backing store answers. A probe read
// against a key that does not exist is enough; only transport or backend
// failures mean not ready.
func (s *Server) readinessHandler(c *gin.Context) {
	storeStatus := "ok"
	ready := true

	if s.kv == nil {
		storeStatus = "error"
		ready = false
	} else if _, err := s.kv.Get(
		c.Request.Context(), store.BucketKeys, "__readiness_probe__",
	); err != nil && !apperrors.Is(err, store.ErrKeyNotFound) {
		storeStatus = "error"
		ready = false
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	c.JSON(status, gin.H{
		"status": state,
		"components": gin.H{
			"store": storeStatus,
		},
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
