package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/internal/health"
	"github.com/selivandex/crypto-digest/pkg/logger"
)

// Server is the public HTTP surface
type Server struct {
	server *http.Server
}

// NewRouter wires routes and middleware
func NewRouter(handler *DigestHandler, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	r.GET("/crypto-summary", handler.GetToday)
	r.GET("/crypto-summary/:date", handler.GetByDate)

	r.GET("/health", checker.HandleHealth)
	r.GET("/ready", checker.HandleReadiness)

	return r
}

// NewServer creates the HTTP server. WriteTimeout is left unset since a
// cache-miss request blocks for a whole build.
func NewServer(cfg *config.ServerConfig, handler *DigestHandler, checker *health.Checker) *Server {
	gin.SetMode(cfg.GinMode)

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewRouter(handler, checker),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start blocks serving until Stop
func (s *Server) Start() error {
	logger.Info("http server starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping http server...")
	return s.server.Shutdown(ctx)
}
