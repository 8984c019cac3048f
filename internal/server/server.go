// Package server exposes the sync daemon's HTTP surface: health and
// readiness endpoints plus Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/docwatch/internal/logger"
)

const readyProbeTimeout = 5 * time.Second

// Check is a named readiness probe for one external dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Config holds the HTTP listener settings.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Params bundles the dependencies for New.
type Params struct {
	Config   Config
	Gatherer prometheus.Gatherer
	Checks   []Check
	Logger   logger.Logger
}

// Server serves health and metrics endpoints while the daemon runs.
type Server struct {
	server *http.Server
	log    logger.Logger
}

// New builds the HTTP server with its routes configured.
func New(p Params) *Server {
	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	RegisterRoutes(router, p.Gatherer, p.Checks)

	return &Server{
		server: &http.Server{
			Addr:         p.Config.Address,
			Handler:      router,
			ReadTimeout:  p.Config.ReadTimeout,
			WriteTimeout: p.Config.WriteTimeout,
			IdleTimeout:  p.Config.IdleTimeout,
		},
		log: log,
	}
}

// RegisterRoutes configures the health, readiness, and metrics routes.
func RegisterRoutes(router *gin.Engine, gatherer prometheus.Gatherer, checks []Check) {
	router.GET("/health", healthHandler)
	router.GET("/ready", readyHandler(checks))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// healthHandler handles GET /health.
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "docwatch",
	})
}

// readyHandler handles GET /ready by probing each dependency.
func readyHandler(checks []Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyProbeTimeout)
		defer cancel()

		results := make(gin.H, len(checks))
		ready := true
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				results[check.Name] = err.Error()
				ready = false
				continue
			}
			results[check.Name] = "ok"
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
		}

		c.JSON(status, gin.H{
			"status": state,
			"checks": results,
		})
	}
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", logger.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
