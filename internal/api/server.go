// Package api serves the loader's status endpoints: liveness, Prometheus
// metrics and the summary of the most recent batch run.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/omics-warehouse-loader/internal/domain"
	"github.com/omics-warehouse-loader/internal/loader"
)

// StatusSource exposes run state to the status endpoints.
type StatusSource interface {
	LastRun() *loader.RunSummary
}

// Server represents the status HTTP server
type Server struct {
	config   domain.ServerConfig
	source   StatusSource
	gatherer prometheus.Gatherer
	router   *gin.Engine
	server   *http.Server
	log      *logrus.Logger
}

// NewServer creates a status server. A nil gatherer uses the default
// Prometheus registry.
func NewServer(config domain.ServerConfig, source StatusSource, gatherer prometheus.Gatherer, logger *logrus.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		config:   config,
		source:   source,
		gatherer: gatherer,
		router:   router,
		log:      logger,
	}
	server.setupRoutes()
	return server
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Status server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the status routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/summary", s.handleSummary)
	}
}

// handleHealth handles liveness requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// handleSummary returns the summary of the most recent batch run.
func (s *Server) handleSummary(c *gin.Context) {
	summary := s.source.LastRun()
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
