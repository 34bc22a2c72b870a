package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes, /healthz, /readyz,
// and /metrics.
func NewServer(addr string, svc Dashboard, logger *slog.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	engine.GET("/healthz", gin.WrapF(sharedobs.LivenessHandler()))
	engine.GET("/readyz", gin.WrapF(sharedobs.ReadinessHandler(svc)))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{svc: svc, logger: logger}
	api := engine.Group("/api")
	api.POST("/wells/fetch", h.fetchWell)
	api.GET("/session", h.getSession)
	api.DELETE("/session", h.endSession)
	api.GET("/session/series.csv", h.exportCSV)
	api.GET("/analytics", h.analytics)
	api.POST("/forecast", h.forecast)
	api.GET("/forecast/options", h.forecastOptions)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
