package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/Aidin1998/todokv/common/apiutil"
	_ "github.com/Aidin1998/todokv/docs"
	"github.com/Aidin1998/todokv/internal/config"
	"github.com/Aidin1998/todokv/internal/todo"
	"github.com/Aidin1998/todokv/pkg/metrics"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Todos  *todo.Handler
	Health Pinger
	// Metrics and Gatherer may be nil, which disables HTTP metrics and /metrics
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	logger     *zap.Logger
	cfg        *config.Config
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates the server and its router.
func NewServer(logger *zap.Logger, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		logger: logger,
		cfg:    cfg,
		deps:   deps,
	}
	s.router = s.newRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return s
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(apiutil.RequestIDMiddleware())
	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware(s.cfg.Telemetry.ServiceName))
	if origins := s.cfg.Server.CORSOrigins; len(origins) > 0 {
		router.Use(corsMiddleware(origins))
	}
	if s.deps.Metrics != nil {
		router.Use(apiutil.MetricsMiddleware(s.deps.Metrics))
	}

	router.GET("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled && s.deps.Gatherer != nil {
		router.GET(s.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if dir := s.cfg.Server.StaticDir; dir != "" {
		router.StaticFile("/", filepath.Join(dir, "index.html"))
		router.Static("/static", dir)
	}

	todo.RegisterRoutes(router, s.deps.Todos)

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", apiutil.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", apiutil.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
