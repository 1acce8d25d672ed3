package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/logging"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/threadcomm/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/threadcomm/internal/workload"
)

// Config contains server configuration
type Config struct {
	Addr        string
	Development bool
	RateLimit   *RateLimitConfig // nil disables rate limiting
}

// Server exposes metrics and workload runs over HTTP
type Server struct {
	router  *gin.Engine
	http    *http.Server
	runner  *workload.Runner
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewServer creates a new server instance
func NewServer(cfg Config, runner *workload.Runner, metrics *monitoring.Metrics, tracer *tracing.Tracer, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	if tracer != nil {
		router.Use(tracing.HTTPMiddleware(tracer))
	}
	router.Use(monitoring.Middleware(metrics))
	router.Use(CORS(DefaultCORSConfig()))
	if cfg.RateLimit != nil {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(RateLimit(*cfg.RateLimit))
	}

	s := &Server{
		router:  router,
		runner:  runner,
		metrics: metrics,
		logger:  logger,
	}

	router.GET("/health", s.health)
	router.GET("/metrics", monitoring.Handler(metrics))
	router.GET("/metrics/json", s.metricsJSON)
	router.GET("/workloads", s.listWorkloads)
	router.GET("/runs/last", s.lastRun)
	router.POST("/runs", s.createRun)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
