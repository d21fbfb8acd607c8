package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/capgate/internal/api/http"
	"github.com/GriffinCanCode/capgate/internal/api/middleware"
	"github.com/GriffinCanCode/capgate/internal/domain/bootstrap"
	"github.com/GriffinCanCode/capgate/internal/domain/command"
	"github.com/GriffinCanCode/capgate/internal/domain/health"
	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/capgate/internal/infrastructure/tracing"
)

const bootstrapTimeout = 30 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	registry   *service.Registry
	monitor    *health.Monitor
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	report     bootstrap.Report
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	return newServer(ctx, cfg, integrations)
}

func newServer(ctx context.Context, cfg *config.Config,
	factories func(*config.Config, *zap.Logger) []bootstrap.Factory) (*Server, error) {
	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing gateway",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Duration("dispatch_timeout", cfg.Dispatch.Timeout),
	)

	var limiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		l, err := rateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		limiter = l
	}

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("capgate", logger.Component("tracing"))

	registry := service.NewRegistry(logger.Component("registry")).
		WithMetrics(metrics).
		WithTracer(tracer).
		WithTimeout(cfg.Dispatch.Timeout)

	tools := bootstrap.DefaultLocalTools()
	if cfg.LocalTools.File != "" {
		extra, err := bootstrap.LoadCatalog(cfg.LocalTools.File)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("load local tools: %w", err)
		}
		logger.Info("Loaded local tool catalog",
			zap.String("file", cfg.LocalTools.File),
			zap.Int("tools", len(extra)),
		)
		tools = append(tools, extra...)
	}

	boot := bootstrap.NewInitializer(registry, logger.Component("bootstrap")).WithLocalTools(tools...)
	for _, f := range factories(cfg, logger.Logger) {
		boot.Add(f)
	}

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	report := boot.Run(bootCtx)
	cancel()

	stats := registry.Stats()
	logger.Info("Services registered",
		zap.Int("total", stats.Total),
		zap.Int("active", stats.Active),
		zap.Int("error", stats.Error),
		zap.Int("local", stats.Local),
	)

	var monitor *health.Monitor
	if cfg.Health.Enabled {
		m, err := health.NewMonitor(registry, logger.Component("health"), cfg.Health.Schedule, cfg.Health.Timeout)
		if err != nil {
			registry.Shutdown(ctx)
			tracer.Close()
			return nil, fmt.Errorf("health monitor: %w", err)
		}
		monitor = m.WithMetrics(metrics)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if limiter != nil {
		logger.Info("Rate limiting enabled",
			zap.String("scope", cfg.RateLimit.Scope),
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(limiter)
	}
	router.Use(api.ErrorTranslator(logger.Component("http"), cfg.Dispatch.ExposeErrorDetails))
	router.Use(api.Recovery())

	handlers := api.NewHandlers(registry, command.NewParser(), logger.Component("api")).
		WithMetrics(metrics)
	if monitor != nil {
		handlers.WithMonitor(monitor)
	}
	handlers.Register(router)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server initialized", zap.String("addr", addr))

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: registry,
		monitor:  monitor,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		report:   report,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the service registry
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// Report returns the bootstrap outcome
func (s *Server) Report() bootstrap.Report {
	return s.report
}

// Run starts the health monitor and serves HTTP until Shutdown
func (s *Server) Run() error {
	if s.monitor != nil {
		s.monitor.Start()
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains HTTP, stops the monitor and releases every backend
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.registry.Shutdown(ctx)
	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// rateLimiter builds the limiter for the configured scope
func rateLimiter(cfg config.RateLimitConfig) (gin.HandlerFunc, error) {
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RequestsPerSecond
	rl.Burst = cfg.Burst

	switch cfg.Scope {
	case "", "ip":
		return middleware.RateLimit(rl), nil
	case "global":
		return middleware.GlobalRateLimit(rl), nil
	default:
		return nil, fmt.Errorf("unknown rate limit scope %q", cfg.Scope)
	}
}
