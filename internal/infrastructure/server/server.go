package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/api/middleware"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/bridge"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/captcha"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/config"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/logging"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/monitoring"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/resilience"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/tracing"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/interaction"
	"github.com/NicholasJacob1990/iudex0-sub012/internal/pubsub"
)

const serviceName = "tribunal-bridge"

// Server wraps the HTTP server and dependencies
type Server struct {
	router       *gin.Engine
	http         *http.Server
	bus          pubsub.Bus
	bridge       *bridge.Bridge
	solver       *captcha.Solver
	interactions *interaction.Client
	logger       *logging.Logger
	config       *config.Config
	metrics      *monitoring.Metrics
	tracer       *tracing.Tracer
}

// NewServer wires the bus, bridge, CAPTCHA solver and HTTP routes. ctx
// bounds the initial bus connection and the lifetime of subscriptions.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	logger.Info("Initializing tribunal bridge",
		zap.String("port", cfg.Server.Port),
		zap.String("captcha_provider", cfg.Captcha.Provider),
		zap.Bool("redis", cfg.Redis.URL != ""),
	)

	metrics := monitoring.NewMetrics()

	bus, err := newBus(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	tracer := tracing.New(serviceName, logger)

	policy := resilience.Config{
		FailFastTimeout: cfg.Resilience.FailFastTimeout,
		MaxRetries:      cfg.Resilience.MaxRetries,
		RetryBackoff:    cfg.Resilience.RetryBackoff,
	}

	b := bridge.New(bus, logger, bridge.Options{
		HeartbeatInterval: cfg.Bridge.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Bridge.HeartbeatTimeout,
		MaxMessageBytes:   cfg.Bridge.MaxMessageBytes,
		AllowedOrigins:    cfg.Bridge.AllowedOrigins,
		MessagesPerSecond: cfg.Bridge.MessagesPerSecond,
		MessageBurst:      cfg.Bridge.MessageBurst,
		Observer:          metrics,
	})

	solver, err := captcha.NewSolver(captcha.Config{
		Provider:         cfg.Captcha.Provider,
		APIKey:           cfg.Captcha.APIKey,
		FallbackToManual: cfg.Captcha.FallbackToManual,
		PollInterval:     cfg.Captcha.PollInterval,
		ProviderTimeout:  cfg.Captcha.ProviderTimeout,
		ManualTimeout:    cfg.Captcha.ManualTimeout,
		BaseURL:          cfg.Captcha.BaseURL,
		Resilience:       policy,
		Recorder:         metrics,
		Tracer:           tracer,
	}, bus, logger)
	if err != nil {
		tracer.Close()
		_ = bus.Close()
		return nil, fmt.Errorf("captcha solver: %w", err)
	}

	interactions, err := interaction.New(ctx, bus, interaction.Options{Publish: policy}, logger)
	if err != nil {
		_ = solver.Close()
		tracer.Close()
		_ = bus.Close()
		return nil, fmt.Errorf("interaction client: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.Bridge.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		router:       router,
		bus:          bus,
		bridge:       b,
		solver:       solver,
		interactions: interactions,
		logger:       logger,
		config:       cfg,
		metrics:      metrics,
		tracer:       tracer,
	}

	handlers := newHandlers(b, metrics)
	router.GET("/ws", b.HandleConnection)
	router.GET("/health", handlers.health)
	router.GET("/users/:userId/sessions", handlers.userSessions)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func newBus(ctx context.Context, cfg config.RedisConfig, logger *logging.Logger) (pubsub.Bus, error) {
	if cfg.URL == "" {
		logger.Warn("REDIS_URL not set, using in-process bus")
		return pubsub.NewMemory(), nil
	}
	bus, err := pubsub.NewRedis(ctx, pubsub.RedisOptions{URL: cfg.URL, ChannelPrefix: cfg.ChannelPrefix}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("Connected to Redis pub/sub", zap.String("prefix", cfg.ChannelPrefix))
	return bus, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Bridge returns the extension session bridge.
func (s *Server) Bridge() *bridge.Bridge {
	return s.bridge
}

// Solver returns the CAPTCHA solver for workers sharing this process.
func (s *Server) Solver() *captcha.Solver {
	return s.solver
}

// Interactions returns the worker-side interaction client.
func (s *Server) Interactions() *interaction.Client {
	return s.interactions
}

// Run starts the bridge and serves HTTP until the listener fails or Close
// is called.
func (s *Server) Run(ctx context.Context) error {
	if err := s.bridge.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down in order: sessions and bridge subscriptions, workers'
// clients, the bus connection, the HTTP listener, then the span collector.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.bridge.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("bridge: %w", err))
	}
	if err := s.solver.Close(); err != nil {
		errs = append(errs, fmt.Errorf("captcha solver: %w", err))
	}
	if err := s.interactions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("interaction client: %w", err))
	}
	if err := s.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bus: %w", err))
	}
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	s.tracer.Close()

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("Shutdown finished with errors", zap.Error(err))
	} else {
		s.logger.Info("Shutdown complete")
	}
	_ = s.logger.Sync()
	return err
}
