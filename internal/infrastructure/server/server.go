package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/sdui/internal/api/http"
	"github.com/GriffinCanCode/sdui/internal/api/middleware"
	"github.com/GriffinCanCode/sdui/internal/api/ws"
	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/template"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/config"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/eventstore"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/forward"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/logging"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	validator *tree.Validator
	catalog   *template.Catalog
	sessions  *session.Manager
	forwarder *forward.Forwarder
	mirror    *eventstore.Mirror
	store     *eventstore.Store
	tracer    *tracing.Tracer
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics

	closeOnce sync.Once
}

// Option configures a Server
type Option func(*options)

type options struct {
	logger *logging.Logger
	store  *eventstore.Store
}

// WithLogger uses logger instead of building one from config
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEventStore mirrors events into store instead of dialing
// cfg.Redis.Addr
func WithEventStore(store *eventstore.Store) Option {
	return func(o *options) { o.store = store }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Initialize logger
	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	limits := cfg.Limits.Tree()
	logger.Info("Initializing SDUI server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_depth", limits.MaxDepth),
		zap.Int("max_node_count", limits.MaxNodeCount),
		zap.Int("max_payload_bytes", limits.MaxPayloadBytes),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize distributed tracing
	tracer := tracing.New("sdui", logger.Component("tracing"))

	validator := tree.NewValidator(limits)
	production := render.NewRegistry(
		render.WithMode(render.ModeProduction),
		render.WithLimits(limits),
		render.WithLogger(logger.Component("render")),
		render.WithObserver(metrics),
	)
	development := render.NewRegistry(
		render.WithMode(render.ModeDevelopment),
		render.WithLimits(limits),
		render.WithLogger(logger.Component("render")),
		render.WithObserver(metrics),
	)
	defaultMode := render.ModeProduction
	if cfg.Render.DevPlaceholders {
		defaultMode = render.ModeDevelopment
	}

	// Load template catalog
	catalog, err := template.NewCatalog(validator, logger.Component("templates"))
	if err != nil {
		tracer.Close()
		return nil, err
	}
	if skipped := catalog.Skipped(); len(skipped) > 0 {
		logger.Warn("Built-in templates unavailable under configured limits",
			zap.Strings("templates", skipped))
	}
	if cfg.Templates.Dir != "" {
		if err := catalog.LoadDir(cfg.Templates.Dir); err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
	}

	allow := action.NewAllowList(cfg.Policy.Policy())
	policy := allow.Policy()
	logger.Info("Allow-list loaded",
		zap.Int("actions", len(policy.Actions)),
		zap.Int("routes", len(policy.Routes)),
		zap.Int("route_prefixes", len(policy.RoutePrefixes)),
	)

	sessionOpts := []session.Option{
		session.WithMaxSessions(cfg.Sessions.MaxSessions),
		session.WithLogCapacity(limits.MaxLogEntries),
		session.WithLogger(logger.Component("session")),
		session.WithObserver(metrics),
	}

	// Optional event sinks
	var forwarder *forward.Forwarder
	if cfg.Webhook.Enabled() {
		forwarder, err = forward.New(forward.Config{
			URL:        cfg.Webhook.URL,
			Timeout:    cfg.Webhook.Timeout,
			RetryCount: cfg.Webhook.RetryCount,
			QueueSize:  cfg.Webhook.QueueSize,
		}, forward.WithLogger(logger.Component("forward")), forward.WithRecorder(metrics),
			forward.WithTracer(tracer))
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to configure webhook: %w", err)
		}
		sessionOpts = append(sessionOpts, session.WithConsumer(forwarder))
		logger.Info("Event forwarding enabled", zap.String("url", cfg.Webhook.URL))
	}

	store := o.store
	if store == nil && cfg.Redis.Enabled() {
		store = eventstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			eventstore.WithPrefix(cfg.Redis.KeyPrefix),
			eventstore.WithTTL(cfg.Redis.TTL),
			eventstore.WithCapacity(limits.MaxLogEntries),
		)
		logger.Info("Event mirroring enabled", zap.String("addr", cfg.Redis.Addr))
	}
	var mirror *eventstore.Mirror
	if store != nil {
		mirror = eventstore.NewMirror(store, cfg.Redis.QueueSize, logger.Component("eventstore"), metrics)
		sessionOpts = append(sessionOpts, session.WithObserver(mirror))
	}

	sessions := session.NewManager(allow, sessionOpts...)

	// Create router
	gin.SetMode(ginMode(cfg.Server.GinMode))
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
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

	// Create handlers
	handlers := apihttp.NewHandlers(apihttp.Deps{
		Validator:   validator,
		Production:  production,
		Development: development,
		DefaultMode: defaultMode,
		Catalog:     catalog,
		Sessions:    sessions,
		Metrics:     metrics,
		Store:       store,
		Mirror:      mirror,
		Logger:      logger.Component("http"),
	})
	wsHandler := ws.NewHandler(ws.Deps{
		Validator:   validator,
		Production:  production,
		Development: development,
		DefaultMode: defaultMode,
		Catalog:     catalog,
		Sessions:    sessions,
		Metrics:     metrics,
		Logger:      logger.Component("ws"),
	})

	registerRoutes(router, handlers, wsHandler, metrics)
	router.Any("/log/level", gin.WrapH(logger.LevelHandler()))

	logger.Info("Server initialized successfully",
		zap.Int("templates", catalog.Len()),
		zap.String("default_mode", defaultMode.String()),
	)

	return &Server{
		router:    router,
		validator: validator,
		catalog:   catalog,
		sessions:  sessions,
		forwarder: forwarder,
		mirror:    mirror,
		store:     store,
		tracer:    tracer,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

func registerRoutes(router *gin.Engine, h *apihttp.Handlers, wsHandler *ws.Handler, metrics *monitoring.Metrics) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")

	// Trees
	v1.POST("/validate", h.Validate)
	v1.POST("/render", h.Render)
	v1.GET("/components", h.Components)

	// Templates
	v1.GET("/templates", h.ListTemplates)
	v1.GET("/templates/:id", h.GetTemplate)
	v1.GET("/templates/:id/render", h.RenderTemplate)

	// Sessions
	v1.GET("/policy", h.SessionPolicy)
	v1.GET("/sessions", h.ListSessions)
	v1.POST("/sessions", h.CreateSession)
	v1.POST("/sessions/:id/actions", h.SessionAction)
	v1.POST("/sessions/:id/navigate", h.SessionNavigate)
	v1.GET("/sessions/:id/events", h.SessionEvents)
	v1.DELETE("/sessions/:id/events", h.ClearSessionEvents)
	v1.GET("/sessions/:id/history", h.SessionHistory)
	v1.DELETE("/sessions/:id", h.DeleteSession)

	// WebSocket
	v1.GET("/sessions/:id/stream", wsHandler.HandleConnection)
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session manager
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Run starts the event sinks and serves HTTP until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if s.forwarder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.forwarder.Run(sinkCtx)
		}()
	}
	if s.mirror != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.mirror.Run(sinkCtx)
		}()
	}
	defer func() {
		stopSinks()
		wg.Wait()
	}()

	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errCh
}

// Close releases background resources
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		s.tracer.Close()
		if s.forwarder != nil {
			delivered, failed, dropped := s.forwarder.Stats()
			s.logger.Info("Event forwarder stopped",
				zap.Int64("delivered", delivered),
				zap.Int64("failed", failed),
				zap.Int64("dropped", dropped),
			)
		}
		if s.store != nil {
			if cerr := s.store.Close(); cerr != nil {
				s.logger.Error("Failed to close event store", zap.Error(cerr))
				err = fmt.Errorf("failed to close event store: %w", cerr)
			}
		}

		// Sync logger before exit
		_ = s.logger.Sync()
	})
	return err
}
