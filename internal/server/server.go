package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dexbrowser/dex-bridge/internal/api/middleware"
	"github.com/dexbrowser/dex-bridge/internal/bridge"
	apihttp "github.com/dexbrowser/dex-bridge/internal/http"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/config"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/monitoring"
	"github.com/dexbrowser/dex-bridge/internal/logging"
	browserProvider "github.com/dexbrowser/dex-bridge/internal/providers/browser"
	chatProvider "github.com/dexbrowser/dex-bridge/internal/providers/chat"
	historyProvider "github.com/dexbrowser/dex-bridge/internal/providers/history"
	"github.com/dexbrowser/dex-bridge/internal/service"
	"github.com/dexbrowser/dex-bridge/internal/ws"
)

// Server wraps the HTTP server and bridge dependencies
type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	bridge   *bridge.Bridge
	registry *bridge.Registry
	services *service.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing bridge server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	metrics := monitoring.NewMetrics()

	// Bridge core: correlation table, connection registry, call façade.
	correlator := bridge.NewCorrelator(logger).WithMetrics(metrics)
	connRegistry := bridge.NewRegistry(correlator, logger)
	br := bridge.New(connRegistry, correlator, logger, cfg.Bridge.CallTimeout).WithMetrics(metrics)

	// Tool services.
	serviceRegistry := service.NewRegistry()
	registerProviders(serviceRegistry, br, cfg, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(br, connRegistry, serviceRegistry, metrics)
	wsHandler := ws.NewHandler(br, connRegistry, cfg.Bridge, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Tool surface
	router.GET("/tools", handlers.ListTools)
	router.POST("/tools/execute", handlers.ExecuteTool)
	router.GET("/tabs", handlers.ListTabs)

	// Extension socket
	router.GET("/ws", wsHandler.HandleConnection)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		bridge:   br,
		registry: connRegistry,
		services: serviceRegistry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server. Pending commands resolve with a
// shutdown error before connections drop; the HTTP listener drains last.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.bridge.Shutdown()

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", zap.Error(err))
			return err
		}
	}

	s.logger.Info("Server stopped")
	_ = s.logger.Sync()
	return nil
}

func registerProviders(registry *service.Registry, br *bridge.Bridge, cfg *config.Config, logger *logging.Logger) {
	logger.Info("Registering tool providers...")

	if err := registry.Register(browserProvider.NewProvider(br)); err != nil {
		logger.Warn("Failed to register browser provider", zap.Error(err))
	}

	if err := registry.Register(chatProvider.NewProvider(br)); err != nil {
		logger.Warn("Failed to register chat provider", zap.Error(err))
	}

	if cfg.History.Enabled {
		store := historyProvider.NewClient(cfg.History, logger)
		if err := registry.Register(historyProvider.NewProvider(store)); err != nil {
			logger.Warn("Failed to register history provider", zap.Error(err))
		}
	}

	stats := registry.Stats()
	logger.Info("Tool providers registered",
		zap.Any("services", stats["total_services"]),
		zap.Any("tools", stats["total_tools"]),
	)
}
