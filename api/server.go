package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/riverbyte/capacity-engine/api/handlers"
	"github.com/riverbyte/capacity-engine/api/middleware"
	"github.com/riverbyte/capacity-engine/api/websocket"
	_ "github.com/riverbyte/capacity-engine/docs"
	"github.com/riverbyte/capacity-engine/internal/auth"
	"github.com/riverbyte/capacity-engine/internal/constraint"
	"github.com/riverbyte/capacity-engine/internal/executor"
	"github.com/riverbyte/capacity-engine/pkg/config"
	"github.com/riverbyte/capacity-engine/pkg/database"
	"github.com/riverbyte/capacity-engine/pkg/database/queries"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	db          *database.DB
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	poolManager handlers.PoolManager
	resolver    *constraint.Resolver
	executor    *executor.Executor
}

func NewServer(cfg *config.Config, db *database.DB, poolManager handlers.PoolManager, resolver *constraint.Resolver, exec *executor.Executor) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	authService := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		authService: authService,
		wsHub:       wsHub,
		poolManager: poolManager,
		resolver:    resolver,
		executor:    exec,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// Start WebSocket hub
	go wsHub.Run()

	// Start event bridge to forward engine events to WebSocket clients
	if poolManager != nil {
		eventsChan := poolManager.SubscribeAllEvents()
		s.wsBridge = websocket.NewEventBridge(wsHub, eventsChan)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBodyBytes))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	// Repositories
	userRepo := queries.NewUserRepository(s.db.DB)
	poolRepo := queries.NewPoolRepository(s.db.DB)
	forecastRepo := queries.NewForecastRepository(s.db.DB)
	decisionRepo := queries.NewDecisionRepository(s.db.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(userRepo, s.authService)
	poolHandler := handlers.NewPoolHandler(poolRepo, s.poolManager, s.config.Sampler)
	scalingHandler := handlers.NewScalingHandler(forecastRepo, decisionRepo, s.executor)
	constraintHandler := handlers.NewConstraintHandler(s.resolver)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// API documentation
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		// Pools
		protected.GET("/pools", poolHandler.List)
		protected.POST("/pools", poolHandler.Create)
		protected.GET("/pools/:id", poolHandler.Get)
		protected.PUT("/pools/:id", poolHandler.Update)
		protected.DELETE("/pools/:id", poolHandler.Delete)
		protected.GET("/pools/:id/status", poolHandler.GetStatus)

		// Forecasts and decisions
		protected.GET("/pools/:id/forecasts", scalingHandler.GetForecasts)
		protected.GET("/pools/:id/decisions", scalingHandler.GetDecisions)
		protected.GET("/pools/:id/queue", scalingHandler.GetQueue)
		protected.GET("/decisions/:id", scalingHandler.GetDecision)
		protected.POST("/decisions/:id/cancel", scalingHandler.CancelDecision)
		protected.GET("/cooldowns", scalingHandler.GetCooldowns)

		// Constraints
		protected.GET("/constraints/:type", constraintHandler.Get)
		protected.PUT("/constraints/:type/soft-ceiling", constraintHandler.RaiseSoftCeiling)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the event bridge first
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
