package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/config"
	"github.com/pixelgate/pixelgate/internal/handler"
	"github.com/pixelgate/pixelgate/internal/middleware"
	"github.com/pixelgate/pixelgate/internal/repository"
	"github.com/pixelgate/pixelgate/internal/scheduler"
	"github.com/pixelgate/pixelgate/internal/service"
	"github.com/pixelgate/pixelgate/internal/storage"
	"github.com/pixelgate/pixelgate/internal/upstream"
	"github.com/pixelgate/pixelgate/internal/usage"
)

var startTime = time.Now()

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *storage.Database
	redis    *storage.RedisClient
	logger   *slog.Logger
	recorder *usage.Recorder
	sched    *scheduler.Scheduler
	rotator  *service.RotatorService

	authService       *service.AuthService
	productKeyService *service.ProductKeyService
	quotaService      *service.QuotaService

	authHandler         *handler.AuthHandler
	productKeyHandler   *handler.ProductKeyHandler
	credentialHandler   *handler.CredentialHandler
	generateHandler     *handler.GenerateHandler
	analyticsHandler    *handler.AnalyticsHandler
	webhookHandler      *handler.WebhookHandler
	subscriptionHandler *handler.SubscriptionHandler

	httpServer *http.Server
}

func New(cfg *config.Config, db *storage.Database, redis *storage.RedisClient, logger *slog.Logger) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	userRepo := repository.NewUserRepository(db)
	productKeyRepo := repository.NewProductKeyRepository(db)
	providerKeyRepo := repository.NewProviderKeyRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	usageRepo := repository.NewUsageLogRepository(db)

	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiryHours)
	productKeyService := service.NewProductKeyService(productKeyRepo, subscriptionRepo, logger)
	quotaService := service.NewQuotaService(usageRepo, cfg.Quota.FreeTierLimit, cfg.Quota.FreeTierWindowDays)
	rotator := service.NewRotatorService(providerKeyRepo, cfg.Pool.RequestCeiling, logger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, userRepo, logger)
	analyticsService := service.NewAnalyticsService(usageRepo)

	recorder := usage.NewRecorder(usageRepo, cfg.Usage.BufferSize, logger)
	upstreamClient := upstream.NewClient(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second, logger)
	sched := scheduler.New(providerKeyRepo, logger)

	s := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		redis:    redis,
		logger:   logger,
		recorder: recorder,
		sched:    sched,
		rotator:  rotator,

		authService:       authService,
		productKeyService: productKeyService,
		quotaService:      quotaService,

		authHandler:         handler.NewAuthHandler(authService),
		productKeyHandler:   handler.NewProductKeyHandler(productKeyService),
		credentialHandler:   handler.NewCredentialHandler(providerKeyRepo, upstreamClient, logger),
		generateHandler:     handler.NewGenerateHandler(rotator, upstreamClient, logger),
		analyticsHandler:    handler.NewAnalyticsHandler(analyticsService),
		webhookHandler:      handler.NewWebhookHandler(subscriptionService, cfg.Billing.WebhookSecret, logger),
		subscriptionHandler: handler.NewSubscriptionHandler(subscriptionService),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/plans", s.subscriptionHandler.Plans)

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	s.router.POST("/webhooks/billing", s.webhookHandler.HandleBillingEvent)

	account := s.router.Group("/account", middleware.RequireAuth(s.authService))
	{
		account.GET("/me", s.authHandler.Me)
		account.POST("/keys", s.productKeyHandler.Create)
		account.GET("/keys", s.productKeyHandler.List)
		account.DELETE("/keys/:id", s.productKeyHandler.Revoke)
		account.GET("/subscriptions", s.subscriptionHandler.History)
	}

	admin := s.router.Group("/admin", middleware.RequireAuth(s.authService), middleware.RequireAdmin())
	{
		admin.GET("/status", s.adminStatus)
		admin.POST("/credentials", s.credentialHandler.Add)
		admin.GET("/credentials", s.credentialHandler.List)
		admin.DELETE("/credentials/:id", s.credentialHandler.Delete)
		admin.POST("/credentials/reset", s.credentialHandler.Reset)
		admin.GET("/credentials/:id/probe", s.credentialHandler.Probe)
		admin.GET("/analytics/summary", s.analyticsHandler.Summary)
		admin.GET("/analytics/timeseries", s.analyticsHandler.TimeSeries)
		admin.GET("/analytics/keys/:id", s.analyticsHandler.ProductKeyStats)
		admin.GET("/analytics/logs", s.analyticsHandler.Logs)
	}

	// The gated product surface. UsageLogger is registered first so its
	// post-response hook runs after everything else has finished.
	v1 := s.router.Group("/v1",
		middleware.UsageLogger(s.recorder),
		middleware.QuotaGate(s.productKeyService, s.quotaService),
		middleware.RateLimitPerMinute(s.redis, s.config),
	)
	{
		v1.POST("/images/generations", s.generateHandler.Generate)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	dbHealthy := true
	if err := s.db.Ping(ctx); err != nil {
		dbHealthy = false
		s.logger.Error("database health check failed", "error", err)
	}

	redisHealthy := true
	if err := s.redis.Ping(ctx); err != nil {
		redisHealthy = false
		s.logger.Error("redis health check failed", "error", err)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !dbHealthy || !redisHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "pixelgate",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"database": dbHealthy,
			"redis":    redisHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	remaining, err := s.rotator.RemainingCapacity(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gateway":         "running",
		"eligible_keys":   remaining,
		"request_ceiling": s.rotator.Ceiling(),
		"uptime_seconds":  time.Since(startTime).Seconds(),
		"timestamp":       time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	if err := s.sched.Start(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting gateway", "addr", addr, "environment", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.sched.Stop()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Flush pending ledger entries after in-flight requests finish.
	s.recorder.Close()

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
