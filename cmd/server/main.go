package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appfulfillment "github.com/shakeout/backend/internal/application/fulfillment"
	"github.com/shakeout/backend/internal/infrastructure/cache"
	"github.com/shakeout/backend/internal/infrastructure/config"
	"github.com/shakeout/backend/internal/infrastructure/khazenly"
	"github.com/shakeout/backend/internal/infrastructure/logger"
	"github.com/shakeout/backend/internal/infrastructure/persistence"
	"github.com/shakeout/backend/internal/interfaces/http/handler"
	"github.com/shakeout/backend/internal/interfaces/http/middleware"
	"github.com/shakeout/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Shakeout Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Token cache: Redis when enabled, otherwise process-local. The in-memory
	// cache just means each instance refreshes its own token.
	var tokenCache cache.TokenCache
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		tokenCache = cache.NewRedisTokenCache(redisClient, "")
		log.Info("Redis token cache enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		tokenCache = cache.NewInMemoryTokenCache()
	}

	// Initialize the Khazenly adapter
	khazenlyConfig := khazenly.NewConfig(
		cfg.Khazenly.BaseURL,
		cfg.Khazenly.ClientID,
		cfg.Khazenly.ClientSecret,
		cfg.Khazenly.RefreshToken,
		cfg.Khazenly.StoreName,
	)
	khazenlyConfig.OrderUserEmail = cfg.Khazenly.OrderUserEmail
	khazenlyConfig.TokenTimeout = cfg.Khazenly.TokenTimeout
	khazenlyConfig.OrderTimeout = cfg.Khazenly.OrderTimeout

	provider, err := khazenly.NewAdapter(khazenlyConfig, tokenCache)
	if err != nil {
		log.Fatal("Failed to initialize Khazenly adapter", zap.Error(err))
	}

	// Initialize repositories
	orderRepo := persistence.NewOrderRepository(db.DB)
	customerReader := persistence.NewCustomerReader(db.DB)
	auditRepo := persistence.NewWebhookAuditRepository(db.DB)

	// Initialize application services
	submissionService := appfulfillment.NewSubmissionService(orderRepo, customerReader, provider)
	webhookService := appfulfillment.NewWebhookService(orderRepo, auditRepo, cfg.Khazenly.WebhookSecret)

	// Initialize HTTP handlers
	fulfillmentHandler := handler.NewFulfillmentHandler(submissionService, webhookService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	healthHandler := handler.NewHealthHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler.Health)

	// Provider callback endpoints. Khazenly probes with GET/HEAD before
	// enabling the webhook, then POSTs status updates.
	webhookGroup := engine.Group("/webhooks/khazenly")
	webhookGroup.GET("/order-status", webhookHandler.Health)
	webhookGroup.HEAD("/order-status", webhookHandler.Head)
	webhookGroup.POST("/order-status", webhookHandler.Receive)

	// Operator-facing API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	fulfillmentRoutes := router.NewDomainGroup("fulfillment", "/fulfillment")
	fulfillmentRoutes.POST("/orders/:orderNumber/submit", fulfillmentHandler.Submit)
	fulfillmentRoutes.GET("/orders/:orderNumber", fulfillmentHandler.View)
	fulfillmentRoutes.GET("/orders/:orderNumber/remote-status", fulfillmentHandler.RemoteStatus)
	fulfillmentRoutes.GET("/orders/:orderNumber/audit", fulfillmentHandler.Audit)

	r.Register(fulfillmentRoutes)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
