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

	appsettlement "github.com/sellerledger/backend/internal/application/settlement"
	"github.com/sellerledger/backend/internal/infrastructure/books"
	"github.com/sellerledger/backend/internal/infrastructure/cache"
	"github.com/sellerledger/backend/internal/infrastructure/config"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
	"github.com/sellerledger/backend/internal/infrastructure/persistence"
	"github.com/sellerledger/backend/internal/interfaces/http/handler"
	"github.com/sellerledger/backend/internal/interfaces/http/middleware"
	"github.com/sellerledger/backend/internal/interfaces/http/router"
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

	log.Info("Starting SellerLedger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	processingRepo := persistence.NewGormSettlementProcessingRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	auditRowRepo := persistence.NewGormAuditRowRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	weightRepo := persistence.NewGormWeightRepository(db.DB)
	mappedBillRepo := persistence.NewGormMappedBillRepository(db.DB)

	// Accounting system client
	booksClient, err := books.NewClient(&books.Config{
		BaseURL:    cfg.Accounting.BaseURL,
		CompanyID:  cfg.Accounting.CompanyID,
		Timeout:    cfg.Accounting.Timeout,
		MaxRetries: cfg.Accounting.MaxRetries,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize accounting client", zap.Error(err))
	}

	// Optional Redis-backed posting lease. Processing stays correct
	// without it; the commit transaction re-checks uniqueness.
	var lock appsettlement.ProcessingLock
	if cfg.Lock.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, processing lock disabled", zap.Error(err))
		} else {
			lock = cache.NewRedisProcessingLock(redisClient, log)
			log.Info("Processing lock enabled", zap.String("redis", cfg.Redis.Addr()))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
	}

	// Application service
	processingService := appsettlement.NewProcessingService(
		booksClient,
		auditRowRepo,
		processingRepo,
		orderRepo,
		mappingRepo,
		weightRepo,
		mappedBillRepo,
		lock,
		log,
		appsettlement.WithLockTTL(cfg.Lock.TTL),
	)

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
	)

	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/healthz", systemHandler.Healthz)

	router.NewRouter(engine).
		Register(handler.NewSettlementHandler(processingService)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
