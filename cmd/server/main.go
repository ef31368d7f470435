package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/securevault-gateway/internal/access"
	"github.com/securevault-gateway/internal/analytics"
	"github.com/securevault-gateway/internal/audit"
	"github.com/securevault-gateway/internal/config"
	"github.com/securevault-gateway/internal/database"
	"github.com/securevault-gateway/internal/middleware"
	"github.com/securevault-gateway/internal/share"
	"github.com/securevault-gateway/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup logger
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to the database
	driver := cfg.DriverName()
	db, err := database.Open(driver, cfg.DSN())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, driver); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Infof("Connected to %s", driver)

	// Optional Redis stats cache
	var rdb *redis.Client
	if cfg.Cache.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Cache.Redis.Timeout)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warnf("Redis unavailable, stats cache disabled: %v", err)
			rdb = nil
		} else {
			logger.Info("Connected to Redis")
		}
		cancel()
	}

	// Blob store
	storageService, err := storage.NewService(cfg)
	if err != nil {
		logger.Fatalf("Failed to create storage service: %v", err)
	}
	if err := storageService.EnsureBucket(context.Background()); err != nil {
		logger.Fatalf("Failed to ensure bucket: %v", err)
	}
	logger.Info("Storage service initialized")

	// Stores and services
	shareStore := share.NewStore(db, driver)
	logStore := audit.NewStore(db, driver)

	shareService := share.NewService(shareStore, storageService, cfg.Upload.DefaultMaxViews, cfg.Upload.DefaultExpiryMins)
	accessService := access.NewService(shareStore, logStore, storageService, logger)
	analyticsService := analytics.NewService(shareStore, logStore, rdb, logger)

	// Setup Gin
	gin.SetMode(cfg.GinMode())
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggerMiddleware(logger))
	if cfg.Server.EnableCORS {
		router.Use(middleware.CORSMiddleware())
	}
	router.Use(middleware.OwnerMiddleware(cfg.Auth.JWTSecret))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/upload", handleUpload(shareService, cfg))
	router.GET("/access/:id", handleAccess(accessService))
	router.GET("/stats", handleStats(analyticsService))
	router.GET("/logs", handleLogs(analyticsService))

	// Setup HTTP server
	srv := &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        router,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
