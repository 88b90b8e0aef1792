package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutorchat/internal/config"
	"tutorchat/internal/events"
	"tutorchat/internal/handler"
	"tutorchat/internal/middleware"
	"tutorchat/internal/proxy"
	"tutorchat/internal/repository"
	"tutorchat/internal/server"
	"tutorchat/internal/services"
	"tutorchat/internal/storage"
	"tutorchat/internal/transport/httpdto"
	"tutorchat/pkg/database"
	"tutorchat/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(appLogger)
	zap.ReplaceGlobals(appLogger.Logger)
	defer appLogger.Logger.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		appLogger.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Errorf("Failed to apply migrations: %v", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Services
	access := proxy.NewAccessControl(conversationRepo)
	userService := services.NewUserService(userRepo)
	messageService := services.NewMessageService(messageRepo, conversationRepo, userService, access)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, messageService, userService, access, appLogger)

	var uploadService *services.UploadService
	if cfg.S3.Bucket != "" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3.Region,
			Bucket:     cfg.S3.Bucket,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			Endpoint:   cfg.S3.Endpoint,
			PublicBase: cfg.S3.PublicBase,
			PresignTTL: cfg.S3.PresignTTL,
		})
		if err != nil {
			appLogger.Errorf("Failed to initialize S3 storage: %v", err)
			os.Exit(1)
		}
		uploadService = services.NewUploadService(s3Client, cfg.S3.MaxUploadSize)
	} else {
		appLogger.Warnf("S3 bucket not configured, attachment uploads disabled")
		uploadService = services.NewUploadService(nil, cfg.S3.MaxUploadSize)
	}

	// Realtime hub and cross-instance event bridge
	instanceID := uuid.New().String()
	bridge := events.NewRedisBridge(redisClient, cfg.Redis.Channel, instanceID, appLogger)
	registry := server.NewRegistry()
	hub := server.NewHub(registry, conversationService, messageService, access, bridge)
	go hub.Run()
	bridge.Start(hub.InjectRemote)

	// HTTP surface
	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(appLogger))
	r.Use(middleware.ErrorHandler(appLogger))

	r.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("database unreachable", "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "ok"}))
	})

	wsHandler := server.NewWSHandler(hub)
	handler.RegisterRoutes(r, &handler.Handlers{
		Conversations: handler.NewConversationHandler(conversationService),
		Messages:      handler.NewMessageHandler(messageService, hub),
		Users:         handler.NewUserHandler(userService),
		Uploads:       handler.NewUploadHandler(uploadService),
		WSConnect:     wsHandler.Connect,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		appLogger.Infof("Starting server on port %s (instance %s)", cfg.Server.Port, instanceID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Infof("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server shutdown error: %v", err)
	}

	bridge.Stop()
	hub.Stop()
	if err := redisClient.Close(); err != nil {
		appLogger.Warnf("Redis close error: %v", err)
	}

	appLogger.Infof("Server stopped")
}
