package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/config"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/database"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/filter"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/handlers"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/middleware"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/routes"
	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/services"
	"github.com/oncueprod/voicecastingpro-platform-sub002/pkg/logger"
)

func main() {
	config.LoadConfig()

	env := config.AppConfig.Environment
	logger.Init(env)
	logger.Info().Str("environment", env).Msg("Starting VoiceCastingPro messaging service...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect()
	database.InitRedis()

	// The accounts table is owned by the account service; everything else
	// here is ours.
	if err := database.DB.AutoMigrate(
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.FilterRule{},
		&models.NotificationLogEntry{},
		&models.DigestState{},
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	if err := filter.SeedRules(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed filter rules")
	}
	engine, err := filter.LoadEngine(database.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to compile filter rules")
	}

	// Service wiring. Presence is built once here and injected; the
	// socket layer, broadcaster and throttler all share the same view of
	// who is online.
	presence := services.NewPresenceTracker()
	broadcast := services.NewBroadcaster(presence)
	directory := services.NewGormDirectory(database.DB)
	notifier := services.LogNotifier{From: config.AppConfig.EmailFrom}

	conversations := services.NewConversationService(database.DB)
	messages := services.NewMessageService(database.DB, conversations, engine)

	window := time.Duration(config.AppConfig.NotifyWindowMinutes) * time.Minute
	throttler := services.NewThrottler(database.DB, presence, directory, window)
	offline := services.NewOfflineNotifier(throttler, directory, notifier, config.AppConfig.FrontendURL)

	presence.OnOnline(func(userID string) {
		broadcast.Broadcast("presence_update", map[string]interface{}{
			"userId":   userID,
			"isOnline": true,
		})
	})
	presence.OnOffline(func(userID string) {
		broadcast.Broadcast("presence_update", map[string]interface{}{
			"userId":   userID,
			"isOnline": false,
		})
	})

	chatHandler := handlers.NewChatHandler(conversations, messages, presence, broadcast, offline)

	// SIGHUP re-reads the filter rule table without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := messages.ReloadRules(); err != nil {
				logger.Error().Err(err).Msg("filter rule reload failed")
				continue
			}
			logger.Info().Msg("filter rules reloaded")
		}
	}()

	// Daily unread digest.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	digest := services.NewDigestScheduler(database.DB, directory, notifier, config.AppConfig.DigestHour)
	digest.Start(ctx)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	// Socket traffic is long-lived; exempt it from the IP limiter.
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/socket.io/") {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	api := r.Group("/api")
	{
		routes.RegisterChatRoutes(api, chatHandler)
		routes.RegisterUploadRoutes(api)
	}

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"

		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		if database.Redis != nil {
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		} else {
			redisStatus = "not configured"
		}

		status := "ok"
		if dbStatus != "ok" || (redisStatus != "ok" && redisStatus != "not configured") {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	socketServer := handlers.InitSocketServer(chatHandler)
	defer socketServer.Close()

	r.GET("/socket.io/*any", handlers.SocketHandler(socketServer))
	r.POST("/socket.io/*any", handlers.SocketHandler(socketServer))

	port := config.AppConfig.Port
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
