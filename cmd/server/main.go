// Package main runs the academy HTTP API with WebSocket session events and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inr99/academy/config"
	"github.com/inr99/academy/internal/analytics"
	"github.com/inr99/academy/internal/attendance"
	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/internal/catalog"
	"github.com/inr99/academy/internal/certificates"
	"github.com/inr99/academy/internal/instructors"
	"github.com/inr99/academy/internal/livesessions"
	"github.com/inr99/academy/internal/middleware"
	"github.com/inr99/academy/internal/realtime"
	"github.com/inr99/academy/internal/recordings"
	"github.com/inr99/academy/internal/settings"
	"github.com/inr99/academy/pkg/database"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/ratelimit"
	"github.com/inr99/academy/pkg/redis"
	"github.com/inr99/academy/pkg/response"
	"github.com/inr99/academy/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if cfg.App.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	// Redis backs the job queue, cross-instance events and the login limiter.
	// Without it the server runs single-instance with an in-memory limiter and no jobs.
	var (
		jobQueue      *queue.Queue
		emails        auth.EmailEnqueuer
		sessionEmails livesessions.EmailEnqueuer
		uploads       recordings.UploadEnqueuer
		limiter       ratelimit.Limiter
		hub           *realtime.Hub
	)
	limitOpts := ratelimit.Options{Limit: cfg.RateLimit.LoginAttempts, Window: cfg.RateLimit.LoginWindow}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()

		jobQueue = queue.NewQueue(rdb.Client, logger)
		emails, sessionEmails, uploads = jobQueue, jobQueue, jobQueue
		limiter = ratelimit.NewRedisLimiter(rdb.Client, "ratelimit:login:", limitOpts)
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		logger.Warn("REDIS_ADDR not set: background jobs disabled, login limiter in memory")
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxTracked, limitOpts)
		hub = realtime.NewHub(logger, nil, nil)
	}
	defer hub.Close()

	var signer recordings.Presigner
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			signer = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	settingsSvc := settings.NewService(settings.NewRepository(pool))
	authSvc := auth.NewService(auth.NewRepository(pool), settingsSvc, emails, jwtService, logger)
	authHandler := auth.NewHandler(authSvc, limiter, logger)

	attendanceRepo := attendance.NewRepository(pool)
	attendanceHandler := attendance.NewHandler(attendance.NewService(attendanceRepo, hub, logger), logger)
	sessionSvc := livesessions.NewService(livesessions.NewRepository(pool), attendanceRepo, sessionEmails, hub, logger)
	sessionHandler := livesessions.NewHandler(sessionSvc, logger)

	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(catalog.NewService(catalogRepo, catalogRepo, logger), logger)
	analyticsHandler := analytics.NewHandler(analytics.NewService(analytics.NewRepository(pool)), logger)
	settingsHandler := settings.NewHandler(settingsSvc, logger)
	instructorHandler := instructors.NewHandler(instructors.NewService(instructors.NewRepository(pool)), logger)
	certificateHandler := certificates.NewHandler(certificates.NewRepository(pool), logger)

	recordingSvc := recordings.NewService(recordings.NewRepository(pool), uploads, signer, logger)
	recordingHandler := recordings.NewHandler(recordingSvc, logger)
	recordingWebhook := recordings.NewWebhookHandler(recordingSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.CORSOptions{
		Origins:       cfg.Server.AllowedOrigins(),
		ExposeHeaders: []string{"Retry-After"},
	}))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/ws", realtime.ServeWs(ctx, hub, jwtService, realtime.Upgrader(cfg.Server.AllowedOrigins()), logger))

	api := router.Group("/api")

	// Public
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	catalogHandler.RegisterPublic(api)
	certificateHandler.Register(api)
	api.POST("/webhooks/recording-ready", middleware.WebhookSecret(cfg.Webhook.RecordingSecret), recordingWebhook.RecordingReady)

	// Authenticated
	authed := api.Group("")
	authed.Use(middleware.JWT(jwtService))
	authed.GET("/auth/me", authHandler.Me)

	sessions := authed.Group("/live-sessions")
	sessionHandler.Register(sessions)
	attendanceHandler.Register(sessions)
	recordingHandler.Register(authed)

	instructor := authed.Group("/instructor", middleware.RequireHost())
	instructorHandler.Register(instructor)

	admin := authed.Group("/admin", middleware.RequireAdmin())
	catalogHandler.RegisterAdmin(admin)
	analyticsHandler.Register(admin)
	settingsHandler.Register(admin)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
