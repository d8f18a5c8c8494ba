// Package main runs the background job worker: e-mail delivery and recording uploads to S3.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inr99/academy/config"
	"github.com/inr99/academy/internal/recordings"
	"github.com/inr99/academy/internal/worker"
	"github.com/inr99/academy/pkg/database"
	"github.com/inr99/academy/pkg/mailer"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/redis"
	"github.com/inr99/academy/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var sender mailer.Sender
	if cfg.Email.APIKey != "" {
		sender = mailer.NewSendGridSender(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set: e-mail is logged, not delivered")
		sender = mailer.NewConsoleSender(logger)
	}
	emailProcessor, err := worker.NewEmailProcessor(sender, cfg.App.FrontendBaseURL, logger)
	if err != nil {
		logger.Fatal("email templates", zap.Error(err))
	}

	runner := worker.NewRunner(queue.NewQueue(rdb.Client, logger), logger)
	runner.Handle(queue.JobTypeEmail, emailProcessor)

	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		client := &http.Client{Timeout: 2 * time.Hour}
		runner.Handle(queue.JobTypeRecordingUpload, worker.NewRecordingProcessor(recordings.NewRepository(pool), s3Client, client, logger))
	} else {
		logger.Warn("AWS_REGION not set: recording uploads are not processed")
	}

	logger.Info("worker started")
	runner.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
