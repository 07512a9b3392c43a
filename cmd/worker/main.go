// Package main runs the booking notification worker: it drains the Redis
// queue and sends the team notification and visitor confirmation emails.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramsoftware/website-backend/config"
	"github.com/ramsoftware/website-backend/internal/worker"
	"github.com/ramsoftware/website-backend/pkg/kvstore"
	"github.com/ramsoftware/website-backend/pkg/notify"
	"github.com/ramsoftware/website-backend/pkg/queue"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := kvstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var sender notify.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, logger)
	} else {
		logger.Warn("RESEND_API_KEY not set; emails will only be logged")
		sender = notify.NewLogSender(logger)
	}

	jobQueue := queue.NewQueue(rdb, logger)
	processor := worker.NewNotificationProcessor(jobQueue, sender, cfg.Email.NotifyTo, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("notification worker started", zap.Strings("notify_to", cfg.Email.NotifyTo))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
