package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winetopia_backend/internal/email"
	"winetopia_backend/internal/notification"
	"winetopia_backend/internal/scheduler"
	"winetopia_backend/platform/config"
	"winetopia_backend/platform/logger"
	"winetopia_backend/platform/redisclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.IsNotificationQueued() {
		log.Error("REDIS_URL not configured; nothing to consume")
		panic("scheduler requires REDIS_URL")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = redisclient.Ping(pingCtx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	cancel()
	if err != nil {
		log.Error("failed to reach redis", "error", err)
		panic("failed to reach redis: " + err.Error())
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, notification.NewDeliverer(sender, log), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		panic("scheduler worker failed: " + err.Error())
	}
}
