package scheduler

import (
	"context"
	"fmt"

	"winetopia_backend/platform/config"
	"winetopia_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// NotificationDeliverer renders and sends one queued notification.
type NotificationDeliverer interface {
	DeliverQueued(ctx context.Context, payload NotificationEmailPayload) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer NotificationDeliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deliverer NotificationDeliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	return newWorker(server, deliverer, log), nil
}

func newWorker(server *asynq.Server, deliverer NotificationDeliverer, log *logger.Logger) *Worker {
	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		deliverer: deliverer,
		log:       log,
	}
	w.mux.HandleFunc(TaskNotificationEmail, w.handleNotificationEmail)
	return w
}

func (w *Worker) handleNotificationEmail(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationEmailPayload(task)
	if err != nil {
		// malformed payloads never succeed on retry
		return fmt.Errorf("parse notification payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := w.deliverer.DeliverQueued(ctx, payload); err != nil {
		w.log.Error("queued notification failed",
			"kind", payload.Kind,
			"ticketNumber", payload.TicketNumber,
			"error", err,
		)
		return err
	}
	w.log.Info("queued notification sent", "kind", payload.Kind, "ticketNumber", payload.TicketNumber)
	return nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
