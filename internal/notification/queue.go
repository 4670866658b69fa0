package notification

import (
	"context"

	"winetopia_backend/internal/scheduler"
	"winetopia_backend/platform/logger"
)

// Enqueuer is the scheduler client surface used for queued delivery.
type Enqueuer interface {
	EnqueueNotificationEmail(ctx context.Context, payload scheduler.NotificationEmailPayload) error
}

// QueueNotifier hands requests to the asynq worker. If the queue is
// unreachable it falls back to in-process delivery.
type QueueNotifier struct {
	queue    Enqueuer
	fallback Notifier
	log      *logger.Logger
}

var _ Notifier = (*QueueNotifier)(nil)

func NewQueueNotifier(queue Enqueuer, fallback Notifier, log *logger.Logger) *QueueNotifier {
	return &QueueNotifier{queue: queue, fallback: fallback, log: log}
}

func (q *QueueNotifier) Notify(ctx context.Context, req Request) {
	err := q.queue.EnqueueNotificationEmail(context.WithoutCancel(ctx), scheduler.NotificationEmailPayload{
		Kind:         string(req.Kind),
		Email:        req.Email,
		FullName:     req.FullName,
		TicketNumber: req.TicketNumber,
	})
	if err == nil {
		return
	}
	q.log.WithContext(ctx).Warn("notification enqueue failed, delivering in process",
		"kind", req.Kind,
		"ticketNumber", req.TicketNumber,
		"error", err,
	)
	if q.fallback != nil {
		q.fallback.Notify(ctx, req)
	}
}
