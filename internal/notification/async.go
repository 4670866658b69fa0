package notification

import (
	"context"
	"sync"
	"time"

	"winetopia_backend/platform/logger"
)

const deliveryTimeout = 30 * time.Second

type deliveryError struct {
	req Request
	err error
}

// AsyncNotifier delivers each request on its own goroutine. Failures flow
// through an error channel that a single drain goroutine logs.
type AsyncNotifier struct {
	deliverer *Deliverer
	log       *logger.Logger
	errs      chan deliveryError
	inflight  sync.WaitGroup
	drained   chan struct{}
	closeOnce sync.Once
}

var _ Notifier = (*AsyncNotifier)(nil)

func NewAsyncNotifier(deliverer *Deliverer, log *logger.Logger) *AsyncNotifier {
	n := &AsyncNotifier{
		deliverer: deliverer,
		log:       log,
		errs:      make(chan deliveryError, 64),
		drained:   make(chan struct{}),
	}
	go n.drain()
	return n
}

func (n *AsyncNotifier) Notify(ctx context.Context, req Request) {
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		if err := n.deliverer.Deliver(sendCtx, req); err != nil {
			n.errs <- deliveryError{req: req, err: err}
			return
		}
		n.log.WithContext(ctx).Info("notification sent", "kind", req.Kind, "ticketNumber", req.TicketNumber)
	}()
}

func (n *AsyncNotifier) drain() {
	defer close(n.drained)
	for de := range n.errs {
		n.log.Error("notification failed",
			"kind", de.req.Kind,
			"ticketNumber", de.req.TicketNumber,
			"email", de.req.Email,
			"error", de.err,
		)
	}
}

// Close waits for in-flight deliveries and stops the drain goroutine.
func (n *AsyncNotifier) Close() {
	n.closeOnce.Do(func() {
		n.inflight.Wait()
		close(n.errs)
		<-n.drained
	})
}
