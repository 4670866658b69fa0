package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"winetopia_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishRunsAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	var calls atomic.Int32
	handler := HandlerFunc(func(ctx context.Context, event Event) error {
		calls.Add(1)
		return nil
	})
	bus.Subscribe("a", handler)
	bus.Subscribe("a", handler)
	bus.Subscribe("b", handler)

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "a"})
	bus.Wait()

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 handler calls, got %d", got)
	}
}

func TestPublishSurvivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	var sawErr atomic.Bool
	bus.Subscribe("a", HandlerFunc(func(ctx context.Context, event Event) error {
		sawErr.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{name: "a"})
	bus.Wait()

	if sawErr.Load() {
		t.Fatal("expected handler context to be detached from the publisher")
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	bus.Subscribe("x", HandlerFunc(func(context.Context, Event) error { return errA }))
	bus.Subscribe("x", HandlerFunc(func(context.Context, Event) error { return nil }))
	bus.Subscribe("x", HandlerFunc(func(context.Context, Event) error { return errB }))

	err := bus.PublishSync(context.Background(), testEvent{name: "x"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both handler errors, got %v", err)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.NewNop())
	bus.Subscribe("p", HandlerFunc(func(context.Context, Event) error { panic("boom") }))

	bus.Publish(context.Background(), testEvent{name: "p"})
	bus.Wait()
}

func TestNewBaseEventStampsIDAndTime(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	if a.EventID() == "" || a.EventID() == b.EventID() {
		t.Fatalf("expected unique event ids, got %q and %q", a.EventID(), b.EventID())
	}
	if a.OccurredAt().IsZero() || a.OccurredAt().Location() != time.UTC {
		t.Fatalf("expected a UTC timestamp, got %v", a.OccurredAt())
	}
}
