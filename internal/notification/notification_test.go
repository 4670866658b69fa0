package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"winetopia_backend/internal/email"
	"winetopia_backend/internal/events"
	"winetopia_backend/internal/scheduler"
	"winetopia_backend/platform/logger"
)

type testSender struct {
	mu               sync.Mutex
	welcomeCalls     int
	alreadyUsedCalls int
	lastTo           string
	lastName         string
	lastAttachments  []email.Attachment
	err              error
}

func (s *testSender) SendWelcomeEmail(_ context.Context, toEmail, fullName string, attachments ...email.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.welcomeCalls++
	s.lastTo, s.lastName, s.lastAttachments = toEmail, fullName, attachments
	return s.err
}

func (s *testSender) SendEmailAlreadyUsedEmail(_ context.Context, toEmail, fullName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alreadyUsedCalls++
	s.lastTo, s.lastName = toEmail, fullName
	return s.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	reqs []Request
}

func (n *recordingNotifier) Notify(_ context.Context, req Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)
}

type failingEnqueuer struct{ calls int }

func (f *failingEnqueuer) EnqueueNotificationEmail(context.Context, scheduler.NotificationEmailPayload) error {
	f.calls++
	return errors.New("redis down")
}

type okEnqueuer struct{ got []scheduler.NotificationEmailPayload }

func (o *okEnqueuer) EnqueueNotificationEmail(_ context.Context, p scheduler.NotificationEmailPayload) error {
	o.got = append(o.got, p)
	return nil
}

func TestDeliverWelcomeAttachesTicketQRCode(t *testing.T) {
	sender := &testSender{}
	d := NewDeliverer(sender, logger.NewNop())

	err := d.Deliver(context.Background(), Request{Kind: KindWelcome, Email: "ana@example.com", FullName: "Ana Smith", TicketNumber: "T1"})
	if err != nil {
		t.Fatalf("deliver welcome: %v", err)
	}
	if sender.welcomeCalls != 1 || sender.alreadyUsedCalls != 0 {
		t.Fatalf("expected one welcome email, got welcome=%d alreadyUsed=%d", sender.welcomeCalls, sender.alreadyUsedCalls)
	}
	if len(sender.lastAttachments) != 1 || sender.lastAttachments[0].MIMEType != "image/png" {
		t.Fatalf("expected a png attachment, got %+v", sender.lastAttachments)
	}
	if sender.lastAttachments[0].FileName != "ticket-T1.png" {
		t.Fatalf("unexpected attachment name %q", sender.lastAttachments[0].FileName)
	}
}

func TestDeliverEmailAlreadyUsed(t *testing.T) {
	sender := &testSender{}
	d := NewDeliverer(sender, logger.NewNop())

	if err := d.Deliver(context.Background(), Request{Kind: KindEmailAlreadyUsed, Email: "bob@example.com", FullName: "Bob"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if sender.alreadyUsedCalls != 1 || sender.lastTo != "bob@example.com" || sender.lastName != "Bob" {
		t.Fatalf("unexpected send: calls=%d to=%q name=%q", sender.alreadyUsedCalls, sender.lastTo, sender.lastName)
	}
}

func TestDeliverUnknownKind(t *testing.T) {
	d := NewDeliverer(&testSender{}, logger.NewNop())
	if err := d.Deliver(context.Background(), Request{Kind: "sms"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAsyncNotifierSwallowsFailures(t *testing.T) {
	sender := &testSender{err: errors.New("provider down")}
	n := NewAsyncNotifier(NewDeliverer(sender, logger.NewNop()), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	n.Notify(ctx, Request{Kind: KindEmailAlreadyUsed, Email: "bob@example.com"})
	n.Notify(ctx, Request{Kind: KindEmailAlreadyUsed, Email: "bob@example.com"})
	cancel()
	n.Close()

	if sender.alreadyUsedCalls != 2 {
		t.Fatalf("expected 2 attempts, got %d", sender.alreadyUsedCalls)
	}
}

func TestQueueNotifierEnqueues(t *testing.T) {
	queue := &okEnqueuer{}
	fallback := &recordingNotifier{}
	q := NewQueueNotifier(queue, fallback, logger.NewNop())

	q.Notify(context.Background(), Request{Kind: KindWelcome, Email: "ana@example.com", FullName: "Ana", TicketNumber: "T1"})

	if len(queue.got) != 1 || queue.got[0].Kind != "welcome" || queue.got[0].TicketNumber != "T1" {
		t.Fatalf("unexpected enqueued payloads %+v", queue.got)
	}
	if len(fallback.reqs) != 0 {
		t.Fatal("fallback should not be used when enqueue succeeds")
	}
}

func TestQueueNotifierFallsBackWhenQueueFails(t *testing.T) {
	queue := &failingEnqueuer{}
	fallback := &recordingNotifier{}
	q := NewQueueNotifier(queue, fallback, logger.NewNop())

	q.Notify(context.Background(), Request{Kind: KindWelcome, Email: "ana@example.com"})

	if queue.calls != 1 || len(fallback.reqs) != 1 {
		t.Fatalf("expected one enqueue attempt and one fallback, got %d/%d", queue.calls, len(fallback.reqs))
	}
}

func TestDeliverQueuedMapsPayload(t *testing.T) {
	sender := &testSender{}
	d := NewDeliverer(sender, logger.NewNop())

	err := d.DeliverQueued(context.Background(), scheduler.NotificationEmailPayload{Kind: "email_already_used", Email: "x@example.com", FullName: "X"})
	if err != nil {
		t.Fatalf("deliver queued: %v", err)
	}
	if sender.alreadyUsedCalls != 1 {
		t.Fatalf("expected email_already_used send, got %d", sender.alreadyUsedCalls)
	}
}

func TestModuleSendsWelcomeOnIdentityCreated(t *testing.T) {
	notifier := &recordingNotifier{}
	bus := events.NewInMemoryBus(logger.NewNop())
	New(notifier, logger.NewNop()).RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.IdentityCreated{
		BaseEvent:    events.NewBaseEvent(),
		TicketNumber: "T1",
		Email:        "ana@example.com",
		DisplayName:  "Ana Smith",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(notifier.reqs) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.reqs))
	}
	got := notifier.reqs[0]
	if got.Kind != KindWelcome || got.Email != "ana@example.com" || got.FullName != "Ana Smith" || got.TicketNumber != "T1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestModuleAuditEventsDoNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	bus := events.NewInMemoryBus(logger.NewNop())
	New(notifier, logger.NewNop()).RegisterHandlers(bus)

	ctx := context.Background()
	_ = bus.PublishSync(ctx, events.AccountCreated{TicketNumber: "T1"})
	_ = bus.PublishSync(ctx, events.TicketUpgraded{TicketNumber: "T1"})
	_ = bus.PublishSync(ctx, events.EmailCollisionDetected{TicketNumber: "T2"})

	if len(notifier.reqs) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.reqs))
	}
}
