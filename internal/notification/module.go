package notification

import (
	"context"

	"winetopia_backend/internal/events"
	"winetopia_backend/platform/logger"
)

// Module reacts to identity and ticket events.
type Module struct {
	notifier Notifier
	log      *logger.Logger
}

func New(notifier Notifier, log *logger.Logger) *Module {
	return &Module{notifier: notifier, log: log}
}

// RegisterHandlers subscribes the module to all events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.IdentityCreated{}.EventName(), m)

	// audit trail only
	bus.Subscribe(events.AccountCreated{}.EventName(), m)
	bus.Subscribe(events.TicketReassigned{}.EventName(), m)
	bus.Subscribe(events.TicketUpgraded{}.EventName(), m)
	bus.Subscribe(events.EmailCollisionDetected{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx).With("eventId", event.EventID())
	switch e := event.(type) {
	case events.IdentityCreated:
		return m.handleIdentityCreated(ctx, e)
	case events.AccountCreated:
		log.Info("account created", "ticketNumber", e.TicketNumber, "ticketType", e.TicketType,
			"silverToken", e.SilverToken, "goldToken", e.GoldToken)
	case events.TicketReassigned:
		log.Info("ticket reassigned", "ticketNumber", e.TicketNumber, "previousEmail", e.PreviousEmail, "email", e.Email)
	case events.TicketUpgraded:
		log.Info("ticket upgraded", "ticketNumber", e.TicketNumber, "from", e.FromType, "to", e.ToType,
			"silverDelta", e.SilverDelta, "goldDelta", e.GoldDelta)
	case events.EmailCollisionDetected:
		log.Warn("email collision", "ticketNumber", e.TicketNumber, "email", e.Email)
	default:
		log.Warn("unhandled event", "event", event.EventName())
	}
	return nil
}

func (m *Module) handleIdentityCreated(ctx context.Context, e events.IdentityCreated) error {
	m.notifier.Notify(ctx, Request{
		Kind:         KindWelcome,
		Email:        e.Email,
		FullName:     e.DisplayName,
		TicketNumber: e.TicketNumber,
	})
	return nil
}
