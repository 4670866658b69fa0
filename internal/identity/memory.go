package identity

import (
	"context"
	"sync"
	"time"

	"winetopia_backend/internal/events"
)

// MemoryProvider keeps identities in process memory.
type MemoryProvider struct {
	mu       sync.Mutex
	byTicket map[string]Identity
	byEmail  map[string]string
	hasher   passwordHasher
	bus      events.Bus
	now      func() time.Time
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider(bus events.Bus, initialPassword string) *MemoryProvider {
	return &MemoryProvider{
		byTicket: make(map[string]Identity),
		byEmail:  make(map[string]string),
		hasher:   newPasswordHasher(initialPassword),
		bus:      bus,
		now:      time.Now,
	}
}

func (p *MemoryProvider) CreateIdentity(ctx context.Context, ticketNumber, email, displayName string) (Identity, error) {
	hash, err := p.hasher.hash()
	if err != nil {
		return Identity{}, err
	}
	email = NormalizeEmail(email)

	p.mu.Lock()
	if existing, ok := p.byTicket[ticketNumber]; ok {
		p.mu.Unlock()
		return existing, ErrIdentityExists
	}
	if owner, ok := p.byEmail[email]; ok && owner != ticketNumber {
		p.mu.Unlock()
		return Identity{}, ErrEmailExists
	}
	now := p.now()
	created := Identity{
		TicketNumber: ticketNumber,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.byTicket[ticketNumber] = created
	p.byEmail[email] = ticketNumber
	p.mu.Unlock()

	publishCreated(ctx, p.bus, created)
	return created, nil
}

func (p *MemoryProvider) UpdateIdentityEmail(ctx context.Context, ticketNumber, email string) (Identity, error) {
	email = NormalizeEmail(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.byTicket[ticketNumber]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if owner, taken := p.byEmail[email]; taken && owner != ticketNumber {
		return Identity{}, ErrEmailExists
	}
	delete(p.byEmail, current.Email)
	current.Email = email
	current.UpdatedAt = p.now()
	p.byTicket[ticketNumber] = current
	p.byEmail[email] = ticketNumber
	return current, nil
}

func (p *MemoryProvider) UpdateIdentityDisplayName(ctx context.Context, ticketNumber, displayName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.byTicket[ticketNumber]
	if !ok {
		return ErrNotFound
	}
	current.DisplayName = displayName
	current.UpdatedAt = p.now()
	p.byTicket[ticketNumber] = current
	return nil
}

func (p *MemoryProvider) GetIdentity(ctx context.Context, ticketNumber string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.byTicket[ticketNumber]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return current, nil
}

func publishCreated(ctx context.Context, bus events.Bus, created Identity) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, events.IdentityCreated{
		BaseEvent:    events.NewBaseEvent(),
		TicketNumber: created.TicketNumber,
		Email:        created.Email,
		DisplayName:  created.DisplayName,
	})
}
