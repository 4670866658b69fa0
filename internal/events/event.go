// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"winetopia_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Identity Domain Events
// =============================================================================

// IdentityCreated is published after an identity record is created for a ticket.
type IdentityCreated struct {
	BaseEvent
	TicketNumber string `json:"ticketNumber"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

func (e IdentityCreated) EventName() string { return "identity.created" }

// =============================================================================
// Ticket Domain Events
// =============================================================================

// AccountCreated is published when a ticket's account is first stored.
type AccountCreated struct {
	BaseEvent
	TicketNumber string `json:"ticketNumber"`
	TicketType   string `json:"ticketType"`
	SilverToken  int    `json:"silverToken"`
	GoldToken    int    `json:"goldToken"`
}

func (e AccountCreated) EventName() string { return "tickets.account.created" }

// TicketReassigned is published when a ticket moves to a new holder email.
type TicketReassigned struct {
	BaseEvent
	TicketNumber  string `json:"ticketNumber"`
	PreviousEmail string `json:"previousEmail"`
	Email         string `json:"email"`
}

func (e TicketReassigned) EventName() string { return "tickets.ticket.reassigned" }

// TicketUpgraded is published when a ticket's tier changes.
type TicketUpgraded struct {
	BaseEvent
	TicketNumber string `json:"ticketNumber"`
	FromType     string `json:"fromType"`
	ToType       string `json:"toType"`
	SilverDelta  int    `json:"silverDelta"`
	GoldDelta    int    `json:"goldDelta"`
}

func (e TicketUpgraded) EventName() string { return "tickets.ticket.upgraded" }

// EmailCollisionDetected is published when a ticket's email already belongs
// to another identity.
type EmailCollisionDetected struct {
	BaseEvent
	TicketNumber string `json:"ticketNumber"`
	Email        string `json:"email"`
}

func (e EmailCollisionDetected) EventName() string { return "tickets.email.collision_detected" }
