package tickets

import (
	"strings"

	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/identity"
	"winetopia_backend/platform/config"
	"winetopia_backend/platform/phone"
	"winetopia_backend/platform/sanitize"
	"winetopia_backend/platform/validator"
)

// Reason names why a payload was rejected.
type Reason string

const (
	ReasonNotForEvent                Reason = "not_for_event"
	ReasonMissingTicketHolderDetails Reason = "missing_ticket_holder_details"
	ReasonMissingEmail               Reason = "missing_email"
	ReasonMissingTicketType          Reason = "missing_ticket_type"
	ReasonMissingBarcode             Reason = "missing_barcode"
)

// TicketInput is a validated, normalized ticket.
type TicketInput struct {
	TicketNumber string
	TicketType   accounts.TicketType
	Email        string
	FirstName    string
	LastName     string
	Phone        string
}

// ValidationResult is either a TicketInput or a rejection reason.
type ValidationResult struct {
	Input     TicketInput
	Rejection Reason
}

func (r ValidationResult) Valid() bool { return r.Rejection == "" }

func rejected(reason Reason) ValidationResult { return ValidationResult{Rejection: reason} }

// Validator checks payloads against the configured event.
type Validator struct {
	targetEventID string
	phoneRegion   string
	val           *validator.Validator
}

func NewValidator(cfg config.WebhookConfig, val *validator.Validator) *Validator {
	return &Validator{
		targetEventID: strings.TrimSpace(cfg.GetTargetEventID()),
		phoneRegion:   cfg.GetPhoneRegion(),
		val:           val,
	}
}

func (v *Validator) present(f fields, key string) (string, bool) {
	s, ok := f.text(key)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, v.val.Var(s, "required") == nil
}

// Validate applies the checks in order; the first failure wins. A member of
// the wrong JSON type fails the check that reads it.
func (v *Validator) Validate(p WebhookPayload) ValidationResult {
	if eventID := p.EventID(); eventID == "" || eventID != v.targetEventID {
		return rejected(ReasonNotForEvent)
	}
	details, ok := p.members.object("ticket_holder_details")
	if !ok {
		return rejected(ReasonMissingTicketHolderDetails)
	}
	email, ok := v.present(details, "email")
	if !ok {
		return rejected(ReasonMissingEmail)
	}
	ticketType, ok := v.present(p.members, "ticket_type")
	if !ok {
		return rejected(ReasonMissingTicketType)
	}
	barcode, ok := v.present(p.members, "barcode")
	if !ok {
		return rejected(ReasonMissingBarcode)
	}

	return ValidationResult{Input: TicketInput{
		TicketNumber: barcode,
		TicketType:   accounts.NormalizeTicketType(ticketType),
		Email:        identity.NormalizeEmail(email),
		FirstName:    sanitize.Name(details.optionalText("first_name")),
		LastName:     sanitize.Name(details.optionalText("last_name")),
		Phone:        phone.NormalizeE164(details.optionalText("cell_phone"), v.phoneRegion),
	}}
}
