// Package notification sends the attendee emails. It renders through
// internal/email and dispatches in the background so that callers never
// wait on, or fail because of, email delivery.
package notification

import (
	"context"
	"fmt"

	"winetopia_backend/internal/email"
	"winetopia_backend/internal/scheduler"
	"winetopia_backend/platform/logger"

	"github.com/skip2/go-qrcode"
)

// Kind selects the email template.
type Kind string

const (
	KindWelcome          Kind = "welcome"
	KindEmailAlreadyUsed Kind = "email_already_used"
)

// Request is one notification to deliver.
type Request struct {
	Kind         Kind
	Email        string
	FullName     string
	TicketNumber string
}

// Notifier accepts notifications for best-effort delivery.
type Notifier interface {
	Notify(ctx context.Context, req Request)
}

const qrSize = 256

// Deliverer performs the actual send for a request.
type Deliverer struct {
	sender email.Sender
	log    *logger.Logger
}

func NewDeliverer(sender email.Sender, log *logger.Logger) *Deliverer {
	return &Deliverer{sender: sender, log: log}
}

// Deliver sends req synchronously.
func (d *Deliverer) Deliver(ctx context.Context, req Request) error {
	switch req.Kind {
	case KindWelcome:
		var attachments []email.Attachment
		if req.TicketNumber != "" {
			png, err := qrcode.Encode(req.TicketNumber, qrcode.Medium, qrSize)
			if err != nil {
				// the email is still useful without the code
				d.log.Warn("ticket qr code generation failed", "ticketNumber", req.TicketNumber, "error", err)
			} else {
				attachments = append(attachments, email.Attachment{
					Content:  png,
					FileName: fmt.Sprintf("ticket-%s.png", req.TicketNumber),
					MIMEType: "image/png",
				})
			}
		}
		return d.sender.SendWelcomeEmail(ctx, req.Email, req.FullName, attachments...)
	case KindEmailAlreadyUsed:
		return d.sender.SendEmailAlreadyUsedEmail(ctx, req.Email, req.FullName)
	default:
		return fmt.Errorf("unknown notification kind %q", req.Kind)
	}
}

// DeliverQueued adapts Deliver for the scheduler worker.
func (d *Deliverer) DeliverQueued(ctx context.Context, payload scheduler.NotificationEmailPayload) error {
	return d.Deliver(ctx, Request{
		Kind:         Kind(payload.Kind),
		Email:        payload.Email,
		FullName:     payload.FullName,
		TicketNumber: payload.TicketNumber,
	})
}

var _ scheduler.NotificationDeliverer = (*Deliverer)(nil)
