// Package identity manages the login identities created for ticket holders.
// Each identity is keyed by the ticket number and owns exactly one email.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmailExists means the email already belongs to a different identity.
	ErrEmailExists = errors.New("email already belongs to another identity")
	// ErrIdentityExists means an identity was already created for this ticket.
	ErrIdentityExists = errors.New("identity already exists for ticket")
	// ErrNotFound means no identity exists for the ticket.
	ErrNotFound = errors.New("identity not found")
)

// Identity is the login record for one ticket.
type Identity struct {
	TicketNumber string    `json:"ticketNumber"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Provider is the identity store used by ticket reconciliation.
type Provider interface {
	CreateIdentity(ctx context.Context, ticketNumber, email, displayName string) (Identity, error)
	UpdateIdentityEmail(ctx context.Context, ticketNumber, email string) (Identity, error)
	UpdateIdentityDisplayName(ctx context.Context, ticketNumber, displayName string) error
	GetIdentity(ctx context.Context, ticketNumber string) (Identity, error)
}

// DisplayName joins first and last name the way identities store it.
func DisplayName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type passwordHasher struct {
	password string
	cost     int
}

func newPasswordHasher(password string) passwordHasher {
	return passwordHasher{password: password, cost: bcrypt.DefaultCost}
}

func (h passwordHasher) hash() (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(h.password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CheckPassword reports whether password matches the identity's hash.
func (i Identity) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(password)) == nil
}
