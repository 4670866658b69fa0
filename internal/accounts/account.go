// Package accounts holds the per-ticket token accounts and the tier
// entitlement rules.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrAlreadyExists is returned by a conditional create that lost the race.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrNotFound is returned when updating an account that does not exist.
	ErrNotFound = errors.New("account not found")
)

// TicketType is the normalized (lower-case) ticket tier.
type TicketType string

const (
	TicketTypeStandard TicketType = "standard"
	TicketTypePremium  TicketType = "premium"
)

// NormalizeTicketType trims and lower-cases a raw tier value.
func NormalizeTicketType(raw string) TicketType {
	return TicketType(strings.ToLower(strings.TrimSpace(raw)))
}

// Account is the token account for one ticket.
type Account struct {
	TicketNumber string     `json:"ticketNumber"`
	TicketType   TicketType `json:"ticketType"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Phone        string     `json:"phone"`
	SilverToken  int        `json:"silverToken"`
	GoldToken    int        `json:"goldToken"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Entitlement is a token grant.
type Entitlement struct {
	Silver int
	Gold   int
}

// EntitlementFor returns the tokens granted to a new ticket of tier t.
func EntitlementFor(t TicketType) Entitlement {
	switch NormalizeTicketType(string(t)) {
	case TicketTypePremium:
		return Entitlement{Silver: 10, Gold: 1}
	case TicketTypeStandard:
		return Entitlement{Silver: 5, Gold: 0}
	default:
		return Entitlement{}
	}
}

// UpgradeDelta returns the tokens added when a ticket moves from one tier to
// another. Only standard to premium grants anything; downgrades keep tokens.
func UpgradeDelta(from, to TicketType) Entitlement {
	if NormalizeTicketType(string(from)) == TicketTypeStandard && NormalizeTicketType(string(to)) == TicketTypePremium {
		return Entitlement{Silver: 5, Gold: 1}
	}
	return Entitlement{}
}

// Patch is a partial account update. Nil fields are left alone; token fields
// are increments.
type Patch struct {
	TicketType *TicketType
	Email      *string
	FirstName  *string
	LastName   *string
	Phone      *string
	AddSilver  int
	AddGold    int
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.TicketType == nil && p.Email == nil && p.FirstName == nil &&
		p.LastName == nil && p.Phone == nil && p.AddSilver == 0 && p.AddGold == 0
}

// Apply returns a copy of a with the patch applied.
func (p Patch) Apply(a Account) Account {
	if p.TicketType != nil {
		a.TicketType = *p.TicketType
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	a.SilverToken += p.AddSilver
	a.GoldToken += p.AddGold
	return a
}

// LookupStatus tags the result of Store.Get.
type LookupStatus int

const (
	LookupNotFound LookupStatus = iota
	LookupFound
	LookupError
)

func (s LookupStatus) String() string {
	switch s {
	case LookupNotFound:
		return "not_found"
	case LookupFound:
		return "found"
	default:
		return "error"
	}
}

// LookupResult is NotFound, Found(Account) or Error(err).
type LookupResult struct {
	Status  LookupStatus
	Account Account
	Err     error
}

func NotFound() LookupResult { return LookupResult{Status: LookupNotFound} }
func Found(a Account) LookupResult { return LookupResult{Status: LookupFound, Account: a} }
func LookupFailed(err error) LookupResult { return LookupResult{Status: LookupError, Err: err} }

// Store persists accounts keyed by ticket number.
type Store interface {
	Get(ctx context.Context, ticketNumber string) LookupResult
	// Create inserts a only if no account exists for its ticket number.
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, ticketNumber string, patch Patch) error
}
