package tickets

import (
	"context"
	"errors"

	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/events"
	"winetopia_backend/internal/identity"
	"winetopia_backend/internal/notification"
	"winetopia_backend/platform/apperr"
	"winetopia_backend/platform/logger"
)

// Notifier accepts best-effort notifications. Implementations must not block
// on delivery.
type Notifier interface {
	Notify(ctx context.Context, req notification.Request)
}

// Engine reconciles one validated ticket against the identity provider and
// the account store.
type Engine struct {
	accounts   accounts.Store
	identities identity.Provider
	notifier   Notifier
	bus        events.Bus
	log        *logger.Logger
}

func NewEngine(store accounts.Store, identities identity.Provider, notifier Notifier, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{
		accounts:   store,
		identities: identities,
		notifier:   notifier,
		bus:        bus,
		log:        log,
	}
}

// Reconcile never returns an error; collaborator failures are reported in
// Outcome.Err.
func (e *Engine) Reconcile(ctx context.Context, in TicketInput) Outcome {
	ctx = context.WithValue(ctx, logger.TicketNumberKey, in.TicketNumber)
	return e.reconcile(ctx, in, e.accounts.Get(ctx, in.TicketNumber), false)
}

func (e *Engine) reconcile(ctx context.Context, in TicketInput, lookup accounts.LookupResult, retried bool) Outcome {
	out := Outcome{TicketNumber: in.TicketNumber, Retried: retried}

	switch lookup.Status {
	case accounts.LookupError:
		return e.fail(ctx, out, "accounts.get", lookup.Err)
	case accounts.LookupNotFound:
		out.Path = PathNew
		return e.createNew(ctx, in, out)
	}

	existing := lookup.Account
	out.SilverToken = existing.SilverToken
	out.GoldToken = existing.GoldToken
	out.Path = classify(existing, in)

	switch out.Path {
	case PathReassignment:
		return e.reassign(ctx, in, existing, out)
	case PathUpgrade:
		return e.upgrade(ctx, in, existing, out)
	default:
		return e.updateDetails(ctx, in, out)
	}
}

func classify(existing accounts.Account, in TicketInput) Path {
	if identity.NormalizeEmail(existing.Email) != in.Email {
		return PathReassignment
	}
	if accounts.NormalizeTicketType(string(existing.TicketType)) != in.TicketType {
		return PathUpgrade
	}
	return PathDetailUpdate
}

func (e *Engine) createNew(ctx context.Context, in TicketInput, out Outcome) Outcome {
	displayName := identity.DisplayName(in.FirstName, in.LastName)

	existingIdentity, err := e.identities.CreateIdentity(ctx, in.TicketNumber, in.Email, displayName)
	switch {
	case errors.Is(err, identity.ErrEmailExists):
		e.collision(ctx, in)
		out.Collision = true
		return out
	case errors.Is(err, identity.ErrIdentityExists):
		// left behind by a concurrent or partially failed attempt
		if synced, ok := e.syncExistingIdentity(ctx, in, existingIdentity, displayName, out); !ok {
			return synced
		}
	case err != nil:
		return e.fail(ctx, out, "identity.create", err)
	}

	grant := accounts.EntitlementFor(in.TicketType)
	created, err := e.accounts.Create(ctx, accounts.Account{
		TicketNumber: in.TicketNumber,
		TicketType:   in.TicketType,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		SilverToken:  grant.Silver,
		GoldToken:    grant.Gold,
	})
	if errors.Is(err, accounts.ErrAlreadyExists) {
		if out.Retried {
			return e.fail(ctx, out, "accounts.create", err)
		}
		e.log.WithContext(ctx).Info("account created concurrently, reclassifying")
		return e.reconcile(ctx, in, e.accounts.Get(ctx, in.TicketNumber), true)
	}
	if err != nil {
		return e.fail(ctx, out, "accounts.create", err)
	}

	out.SilverToken = created.SilverToken
	out.GoldToken = created.GoldToken
	e.bus.Publish(ctx, events.AccountCreated{
		BaseEvent:    events.NewBaseEvent(),
		TicketNumber: created.TicketNumber,
		TicketType:   string(created.TicketType),
		SilverToken:  created.SilverToken,
		GoldToken:    created.GoldToken,
	})
	return out
}

// syncExistingIdentity brings a pre-existing identity in line with the
// ticket before its account is created. ok is false when the caller must stop.
func (e *Engine) syncExistingIdentity(ctx context.Context, in TicketInput, existing identity.Identity, displayName string, out Outcome) (Outcome, bool) {
	if identity.NormalizeEmail(existing.Email) != in.Email {
		_, err := e.identities.UpdateIdentityEmail(ctx, in.TicketNumber, in.Email)
		if errors.Is(err, identity.ErrEmailExists) {
			e.collision(ctx, in)
			out.Collision = true
			return out, false
		}
		if err != nil {
			return e.fail(ctx, out, "identity.update_email", err), false
		}
	}
	if existing.DisplayName != displayName {
		if err := e.identities.UpdateIdentityDisplayName(ctx, in.TicketNumber, displayName); err != nil {
			return e.fail(ctx, out, "identity.update_display_name", err), false
		}
	}
	return out, true
}

func (e *Engine) reassign(ctx context.Context, in TicketInput, existing accounts.Account, out Outcome) Outcome {
	_, err := e.identities.UpdateIdentityEmail(ctx, in.TicketNumber, in.Email)
	switch {
	case errors.Is(err, identity.ErrEmailExists):
		// old email and tokens stay; details still apply
		e.collision(ctx, in)
		out.Collision = true
	case err != nil:
		return e.fail(ctx, out, "identity.update_email", err)
	default:
		email := in.Email
		if err := e.accounts.Update(ctx, in.TicketNumber, accounts.Patch{Email: &email}); err != nil {
			return e.fail(ctx, out, "accounts.update_email", err)
		}
		e.bus.Publish(ctx, events.TicketReassigned{
			BaseEvent:     events.NewBaseEvent(),
			TicketNumber:  in.TicketNumber,
			PreviousEmail: existing.Email,
			Email:         in.Email,
		})
	}
	return e.updateDetails(ctx, in, out)
}

func (e *Engine) upgrade(ctx context.Context, in TicketInput, existing accounts.Account, out Outcome) Outcome {
	delta := accounts.UpgradeDelta(existing.TicketType, in.TicketType)
	ticketType := in.TicketType
	patch := accounts.Patch{
		TicketType: &ticketType,
		AddSilver:  delta.Silver,
		AddGold:    delta.Gold,
	}
	if err := e.accounts.Update(ctx, in.TicketNumber, patch); err != nil {
		return e.fail(ctx, out, "accounts.update_tier", err)
	}
	out.SilverToken += delta.Silver
	out.GoldToken += delta.Gold

	e.bus.Publish(ctx, events.TicketUpgraded{
		BaseEvent:    events.NewBaseEvent(),
		TicketNumber: in.TicketNumber,
		FromType:     string(existing.TicketType),
		ToType:       string(in.TicketType),
		SilverDelta:  delta.Silver,
		GoldDelta:    delta.Gold,
	})
	return e.updateDetails(ctx, in, out)
}

func (e *Engine) updateDetails(ctx context.Context, in TicketInput, out Outcome) Outcome {
	displayName := identity.DisplayName(in.FirstName, in.LastName)
	if err := e.identities.UpdateIdentityDisplayName(ctx, in.TicketNumber, displayName); err != nil {
		return e.fail(ctx, out, "identity.update_display_name", err)
	}

	firstName, lastName, phoneNumber := in.FirstName, in.LastName, in.Phone
	patch := accounts.Patch{FirstName: &firstName, LastName: &lastName, Phone: &phoneNumber}
	if err := e.accounts.Update(ctx, in.TicketNumber, patch); err != nil {
		return e.fail(ctx, out, "accounts.update_details", err)
	}
	return out
}

func (e *Engine) collision(ctx context.Context, in TicketInput) {
	e.log.WithContext(ctx).Warn("email already used by another identity", "email", in.Email)
	e.notifier.Notify(ctx, notification.Request{
		Kind:         notification.KindEmailAlreadyUsed,
		Email:        in.Email,
		FullName:     identity.DisplayName(in.FirstName, in.LastName),
		TicketNumber: in.TicketNumber,
	})
	e.bus.Publish(ctx, events.EmailCollisionDetected{
		BaseEvent:    events.NewBaseEvent(),
		TicketNumber: in.TicketNumber,
		Email:        in.Email,
	})
}

func (e *Engine) fail(ctx context.Context, out Outcome, op string, err error) Outcome {
	out.Err = apperr.Unavailable(op, err)
	e.log.WithContext(ctx).CollaboratorError(out.TicketNumber, op, err)
	return out
}
