package identity

import (
	"context"
	"errors"

	"winetopia_backend/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresProvider stores identities in the identities table.
type PostgresProvider struct {
	pool   *pgxpool.Pool
	hasher passwordHasher
	bus    events.Bus
}

var _ Provider = (*PostgresProvider)(nil)

func NewPostgresProvider(pool *pgxpool.Pool, bus events.Bus, initialPassword string) *PostgresProvider {
	return &PostgresProvider{pool: pool, hasher: newPasswordHasher(initialPassword), bus: bus}
}

func (p *PostgresProvider) CreateIdentity(ctx context.Context, ticketNumber, email, displayName string) (Identity, error) {
	hash, err := p.hasher.hash()
	if err != nil {
		return Identity{}, err
	}

	var created Identity
	err = p.pool.QueryRow(ctx, `
    INSERT INTO identities (ticket_number, email, display_name, password_hash)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (ticket_number) DO NOTHING
    RETURNING ticket_number, email, display_name, password_hash, created_at, updated_at
  `, ticketNumber, NormalizeEmail(email), displayName, hash).Scan(
		&created.TicketNumber, &created.Email, &created.DisplayName, &created.PasswordHash, &created.CreatedAt, &created.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := p.GetIdentity(ctx, ticketNumber)
		if getErr != nil {
			return Identity{}, getErr
		}
		return existing, ErrIdentityExists
	}
	if isUniqueViolation(err) {
		return Identity{}, ErrEmailExists
	}
	if err != nil {
		return Identity{}, err
	}

	publishCreated(ctx, p.bus, created)
	return created, nil
}

func (p *PostgresProvider) UpdateIdentityEmail(ctx context.Context, ticketNumber, email string) (Identity, error) {
	var updated Identity
	err := p.pool.QueryRow(ctx, `
    UPDATE identities
    SET email = $2, updated_at = now()
    WHERE ticket_number = $1
    RETURNING ticket_number, email, display_name, password_hash, created_at, updated_at
  `, ticketNumber, NormalizeEmail(email)).Scan(
		&updated.TicketNumber, &updated.Email, &updated.DisplayName, &updated.PasswordHash, &updated.CreatedAt, &updated.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	if isUniqueViolation(err) {
		return Identity{}, ErrEmailExists
	}
	return updated, err
}

func (p *PostgresProvider) UpdateIdentityDisplayName(ctx context.Context, ticketNumber, displayName string) error {
	tag, err := p.pool.Exec(ctx, `
    UPDATE identities
    SET display_name = $2, updated_at = now()
    WHERE ticket_number = $1
  `, ticketNumber, displayName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresProvider) GetIdentity(ctx context.Context, ticketNumber string) (Identity, error) {
	var found Identity
	err := p.pool.QueryRow(ctx, `
    SELECT ticket_number, email, display_name, password_hash, created_at, updated_at
    FROM identities
    WHERE ticket_number = $1
  `, ticketNumber).Scan(
		&found.TicketNumber, &found.Email, &found.DisplayName, &found.PasswordHash, &found.CreatedAt, &found.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrNotFound
	}
	return found, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
