package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts in the accounts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const accountColumns = `ticket_number, ticket_type, email, first_name, last_name, phone,
    silver_token, gold_token, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var ticketType string
	err := row.Scan(&a.TicketNumber, &ticketType, &a.Email, &a.FirstName, &a.LastName, &a.Phone,
		&a.SilverToken, &a.GoldToken, &a.CreatedAt, &a.UpdatedAt)
	a.TicketType = TicketType(ticketType)
	return a, err
}

func (s *PostgresStore) Get(ctx context.Context, ticketNumber string) LookupResult {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
    SELECT `+accountColumns+`
    FROM accounts
    WHERE ticket_number = $1
  `, ticketNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound()
	}
	if err != nil {
		return LookupFailed(err)
	}
	return Found(a)
}

func (s *PostgresStore) Create(ctx context.Context, a Account) (Account, error) {
	created, err := scanAccount(s.pool.QueryRow(ctx, `
    INSERT INTO accounts (ticket_number, ticket_type, email, first_name, last_name, phone, silver_token, gold_token)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (ticket_number) DO NOTHING
    RETURNING `+accountColumns,
		a.TicketNumber, string(a.TicketType), a.Email, a.FirstName, a.LastName, a.Phone, a.SilverToken, a.GoldToken))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAlreadyExists
	}
	return created, err
}

func (s *PostgresStore) Update(ctx context.Context, ticketNumber string, patch Patch) error {
	if patch.IsEmpty() {
		return s.exists(ctx, ticketNumber)
	}
	var ticketType *string
	if patch.TicketType != nil {
		v := string(*patch.TicketType)
		ticketType = &v
	}
	tag, err := s.pool.Exec(ctx, `
    UPDATE accounts
    SET ticket_type = COALESCE($2, ticket_type),
        email = COALESCE($3, email),
        first_name = COALESCE($4, first_name),
        last_name = COALESCE($5, last_name),
        phone = COALESCE($6, phone),
        silver_token = silver_token + $7,
        gold_token = gold_token + $8,
        updated_at = now()
    WHERE ticket_number = $1
  `, ticketNumber, ticketType, patch.Email, patch.FirstName, patch.LastName, patch.Phone, patch.AddSilver, patch.AddGold)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) exists(ctx context.Context, ticketNumber string) error {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE ticket_number = $1)`, ticketNumber).Scan(&found)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
