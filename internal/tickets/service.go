package tickets

import (
	"context"
	"time"

	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/archive"
	"winetopia_backend/platform/apperr"
	"winetopia_backend/platform/logger"
)

const (
	sourceFlicket = "flicket"

	defaultArchiveTimeout = 3 * time.Second
)

// Service is the webhook entry point: archive, parse, validate, reconcile.
type Service struct {
	validator *Validator
	engine    *Engine
	accounts  accounts.Store
	archive   archive.PayloadArchive
	log       *logger.Logger

	archiveTimeout time.Duration
}

func NewService(validator *Validator, engine *Engine, store accounts.Store, payloads archive.PayloadArchive, log *logger.Logger) *Service {
	if payloads == nil {
		payloads = archive.NoopArchive{}
	}
	return &Service{
		validator: validator,
		engine:    engine,
		accounts:  store,
		archive:   payloads,
		log:       log,

		archiveTimeout: defaultArchiveTimeout,
	}
}

// ProcessFlicketWebhook handles one raw webhook body and returns the status
// string for the response. Only a body that is not a JSON object returns an
// error.
func (s *Service) ProcessFlicketWebhook(ctx context.Context, body []byte) (string, error) {
	log := s.log.WithContext(ctx)

	s.archivePayload(ctx, body)

	payload, err := ParsePayload(body)
	if err != nil {
		log.Warn("webhook payload parse failed", "error", err)
		return "", apperr.Wrap(apperr.KindBadRequest, "invalid webhook payload", err).WithOp("tickets.ParsePayload")
	}

	result := s.validator.Validate(payload)
	if !result.Valid() {
		log.WebhookRejected(sourceFlicket, string(result.Rejection), payload.EventID())
		return string(result.Rejection), nil
	}

	out := s.engine.Reconcile(ctx, result.Input)
	log.Info("ticket reconciled",
		"ticketNumber", out.TicketNumber,
		"path", out.Path,
		"collision", out.Collision,
		"retried", out.Retried,
		"silverToken", out.SilverToken,
		"goldToken", out.GoldToken,
		"failed", out.Err != nil,
	)
	return out.Status(), nil
}

// archivePayload is best effort and bounded by archiveTimeout.
func (s *Service) archivePayload(ctx context.Context, body []byte) {
	log := s.log.WithContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
	defer cancel()

	key, err := s.archive.Store(ctx, sourceFlicket, body)
	if err != nil {
		log.Warn("webhook payload archive failed", "error", err)
		return
	}
	if key != "" {
		log.Debug("webhook payload archived", "key", key)
	}
}

// GetAccount returns the stored account for a ticket.
func (s *Service) GetAccount(ctx context.Context, ticketNumber string) (accounts.Account, error) {
	res := s.accounts.Get(ctx, ticketNumber)
	switch res.Status {
	case accounts.LookupFound:
		return res.Account, nil
	case accounts.LookupNotFound:
		return accounts.Account{}, apperr.NotFound("account not found")
	default:
		if res.Err == nil {
			return accounts.Account{}, apperr.Internal("account lookup failed").WithOp("accounts.get")
		}
		return accounts.Account{}, apperr.Unavailable("accounts.get", res.Err)
	}
}
