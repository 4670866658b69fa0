package tickets

import (
	"io"
	"strings"

	"winetopia_backend/platform/apperr"
	"winetopia_backend/platform/httpkit"
	"winetopia_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBodyBytes = 1 << 20

	errReadBody           = "could not read request body"
	errBodyTooLarge       = "request body too large"
	errMissingTicketParam = "ticket number is required"
)

// Handler handles ticket HTTP requests.
type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HandleFlicketWebhook processes a ticket webhook.
// POST /api/v1/webhook/flicket
// Responds 200 for every JSON object so the provider does not retry
// rejected or already-handled tickets. Bodies over the size limit get 413.
func (h *Handler) HandleFlicketWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, errReadBody, err))
		return
	}
	if len(body) > maxWebhookBodyBytes {
		h.log.WithContext(c.Request.Context()).Warn("webhook body over limit", "limitBytes", maxWebhookBodyBytes)
		httpkit.HandleError(c, apperr.New(apperr.KindTooLarge, errBodyTooLarge).
			WithDetails(gin.H{"limitBytes": maxWebhookBodyBytes}))
		return
	}

	status, err := h.service.ProcessFlicketWebhook(c.Request.Context(), body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Status(c, status)
}

// HandleGetAccount returns a ticket's token account.
// GET /api/v1/admin/accounts/:ticketNumber
func (h *Handler) HandleGetAccount(c *gin.Context) {
	ticketNumber := strings.TrimSpace(c.Param("ticketNumber"))
	if ticketNumber == "" {
		httpkit.HandleError(c, apperr.BadRequest(errMissingTicketParam))
		return
	}

	if principal, ok := httpkit.GetPrincipal(c); ok {
		h.log.WithContext(c.Request.Context()).Info("admin account lookup", "subject", principal.Subject, "ticketNumber", ticketNumber)
	}

	account, err := h.service.GetAccount(c.Request.Context(), ticketNumber)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, account)
}
