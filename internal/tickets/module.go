package tickets

import (
	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/archive"
	"winetopia_backend/internal/events"
	apphttp "winetopia_backend/internal/http"
	"winetopia_backend/internal/identity"
	"winetopia_backend/platform/config"
	"winetopia_backend/platform/httpkit"
	"winetopia_backend/platform/logger"
	"winetopia_backend/platform/validator"

	"golang.org/x/time/rate"
)

// Dependencies are the collaborators built once by the composition root.
type Dependencies struct {
	Accounts   accounts.Store
	Identities identity.Provider
	Notifier   Notifier
	Archive    archive.PayloadArchive
	EventBus   events.Bus
	Validator  *validator.Validator
	Config     config.WebhookConfig
	Logger     *logger.Logger
}

// Module is the tickets bounded context implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	limiter *httpkit.IPRateLimiter
}

func NewModule(deps Dependencies) *Module {
	engine := NewEngine(deps.Accounts, deps.Identities, deps.Notifier, deps.EventBus, deps.Logger)
	svc := NewService(NewValidator(deps.Config, deps.Validator), engine, deps.Accounts, deps.Archive, deps.Logger)

	return &Module{
		handler: NewHandler(svc, deps.Logger),
		service: svc,
		limiter: httpkit.NewIPRateLimiter(rate.Limit(deps.Config.GetWebhookRateLimit()), deps.Config.GetWebhookRateBurst(), deps.Logger),
	}
}

func (m *Module) Name() string {
	return "tickets"
}

func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the webhook and admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(m.limiter.RateLimit())
	webhookGroup.POST("/flicket", m.handler.HandleFlicketWebhook)

	ctx.Admin.GET("/accounts/:ticketNumber", m.handler.HandleGetAccount)
}

var _ apphttp.Module = (*Module)(nil)
