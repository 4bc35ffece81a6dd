package aireview

import (
	apphttp "labportal_backend/internal/http"
	ordersrepo "labportal_backend/internal/orders/repository"
	"labportal_backend/platform/config"
	"labportal_backend/platform/events"
	"labportal_backend/platform/logger"
	"labportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the AI review and confirmation flows.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(
	pool *pgxpool.Pool,
	cfg config.AIReviewConfig,
	orders *ordersrepo.Repository,
	bus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	client := NewHTTPClient(cfg)
	svc := NewService(client, orders, NewRepository(pool), bus, log)
	h := NewHandler(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

func (m *Module) Name() string {
	return "aireview"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	m.handler.RegisterRoutes(orders)
}

var _ apphttp.Module = (*Module)(nil)
