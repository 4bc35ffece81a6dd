// Package ingest implements result ingestion: fetching raw instrument
// results, deduplicating redeliveries through a message ledger, flagging
// values against reference ranges and persisting result rows.
package ingest

import (
	apphttp "labportal_backend/internal/http"
	"labportal_backend/internal/flagging"
	ordersrepo "labportal_backend/internal/orders/repository"
	"labportal_backend/platform/config"
	"labportal_backend/platform/events"
	"labportal_backend/platform/logger"
	"labportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the ingestion pipeline.
type Module struct {
	handler *Handler
	service *Service
	repo    *Repository
}

// NewModule creates the ingest module. scheduler may be nil when no
// queue is configured; async requests then fall back to inline runs.
func NewModule(
	pool *pgxpool.Pool,
	cfg config.InstrumentGatewayConfig,
	orders *ordersrepo.Repository,
	flags *flagging.Repository,
	scheduler IngestScheduler,
	bus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
) *Module {
	repo := NewRepository(pool)
	gateway := NewHTTPGateway(cfg)
	svc := NewService(gateway, repo, NewOrderReader(orders), flags, bus, log, cfg.GetInstrumentSourceSystem())
	h := NewHandler(svc, scheduler, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "ingest"
}

// Service returns the coordinator for the worker binary.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	m.handler.RegisterRoutes(orders)
}

var _ apphttp.Module = (*Module)(nil)
