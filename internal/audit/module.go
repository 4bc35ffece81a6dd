// Package audit writes an append-only trail of domain events. It
// subscribes to the bus and inverts the dependency: domain modules never
// talk to the audit store directly.
package audit

import (
	"context"
	"fmt"

	"labportal_backend/internal/events"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entityTestOrder = "test_order"

// Module subscribes to domain events and appends one audit entry each.
type Module struct {
	repo *Repository
	log  *logger.Logger
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{
		repo: NewRepository(pool),
		log:  log,
	}
}

func (m *Module) Name() string {
	return "audit"
}

// Repository returns the audit store for read access.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterHandlers subscribes to the audited domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ResultsIngested{}.EventName(), m)
	bus.Subscribe(events.OrderAiReviewed{}.EventName(), m)
	bus.Subscribe(events.AiReviewModeChanged{}.EventName(), m)
	bus.Subscribe(events.ResultsConfirmed{}.EventName(), m)
	bus.Subscribe(events.OrderCompleted{}.EventName(), m)

	m.log.Info("audit module registered event handlers")
}

// Handle maps one domain event to one audit entry. Append failures are
// logged and swallowed: the audit trail never blocks the domain flow.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	entry, ok := m.entryFor(event)
	if !ok {
		return nil
	}

	if err := m.repo.Append(ctx, entry); err != nil {
		m.log.Error("audit append failed",
			"action", entry.Action,
			"entityId", entry.EntityID.String(),
			"error", err,
		)
	}
	return nil
}

func (m *Module) entryFor(event events.Event) (Entry, bool) {
	entry := Entry{
		EventID:    uuid.New(),
		EntityType: entityTestOrder,
		Operator:   "system",
		OccurredAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case events.ResultsIngested:
		entry.Action = "results.ingested"
		entry.EntityID = e.TestOrderID
		entry.Message = fmt.Sprintf("ingested %d results from %s (message %s)",
			e.CreatedCount, e.SourceSystem, e.MessageID)
	case events.OrderAiReviewed:
		entry.Action = "order.ai_reviewed"
		entry.EntityID = e.TestOrderID
		entry.Message = fmt.Sprintf("ai review applied %q to %d results",
			e.PredictedStatus, e.ResultCount)
	case events.AiReviewModeChanged:
		entry.Action = "order.ai_review_mode_changed"
		entry.EntityID = e.TestOrderID
		entry.Operator = e.ChangedByID.String()
		entry.Message = fmt.Sprintf("ai review mode set to %t", e.Enabled)
	case events.ResultsConfirmed:
		entry.Action = "results.confirmed"
		entry.EntityID = e.TestOrderID
		entry.Operator = e.ConfirmedByID.String()
		entry.Message = fmt.Sprintf("%d results confirmed", e.ConfirmedCount)
	case events.OrderCompleted:
		entry.Action = "order.completed"
		entry.EntityID = e.TestOrderID
		entry.Operator = e.CompletedByID.String()
		entry.Message = fmt.Sprintf("order completed for %s (%s)", e.PatientName, e.TestType)
	default:
		return Entry{}, false
	}

	return entry, true
}

var _ events.Handler = (*Module)(nil)
