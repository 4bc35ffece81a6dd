package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labportal_backend/internal/events"
	"labportal_backend/internal/flagging"
	"labportal_backend/internal/orders/domain"
	"labportal_backend/platform/apperr"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned by OrderReader implementations when the
// owning order is missing or soft-deleted.
var ErrOrderNotFound = errors.New("test order not found")

// Order is the slice of test order state the coordinator needs: the
// patient's gender feeds the flagging engine.
type Order struct {
	ID            uuid.UUID
	PatientGender string
	TestType      string
	Status        domain.Status
}

// OrderReader is the narrow interface the coordinator needs for loading
// the owning order. Implemented by an adapter over the orders repository.
type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
}

// Ledger is the dedup ledger surface used by the coordinator.
// *Repository satisfies it.
type Ledger interface {
	TryRegister(ctx context.Context, messageID uuid.UUID, sourceSystem string, orderID uuid.UUID) (bool, ProcessedMessage, error)
	PersistAndFinalize(ctx context.Context, messageID uuid.UUID, results []NewResult, processedAt time.Time) (int, error)
}

// FlagProvider supplies a flagging snapshot for one ingestion unit.
// *flagging.Repository satisfies it.
type FlagProvider interface {
	Snapshot(ctx context.Context) (*flagging.Snapshot, error)
}

// Outcome describes one ingestion call. A deduplicated outcome replays
// the ledger's previously finalized numbers unchanged.
type Outcome struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	MessageID    uuid.UUID `json:"messageId"`
	CreatedCount int       `json:"createdCount"`
	ProcessedAt  time.Time `json:"processedAt"`
	Deduplicated bool      `json:"deduplicated"`
}

// Service orchestrates one ingestion unit of work:
// fetch → dedup → flag → persist → audit.
type Service struct {
	gateway      Gateway
	ledger       Ledger
	orders       OrderReader
	flags        FlagProvider
	bus          events.Bus
	log          *logger.Logger
	sourceSystem string
}

// NewService creates the ingestion coordinator.
func NewService(gateway Gateway, ledger Ledger, orders OrderReader, flags FlagProvider, bus events.Bus, log *logger.Logger, sourceSystem string) *Service {
	return &Service{
		gateway:      gateway,
		ledger:       ledger,
		orders:       orders,
		flags:        flags,
		bus:          bus,
		log:          log,
		sourceSystem: sourceSystem,
	}
}

// Ingest runs one ingestion unit of work for an order. Redeliveries of
// the same instrument run are detected through the derived message id
// and replay the recorded outcome without touching storage again.
func (s *Service) Ingest(ctx context.Context, orderID uuid.UUID, testType string) (Outcome, error) {
	// Step 1: fetch before any ledger write — a gateway failure must
	// leave no trace, or the redelivery would be treated as a duplicate.
	rawSet, err := s.gateway.FetchRawResults(ctx, orderID, testType)
	if err != nil {
		s.log.UpstreamError("instrument", orderID.String(), err)
		return Outcome{}, err
	}

	messageID := DeriveMessageID(orderID, rawSet.PerformedDate)

	isNew, record, err := s.ledger.TryRegister(ctx, messageID, s.sourceSystem, orderID)
	if err != nil {
		return Outcome{}, err
	}

	if !isNew {
		if record.Finalized() {
			outcome := replayOutcome(record)
			s.log.IngestEvent(orderID.String(), messageID.String(), outcome.CreatedCount, true)
			return outcome, nil
		}
		// Another delivery holds a fresh provisional claim. Surface a
		// conflict so the transport redelivers once it resolves.
		return Outcome{}, apperr.Conflict(
			fmt.Sprintf("ingestion for message %s is already in flight", messageID),
		)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return Outcome{}, apperr.NotFound("test order not found")
	}
	if err != nil {
		return Outcome{}, err
	}

	snapshot, err := s.flags.Snapshot(ctx)
	if err != nil {
		return Outcome{}, err
	}

	newResults, err := classifyItems(rawSet, order, snapshot)
	if err != nil {
		// One bad item fails the whole unit: the ledger count must
		// always equal the rows actually persisted.
		return Outcome{}, err
	}

	processedAt := time.Now().UTC()
	created, err := s.ledger.PersistAndFinalize(ctx, messageID, newResults, processedAt)
	if err != nil {
		return Outcome{}, err
	}

	s.bus.Publish(ctx, events.ResultsIngested{
		BaseEvent:    events.NewBaseEvent(),
		TestOrderID:  orderID,
		MessageID:    messageID,
		SourceSystem: s.sourceSystem,
		TestType:     testType,
		CreatedCount: created,
		ProcessedAt:  processedAt,
	})
	s.log.IngestEvent(orderID.String(), messageID.String(), created, false)

	return Outcome{
		Success:      true,
		Message:      fmt.Sprintf("ingested %d results", created),
		MessageID:    messageID,
		CreatedCount: created,
		ProcessedAt:  processedAt,
	}, nil
}

// classifyItems maps raw instrument items to result rows. The computed
// flag decides the result status; the instrument's status hint is only
// used when no flag can be computed (non-numeric value).
func classifyItems(rawSet RawResultSet, order Order, snapshot *flagging.Snapshot) ([]NewResult, error) {
	results := make([]NewResult, 0, len(rawSet.Items))
	for i, item := range rawSet.Items {
		if item.TestCode == "" || item.Parameter == "" {
			return nil, apperr.Validation(
				fmt.Sprintf("raw item %d is missing test code or parameter", i),
			)
		}

		result := NewResult{
			TestOrderID:    order.ID,
			TestCode:       item.TestCode,
			Parameter:      item.Parameter,
			Unit:           item.Unit,
			ReferenceRange: item.ReferenceRange,
			PerformedDate:  rawSet.PerformedDate,
		}

		if item.Value != nil {
			value := *item.Value
			result.ValueNumeric = &value
			flag := snapshot.Classify(item.TestCode, value, order.PatientGender)
			result.Flag = string(flag)
			result.ResultStatus = string(flag)
		} else {
			if item.ValueText == "" {
				return nil, apperr.Validation(
					fmt.Sprintf("raw item %d (%s) carries no value", i, item.TestCode),
				)
			}
			text := item.ValueText
			result.ValueText = &text
			result.ResultStatus = item.StatusHint
			if result.ResultStatus == "" {
				result.ResultStatus = string(domain.FlagNormal)
			}
		}

		results = append(results, result)
	}
	return results, nil
}

func replayOutcome(record ProcessedMessage) Outcome {
	outcome := Outcome{
		Success:      true,
		Message:      "message already processed",
		MessageID:    record.MessageID,
		Deduplicated: true,
	}
	if record.CreatedCount != nil {
		outcome.CreatedCount = *record.CreatedCount
	}
	if record.ProcessedAt != nil {
		outcome.ProcessedAt = *record.ProcessedAt
	}
	return outcome
}
