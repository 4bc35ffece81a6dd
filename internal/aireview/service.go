// Package aireview orchestrates the AI-assisted review of lab results:
// sending persisted results to an external scoring service, broadcasting
// the verdict, and the human confirmation flow that completes an order.
package aireview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"labportal_backend/internal/events"
	"labportal_backend/internal/orders/domain"
	ordersrepo "labportal_backend/internal/orders/repository"
	"labportal_backend/platform/apperr"
	"labportal_backend/platform/logger"

	"github.com/google/uuid"
)

// OrderReader is the slice of the orders repository this module needs.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (ordersrepo.TestOrder, error)
	ListResults(ctx context.Context, orderID uuid.UUID) ([]ordersrepo.TestResult, error)
}

// VerdictStore persists review verdicts and confirmations.
// *Repository satisfies it.
type VerdictStore interface {
	ApplyVerdict(ctx context.Context, orderID uuid.UUID, predictedStatus string, reviewedAt time.Time) (int, error)
	ConfirmReviewed(ctx context.Context, orderID, confirmedBy uuid.UUID, resultIDs []uuid.UUID, confirmedAt time.Time) (ConfirmRecord, error)
}

// ReviewedOrder carries the freshly reviewed order plus the verdict's
// transient annotations. The summary is request-scoped only: it is never
// written to storage and does not survive a reload.
type ReviewedOrder struct {
	Order           ordersrepo.TestOrder
	PredictedStatus string
	Summary         string
}

// Service orchestrates AI review and confirmation.
type Service struct {
	client Client
	orders OrderReader
	store  VerdictStore
	bus    events.Bus
	log    *logger.Logger
}

func NewService(client Client, orders OrderReader, store VerdictStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		client: client,
		orders: orders,
		store:  store,
		bus:    bus,
		log:    log,
	}
}

// TriggerReview sends an order's results to the scoring service and
// applies the verdict. Every precondition is checked before the outbound
// call: a gated or empty order makes zero HTTP requests.
func (s *Service) TriggerReview(ctx context.Context, orderID uuid.UUID) (*ReviewedOrder, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return nil, apperr.NotFound("test order not found")
	}
	if err != nil {
		return nil, err
	}

	if !order.IsAiReviewEnabled {
		return nil, apperr.PreconditionFailed("ai review is disabled for this order")
	}
	if !domain.CanTransition(order.Status, domain.StatusReviewedByAI) {
		return nil, apperr.PreconditionFailed(
			fmt.Sprintf("order in status %q cannot be reviewed", order.Status),
		)
	}

	results, err := s.orders.ListResults(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperr.PreconditionFailed("order has no results to review")
	}

	verdict, err := s.client.Review(ctx, buildReviewRequest(order, results))
	if err != nil {
		s.log.UpstreamError("ai-review", orderID.String(), err)
		return nil, err
	}

	count, err := s.store.ApplyVerdict(ctx, orderID, verdict.PredictedStatus, time.Now().UTC())
	if errors.Is(err, ErrStaleStatus) {
		return nil, apperr.Conflict("order was reviewed concurrently")
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.OrderAiReviewed{
		BaseEvent:       events.NewBaseEvent(),
		TestOrderID:     orderID,
		PredictedStatus: verdict.PredictedStatus,
		ResultCount:     count,
	})

	return &ReviewedOrder{
		Order:           updated,
		PredictedStatus: verdict.PredictedStatus,
		Summary:         verdict.Summary,
	}, nil
}

func buildReviewRequest(order ordersrepo.TestOrder, results []ordersrepo.TestResult) ReviewRequest {
	items := make([]ReviewItem, 0, len(results))
	flags := make([]string, 0)
	for _, result := range results {
		items = append(items, ReviewItem{
			Name:  result.Parameter,
			Value: formatValue(result),
			Unit:  result.Unit,
		})
		if result.Flag != "" && result.Flag != string(domain.FlagNormal) {
			flags = append(flags, fmt.Sprintf("%s:%s", result.TestCode, result.Flag))
		}
	}

	return ReviewRequest{
		TestOrderID: order.ID.String(),
		Results:     items,
		Flags:       flags,
		Meta: map[string]string{
			"test_type": order.TestType,
		},
	}
}

func formatValue(result ordersrepo.TestResult) string {
	if result.ValueNumeric != nil {
		return strconv.FormatFloat(*result.ValueNumeric, 'f', -1, 64)
	}
	if result.ValueText != nil {
		return *result.ValueText
	}
	return ""
}
