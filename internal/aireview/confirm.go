package aireview

import (
	"context"
	"errors"
	"time"

	"labportal_backend/internal/events"
	ordersrepo "labportal_backend/internal/orders/repository"
	"labportal_backend/platform/apperr"

	"github.com/google/uuid"
)

// ConfirmOutcome is the result of one confirmation call.
type ConfirmOutcome struct {
	Order          ordersrepo.TestOrder
	ConfirmedCount int
	Completed      bool
}

// Confirm finalizes the reviewed-and-unconfirmed results of an order.
// Confirmation is not re-entrant: once everything is confirmed, a second
// call fails with a precondition error instead of silently no-opping.
// The Completed transition is derived inside the store's transaction,
// never supplied by the caller.
func (s *Service) Confirm(ctx context.Context, orderID, confirmedBy uuid.UUID, resultIDs []uuid.UUID) (*ConfirmOutcome, error) {
	record, err := s.store.ConfirmReviewed(ctx, orderID, confirmedBy, resultIDs, time.Now().UTC())
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return nil, apperr.NotFound("test order not found")
	case errors.Is(err, ErrNotReviewed):
		return nil, apperr.PreconditionFailed("order has not been reviewed by ai")
	case errors.Is(err, ErrNothingToConfirm):
		return nil, apperr.PreconditionFailed("no reviewed results left to confirm")
	case errors.Is(err, ErrStaleStatus):
		return nil, apperr.Conflict("order status changed concurrently")
	case err != nil:
		return nil, err
	}

	s.bus.Publish(ctx, events.ResultsConfirmed{
		BaseEvent:      events.NewBaseEvent(),
		TestOrderID:    orderID,
		ConfirmedByID:  confirmedBy,
		ConfirmedCount: record.ConfirmedCount,
	})

	if record.Completed {
		s.bus.Publish(ctx, events.OrderCompleted{
			BaseEvent:     events.NewBaseEvent(),
			TestOrderID:   orderID,
			PatientName:   record.PatientName,
			TestType:      record.TestType,
			CompletedByID: confirmedBy,
		})
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &ConfirmOutcome{
		Order:          order,
		ConfirmedCount: record.ConfirmedCount,
		Completed:      record.Completed,
	}, nil
}
