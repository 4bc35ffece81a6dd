package service

import (
	"context"
	"errors"

	"labportal_backend/internal/events"
	"labportal_backend/internal/orders/repository"
	"labportal_backend/internal/orders/transport"
	"labportal_backend/platform/apperr"

	"github.com/google/uuid"
)

const msgOrderNotFound = "test order not found"

// Service provides business logic for test orders.
type Service struct {
	repo *repository.Repository
	bus  events.Bus // optional — nil means no event publication
}

// New creates a new orders service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// SetEventBus injects the event bus (set after construction by the composition root).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*transport.OrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	resp := transport.ToOrderResponse(order)
	return &resp, nil
}

// ListResults returns every persisted result for an order.
func (s *Service) ListResults(ctx context.Context, orderID uuid.UUID) ([]transport.ResultResponse, error) {
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgOrderNotFound)
		}
		return nil, err
	}

	results, err := s.repo.ListResults(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return transport.ToResultResponses(results), nil
}

// SetAiReviewMode flips the per-order AI review gate. Missing and
// soft-deleted orders both surface as NotFound.
func (s *Service) SetAiReviewMode(ctx context.Context, orderID uuid.UUID, enable bool, changedBy uuid.UUID) (*transport.OrderResponse, error) {
	order, err := s.repo.SetAiReviewMode(ctx, orderID, enable)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.AiReviewModeChanged{
			BaseEvent:   events.NewBaseEvent(),
			TestOrderID: order.ID,
			Enabled:     enable,
			ChangedByID: changedBy,
		})
	}

	resp := transport.ToOrderResponse(order)
	return &resp, nil
}
