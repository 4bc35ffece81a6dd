package ingest

import (
	"context"
	"errors"

	ordersrepo "labportal_backend/internal/orders/repository"

	"github.com/google/uuid"
)

// orderReaderAdapter narrows the orders repository to what the
// coordinator needs.
type orderReaderAdapter struct {
	repo *ordersrepo.Repository
}

func NewOrderReader(repo *ordersrepo.Repository) OrderReader {
	return &orderReaderAdapter{repo: repo}
}

func (a *orderReaderAdapter) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	order, err := a.repo.GetByID(ctx, id)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return Order{
		ID:            order.ID,
		PatientGender: order.PatientGender,
		TestType:      order.TestType,
		Status:        order.Status,
	}, nil
}
