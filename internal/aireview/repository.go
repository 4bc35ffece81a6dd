package aireview

import (
	"context"
	"errors"
	"time"

	"labportal_backend/internal/orders/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrOrderNotFound means the order is missing or soft-deleted.
	ErrOrderNotFound = errors.New("test order not found")
	// ErrNotReviewed means the order is not in ReviewedByAI status.
	ErrNotReviewed = errors.New("test order has not been reviewed by ai")
	// ErrNothingToConfirm means no reviewed-and-unconfirmed results matched.
	ErrNothingToConfirm = errors.New("no reviewed results left to confirm")
	// ErrStaleStatus means another caller moved the order concurrently.
	ErrStaleStatus = errors.New("test order status changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ApplyVerdict broadcasts the predicted status to every result on the
// order and advances the order to ReviewedByAI, in one transaction. The
// order update is guarded on the expected status so a concurrent trigger
// cannot double-apply.
func (r *Repository) ApplyVerdict(ctx context.Context, orderID uuid.UUID, predictedStatus string, reviewedAt time.Time) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE test_results
		SET result_status = $2, reviewed_by_ai = true, ai_reviewed_date = $3
		WHERE test_order_id = $1
	`, orderID, predictedStatus, reviewedAt)
	if err != nil {
		return 0, err
	}
	updated := int(tag.RowsAffected())

	orderTag, err := tx.Exec(ctx, `
		UPDATE test_orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`, orderID, string(domain.StatusPending), string(domain.StatusReviewedByAI))
	if err != nil {
		return 0, err
	}
	if orderTag.RowsAffected() != 1 {
		return 0, ErrStaleStatus
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return updated, nil
}

// ConfirmRecord is the result of one confirm transaction.
type ConfirmRecord struct {
	ConfirmedCount int
	Completed      bool
	OrderStatus    domain.Status
	PatientName    string
	TestType       string
}

// ConfirmReviewed finalizes the reviewed-and-unconfirmed results of an
// order. The whole decision runs inside one transaction holding a row
// lock on the order, so concurrent confirms serialize and the
// "all confirmed implies Completed" re-scan always sees one consistent
// snapshot. resultIDs narrows the confirmation to a subset; empty means
// every eligible result.
func (r *Repository) ConfirmReviewed(ctx context.Context, orderID, confirmedBy uuid.UUID, resultIDs []uuid.UUID, confirmedAt time.Time) (ConfirmRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ConfirmRecord{}, err
	}
	defer tx.Rollback(ctx)

	var rawStatus, patientName, testType string
	err = tx.QueryRow(ctx, `
		SELECT status, patient_name, test_type
		FROM test_orders
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, orderID).Scan(&rawStatus, &patientName, &testType)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConfirmRecord{}, ErrOrderNotFound
	}
	if err != nil {
		return ConfirmRecord{}, err
	}

	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return ConfirmRecord{}, err
	}
	if status != domain.StatusReviewedByAI {
		return ConfirmRecord{}, ErrNotReviewed
	}

	query := `
		UPDATE test_results
		SET is_confirmed = true, confirmed_by_user_id = $2, confirmed_date = $3
		WHERE test_order_id = $1 AND reviewed_by_ai = true AND is_confirmed = false
	`
	args := []any{orderID, confirmedBy, confirmedAt}
	if len(resultIDs) > 0 {
		query += ` AND id = ANY($4)`
		args = append(args, resultIDs)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return ConfirmRecord{}, err
	}
	confirmed := int(tag.RowsAffected())
	if confirmed == 0 {
		return ConfirmRecord{}, ErrNothingToConfirm
	}

	// Re-scan under the same lock: completion is derived here, never
	// supplied by the caller.
	var remaining int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM test_results
		WHERE test_order_id = $1 AND reviewed_by_ai = true AND is_confirmed = false
	`, orderID).Scan(&remaining)
	if err != nil {
		return ConfirmRecord{}, err
	}

	record := ConfirmRecord{
		ConfirmedCount: confirmed,
		OrderStatus:    domain.StatusReviewedByAI,
		PatientName:    patientName,
		TestType:       testType,
	}

	if remaining == 0 {
		orderTag, err := tx.Exec(ctx, `
			UPDATE test_orders
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
		`, orderID, string(domain.StatusReviewedByAI), string(domain.StatusCompleted))
		if err != nil {
			return ConfirmRecord{}, err
		}
		if orderTag.RowsAffected() != 1 {
			return ConfirmRecord{}, ErrStaleStatus
		}
		record.Completed = true
		record.OrderStatus = domain.StatusCompleted
	}

	if err := tx.Commit(ctx); err != nil {
		return ConfirmRecord{}, err
	}
	return record, nil
}
