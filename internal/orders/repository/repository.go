package repository

import (
	"context"
	"errors"
	"time"

	"labportal_backend/internal/orders/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("test order not found")

// ErrStaleStatus is returned when a guarded status update matched no row,
// meaning another caller moved the order first.
var ErrStaleStatus = errors.New("test order status changed concurrently")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TestOrder is one unit of lab work for a patient, tracked through
// ingestion, AI review, and confirmation.
type TestOrder struct {
	ID                uuid.UUID
	PatientName       string
	PatientGender     string
	TestType          string
	Status            domain.Status
	IsAiReviewEnabled bool
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TestResult is one measured parameter within a test order.
type TestResult struct {
	ID                uuid.UUID
	TestOrderID       uuid.UUID
	TestCode          string
	Parameter         string
	ValueNumeric      *float64
	ValueText         *string
	Unit              string
	ReferenceRange    string
	Flag              string
	ResultStatus      string
	ReviewedByAI      bool
	AiReviewedDate    *time.Time
	IsConfirmed       bool
	ConfirmedByUserID *uuid.UUID
	ConfirmedDate     *time.Time
	PerformedDate     time.Time
	CreatedAt         time.Time
}

const orderColumns = `id, patient_name, patient_gender, test_type, status,
	is_ai_review_enabled, deleted_at, created_at, updated_at`

func scanOrder(row pgx.Row) (TestOrder, error) {
	var order TestOrder
	var rawStatus string
	err := row.Scan(
		&order.ID, &order.PatientName, &order.PatientGender, &order.TestType, &rawStatus,
		&order.IsAiReviewEnabled, &order.DeletedAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return TestOrder{}, ErrNotFound
	}
	if err != nil {
		return TestOrder{}, err
	}

	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return TestOrder{}, err
	}
	order.Status = status

	return order, nil
}

// GetByID loads an order. Soft-deleted orders are treated as not found.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (TestOrder, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM test_orders WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanOrder(row)
}

// SetAiReviewMode flips the per-order AI review gate.
func (r *Repository) SetAiReviewMode(ctx context.Context, id uuid.UUID, enabled bool) (TestOrder, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE test_orders
		SET is_ai_review_enabled = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+orderColumns+`
	`, id, enabled)
	return scanOrder(row)
}

// UpdateStatus moves an order between statuses. The WHERE clause guards
// against concurrent movers: zero rows means the expected status no
// longer holds.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (TestOrder, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE test_orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
		RETURNING `+orderColumns+`
	`, id, string(from), string(to))

	order, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		return TestOrder{}, ErrStaleStatus
	}
	return order, err
}

const resultColumns = `id, test_order_id, test_code, parameter, value_numeric, value_text,
	unit, reference_range, flag, result_status, reviewed_by_ai, ai_reviewed_date,
	is_confirmed, confirmed_by_user_id, confirmed_date, performed_date, created_at`

// ListResults returns every result row for an order, oldest first.
func (r *Repository) ListResults(ctx context.Context, orderID uuid.UUID) ([]TestResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+resultColumns+`
		FROM test_results
		WHERE test_order_id = $1
		ORDER BY created_at ASC, parameter ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// CountResults returns the number of persisted result rows for an order.
func (r *Repository) CountResults(ctx context.Context, orderID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM test_results WHERE test_order_id = $1
	`, orderID).Scan(&count)
	return count, err
}

func scanResults(rows pgx.Rows) ([]TestResult, error) {
	results := make([]TestResult, 0)
	for rows.Next() {
		var result TestResult
		if err := rows.Scan(
			&result.ID, &result.TestOrderID, &result.TestCode, &result.Parameter,
			&result.ValueNumeric, &result.ValueText, &result.Unit, &result.ReferenceRange,
			&result.Flag, &result.ResultStatus, &result.ReviewedByAI, &result.AiReviewedDate,
			&result.IsConfirmed, &result.ConfirmedByUserID, &result.ConfirmedDate,
			&result.PerformedDate, &result.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}
