package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one audit trail row.
type Entry struct {
	EventID    uuid.UUID
	Action     string
	Message    string
	Operator   string
	EntityType string
	EntityID   uuid.UUID
	OccurredAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append writes one audit entry.
func (r *Repository) Append(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (id, event_id, action, message, operator, entity_type, entity_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), entry.EventID, entry.Action, entry.Message, entry.Operator, entry.EntityType, entry.EntityID, entry.OccurredAt)
	return err
}

// ListForEntity returns the audit trail for one entity, newest first.
func (r *Repository) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, action, message, operator, entity_type, entity_id, occurred_at
		FROM audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at DESC
	`, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.EventID, &entry.Action, &entry.Message, &entry.Operator,
			&entry.EntityType, &entry.EntityID, &entry.OccurredAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
