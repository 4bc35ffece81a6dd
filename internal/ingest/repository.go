package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMessageNotFound is returned when no ledger record exists for a message id.
var ErrMessageNotFound = errors.New("processed message not found")

// staleClaimWindow is how long a provisional ledger entry may sit before
// a redelivery is allowed to take it over. A crashed winner never
// finalized its entry; after this window the message is assumed dead.
const staleClaimWindow = 10 * time.Minute

// ProcessedMessage is one dedup ledger entry. A NULL processed_at marks
// a provisional entry whose ingestion has not committed yet.
type ProcessedMessage struct {
	MessageID    uuid.UUID
	SourceSystem string
	TestOrderID  uuid.UUID
	RegisteredAt time.Time
	ProcessedAt  *time.Time
	CreatedCount *int
}

// Finalized reports whether the entry's ingestion committed.
func (m ProcessedMessage) Finalized() bool {
	return m.ProcessedAt != nil
}

// NewResult carries one classified measurement into the bulk insert.
type NewResult struct {
	TestOrderID    uuid.UUID
	TestCode       string
	Parameter      string
	ValueNumeric   *float64
	ValueText      *string
	Unit           string
	ReferenceRange string
	Flag           string
	ResultStatus   string
	PerformedDate  time.Time
}

// Repository owns the dedup ledger and the transactional unit that
// persists result rows together with the ledger finalization.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an ingest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TryRegister atomically claims a message id. Exactly one concurrent
// caller observes isNew=true; the rest read back the existing record.
// A provisional record older than the stale claim window is re-claimed:
// its ingestion never committed, so no result rows exist and the new
// caller can safely redo the work.
func (r *Repository) TryRegister(ctx context.Context, messageID uuid.UUID, sourceSystem string, orderID uuid.UUID) (bool, ProcessedMessage, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO processed_messages (message_id, source_system, test_order_id, registered_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (message_id) DO NOTHING
	`, messageID, sourceSystem, orderID)
	if err != nil {
		return false, ProcessedMessage{}, err
	}

	if tag.RowsAffected() == 1 {
		record, err := r.GetByMessageID(ctx, messageID)
		return true, record, err
	}

	record, err := r.GetByMessageID(ctx, messageID)
	if err != nil {
		return false, ProcessedMessage{}, err
	}

	if record.Finalized() {
		return false, record, nil
	}

	// Provisional entry: try to take over a stale claim.
	claimed, err := r.claimStale(ctx, messageID)
	if err != nil {
		return false, ProcessedMessage{}, err
	}
	if claimed {
		record, err := r.GetByMessageID(ctx, messageID)
		return true, record, err
	}

	return false, record, nil
}

func (r *Repository) claimStale(ctx context.Context, messageID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE processed_messages
		SET registered_at = now()
		WHERE message_id = $1
		  AND processed_at IS NULL
		  AND registered_at < now() - make_interval(secs => $2)
	`, messageID, staleClaimWindow.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetByMessageID loads one ledger record.
func (r *Repository) GetByMessageID(ctx context.Context, messageID uuid.UUID) (ProcessedMessage, error) {
	var record ProcessedMessage
	err := r.pool.QueryRow(ctx, `
		SELECT message_id, source_system, test_order_id, registered_at, processed_at, created_count
		FROM processed_messages
		WHERE message_id = $1
	`, messageID).Scan(
		&record.MessageID, &record.SourceSystem, &record.TestOrderID,
		&record.RegisteredAt, &record.ProcessedAt, &record.CreatedCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProcessedMessage{}, ErrMessageNotFound
	}
	if err != nil {
		return ProcessedMessage{}, err
	}
	return record, nil
}

// PersistAndFinalize inserts all result rows and finalizes the ledger
// entry in one transaction. Either everything lands — rows plus a
// finalized entry carrying the real count — or nothing does and the
// entry stays provisional.
func (r *Repository) PersistAndFinalize(ctx context.Context, messageID uuid.UUID, results []NewResult, processedAt time.Time) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows := make([][]interface{}, 0, len(results))
	for _, result := range results {
		rows = append(rows, []interface{}{
			uuid.New(), result.TestOrderID, result.TestCode, result.Parameter,
			result.ValueNumeric, result.ValueText, result.Unit, result.ReferenceRange,
			result.Flag, result.ResultStatus, result.PerformedDate,
		})
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"test_results"},
		[]string{
			"id", "test_order_id", "test_code", "parameter",
			"value_numeric", "value_text", "unit", "reference_range",
			"flag", "result_status", "performed_date",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, err
	}
	if int(copied) != len(results) {
		return 0, fmt.Errorf("bulk insert wrote %d of %d rows", copied, len(results))
	}

	tag, err := tx.Exec(ctx, `
		UPDATE processed_messages
		SET processed_at = $2, created_count = $3
		WHERE message_id = $1 AND processed_at IS NULL
	`, messageID, processedAt, copied)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() != 1 {
		return 0, fmt.Errorf("ledger entry for message %s already finalized", messageID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return int(copied), nil
}
