package flagging

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads and syncs flagging configuration rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a flagging config repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadActive returns every active flagging config.
func (r *Repository) LoadActive(ctx context.Context) ([]Config, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT test_code, COALESCE(gender, ''), min_value, max_value, is_active
		FROM flagging_configs
		WHERE is_active = true
		ORDER BY test_code ASC, gender ASC NULLS LAST
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make([]Config, 0)
	for rows.Next() {
		var cfg Config
		if err := rows.Scan(&cfg.TestCode, &cfg.Gender, &cfg.Min, &cfg.Max, &cfg.IsActive); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return configs, nil
}

// Snapshot loads the active configs and builds an immutable snapshot.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	configs, err := r.LoadActive(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(configs), nil
}

// SyncSeed upserts the seed-defined reference ranges. Rows are matched
// on (test_code, gender); ranges changed in the seed file overwrite the
// stored values, manually deactivated rows stay deactivated.
func (r *Repository) SyncSeed(ctx context.Context, configs []Config) error {
	for _, cfg := range configs {
		var gender *string
		if cfg.Gender != "" {
			g := cfg.Gender
			gender = &g
		}

		_, err := r.pool.Exec(ctx, `
			INSERT INTO flagging_configs (test_code, gender, min_value, max_value, is_active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (test_code, COALESCE(gender, '')) DO UPDATE
			SET min_value = EXCLUDED.min_value, max_value = EXCLUDED.max_value
		`, cfg.TestCode, gender, cfg.Min, cfg.Max)
		if err != nil {
			return err
		}
	}
	return nil
}
