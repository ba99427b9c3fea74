package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRecorder persists completion state to PostgreSQL. The latest
// state per (user, module, item) wins; toggling completion off updates
// the same row rather than deleting it.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder creates a PostgreSQL-backed recorder.
func NewPostgresRecorder(pool *pgxpool.Pool) (*PostgresRecorder, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRecorder{pool: pool}, nil
}

// EnsureSchema creates the module_progress table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS module_progress (
			user_id     TEXT NOT NULL,
			module_id   TEXT NOT NULL,
			item_index  INT  NOT NULL DEFAULT 0,
			item_type   TEXT NOT NULL,
			completed   BOOLEAN NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, module_id, item_index)
		)`)
	if err != nil {
		return fmt.Errorf("ensuring module_progress schema: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	if e.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if e.ModuleID == "" {
		return fmt.Errorf("module id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO module_progress (user_id, module_id, item_index, item_type, completed, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id, module_id, item_index)
		 DO UPDATE SET item_type = EXCLUDED.item_type,
		               completed = EXCLUDED.completed,
		               updated_at = now()`,
		e.UserID, e.ModuleID, e.ItemIndex, string(e.ItemType), e.Completed,
	)
	if err != nil {
		return fmt.Errorf("recording progress: %w", err)
	}
	return nil
}

// CompletedRow is one row of a user's completion state for reporting.
type CompletedRow struct {
	UserID    string
	ModuleID  string
	ItemIndex int
	ItemType  ItemType
	Completed bool
	UpdatedAt time.Time
}

// CompletedByUser returns all recorded rows for a user, newest first.
func (r *PostgresRecorder) CompletedByUser(ctx context.Context, userID string) ([]CompletedRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, module_id, item_index, item_type, completed, updated_at
		 FROM module_progress
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var out []CompletedRow
	for rows.Next() {
		var row CompletedRow
		var itemType string
		if err := rows.Scan(&row.UserID, &row.ModuleID, &row.ItemIndex, &itemType, &row.Completed, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning progress row: %w", err)
		}
		row.ItemType = ItemType(itemType)
		out = append(out, row)
	}
	return out, rows.Err()
}
