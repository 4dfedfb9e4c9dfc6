// Package dedup records which provider webhook deliveries have already been
// handled so redeliveries are acknowledged without reprocessing.
package dedup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor represents the subset of pgx methods required for dedup operations.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// Seen reports whether eventID was marked processed.
func (r *Repository) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	if err := r.executor.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)`,
		eventID,
	).Scan(&seen); err != nil {
		return false, fmt.Errorf("select processed event: %w", err)
	}
	return seen, nil
}

// MarkProcessed is idempotent; a second mark for the same id is a no-op.
func (r *Repository) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := r.executor.Exec(ctx, `
		INSERT INTO processed_webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}
	return nil
}
