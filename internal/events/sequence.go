package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrEmptyPartition = errors.New("empty partition key")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bumpSequenceSQL = `
INSERT INTO event_sequence (partition_key, last_sequence)
VALUES ($1, 1)
ON CONFLICT (partition_key)
DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
RETURNING last_sequence`

// PostgresSequencer numbers each order's events 1, 2, 3... in publish order
// using the event_sequence table.
type PostgresSequencer struct {
	db Querier
}

func NewPostgresSequencer(db Querier) *PostgresSequencer {
	return &PostgresSequencer{db: db}
}

func (s *PostgresSequencer) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, ErrEmptyPartition
	}
	var next int64
	if err := s.db.QueryRow(ctx, bumpSequenceSQL, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("bump sequence for order %s: %w", partitionKey, err)
	}
	return next, nil
}
