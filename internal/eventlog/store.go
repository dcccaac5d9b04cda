// Package eventlog persists classified provider notifications as an
// append-only audit log. Rows are never updated or deleted.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-billing/internal/obs"
)

// Record is one appended event log row.
type Record struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Store defines the persistence operations for the event log.
type Store interface {
	Insert(ctx context.Context, label string) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}

// PGStore implements Store on top of a pgx connection pool. Connections are
// acquired per call and released by the pool whether or not the statement
// succeeds.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Insert appends one row. The timestamp is the insertion instant as observed
// by the database.
func (s PGStore) Insert(ctx context.Context, label string) (Record, error) {
	if s.Pool == nil {
		return Record{}, errors.New("eventlog: pool not configured")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return Record{}, errors.New("eventlog: label is required")
	}
	id := uuid.New()
	var rec Record
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO event_log (id, label, occurred_at) VALUES ($1, $2, now())
		 RETURNING id, label, occurred_at`,
		id, label,
	)
	if err := row.Scan(&rec.ID, &rec.Label, &rec.OccurredAt); err != nil {
		countInsert("error")
		return Record{}, fmt.Errorf("eventlog: insert: %w", err)
	}
	countInsert("ok")
	return rec, nil
}

func countInsert(result string) {
	if obs.EventLogInsertTotal == nil {
		return
	}
	obs.EventLogInsertTotal.WithLabelValues(result).Inc()
}

// ListRecent returns the newest records first, capped at limit.
func (s PGStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if s.Pool == nil {
		return nil, errors.New("eventlog: pool not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, label, occurred_at FROM event_log ORDER BY occurred_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: rows: %w", err)
	}
	return out, nil
}
