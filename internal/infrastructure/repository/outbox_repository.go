package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamaverse/pet-auction-backend/internal/domain/event"
)

// outboxRepository persists domain events in the same transaction as
// the state change that produced them. The dispatcher drains the table
// asynchronously.
type outboxRepository struct {
	db DBTX
}

// Enqueue appends an event to the outbox.
func (r *outboxRepository) Enqueue(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO event_outbox (id, kind, user_id, payload, created_at, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query, e.ID, string(e.Kind), e.UserID, e.Payload, e.CreatedAt, e.DispatchedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

// ListUndispatched returns pending events, oldest first, locked with
// SKIP LOCKED so concurrent dispatchers never double-send.
func (r *outboxRepository) ListUndispatched(ctx context.Context, limit int) ([]*event.Event, error) {
	query := `
		SELECT id, kind, user_id, payload, created_at, dispatched_at
		FROM event_outbox
		WHERE dispatched_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list undispatched events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		var e event.Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.UserID, &e.Payload, &e.CreatedAt, &e.DispatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = event.Kind(kind)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

// MarkDispatched stamps events as delivered.
func (r *outboxRepository) MarkDispatched(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx,
		`UPDATE event_outbox SET dispatched_at = $2 WHERE id = ANY($1)`,
		ids, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark events dispatched: %w", err)
	}
	return nil
}
