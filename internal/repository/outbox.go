package repository

import (
	"context"
	"fmt"
	"time"
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// EnqueueEvent writes an outbox event through q so callers can commit it in
// the same transaction as the state change it describes.
func EnqueueEvent(ctx context.Context, q Querier, aggregateID, eventType string, payload []byte) error {
	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, $4)`

	if _, err := q.ExecContext(ctx, query, aggregateID, eventType, payload, UnixMillis(time.Now())); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			event     OutboxEvent
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &event.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		event.CreatedAt = FromMillis(createdAt)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET processed_at = $1 WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, UnixMillis(time.Now()), id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
