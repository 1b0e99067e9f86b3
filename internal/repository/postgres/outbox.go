package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

// ProcessPendingBatch claims up to limit pending events and hands each to
// process. The claim, the publish callbacks and the status updates share one
// transaction, so the SKIP LOCKED row locks are held until every outcome is
// recorded and a concurrent worker cannot pick up the same batch.
func (r *outboxRepository) ProcessPendingBatch(ctx context.Context, limit int, process func(*model.OutboxEvent) error) (int, error) {
	var claimed int
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			SELECT id, event_type, payload, status, error_message, retry_count, created_at, processed_at, updated_at
			FROM outbox_events
			WHERE status = $1
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		`
		events := []*model.OutboxEvent{}
		if err := tx.SelectContext(ctx, &events, query, model.OutboxStatusPending, limit); err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		claimed = len(events)

		// A failed publish marks its own row FAILED and lets the rest of
		// the batch commit.
		for _, event := range events {
			if err := process(event); err != nil {
				msg := err.Error()
				if markErr := markEventStatus(ctx, tx, event.ID, model.OutboxStatusFailed, &msg); markErr != nil {
					return markErr
				}
				continue
			}
			if err := markEventStatus(ctx, tx, event.ID, model.OutboxStatusProcessed, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

func markEventStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_count = CASE WHEN $1 = 'FAILED' THEN retry_count + 1 ELSE retry_count END,
			processed_at = CASE WHEN $1 = 'PROCESSED' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $3
	`
	if _, err := tx.ExecContext(ctx, query, status, errorMessage, id); err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM outbox_events
		WHERE status = $1 AND processed_at < $2
	`, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	return result.RowsAffected()
}
