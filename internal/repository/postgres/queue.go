package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

type queueRepository struct {
	BaseRepository
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{NewBaseRepository(db)}
}

func (r *queueRepository) Create(ctx context.Context, queue *model.Queue) error {
	queue.ID = uuid.New()
	queue.CreatedAt = time.Now()
	queue.UpdatedAt = queue.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queues (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, queue.ID, queue.Name, queue.CreatedAt, queue.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.Conflict(fmt.Sprintf("queue %q already exists", queue.Name), err)
	}
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	return nil
}

func (r *queueRepository) Get(ctx context.Context, id uuid.UUID) (*model.Queue, error) {
	var queue model.Queue
	err := r.db.GetContext(ctx, &queue, `SELECT * FROM queues WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("queue", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}
	return &queue, nil
}

func (r *queueRepository) List(ctx context.Context) ([]*model.Queue, error) {
	queues := []*model.Queue{}
	if err := r.db.SelectContext(ctx, &queues, `SELECT * FROM queues ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	return queues, nil
}
