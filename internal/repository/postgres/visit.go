package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{NewBaseRepository(db)}
}

// Create allocates the next token for the visit's (queue, date) scope under
// a row lock and inserts the visit. Tokens restart at 1 per queue per day.
func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var lastToken int
		err := tx.GetContext(ctx, &lastToken, `
			SELECT token_number FROM visits
			WHERE queue_id = $1 AND visit_date = $2
			ORDER BY token_number DESC
			LIMIT 1
			FOR UPDATE
		`, visit.QueueID, visit.VisitDate)
		if errors.Is(err, sql.ErrNoRows) {
			lastToken = 0
		} else if err != nil {
			return fmt.Errorf("failed to lock last token: %w", err)
		}

		visit.ID = uuid.New()
		visit.TokenNumber = lastToken + 1
		visit.Status = model.VisitStatusWaiting
		visit.CreatedAt = time.Now()
		visit.UpdatedAt = visit.CreatedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO visits (id, token_number, visit_date, status, patient_id, queue_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			visit.ID,
			visit.TokenNumber,
			visit.VisitDate,
			visit.Status,
			visit.PatientID,
			visit.QueueID,
			visit.CreatedAt,
			visit.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create visit: %w", err)
		}

		return enqueueEvent(ctx, tx, model.EventVisitCreated, visit)
	})
	if isUniqueViolation(err) {
		return apperrors.Conflict("token number already taken", err)
	}
	return err
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, `
		SELECT v.*, p.name AS patient_name, q.name AS queue_name
		FROM visits v
		JOIN patients p ON p.registration_number = v.patient_id
		JOIN queues q ON q.id = v.queue_id
		WHERE v.id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("visit", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

func (r *visitRepository) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	query := `
		SELECT v.*, p.name AS patient_name, q.name AS queue_name
		FROM visits v
		JOIN patients p ON p.registration_number = v.patient_id
		JOIN queues q ON q.id = v.queue_id
	`
	var conditions []string
	var args []interface{}

	if filters != nil {
		if len(filters.Statuses) > 0 {
			placeholders := make([]string, len(filters.Statuses))
			for i, s := range filters.Statuses {
				args = append(args, s)
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			conditions = append(conditions, fmt.Sprintf("v.status IN (%s)", strings.Join(placeholders, ", ")))
		}
		if filters.QueueID != nil {
			args = append(args, *filters.QueueID)
			conditions = append(conditions, fmt.Sprintf("v.queue_id = $%d", len(args)))
		}
		if filters.Date != nil {
			args = append(args, *filters.Date)
			conditions = append(conditions, fmt.Sprintf("v.visit_date = $%d", len(args)))
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY v.visit_date, q.name, v.token_number"

	visits := []*model.Visit{}
	if err := r.db.SelectContext(ctx, &visits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

// UpdateStatus transitions the visit with a guard on its current state. A
// zero row count means another writer moved the visit first.
func (r *visitRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VisitStatus) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE visits SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`, to, time.Now(), id, from)
		if err != nil {
			return fmt.Errorf("failed to update visit status: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperrors.Conflict("visit status changed concurrently", nil)
		}

		return enqueueEvent(ctx, tx, model.EventVisitStatusChanged, map[string]interface{}{
			"visit_id": id,
			"from":     from,
			"to":       to,
		})
	})
}
