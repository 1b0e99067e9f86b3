package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
)

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{NewBaseRepository(db)}
}

func (r *prescriptionRepository) Create(ctx context.Context, image *model.PrescriptionImage) error {
	image.ID = uuid.New()
	image.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prescription_images (id, visit_id, file_id, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, image.ID, image.VisitID, image.FileID, image.ImageURL, image.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prescription image: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.PrescriptionImage, error) {
	query := `SELECT pi.* FROM prescription_images pi`
	var conditions []string
	var args []interface{}

	if filters != nil {
		if filters.PatientID != "" {
			query += ` JOIN visits v ON v.id = pi.visit_id`
			args = append(args, filters.PatientID)
			conditions = append(conditions, fmt.Sprintf("v.patient_id = $%d", len(args)))
		}
		if filters.VisitID != nil {
			args = append(args, *filters.VisitID)
			conditions = append(conditions, fmt.Sprintf("pi.visit_id = $%d", len(args)))
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY pi.created_at DESC"

	images := []*model.PrescriptionImage{}
	if err := r.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescription images: %w", err)
	}
	return images, nil
}
