package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
	"github.com/nexpat/clinicq/pkg/regnumber"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

// Create allocates the next registration number and inserts the patient in
// one transaction. The row holding the current maximum identifier is locked
// first so concurrent allocations serialize; no two committed patients can
// share a numeric value.
func (r *patientRepository) Create(ctx context.Context, patient *model.Patient, format *model.ActiveFormat) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var last string
		hasPrior := true
		err := tx.GetContext(ctx, &last, `
			SELECT registration_number FROM patients
			ORDER BY registration_number DESC
			LIMIT 1
			FOR UPDATE
		`)
		if errors.Is(err, sql.ErrNoRows) {
			hasPrior = false
		} else if err != nil {
			return fmt.Errorf("failed to lock last registration number: %w", err)
		}

		next, err := regnumber.NextValue(format.DigitGroups, last, hasPrior)
		if err != nil {
			return err
		}
		formatted, err := regnumber.FormatValue(format.DigitGroups, format.Separators, next)
		if err != nil {
			return err
		}

		patient.RegistrationNumber = formatted
		patient.CreatedAt = time.Now()
		patient.UpdatedAt = patient.CreatedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO patients (registration_number, name, phone, gender, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			patient.RegistrationNumber,
			patient.Name,
			patient.Phone,
			patient.Gender,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}

		return enqueueEvent(ctx, tx, model.EventPatientCreated, patient)
	})
	if isUniqueViolation(err) {
		return apperrors.Conflict("registration number already taken", err)
	}
	return err
}

func (r *patientRepository) Get(ctx context.Context, registrationNumber string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient,
		`SELECT * FROM patients WHERE registration_number = $1`, registrationNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE patients SET name = $1, phone = $2, gender = $3, updated_at = $4
		WHERE registration_number = $5
	`,
		patient.Name,
		patient.Phone,
		patient.Gender,
		time.Now(),
		patient.RegistrationNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, registrationNumber string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM patients WHERE registration_number = $1`, registrationNumber)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	query := `SELECT * FROM patients`
	var args []interface{}

	switch {
	case filters != nil && len(filters.RegistrationNumbers) > 0:
		var err error
		query, args, err = sqlx.In(
			`SELECT * FROM patients WHERE registration_number IN (?)`,
			filters.RegistrationNumbers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build batch lookup: %w", err)
		}
		query = r.db.Rebind(query)
	case filters != nil && filters.SearchTerm != "":
		like := "%" + filters.SearchTerm + "%"
		if filters.SearchIdentifier != "" {
			query = `SELECT * FROM patients WHERE name ILIKE $1 OR phone ILIKE $1 OR registration_number = $2`
			args = []interface{}{like, filters.SearchIdentifier}
		} else {
			query = `SELECT * FROM patients WHERE name ILIKE $1 OR phone ILIKE $1`
			args = []interface{}{like}
		}
	}

	query += ` ORDER BY registration_number`

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
