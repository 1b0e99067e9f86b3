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
	"github.com/nexpat/clinicq/pkg/regnumber"
)

type formatRepository struct {
	BaseRepository
}

func NewFormatRepository(db *sqlx.DB) repository.FormatRepository {
	return &formatRepository{NewBaseRepository(db)}
}

type formatRow struct {
	DigitGroups []byte    `db:"digit_groups"`
	Separators  []byte    `db:"separators"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row *formatRow) toSpec() (*model.FormatSpec, error) {
	spec := &model.FormatSpec{CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	if err := spec.ScanColumns(row.DigitGroups, row.Separators); err != nil {
		return nil, err
	}
	return spec, nil
}

// Load returns the singleton spec, inserting the default row on first
// access. The single-row table is enforced by a CHECK on its key.
func (r *formatRepository) Load(ctx context.Context) (*model.FormatSpec, error) {
	const selectQuery = `
		SELECT digit_groups, separators, created_at, updated_at
		FROM registration_formats WHERE id = 1
	`

	var row formatRow
	err := r.db.GetContext(ctx, &row, selectQuery)
	if err == nil {
		return row.toSpec()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load registration format: %w", err)
	}

	defaults := &model.FormatSpec{
		DigitGroups: model.DefaultDigitGroups,
		Separators:  model.DefaultSeparators,
	}
	groups, err := defaults.DigitGroupsJSON()
	if err != nil {
		return nil, err
	}
	seps, err := defaults.SeparatorsJSON()
	if err != nil {
		return nil, err
	}

	// A concurrent first access may win the insert; the conflict clause
	// keeps Load idempotent either way.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO registration_formats (id, digit_groups, separators, created_at, updated_at)
		VALUES (1, $1, $2, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`, groups, seps)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default registration format: %w", err)
	}

	if err := r.db.GetContext(ctx, &row, selectQuery); err != nil {
		return nil, fmt.Errorf("failed to reload registration format: %w", err)
	}
	return row.toSpec()
}

func (r *formatRepository) AllIdentifiers(ctx context.Context) ([]string, error) {
	identifiers := []string{}
	err := r.db.SelectContext(ctx, &identifiers,
		`SELECT registration_number FROM patients ORDER BY registration_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list registration numbers: %w", err)
	}
	return identifiers, nil
}

// Reformat persists the new spec and re-renders every registration number
// under it, cascading to visit references, all in one transaction. The
// capacity of the new spec is checked against the locked identifier set
// before anything is written; any failure rolls the whole migration back.
//
// The visits foreign key is DEFERRABLE INITIALLY DEFERRED, so child rows
// may be repointed before the parent key is rewritten.
func (r *formatRepository) Reformat(ctx context.Context, spec *model.FormatSpec) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		identifiers := []string{}
		err := tx.SelectContext(ctx, &identifiers, `
			SELECT registration_number FROM patients
			ORDER BY registration_number
			FOR UPDATE
		`)
		if err != nil {
			return fmt.Errorf("failed to lock registration numbers: %w", err)
		}

		if err := regnumber.CheckCapacity(spec.DigitGroups, identifiers); err != nil {
			return err
		}

		groups, err := spec.DigitGroupsJSON()
		if err != nil {
			return err
		}
		seps, err := spec.SeparatorsJSON()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO registration_formats (id, digit_groups, separators, created_at, updated_at)
			VALUES (1, $1, $2, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE
			SET digit_groups = EXCLUDED.digit_groups,
			    separators = EXCLUDED.separators,
			    updated_at = NOW()
		`, groups, seps)
		if err != nil {
			return fmt.Errorf("failed to persist registration format: %w", err)
		}

		for _, old := range identifiers {
			// Identifiers with no digits carry no sequence value and are
			// left untouched.
			if !regnumber.HasDigits(old) {
				continue
			}
			rendered, err := regnumber.FormatValue(spec.DigitGroups, spec.Separators, regnumber.ExtractNumeric(old))
			if err != nil {
				return fmt.Errorf("failed to re-render %q: %w", old, err)
			}
			if rendered == old {
				continue
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE visits SET patient_id = $1 WHERE patient_id = $2`, rendered, old); err != nil {
				return fmt.Errorf("failed to repoint visits for %q: %w", old, err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE patients SET registration_number = $1, updated_at = NOW() WHERE registration_number = $2`,
				rendered, old); err != nil {
				return fmt.Errorf("failed to rewrite %q: %w", old, err)
			}
		}

		return enqueueEvent(ctx, tx, model.EventFormatUpdated, spec)
	})
}
