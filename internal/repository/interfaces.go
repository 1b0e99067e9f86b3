package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nexpat/clinicq/internal/model"
)

// FormatRepository persists the registration number format singleton.
type FormatRepository interface {
	// Load returns the singleton spec, creating the default row if none
	// exists. Idempotent.
	Load(ctx context.Context) (*model.FormatSpec, error)
	// AllIdentifiers returns every registration number currently in use.
	AllIdentifiers(ctx context.Context) ([]string, error)
	// Reformat persists the new spec and re-renders every registration
	// number (and its foreign references) under it, all in one
	// transaction. Partial reformatting is never observable.
	Reformat(ctx context.Context, spec *model.FormatSpec) error
}

// PatientRepository persists patients. Create allocates the registration
// number under a row lock; callers never supply one.
type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient, format *model.ActiveFormat) error
	Get(ctx context.Context, registrationNumber string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, registrationNumber string) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

// VisitRepository persists visits. Create allocates the token number for
// the visit's (queue, date) scope under a row lock.
type VisitRepository interface {
	Create(ctx context.Context, visit *model.Visit) error
	Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error)
	// UpdateStatus transitions the visit only while it is still in the
	// expected state; a concurrent change surfaces as a conflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VisitStatus) error
}

type QueueRepository interface {
	Create(ctx context.Context, queue *model.Queue) error
	Get(ctx context.Context, id uuid.UUID) (*model.Queue, error)
	List(ctx context.Context) ([]*model.Queue, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, image *model.PrescriptionImage) error
	List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.PrescriptionImage, error)
}

// OutboxRepository drains the transactional outbox.
type OutboxRepository interface {
	// ProcessPendingBatch claims up to limit pending events under row locks
	// held for the whole batch, records each event's outcome from process,
	// and returns how many events were claimed.
	ProcessPendingBatch(ctx context.Context, limit int, process func(*model.OutboxEvent) error) (int, error)
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
