package model

import (
	"time"

	"github.com/google/uuid"
)

// PrescriptionImage references an uploaded prescription image for a visit.
// FileID and ImageURL come from the external blob store and may be empty
// when the upload failed; the record is still created.
type PrescriptionImage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VisitID   uuid.UUID `db:"visit_id" json:"visit_id"`
	FileID    string    `db:"file_id" json:"file_id"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PrescriptionFilters narrows prescription image listings.
type PrescriptionFilters struct {
	VisitID   *uuid.UUID
	PatientID string
}
