package model

import "time"

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// ValidGender reports whether g is one of the accepted gender values.
func ValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Patient is keyed by its formatted registration number. The number is
// assigned once at creation and only ever rewritten by a format migration.
type Patient struct {
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Name               string    `db:"name" json:"name"`
	Phone              *string   `db:"phone" json:"phone,omitempty"`
	Gender             Gender    `db:"gender" json:"gender"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type CreatePatientRequest struct {
	Name   string  `json:"name" binding:"required"`
	Phone  *string `json:"phone"`
	Gender Gender  `json:"gender"`
}

type UpdatePatientRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Gender *Gender `json:"gender"`
}

// PatientFilters narrows patient listings.
type PatientFilters struct {
	// RegistrationNumbers is an exact-match set, capped by the handler.
	RegistrationNumbers []string
	// SearchTerm matches name/phone substrings.
	SearchTerm string
	// SearchIdentifier, when non-empty, is additionally matched exactly
	// against the registration number. The service canonicalizes it to the
	// active format first.
	SearchIdentifier string
}
