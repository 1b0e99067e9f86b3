package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/registry"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
	"github.com/nexpat/clinicq/pkg/metrics"
	"github.com/nexpat/clinicq/pkg/regnumber"
)

// maxAllocationAttempts bounds retries when a concurrent writer wins the
// registration number race despite the row lock.
const maxAllocationAttempts = 3

// maxBatchLookup caps the registration_numbers batch filter.
const maxBatchLookup = 50

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, registrationNumber string) (*model.Patient, error)
	UpdatePatient(ctx context.Context, registrationNumber string, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, registrationNumber string) error
	ListPatients(ctx context.Context, rawNumbers []string) ([]*model.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]*model.Patient, error)
}

type Service struct {
	repo     repository.PatientRepository
	registry *registry.Registry
	metrics  *metrics.Metrics
}

func NewService(repo repository.PatientRepository, reg *registry.Registry, m *metrics.Metrics) *Service {
	return &Service{repo: repo, registry: reg, metrics: m}
}

// CreatePatient allocates the next registration number and persists the
// patient. Allocation serializes on a row lock; a conflict that slips
// through is retried up to maxAllocationAttempts before surfacing.
func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	gender := req.Gender
	if gender == "" {
		gender = model.GenderOther
	}
	if !model.ValidGender(gender) {
		return nil, apperrors.ValidationFields(map[string]string{
			"gender": fmt.Sprintf("%q is not a valid gender", req.Gender),
		})
	}

	format, err := s.registry.Get(ctx)
	if err != nil {
		return nil, err
	}

	patient := &model.Patient{
		Name:   req.Name,
		Phone:  req.Phone,
		Gender: gender,
	}

	for attempt := 1; ; attempt++ {
		err := s.repo.Create(ctx, patient, format)
		if err == nil {
			break
		}
		if errors.Is(err, regnumber.ErrCapacityExhausted) {
			s.metrics.AllocationsTotal.WithLabelValues("exhausted").Inc()
			return nil, apperrors.CapacityExhausted(err)
		}
		if apperrors.CodeOf(err) == apperrors.ErrConflict && attempt < maxAllocationAttempts {
			s.metrics.AllocationConflicts.Inc()
			log.Warn().
				Int("attempt", attempt).
				Msg("registration number allocation conflict, retrying")
			continue
		}
		s.metrics.AllocationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.metrics.AllocationsTotal.WithLabelValues("success").Inc()
	log.Info().
		Str("registration_number", patient.RegistrationNumber).
		Str("name", patient.Name).
		Msg("patient created")

	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, registrationNumber string) (*model.Patient, error) {
	return s.repo.Get(ctx, registrationNumber)
}

func (s *Service) UpdatePatient(ctx context.Context, registrationNumber string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, registrationNumber)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.ValidationFields(map[string]string{"name": "name cannot be empty"})
		}
		patient.Name = *req.Name
	}
	if req.Phone != nil {
		patient.Phone = req.Phone
	}
	if req.Gender != nil {
		if !model.ValidGender(*req.Gender) {
			return nil, apperrors.ValidationFields(map[string]string{
				"gender": fmt.Sprintf("%q is not a valid gender", *req.Gender),
			})
		}
		patient.Gender = *req.Gender
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, registrationNumber string) error {
	if err := s.repo.Delete(ctx, registrationNumber); err != nil {
		return err
	}
	log.Warn().Str("registration_number", registrationNumber).Msg("patient deleted")
	return nil
}

// ListPatients returns all patients, or the subset matching rawNumbers when
// a batch filter is supplied. Entries must match the active pattern or be
// all digits within the format's capacity; a filter with no valid entries
// yields an empty result.
func (s *Service) ListPatients(ctx context.Context, rawNumbers []string) ([]*model.Patient, error) {
	if len(rawNumbers) == 0 {
		return s.repo.List(ctx, nil)
	}
	if len(rawNumbers) > maxBatchLookup {
		return nil, apperrors.ValidationFields(map[string]string{
			"registration_numbers": fmt.Sprintf("a maximum of %d registration numbers are allowed", maxBatchLookup),
		})
	}

	format, err := s.registry.Get(ctx)
	if err != nil {
		return nil, err
	}

	var valid []string
	for _, raw := range rawNumbers {
		switch {
		case format.Matches(raw):
			valid = append(valid, raw)
		case isDigits(raw):
			if len(raw) > format.TotalDigits {
				return nil, apperrors.ValidationFields(map[string]string{
					"registration_numbers": fmt.Sprintf("registration numbers may not exceed %d digits", format.TotalDigits),
				})
			}
			// Bare numerics (barcode scans, legacy records) are rendered
			// to the canonical form before lookup.
			canonical, err := canonicalize(format, raw)
			if err != nil {
				return nil, err
			}
			valid = append(valid, canonical)
		}
	}
	if len(valid) == 0 {
		return []*model.Patient{}, nil
	}

	return s.repo.List(ctx, &model.PatientFilters{RegistrationNumbers: valid})
}

// SearchPatients matches name/phone substrings, plus an exact registration
// number when the query is well-formed under the active format or numeric.
func (s *Service) SearchPatients(ctx context.Context, query string) ([]*model.Patient, error) {
	if query == "" {
		return nil, apperrors.ValidationFields(map[string]string{"q": "query parameter 'q' is required"})
	}

	format, err := s.registry.Get(ctx)
	if err != nil {
		return nil, err
	}

	identifier := ""
	switch {
	case format.Matches(query):
		identifier = query
	case isDigits(query) && len(query) <= format.TotalDigits:
		if canonical, err := canonicalize(format, query); err == nil {
			identifier = canonical
		}
	}

	return s.repo.List(ctx, &model.PatientFilters{
		SearchTerm:       query,
		SearchIdentifier: identifier,
	})
}

func canonicalize(format *model.ActiveFormat, raw string) (string, error) {
	n := regnumber.ExtractNumeric(raw)
	formatted, err := regnumber.FormatValue(format.DigitGroups, format.Separators, n)
	if err != nil {
		return "", apperrors.ValidationFields(map[string]string{
			"registration_numbers": fmt.Sprintf("%q is not representable under the active format", raw),
		})
	}
	return formatted, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
