package format

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

type FormatService interface {
	GetFormat(ctx context.Context) (*model.ActiveFormat, error)
	// UpdateFormat validates the candidate spec, migrates every existing
	// registration number to it and returns the new active format. With
	// partial set, nil request fields keep the current spec's values.
	UpdateFormat(ctx context.Context, req *model.UpdateFormatRequest, partial bool) (*model.ActiveFormat, error)
}

type Service struct {
	repo     repository.FormatRepository
	registry *registry.Registry
	policy   regnumber.SeparatorPolicy
	metrics  *metrics.Metrics
}

func NewService(repo repository.FormatRepository, reg *registry.Registry, policy regnumber.SeparatorPolicy, m *metrics.Metrics) *Service {
	return &Service{repo: repo, registry: reg, policy: policy, metrics: m}
}

func (s *Service) GetFormat(ctx context.Context) (*model.ActiveFormat, error) {
	return s.registry.Get(ctx)
}

func (s *Service) UpdateFormat(ctx context.Context, req *model.UpdateFormatRequest, partial bool) (*model.ActiveFormat, error) {
	current, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current format: %w", err)
	}

	groups := req.DigitGroups
	separators := req.Separators
	if groups == nil {
		if !partial {
			return nil, apperrors.ValidationFields(map[string]string{
				"digit_groups": "this field is required",
			})
		}
		groups = current.DigitGroups
	}
	if separators == nil {
		if !partial {
			return nil, apperrors.ValidationFields(map[string]string{
				"separators": "this field is required",
			})
		}
		separators = current.Separators
	}

	if err := regnumber.ValidateSpec(groups, separators, s.policy); err != nil {
		var fieldErr *regnumber.FieldError
		if errors.As(err, &fieldErr) {
			return nil, apperrors.ValidationFields(map[string]string{
				fieldErr.Field: fieldErr.Message,
			})
		}
		return nil, apperrors.Validation("invalid format", err)
	}

	// Pre-flight only: Reformat re-checks capacity under the migration lock.
	identifiers, err := s.repo.AllIdentifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registration numbers: %w", err)
	}
	if err := regnumber.CheckCapacity(groups, identifiers); err != nil {
		s.metrics.ReformatRuns.WithLabelValues("capacity_exceeded").Inc()
		return nil, apperrors.CapacityExceeded(err)
	}

	spec := &model.FormatSpec{DigitGroups: groups, Separators: separators}
	if err := s.repo.Reformat(ctx, spec); err != nil {
		if errors.Is(err, regnumber.ErrCapacityExceeded) {
			s.metrics.ReformatRuns.WithLabelValues("capacity_exceeded").Inc()
			return nil, apperrors.CapacityExceeded(err)
		}
		s.metrics.ReformatRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to reformat registration numbers: %w", err)
	}
	s.metrics.ReformatRuns.WithLabelValues("success").Inc()

	// The cached pattern is stale the moment the new spec commits.
	s.registry.Invalidate()

	active, err := s.registry.Get(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Ints("digit_groups", groups).
		Strs("separators", separators).
		Str("pattern", active.Pattern).
		Msg("registration format updated")

	return active, nil
}
