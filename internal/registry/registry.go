// Package registry holds the process-wide cached view of the active
// registration number format. The cache is a performance aid except in one
// respect: validating against a stale pattern after a format change is a
// correctness bug, so every successful mutation must call Invalidate before
// returning to its caller.
package registry

import (
	"context"
	"fmt"
	"regexp"

	"github.com/patrickmn/go-cache"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	"github.com/nexpat/clinicq/pkg/regnumber"
)

const activeKey = "active_format"

// Registry is a read-through cache over the format singleton.
type Registry struct {
	repo  repository.FormatRepository
	cache *cache.Cache
}

func New(repo repository.FormatRepository) *Registry {
	return &Registry{
		repo:  repo,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Get returns the cached active format, loading and deriving it from the
// repository on a miss.
func (r *Registry) Get(ctx context.Context) (*model.ActiveFormat, error) {
	if cached, found := r.cache.Get(activeKey); found {
		return cached.(*model.ActiveFormat), nil
	}
	return r.Reload(ctx)
}

// Reload bypasses the cache, recomputes the derived view and repopulates.
func (r *Registry) Reload(ctx context.Context) (*model.ActiveFormat, error) {
	spec, err := r.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration format: %w", err)
	}

	active, err := Derive(spec)
	if err != nil {
		return nil, err
	}

	r.cache.Set(activeKey, active, cache.NoExpiration)
	return active, nil
}

// Invalidate drops the cached format. Called by the format service after
// every successful spec mutation or reformat run.
func (r *Registry) Invalidate() {
	r.cache.Delete(activeKey)
}

// Derive computes the cached artifacts (pattern, widths, example) for a
// stored spec.
func Derive(spec *model.FormatSpec) (*model.ActiveFormat, error) {
	pattern := regnumber.BuildPattern(spec.DigitGroups, spec.Separators)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile format pattern %q: %w", pattern, err)
	}

	return &model.ActiveFormat{
		DigitGroups:     spec.DigitGroups,
		Separators:      spec.Separators,
		TotalDigits:     regnumber.TotalDigits(spec.DigitGroups),
		FormattedLength: regnumber.FormattedLength(spec.DigitGroups, spec.Separators),
		Pattern:         pattern,
		Example:         regnumber.BuildExample(spec.DigitGroups, spec.Separators),
		Regexp:          re,
	}, nil
}
