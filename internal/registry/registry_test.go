package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexpat/clinicq/internal/model"
)

type fakeFormatRepo struct {
	spec      *model.FormatSpec
	loadCalls int
}

func (f *fakeFormatRepo) Load(ctx context.Context) (*model.FormatSpec, error) {
	f.loadCalls++
	return f.spec, nil
}

func (f *fakeFormatRepo) AllIdentifiers(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeFormatRepo) Reformat(ctx context.Context, spec *model.FormatSpec) error {
	f.spec = spec
	return nil
}

func defaultSpec() *model.FormatSpec {
	return &model.FormatSpec{
		DigitGroups: []int{2, 2, 3},
		Separators:  []string{"-", "-"},
		UpdatedAt:   time.Now(),
	}
}

func TestGetCachesDerivedFormat(t *testing.T) {
	repo := &fakeFormatRepo{spec: defaultSpec()}
	reg := New(repo)

	first, err := reg.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `^\d{2}-\d{2}-\d{3}$`, first.Pattern)
	assert.Equal(t, 7, first.TotalDigits)
	assert.Equal(t, 9, first.FormattedLength)
	assert.Equal(t, "01-23-456", first.Example)
	assert.True(t, first.Matches("01-00-001"))
	assert.False(t, first.Matches("01-00-0011"))

	_, err = reg.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loadCalls, "second Get must hit the cache")
}

func TestInvalidateForcesReload(t *testing.T) {
	repo := &fakeFormatRepo{spec: defaultSpec()}
	reg := New(repo)

	_, err := reg.Get(context.Background())
	require.NoError(t, err)

	// A format change without invalidation would leave the stale pattern
	// in place; Invalidate must force the next Get back to the repository.
	repo.spec = &model.FormatSpec{DigitGroups: []int{3, 4}, Separators: []string{"+"}}
	reg.Invalidate()

	reloaded, err := reg.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `^\d{3}\+\d{4}$`, reloaded.Pattern)
	assert.Equal(t, 2, repo.loadCalls)
}

func TestReloadBypassesCache(t *testing.T) {
	repo := &fakeFormatRepo{spec: defaultSpec()}
	reg := New(repo)

	_, err := reg.Get(context.Background())
	require.NoError(t, err)

	repo.spec = &model.FormatSpec{DigitGroups: []int{7}}
	reloaded, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `^\d{7}$`, reloaded.Pattern)

	cached, err := reg.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reloaded.Pattern, cached.Pattern)
}
