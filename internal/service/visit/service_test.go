package visit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

// fakeVisitRepo mirrors the Postgres repository's allocation contract:
// tokens are max+1 within a (queue, date) scope, starting at 1.
type fakeVisitRepo struct {
	visits        map[uuid.UUID]*model.Visit
	conflictsLeft int
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{visits: map[uuid.UUID]*model.Visit{}}
}

func scopeKey(queueID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s|%s", queueID, date.Format("2006-01-02"))
}

func (f *fakeVisitRepo) Create(ctx context.Context, visit *model.Visit) error {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return apperrors.Conflict("token number already taken", nil)
	}

	maxToken := 0
	for _, v := range f.visits {
		if scopeKey(v.QueueID, v.VisitDate) == scopeKey(visit.QueueID, visit.VisitDate) && v.TokenNumber > maxToken {
			maxToken = v.TokenNumber
		}
	}

	visit.ID = uuid.New()
	visit.TokenNumber = maxToken + 1
	visit.Status = model.VisitStatusWaiting
	f.visits[visit.ID] = visit
	return nil
}

func (f *fakeVisitRepo) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	v, ok := f.visits[id]
	if !ok {
		return nil, apperrors.NotFound("visit", nil)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVisitRepo) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	var result []*model.Visit
	for _, v := range f.visits {
		if filters != nil {
			if len(filters.Statuses) > 0 && !containsStatus(filters.Statuses, v.Status) {
				continue
			}
			if filters.QueueID != nil && v.QueueID != *filters.QueueID {
				continue
			}
			if filters.Date != nil && !v.VisitDate.Equal(*filters.Date) {
				continue
			}
		}
		result = append(result, v)
	}
	return result, nil
}

func (f *fakeVisitRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VisitStatus) error {
	v, ok := f.visits[id]
	if !ok {
		return apperrors.NotFound("visit", nil)
	}
	if v.Status != from {
		return apperrors.Conflict("visit status changed concurrently", nil)
	}
	v.Status = to
	return nil
}

func containsStatus(statuses []model.VisitStatus, s model.VisitStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

var _ repository.VisitRepository = (*fakeVisitRepo)(nil)

type fakePatientRepo struct {
	patients map[string]*model.Patient
}

func (f *fakePatientRepo) Create(ctx context.Context, p *model.Patient, format *model.ActiveFormat) error {
	return nil
}
func (f *fakePatientRepo) Get(ctx context.Context, reg string) (*model.Patient, error) {
	p, ok := f.patients[reg]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}
func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }
func (f *fakePatientRepo) Delete(ctx context.Context, reg string) error       { return nil }
func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

type fakeQueueRepo struct {
	queues map[uuid.UUID]*model.Queue
}

func (f *fakeQueueRepo) Create(ctx context.Context, q *model.Queue) error { return nil }
func (f *fakeQueueRepo) Get(ctx context.Context, id uuid.UUID) (*model.Queue, error) {
	q, ok := f.queues[id]
	if !ok {
		return nil, apperrors.NotFound("queue", nil)
	}
	return q, nil
}
func (f *fakeQueueRepo) List(ctx context.Context) ([]*model.Queue, error) { return nil, nil }

type fixture struct {
	svc       *Service
	repo      *fakeVisitRepo
	queueA    *model.Queue
	queueB    *model.Queue
	patientID string
}

func newFixture() *fixture {
	queueA := &model.Queue{Base: model.Base{ID: uuid.New()}, Name: "General"}
	queueB := &model.Queue{Base: model.Base{ID: uuid.New()}, Name: "Dental"}
	patientID := "01-00-001"

	repo := newFakeVisitRepo()
	svc := NewService(repo,
		&fakePatientRepo{patients: map[string]*model.Patient{
			patientID: {RegistrationNumber: patientID, Name: "Asha"},
		}},
		&fakeQueueRepo{queues: map[uuid.UUID]*model.Queue{
			queueA.ID: queueA,
			queueB.ID: queueB,
		}},
	)

	return &fixture{svc: svc, repo: repo, queueA: queueA, queueB: queueB, patientID: patientID}
}

func (fx *fixture) create(t *testing.T, queueID uuid.UUID) *model.Visit {
	t.Helper()
	visit, err := fx.svc.CreateVisit(context.Background(), &model.CreateVisitRequest{
		PatientID: fx.patientID,
		QueueID:   queueID.String(),
	})
	require.NoError(t, err)
	return visit
}

func TestTokenScoping(t *testing.T) {
	fx := newFixture()

	first := fx.create(t, fx.queueA.ID)
	second := fx.create(t, fx.queueA.ID)
	otherQueue := fx.create(t, fx.queueB.ID)

	assert.Equal(t, 1, first.TokenNumber)
	assert.Equal(t, 2, second.TokenNumber, "same queue, same day increments")
	assert.Equal(t, 1, otherQueue.TokenNumber, "another queue starts its own sequence")
	assert.Equal(t, model.VisitStatusWaiting, first.Status)

	// The next day the sequence resets.
	yesterdayVisit := fx.repo.visits[first.ID]
	yesterdayVisit.VisitDate = yesterdayVisit.VisitDate.AddDate(0, 0, -1)
	fx.repo.visits[second.ID].VisitDate = fx.repo.visits[second.ID].VisitDate.AddDate(0, 0, -1)

	fresh := fx.create(t, fx.queueA.ID)
	assert.Equal(t, 1, fresh.TokenNumber, "sequence resets per visit date")
}

func TestCreateVisitValidation(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.CreateVisit(context.Background(), &model.CreateVisitRequest{
		PatientID: "missing",
		QueueID:   fx.queueA.ID.String(),
	})
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	_, err = fx.svc.CreateVisit(context.Background(), &model.CreateVisitRequest{
		PatientID: fx.patientID,
		QueueID:   "not-a-uuid",
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestCreateVisitRetriesOnConflict(t *testing.T) {
	fx := newFixture()
	fx.repo.conflictsLeft = 2

	visit := fx.create(t, fx.queueA.ID)
	assert.Equal(t, 1, visit.TokenNumber)
}

func TestTransitionLifecycle(t *testing.T) {
	fx := newFixture()
	visit := fx.create(t, fx.queueA.ID)

	for _, step := range []struct {
		action model.VisitAction
		want   model.VisitStatus
	}{
		{model.VisitActionStart, model.VisitStatusStart},
		{model.VisitActionSendBack, model.VisitStatusWaiting},
		{model.VisitActionStart, model.VisitStatusStart},
		{model.VisitActionInRoom, model.VisitStatusInRoom},
		{model.VisitActionDone, model.VisitStatusDone},
	} {
		got, err := fx.svc.Transition(context.Background(), visit.ID, step.action)
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.want, got.Status)
	}
}

func TestTransitionRejected(t *testing.T) {
	fx := newFixture()
	visit := fx.create(t, fx.queueA.ID)

	_, err := fx.svc.Transition(context.Background(), visit.ID, model.VisitActionInRoom)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "START", "error names the allowed states")

	unchanged, err := fx.svc.GetVisit(context.Background(), visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusWaiting, unchanged.Status, "rejected transition leaves the visit unchanged")
}

func TestTransitionDoneIsTerminal(t *testing.T) {
	fx := newFixture()
	visit := fx.create(t, fx.queueA.ID)

	for _, action := range []model.VisitAction{model.VisitActionStart, model.VisitActionInRoom, model.VisitActionDone} {
		_, err := fx.svc.Transition(context.Background(), visit.ID, action)
		require.NoError(t, err)
	}

	for _, action := range []model.VisitAction{
		model.VisitActionStart, model.VisitActionInRoom, model.VisitActionSendBack, model.VisitActionDone,
	} {
		_, err := fx.svc.Transition(context.Background(), visit.ID, action)
		assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err), "action %s", action)
	}
}

func TestListVisitsWaitingPinsToday(t *testing.T) {
	fx := newFixture()
	visit := fx.create(t, fx.queueA.ID)

	// Age one visit by a day; a WAITING filter must exclude it.
	fx.repo.visits[visit.ID].VisitDate = fx.repo.visits[visit.ID].VisitDate.AddDate(0, 0, -1)
	todayVisit := fx.create(t, fx.queueA.ID)

	got, err := fx.svc.ListVisits(context.Background(), "waiting", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, todayVisit.ID, got[0].ID)

	byQueue, err := fx.svc.ListVisits(context.Background(), "", fx.queueB.ID.String())
	require.NoError(t, err)
	assert.Empty(t, byQueue)

	_, err = fx.svc.ListVisits(context.Background(), "", "garbage")
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}
