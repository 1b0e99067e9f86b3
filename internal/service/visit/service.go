package visit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

// maxTokenAttempts bounds retries when a concurrent writer wins the token
// race despite the row lock.
const maxTokenAttempts = 3

type VisitService interface {
	CreateVisit(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	ListVisits(ctx context.Context, statusCSV, queueID string) ([]*model.Visit, error)
	// Transition applies a named status action, enforcing the visit state
	// machine. Disallowed transitions leave the visit unchanged.
	Transition(ctx context.Context, id uuid.UUID, action model.VisitAction) (*model.Visit, error)
}

type Service struct {
	repo        repository.VisitRepository
	patientRepo repository.PatientRepository
	queueRepo   repository.QueueRepository
}

func NewService(repo repository.VisitRepository, patientRepo repository.PatientRepository, queueRepo repository.QueueRepository) *Service {
	return &Service{repo: repo, patientRepo: patientRepo, queueRepo: queueRepo}
}

// CreateVisit allocates the next token for today's (queue, date) scope and
// creates the visit in WAITING state.
func (s *Service) CreateVisit(ctx context.Context, req *model.CreateVisitRequest) (*model.Visit, error) {
	queueID, err := uuid.Parse(req.QueueID)
	if err != nil {
		return nil, apperrors.ValidationFields(map[string]string{"queue": "invalid queue ID"})
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	queue, err := s.queueRepo.Get(ctx, queueID)
	if err != nil {
		return nil, err
	}

	visit := &model.Visit{
		PatientID: patient.RegistrationNumber,
		QueueID:   queue.ID,
		VisitDate: today(),
	}

	for attempt := 1; ; attempt++ {
		err := s.repo.Create(ctx, visit)
		if err == nil {
			break
		}
		if apperrors.CodeOf(err) == apperrors.ErrConflict && attempt < maxTokenAttempts {
			log.Warn().
				Int("attempt", attempt).
				Str("queue", queue.Name).
				Msg("token allocation conflict, retrying")
			continue
		}
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}

	visit.PatientName = patient.Name
	visit.QueueName = queue.Name

	log.Info().
		Int("token_number", visit.TokenNumber).
		Str("patient", patient.RegistrationNumber).
		Str("queue", queue.Name).
		Msg("visit created")

	return visit, nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.repo.Get(ctx, id)
}

// ListVisits filters by a comma-separated status list and/or queue ID.
// A WAITING filter is always pinned to today's date.
func (s *Service) ListVisits(ctx context.Context, statusCSV, queueID string) ([]*model.Visit, error) {
	filters := &model.VisitFilters{}

	if statusCSV != "" {
		for _, raw := range strings.Split(statusCSV, ",") {
			status := model.VisitStatus(strings.ToUpper(strings.TrimSpace(raw)))
			filters.Statuses = append(filters.Statuses, status)
			if status == model.VisitStatusWaiting {
				d := today()
				filters.Date = &d
			}
		}
	}
	if queueID != "" {
		id, err := uuid.Parse(queueID)
		if err != nil {
			return nil, apperrors.ValidationFields(map[string]string{"queue": "invalid queue ID"})
		}
		filters.QueueID = &id
	}

	return s.repo.List(ctx, filters)
}

func (s *Service) Transition(ctx context.Context, id uuid.UUID, action model.VisitAction) (*model.Visit, error) {
	visit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, ok := model.NextStatus(visit.Status, action)
	if !ok {
		log.Warn().
			Str("visit_id", id.String()).
			Str("current", string(visit.Status)).
			Str("action", string(action)).
			Msg("invalid visit status transition attempted")
		return nil, apperrors.InvalidTransition(string(action), model.AllowedStates(action))
	}

	if err := s.repo.UpdateStatus(ctx, id, visit.Status, next); err != nil {
		return nil, err
	}

	visit.Status = next
	return visit, nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
