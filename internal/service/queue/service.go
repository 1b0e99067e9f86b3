package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
)

type QueueService interface {
	CreateQueue(ctx context.Context, req *model.CreateQueueRequest) (*model.Queue, error)
	GetQueue(ctx context.Context, id uuid.UUID) (*model.Queue, error)
	ListQueues(ctx context.Context) ([]*model.Queue, error)
}

type Service struct {
	repo repository.QueueRepository
}

func NewService(repo repository.QueueRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateQueue(ctx context.Context, req *model.CreateQueueRequest) (*model.Queue, error) {
	queue := &model.Queue{Name: req.Name}
	if err := s.repo.Create(ctx, queue); err != nil {
		return nil, err
	}
	log.Info().Str("name", queue.Name).Msg("queue created")
	return queue, nil
}

func (s *Service) GetQueue(ctx context.Context, id uuid.UUID) (*model.Queue, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListQueues(ctx context.Context) ([]*model.Queue, error) {
	return s.repo.List(ctx)
}
