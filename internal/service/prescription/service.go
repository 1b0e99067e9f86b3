package prescription

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/repository"
	"github.com/nexpat/clinicq/pkg/blob"
)

type PrescriptionService interface {
	// AttachImage uploads the image to the external blob store and records
	// the returned references on the visit. An upload failure is logged
	// and the record is stored with empty references; the request itself
	// never fails on the collaborator's account.
	AttachImage(ctx context.Context, visitID uuid.UUID, filename, contentType string, body io.Reader) (*model.PrescriptionImage, error)
	ListImages(ctx context.Context, visitID *uuid.UUID, patientID string) ([]*model.PrescriptionImage, error)
}

type Service struct {
	repo      repository.PrescriptionRepository
	visitRepo repository.VisitRepository
	uploader  blob.Uploader
}

func NewService(repo repository.PrescriptionRepository, visitRepo repository.VisitRepository, uploader blob.Uploader) *Service {
	return &Service{repo: repo, visitRepo: visitRepo, uploader: uploader}
}

func (s *Service) AttachImage(ctx context.Context, visitID uuid.UUID, filename, contentType string, body io.Reader) (*model.PrescriptionImage, error) {
	visit, err := s.visitRepo.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}

	fileID, url, err := s.uploader.Upload(ctx, filename, contentType, body)
	if err != nil {
		log.Error().
			Err(err).
			Str("visit_id", visitID.String()).
			Str("filename", filename).
			Msg("prescription image upload failed, storing empty references")
		fileID, url = "", ""
	}

	image := &model.PrescriptionImage{
		VisitID:  visit.ID,
		FileID:   fileID,
		ImageURL: url,
	}
	if err := s.repo.Create(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to store prescription image: %w", err)
	}
	return image, nil
}

func (s *Service) ListImages(ctx context.Context, visitID *uuid.UUID, patientID string) ([]*model.PrescriptionImage, error) {
	return s.repo.List(ctx, &model.PrescriptionFilters{
		VisitID:   visitID,
		PatientID: patientID,
	})
}
