package prescription

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexpat/clinicq/internal/model"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

type fakePrescriptionRepo struct {
	images []*model.PrescriptionImage
}

func (f *fakePrescriptionRepo) Create(ctx context.Context, image *model.PrescriptionImage) error {
	image.ID = uuid.New()
	image.CreatedAt = time.Now()
	f.images = append(f.images, image)
	return nil
}

func (f *fakePrescriptionRepo) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.PrescriptionImage, error) {
	var result []*model.PrescriptionImage
	for _, img := range f.images {
		if filters != nil && filters.VisitID != nil && img.VisitID != *filters.VisitID {
			continue
		}
		result = append(result, img)
	}
	return result, nil
}

type fakeVisitRepo struct {
	visit *model.Visit
}

func (f *fakeVisitRepo) Create(ctx context.Context, v *model.Visit) error { return nil }
func (f *fakeVisitRepo) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	if f.visit == nil || f.visit.ID != id {
		return nil, apperrors.NotFound("visit", nil)
	}
	return f.visit, nil
}
func (f *fakeVisitRepo) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	return nil, nil
}
func (f *fakeVisitRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VisitStatus) error {
	return nil
}

type fakeUploader struct {
	fileID string
	url    string
	err    error
	got    string
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, string, error) {
	data, _ := io.ReadAll(body)
	f.got = string(data)
	return f.fileID, f.url, f.err
}

func TestAttachImage(t *testing.T) {
	visit := &model.Visit{Base: model.Base{ID: uuid.New()}}
	repo := &fakePrescriptionRepo{}
	uploader := &fakeUploader{fileID: "file-123", url: "https://blobs.example/file-123.jpg"}
	svc := NewService(repo, &fakeVisitRepo{visit: visit}, uploader)

	image, err := svc.AttachImage(context.Background(), visit.ID, "rx.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)

	assert.Equal(t, visit.ID, image.VisitID)
	assert.Equal(t, "file-123", image.FileID)
	assert.Equal(t, "https://blobs.example/file-123.jpg", image.ImageURL)
	assert.Equal(t, "jpegbytes", uploader.got)
	require.Len(t, repo.images, 1)
}

func TestAttachImageUploadFailureStillRecords(t *testing.T) {
	visit := &model.Visit{Base: model.Base{ID: uuid.New()}}
	repo := &fakePrescriptionRepo{}
	uploader := &fakeUploader{err: errors.New("bucket unreachable")}
	svc := NewService(repo, &fakeVisitRepo{visit: visit}, uploader)

	image, err := svc.AttachImage(context.Background(), visit.ID, "rx.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err, "upload failure must not fail the request")

	assert.Empty(t, image.FileID)
	assert.Empty(t, image.ImageURL)
	require.Len(t, repo.images, 1, "record is stored even without blob references")
}

func TestAttachImageUnknownVisit(t *testing.T) {
	svc := NewService(&fakePrescriptionRepo{}, &fakeVisitRepo{}, &fakeUploader{})

	_, err := svc.AttachImage(context.Background(), uuid.New(), "rx.jpg", "image/jpeg", strings.NewReader("x"))
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestListImagesFiltersByVisit(t *testing.T) {
	visitA := uuid.New()
	visitB := uuid.New()
	repo := &fakePrescriptionRepo{images: []*model.PrescriptionImage{
		{ID: uuid.New(), VisitID: visitA, FileID: "a"},
		{ID: uuid.New(), VisitID: visitB, FileID: "b"},
	}}
	svc := NewService(repo, &fakeVisitRepo{}, &fakeUploader{})

	images, err := svc.ListImages(context.Background(), &visitA, "")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "a", images[0].FileID)
}
