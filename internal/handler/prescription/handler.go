package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexpat/clinicq/internal/service/prescription"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
	"github.com/nexpat/clinicq/pkg/httputil"
)

// maxImageSize caps multipart uploads at 10 MiB.
const maxImageSize = 10 << 20

type Handler struct {
	service prescription.PrescriptionService
}

func NewHandler(service prescription.PrescriptionService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("/:id/prescriptions", h.AttachImage)
		visits.GET("/:id/prescriptions", h.ListImages)
	}
}

// AttachImage accepts a multipart form with an "image" file field.
func (h *Handler) AttachImage(c *gin.Context) {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"id": "invalid visit ID"}))
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"image": "an image file is required"}))
		return
	}
	if fileHeader.Size > maxImageSize {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"image": "image may not exceed 10 MiB"}))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	defer file.Close()

	image, err := h.service.AttachImage(c.Request.Context(), visitID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, image)
}

func (h *Handler) ListImages(c *gin.Context) {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"id": "invalid visit ID"}))
		return
	}

	images, err := h.service.ListImages(c.Request.Context(), &visitID, "")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, images)
}
