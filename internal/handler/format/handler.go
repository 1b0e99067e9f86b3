package format

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/service/format"
	"github.com/nexpat/clinicq/pkg/httputil"
)

type Handler struct {
	service format.FormatService
}

func NewHandler(service format.FormatService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetFormat(c *gin.Context) {
	active, err := h.service.GetFormat(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, active)
}

// ReplaceFormat requires every field of the spec.
func (h *Handler) ReplaceFormat(c *gin.Context) {
	h.update(c, false)
}

// AmendFormat keeps the stored value for any omitted field.
func (h *Handler) AmendFormat(c *gin.Context) {
	h.update(c, true)
}

func (h *Handler) update(c *gin.Context, partial bool) {
	var req model.UpdateFormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	active, err := h.service.UpdateFormat(c.Request.Context(), &req, partial)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, active)
}
