package visit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/service/visit"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
	"github.com/nexpat/clinicq/pkg/httputil"
)

type Handler struct {
	service visit.VisitService
}

func NewHandler(service visit.VisitService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("", h.CreateVisit)
		visits.GET("", h.ListVisits)
		visits.GET("/:id", h.GetVisit)
		visits.PATCH("/:id/:action", h.Transition)
	}
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	created, err := h.service.CreateVisit(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"id": "invalid visit ID"}))
		return
	}

	found, err := h.service.GetVisit(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

// ListVisits filters by status (comma-separated) and/or queue.
func (h *Handler) ListVisits(c *gin.Context) {
	visits, err := h.service.ListVisits(c.Request.Context(), c.Query("status"), c.Query("queue"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, visits)
}

// Transition applies a status action named in the URL, e.g.
// PATCH /visits/:id/start.
func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"id": "invalid visit ID"}))
		return
	}

	action := model.VisitAction(c.Param("action"))
	if !model.ValidAction(action) {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"action": "unknown action"}))
		return
	}

	updated, err := h.service.Transition(c.Request.Context(), id, action)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}
