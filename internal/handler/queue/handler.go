package queue

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexpat/clinicq/internal/model"
	"github.com/nexpat/clinicq/internal/service/queue"
	apperrors "github.com/nexpat/clinicq/pkg/errors"
	"github.com/nexpat/clinicq/pkg/httputil"
)

type Handler struct {
	service queue.QueueService
}

func NewHandler(service queue.QueueService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queues := r.Group("/queues")
	{
		queues.POST("", h.CreateQueue)
		queues.GET("", h.ListQueues)
		queues.GET("/:id", h.GetQueue)
	}
}

func (h *Handler) CreateQueue(c *gin.Context) {
	var req model.CreateQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.Response{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	created, err := h.service.CreateQueue(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) GetQueue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.ValidationFields(map[string]string{"id": "invalid queue ID"}))
		return
	}

	found, err := h.service.GetQueue(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) ListQueues(c *gin.Context) {
	queues, err := h.service.ListQueues(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, queues)
}
