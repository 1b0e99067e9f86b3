package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexpat/clinicq/internal/middleware"
	"github.com/nexpat/clinicq/pkg/httputil"
)

// Handler exposes the identity baked into the caller's token.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

func (h *Handler) Me(c *gin.Context) {
	roles, _ := c.Get(middleware.ContextUserRoles)
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"id":    c.GetString(middleware.ContextUserID),
		"name":  c.GetString(middleware.ContextUserName),
		"roles": roles,
	})
}
