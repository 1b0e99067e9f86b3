package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nexpat/clinicq/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response, translating application error
// codes to HTTP statuses.
func RespondWithError(c *gin.Context, err error) {
	status := StatusCode(err)
	message := "internal server error"
	var fields map[string]string

	if appErr, ok := asAppError(err); ok && status != http.StatusInternalServerError {
		message = appErr.Message
		fields = appErr.Fields
	}

	c.JSON(status, Response{
		Status:  "error",
		Message: message,
		Fields:  fields,
	})
}

// StatusCode maps an error to its HTTP status.
func StatusCode(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrValidation, apperrors.ErrInvalidTransition, apperrors.ErrCapacityExceeded:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrCapacityExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func asAppError(err error) (*apperrors.AppError, bool) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
