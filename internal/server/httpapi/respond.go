package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/gin-gonic/gin"
)

// Messages shown to clients for errors that carry no message of their own.
const (
	msgUnauthorized   = "Unauthorized - Please login"
	msgForbidden      = "Forbidden - Admin access required"
	msgUserExists     = "User already exists with this email"
	msgBadCredentials = "Invalid email or password"
	msgUnavailable    = "Assistant is unavailable, please try again later"
	msgTooLarge       = "Request body is too large"
	msgInternal       = "Internal server error"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: message})
}

// respondError writes err as an envelope. notFound is the message used for
// common.ErrorNotFound, which differs per resource.
func respondError(c *gin.Context, err error, notFound string) {
	status, message := classify(err, notFound)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondFail(c, status, message)
}

func classify(err error, notFound string) (int, string) {
	if ve, ok := common.AsValidationError(err); ok {
		return http.StatusBadRequest, ve.Message
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, notFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, msgUserExists
	case errors.Is(err, common.ErrorBackendUnavailable):
		return http.StatusBadGateway, msgUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
