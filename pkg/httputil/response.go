package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// RespondWithSuccess sends a 200 success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

// RespondWithStatus sends a success response with the given status
func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// RespondWithError maps err onto its HTTP status and sends an error
// response. Internal causes are never echoed to the client.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	var details interface{}

	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		message = "request timeout"
	} else if appErr, ok := apperrors.As(err); ok {
		status = appErr.StatusCode()
		if status != http.StatusInternalServerError {
			message = appErr.Message
			details = appErr.Details
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Response{
		Status:    StatusError,
		Message:   message,
		Details:   details,
		RequestID: c.GetString(ContextRequestID),
	})
}
