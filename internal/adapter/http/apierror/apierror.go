// Package apierror holds the JSON error envelope shared by handlers and middleware.
package apierror

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CodeNotFound     = "REQUEST_NOT_FOUND"
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
)

type Response struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

func New(status int, code, msg string) Response {
	return Response{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Code:      code,
		Message:   msg,
	}
}

// Abort writes the envelope and stops the handler chain.
func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, New(status, code, msg))
}
