package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/Divy1030/duelcore/internal/apperr"
)

// successEnvelope is the response shape every successful endpoint returns.
type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	Success    bool   `json:"success"`
}

// errorEnvelope is the response shape every failed endpoint returns.
type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
}

// respond writes a successEnvelope with the given status code.
func respond(c *gin.Context, statusCode int, data any, message string) {
	c.JSON(statusCode, successEnvelope{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// respondError maps err onto an HTTP status via apperr.HTTPStatus and
// writes an errorEnvelope.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	c.JSON(status, errorEnvelope{
		StatusCode: status,
		Message:    err.Error(),
		Success:    false,
	})
}

// respondValidation writes a 400 with one or more field-level messages.
func respondValidation(c *gin.Context, messages ...string) {
	c.JSON(400, errorEnvelope{
		StatusCode: 400,
		Message:    "invalid request",
		Success:    false,
		Errors:     messages,
	})
}
