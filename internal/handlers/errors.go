package handlers

import (
	"errors"
	"net/http"

	"satellite-telemetry/internal/service"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Details []service.FieldError `json:"details,omitempty"`
}

// respondError maps service errors onto status codes. Anything unrecognised is a 500 whose cause stays in the log.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Message: "request failed validation",
			Details: verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "internal server error",
		})
	}
}

func respondBadPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_payload",
		Message: "request body must be a JSON object: " + err.Error(),
	})
}
