package controllers

import (
	"errors"
	"net/http"

	"protocol-review-api/services"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps workflow errors onto HTTP responses.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	msg := "internal error"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status, code, msg = http.StatusNotFound, "NOT_FOUND", "Protocol application not found"
	case errors.Is(err, services.ErrInvalidTransition):
		status, code, msg = http.StatusConflict, "INVALID_TRANSITION", err.Error()
	case errors.Is(err, services.ErrConcurrentModification):
		status, code, msg = http.StatusConflict, "CONCURRENT_MODIFICATION", "The protocol was changed by another request; reload and try again"
	case errors.Is(err, services.ErrActorNotPermitted):
		status, code, msg = http.StatusForbidden, "ACTOR_NOT_PERMITTED", "You are not permitted to perform this action"
	case errors.Is(err, services.ErrMissingComment):
		status, code, msg = http.StatusBadRequest, "MISSING_COMMENT", err.Error()
	case errors.Is(err, services.ErrUnknownReviewer):
		status, code, msg = http.StatusBadRequest, "UNKNOWN_REVIEWER", err.Error()
	case errors.Is(err, services.ErrDuplicateReviewer):
		status, code, msg = http.StatusBadRequest, "DUPLICATE_REVIEWER", err.Error()
	case errors.Is(err, services.ErrInvalidReviewType):
		status, code, msg = http.StatusBadRequest, "INVALID_REVIEW_TYPE", err.Error()
	case errors.Is(err, services.ErrInvalidInput):
		status, code, msg = http.StatusBadRequest, "INVALID_INPUT", err.Error()
	}

	c.JSON(status, gin.H{"error": msg, "code": code})
}
