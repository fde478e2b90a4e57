package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkmint/linkmint/internal/core"
)

// writeError is the single place domain errors become HTTP responses.
// Bodies follow the {"message": ...} shape the frontend expects.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFromError(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		// Do not leak storage details to the caller.
		message = "service temporarily unavailable"
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidURL),
		errors.Is(err, core.ErrInvalidExpiration),
		errors.Is(err, core.ErrAliasInvalid):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAliasTaken),
		errors.Is(err, core.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrGone):
		return http.StatusGone
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrCapacityExhausted),
		errors.Is(err, core.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
