package handlers

import (
	"errors"
	"net/http"

	"dramafeed/internal/logging"
	"dramafeed/internal/models"

	"github.com/gin-gonic/gin"
)

// EmptyFeedMessage is returned instead of an episode when the catalog has none
const EmptyFeedMessage = "No episodes yet. Check back soon."

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) int {
	var (
		ve      *models.ValidationError
		nf      *models.NotFoundError
		dup     *models.DuplicateTitleError
		mpe     *models.MediaProcessingError
		missing *models.MissingArtifactError
		fault   *models.StorageFault
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.As(err, &dup), errors.Is(err, models.ErrIngestBusy):
		return http.StatusConflict
	case errors.As(err, &mpe):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fault):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}; internals of 5xx errors are logged, not returned.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		body["field"] = ve.Field
		body["error"] = ve.Message
	}
	if status >= http.StatusInternalServerError {
		logger := logging.FromContext(c.Request.Context(), "http")
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("🚨 request failed")
		body["error"] = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, body)
}
