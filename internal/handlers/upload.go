// ===============================
// internal/handlers/upload.go - Admin Episode Ingestion
// ===============================

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"dramafeed/internal/models"
	"dramafeed/internal/services"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file limit for the form fields
const multipartOverhead = 1 << 20

// Accepted source containers; ffprobe makes the final call
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".ts":   true,
	".mkv":  true,
	".flv":  true,
	".wmv":  true,
	".m4v":  true,
}

// EpisodeNotifier is told about every newly ingested episode
type EpisodeNotifier interface {
	NotifyEpisodeAdded(episode *models.Episode)
}

type UploadHandler struct {
	ingest         *services.IngestService
	maxUploadBytes int64
	notifier       EpisodeNotifier
}

func NewUploadHandler(ingest *services.IngestService, maxUploadBytes int64, notifier EpisodeNotifier) *UploadHandler {
	return &UploadHandler{ingest: ingest, maxUploadBytes: maxUploadBytes, notifier: notifier}
}

// IngestEpisode accepts a multipart form with file, title, genre, description and duration
func (h *UploadHandler) IngestEpisode(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, &models.ValidationError{
				Field:   "file",
				Message: fmt.Sprintf("upload exceeds %d MB", h.maxUploadBytes/(1024*1024)),
			})
			return
		}
		respondError(c, &models.ValidationError{Field: "file", Message: "no file uploaded"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !videoExtensions[ext] {
		respondError(c, &models.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported video file type %q", ext),
		})
		return
	}

	var req models.IngestRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "form", Message: "title, genre and an integer duration are required"})
		return
	}

	episode, err := h.ingest.Ingest(c.Request.Context(), file, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyEpisodeAdded(episode)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Episode ingested successfully",
		"episode": episode,
	})
}
