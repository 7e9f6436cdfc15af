// ===============================
// internal/handlers/playback.go - Vertical Feed Playback
// ===============================

package handlers

import (
	"errors"
	"net/http"

	"dramafeed/internal/middleware"
	"dramafeed/internal/models"
	"dramafeed/internal/services"

	"github.com/gin-gonic/gin"
)

type PlaybackHandler struct {
	playback *services.PlaybackService
}

func NewPlaybackHandler(playback *services.PlaybackService) *PlaybackHandler {
	return &PlaybackHandler{playback: playback}
}

type selectRequest struct {
	EpisodeID int64 `json:"episodeId" binding:"required"`
}

// Current returns the viewer's episode
func (h *PlaybackHandler) Current(c *gin.Context) {
	view, err := h.playback.Current(c.Request.Context(), middleware.ViewerID(c))
	h.respond(c, view, err)
}

// Next is the swipe-up gesture
func (h *PlaybackHandler) Next(c *gin.Context) {
	view, err := h.playback.Navigate(c.Request.Context(), middleware.ViewerID(c), models.DirectionNext)
	h.respond(c, view, err)
}

// Previous is the swipe-down gesture
func (h *PlaybackHandler) Previous(c *gin.Context) {
	view, err := h.playback.Navigate(c.Request.Context(), middleware.ViewerID(c), models.DirectionPrevious)
	h.respond(c, view, err)
}

// Select jumps to an episode picked in the browser
func (h *PlaybackHandler) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "episodeId", Message: "episodeId is required"})
		return
	}
	view, err := h.playback.Select(c.Request.Context(), middleware.ViewerID(c), req.EpisodeID)
	h.respond(c, view, err)
}

func (h *PlaybackHandler) respond(c *gin.Context, view *models.PlaybackView, err error) {
	if errors.Is(err, models.ErrCatalogEmpty) {
		c.JSON(http.StatusOK, gin.H{
			"empty":   true,
			"message": EmptyFeedMessage,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
