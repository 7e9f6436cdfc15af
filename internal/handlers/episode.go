// ===============================
// internal/handlers/episode.go - Catalog Endpoints
// ===============================

package handlers

import (
	"net/http"
	"strconv"

	"dramafeed/internal/models"
	"dramafeed/internal/services"
	"dramafeed/internal/storage"

	"github.com/gin-gonic/gin"
)

type EpisodeHandler struct {
	catalog *services.CatalogService
	store   storage.Store
}

func NewEpisodeHandler(catalog *services.CatalogService, store storage.Store) *EpisodeHandler {
	return &EpisodeHandler{catalog: catalog, store: store}
}

// ===============================
// PUBLIC EPISODE ENDPOINTS
// ===============================

func (h *EpisodeHandler) ListEpisodes(c *gin.Context) {
	episodes, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"episodes": episodes,
		"total":    len(episodes),
	})
}

func (h *EpisodeHandler) GetEpisode(c *gin.Context) {
	episodeID, ok := parseEpisodeID(c)
	if !ok {
		return
	}

	episode, err := h.catalog.Get(c.Request.Context(), episodeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, episode)
}

// ServeMedia streams the trimmed clip (Range requests supported) or redirects to the CDN
func (h *EpisodeHandler) ServeMedia(c *gin.Context) {
	h.serveArtifact(c, models.ArtifactMedia)
}

// ServeThumbnail returns the still frame, 404 when none was recorded
func (h *EpisodeHandler) ServeThumbnail(c *gin.Context) {
	h.serveArtifact(c, models.ArtifactThumbnail)
}

func (h *EpisodeHandler) serveArtifact(c *gin.Context, kind string) {
	episodeID, ok := parseEpisodeID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	episode, err := h.catalog.Get(ctx, episodeID)
	if err != nil {
		respondError(c, err)
		return
	}

	key, err := services.ResolveArtifact(ctx, h.store, episode, kind)
	if err != nil {
		respondError(c, err)
		return
	}

	loc, err := h.store.Locate(ctx, key)
	if err != nil {
		respondError(c, &models.StorageFault{Op: "locate " + key, Err: err})
		return
	}

	// Artifacts never change once published
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	if loc.URL != "" {
		c.Redirect(http.StatusFound, loc.URL)
		return
	}
	c.Header("Content-Type", storage.ContentType(key))
	c.File(loc.LocalPath)
}

func parseEpisodeID(c *gin.Context) (int64, bool) {
	raw := c.Param("episodeId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, &models.ValidationError{Field: "episodeId", Message: "episode id must be a positive integer"})
		return 0, false
	}
	return id, true
}
