package handlers

import (
	"net/http"

	"dramafeed/internal/services"
	"dramafeed/internal/uiconfig"

	"github.com/gin-gonic/gin"
)

type BrowseHandler struct {
	browser *services.BrowserService
	chrome  *uiconfig.Chrome
}

func NewBrowseHandler(browser *services.BrowserService, chrome *uiconfig.Chrome) *BrowseHandler {
	return &BrowseHandler{browser: browser, chrome: chrome}
}

// ListForDisplay returns the selectable grid; Position feeds POST /playback/select
func (h *BrowseHandler) ListForDisplay(c *gin.Context) {
	items, err := h.browser.ListForDisplay(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetTabs returns the static tab strip
func (h *BrowseHandler) GetTabs(c *gin.Context) {
	c.JSON(http.StatusOK, h.chrome)
}
