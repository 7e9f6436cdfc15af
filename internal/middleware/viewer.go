package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ViewerCookie names the cookie that keys a browser's playback session
const ViewerCookie = "dramafeed_viewer"

const viewerCookieMaxAge = 365 * 24 * 3600

// ViewerIdentity assigns every browser a stable anonymous viewer id.
func ViewerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, err := c.Cookie(ViewerCookie)
		if err != nil || uuid.Validate(viewerID) != nil {
			viewerID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ViewerCookie, viewerID, viewerCookieMaxAge, "/", "", false, true)
		}
		c.Set(ViewerIDKey, viewerID)
		c.Next()
	}
}

// ViewerID returns the id set by ViewerIdentity
func ViewerID(c *gin.Context) string {
	return c.GetString(ViewerIDKey)
}
