// ===============================
// internal/middleware/auth.go - Admin Gate
// ===============================

package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware in this package
const (
	AdminIDKey  = "adminID"
	ViewerIDKey = "viewerID"
)

// AdminSecretHeader carries the shared admin secret
const AdminSecretHeader = "X-Admin-Secret"

// AdminVerifier checks a Firebase ID token for admin rights and returns the uid
type AdminVerifier interface {
	VerifyAdmin(ctx context.Context, idToken string) (string, error)
}

// AdminOnly lets a request through when it presents the shared secret or an
// admin Firebase token. Failures get a bare 401; nothing is counted or locked.
func AdminOnly(secret string, verifier AdminVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" {
			if provided := c.GetHeader(AdminSecretHeader); provided != "" &&
				subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1 {
				c.Set(AdminIDKey, "shared-secret")
				c.Next()
				return
			}
		}

		if verifier != nil {
			if token := bearerToken(c.GetHeader("Authorization")); token != "" {
				if uid, err := verifier.VerifyAdmin(c.Request.Context(), token); err == nil {
					c.Set(AdminIDKey, uid)
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(header string) string {
	tokenParts := strings.Split(header, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return ""
	}
	return tokenParts[1]
}
