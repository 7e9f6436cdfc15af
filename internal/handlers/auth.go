// ===============================
// internal/handlers/auth.go - Admin Credential Check
// ===============================

package handlers

import (
	"net/http"

	"dramafeed/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// VerifyAdmin lets the upload form check its credentials before sending a large file.
// It sits behind middleware.AdminOnly, so reaching it means the credentials are good.
func (h *AuthHandler) VerifyAdmin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"admin":   c.GetString(middleware.AdminIDKey),
		"isAdmin": true,
	})
}
