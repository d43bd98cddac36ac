package middleware

import (
	"net/http"
	"strings"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/database"
	"tripstars-api/internal/models"
	"tripstars-api/internal/roles"

	"github.com/gin-gonic/gin"
)

const userContextKey = "current_user"

// JWTAuthMiddleware validates the access token (Authorization header, or the
// token query param for websocket/browser clients), resolves the subject to
// an active user, and stores it in the request context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		var user models.User
		if err := database.GetDB().Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "User account is inactive"})
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)

		c.Next()
	}
}

// CurrentUser returns the authenticated user stored by JWTAuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// RequireCapability rejects callers whose role lacks the capability.
func RequireCapability(cap roles.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
			c.Abort()
			return
		}
		if !roles.Has(user.Role, cap) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to perform this action"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePrivileged rejects non-privileged callers (everyone but admin and
// manager in the current role set).
func RequirePrivileged() gin.HandlerFunc {
	return RequireCapability(roles.CapPrivileged)
}
