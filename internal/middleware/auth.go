package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

// OwnerIDKey is the Gin context key under which the resolved caller's owner
// id is stored.
const OwnerIDKey = "owner_id"

// UserEmailKey is the Gin context key for the resolved caller's email.
const UserEmailKey = "user_email"

// ResolveCaller resolves the caller from the access-token cookie if one is
// present and valid, otherwise falls back to the anonymous owner. It never
// rejects a request; handlers that need a real account use RequireAuth.
func ResolveCaller(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(OwnerIDKey, models.AnonymousUserID)

		token, err := c.Cookie(services.AccessTokenCookie)
		if err == nil && token != "" {
			if user, err := authService.CurrentUser(c.Request.Context(), token); err == nil {
				c.Set(OwnerIDKey, user.ID)
				c.Set(UserEmailKey, user.Email)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid access-token cookie with a
// 401 and stores the resolved caller otherwise.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(services.AccessTokenCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := authService.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		c.Set(OwnerIDKey, user.ID)
		c.Set(UserEmailKey, user.Email)
		c.Next()
	}
}

// CallerOwnerID returns the owner id stored by ResolveCaller or RequireAuth,
// defaulting to the anonymous owner.
func CallerOwnerID(c *gin.Context) uint {
	if v, ok := c.Get(OwnerIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return models.AnonymousUserID
}
