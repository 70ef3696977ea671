package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/middleware"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

// CredentialsRequest is the body of POST /auth/signup and /auth/login.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler registers a new user account.
func SignupHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		user, err := authService.Signup(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			var emailTaken *apperrors.ErrEmailTaken
			if errors.As(err, &emailTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User " + user.Email + " registered"})
	}
}

// LoginHandler checks credentials, issues an access token and stores it in
// the session cookie.
func LoginHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		token, user, err := authService.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			var invalid *apperrors.ErrInvalidCredentials
			if errors.As(err, &invalid) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			log.Printf("Error logging in '%s': %v", req.Email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		maxAge := int(authService.TokenTTL().Seconds())
		c.SetCookie(services.AccessTokenCookie, token, maxAge, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "User " + user.Email + " logged in"})
	}
}

// LogoutHandler drops the session cookie.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(services.AccessTokenCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// CurrentUserHandler returns the email and last login time of the caller.
func CurrentUserHandler(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(middleware.UserEmailKey)

		user, err := authService.CurrentUser(c.Request.Context(), mustCookie(c))
		if err != nil {
			// RequireAuth already validated the token; only a vanished user
			// row lands here.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		resp := gin.H{"username": email}
		if user.LastLoginAt != nil {
			resp["last_login_at"] = user.LastLoginAt
		}
		c.JSON(http.StatusOK, resp)
	}
}

func mustCookie(c *gin.Context) string {
	token, _ := c.Cookie(services.AccessTokenCookie)
	return token
}
