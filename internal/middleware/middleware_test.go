package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(3, 1)

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request over the limit should get 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("429 response should carry a Retry-After header")
	}
}

func newAuthServiceWithUser(t *testing.T, email, password string) (*services.AuthService, string) {
	t.Helper()
	userRepo := repository.NewMemoryUserRepository()
	if err := userRepo.EnsureAnonymousUser(context.Background()); err != nil {
		t.Fatalf("seeding anonymous user failed: %v", err)
	}
	authService := services.NewAuthService(userRepo, "test-secret", 30*time.Minute)
	if _, err := authService.Signup(context.Background(), email, password); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	token, _, err := authService.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return authService, token
}

func TestRequireAuth(t *testing.T) {
	authService, token := newAuthServiceWithUser(t, "mw@example.com", "pw")

	tests := []struct {
		name           string
		cookieValue    string
		expectedStatus int
	}{
		{"no cookie", "", http.StatusUnauthorized},
		{"invalid cookie", "invalid", http.StatusUnauthorized},
		{"valid cookie", token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", RequireAuth(authService), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: services.AccessTokenCookie, Value: tt.cookieValue})
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestResolveCallerFallsBackToAnonymous(t *testing.T) {
	authService, token := newAuthServiceWithUser(t, "soft@example.com", "pw")

	var seen uint
	router := gin.New()
	router.GET("/", ResolveCaller(authService), func(c *gin.Context) {
		seen = CallerOwnerID(c)
		c.Status(http.StatusOK)
	})

	// Without a cookie the caller is the anonymous owner.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK || seen != models.AnonymousUserID {
		t.Fatalf("anonymous request should resolve to the sentinel owner, got %d", seen)
	}

	// A garbage cookie is treated like no cookie at all.
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: services.AccessTokenCookie, Value: "garbage"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != models.AnonymousUserID {
		t.Fatalf("invalid cookie should fall back to anonymous, got %d", seen)
	}

	// A valid cookie resolves to the real owner.
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: services.AccessTokenCookie, Value: token})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen == models.AnonymousUserID {
		t.Fatalf("valid cookie should resolve to a real owner, got %d", seen)
	}
}
