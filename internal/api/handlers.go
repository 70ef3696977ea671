package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nkrasnikov/tinyurl/internal/config"
	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/middleware"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

// SetupRoutes wires every API route into the Gin engine and injects the
// services into the handlers.
func SetupRoutes(router *gin.Engine, linkService *services.LinkService, authService *services.AuthService, cfg *config.Config) {
	router.Use(middleware.RequestID())

	router.GET("/health", HealthCheckHandler)

	links := router.Group("/links")
	links.Use(middleware.ResolveCaller(authService))
	{
		links.POST("/shorten", ShortenLinkHandler(linkService, cfg))
		links.GET("/search", SearchLinksHandler(linkService, cfg))
		links.GET("/all_my_links", middleware.RequireAuth(authService), ListMyLinksHandler(linkService, cfg))
		links.GET("/:shortCode", RedirectHandler(linkService))
		links.GET("/:shortCode/stats", GetLinkStatsHandler(linkService))
		links.DELETE("/:shortCode", middleware.RequireAuth(authService), DeleteLinkHandler(linkService))
		links.PUT("/:shortCode", middleware.RequireAuth(authService), UpdateLinkHandler(linkService, cfg))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/signup", SignupHandler(authService))
		auth.POST("/login", LoginHandler(authService))
		auth.POST("/logout", middleware.RequireAuth(authService), LogoutHandler())
		auth.GET("/current-user", middleware.RequireAuth(authService), CurrentUserHandler(authService))
	}
}

// HealthCheckHandler serves the /health probe.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// shortLink renders the fully-qualified short link for an alias.
func shortLink(cfg *config.Config, alias string) string {
	return cfg.Server.BaseURL + "/links/" + alias
}

// ShortenLinkRequest is the body of POST /links/shorten.
type ShortenLinkRequest struct {
	SourceURL   string `json:"source_url" binding:"required"`
	CustomAlias string `json:"custom_alias"`
	ExpiresAt   string `json:"expires_at"` // DD.MM.YYYY HH:MM
}

// ShortenLinkResponse is the body returned on a successful shorten.
type ShortenLinkResponse struct {
	Message   string `json:"message"`
	ShortLink string `json:"short_link"`
}

// ShortenLinkHandler creates a short link, custom or generated.
func ShortenLinkHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShortenLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		ownerID := middleware.CallerOwnerID(c)
		link, err := linkService.CreateLink(c.Request.Context(), req.SourceURL, req.CustomAlias, req.ExpiresAt, ownerID)
		if err != nil {
			var invalidURL *apperrors.ErrInvalidURL
			var invalidExpiry *apperrors.ErrInvalidExpiry
			var aliasTaken *apperrors.ErrAliasTaken
			var exhausted *apperrors.ErrAliasExhausted
			switch {
			case errors.As(err, &invalidURL), errors.As(err, &invalidExpiry):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.As(err, &aliasTaken):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.As(err, &exhausted):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				log.Printf("Error creating link: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short link"})
			}
			return
		}

		c.JSON(http.StatusCreated, ShortenLinkResponse{
			Message:   "Short link created",
			ShortLink: shortLink(cfg, link.Alias),
		})
	}
}

// RedirectHandler redirects a short code to its target URL. Absent and
// expired links both come back as 404.
func RedirectHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		alias := c.Param("shortCode")

		targetURL, err := linkService.ResolveLink(c.Request.Context(), alias)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short link not found"})
				return
			}
			log.Printf("Error resolving link '%s': %v", alias, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Redirect(http.StatusFound, targetURL)
	}
}

// LinkStatsResponse is the body of GET /links/:shortCode/stats.
type LinkStatsResponse struct {
	OriginalURL         string     `json:"original_url"`
	CreatedAt           time.Time  `json:"created_at"`
	TransitionsQuantity uint64     `json:"transitions_quantity"`
	LastUsedAt          *time.Time `json:"last_used_at"`
}

// GetLinkStatsHandler returns the public statistics of a link.
func GetLinkStatsHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		alias := c.Param("shortCode")

		link, err := linkService.GetLinkStats(c.Request.Context(), alias)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Short link not found"})
				return
			}
			log.Printf("Error fetching stats for '%s': %v", alias, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, LinkStatsResponse{
			OriginalURL:         link.TargetURL,
			CreatedAt:           link.CreatedAt,
			TransitionsQuantity: link.VisitCount,
			LastUsedAt:          link.LastUsedAt,
		})
	}
}

// SearchLinksResponse is the body of GET /links/search.
type SearchLinksResponse struct {
	ShortLinks []string `json:"short_links"`
}

// SearchLinksHandler returns the caller's short links pointing at the exact
// original URL given in the query.
func SearchLinksHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalURL := c.Query("original_url")
		if originalURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'original_url' is required"})
			return
		}

		ownerID := middleware.CallerOwnerID(c)
		links, err := linkService.FindByTarget(c.Request.Context(), originalURL, ownerID)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No links found for this URL"})
				return
			}
			log.Printf("Error searching links: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		resp := SearchLinksResponse{ShortLinks: make([]string, 0, len(links))}
		for _, l := range links {
			resp.ShortLinks = append(resp.ShortLinks, shortLink(cfg, l.Alias))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ListMyLinksHandler returns every live link of the authenticated caller as
// a short-link to target mapping.
func ListMyLinksHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := middleware.CallerOwnerID(c)

		owned, err := linkService.ListOwned(c.Request.Context(), ownerID)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "You have no links yet"})
				return
			}
			log.Printf("Error listing links: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		resp := make(map[string]string, len(owned))
		for alias, target := range owned {
			resp[shortLink(cfg, alias)] = target
		}
		c.JSON(http.StatusOK, resp)
	}
}

// DeleteLinkHandler deletes a link owned by the caller. Deleting someone
// else's link is an explicit 403, never a silent no-op.
func DeleteLinkHandler(linkService *services.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		alias := c.Param("shortCode")
		ownerID := middleware.CallerOwnerID(c)

		if err := linkService.DeleteLink(c.Request.Context(), alias, ownerID); err != nil {
			var notFound *apperrors.ErrLinkNotFound
			var forbidden *apperrors.ErrForbidden
			switch {
			case errors.As(err, &notFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Short link not found"})
			case errors.As(err, &forbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this link"})
			default:
				log.Printf("Error deleting link '%s': %v", alias, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
	}
}

// UpdateLinkRequest is the body of PUT /links/:shortCode.
type UpdateLinkRequest struct {
	NewAlias  string `json:"new_alias"`
	ExpiresAt string `json:"expires_at"` // DD.MM.YYYY HH:MM
}

// UpdateLinkHandler renames a link and/or changes its expiry. With no
// new_alias a fresh one is generated.
func UpdateLinkHandler(linkService *services.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		alias := c.Param("shortCode")
		ownerID := middleware.CallerOwnerID(c)

		var req UpdateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		link, err := linkService.UpdateLink(c.Request.Context(), alias, req.NewAlias, req.ExpiresAt, ownerID)
		if err != nil {
			var forbidden *apperrors.ErrForbidden
			var aliasTaken *apperrors.ErrAliasTaken
			var invalidExpiry *apperrors.ErrInvalidExpiry
			var exhausted *apperrors.ErrAliasExhausted
			switch {
			case errors.As(err, &forbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this link"})
			case errors.As(err, &aliasTaken):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.As(err, &exhausted):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.As(err, &invalidExpiry):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Printf("Error updating link '%s': %v", alias, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.JSON(http.StatusOK, ShortenLinkResponse{
			Message:   "Link updated",
			ShortLink: shortLink(cfg, link.Alias),
		})
	}
}
