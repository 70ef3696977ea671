package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/nkrasnikov/tinyurl/cmd"
	"github.com/nkrasnikov/tinyurl/internal/api"
	"github.com/nkrasnikov/tinyurl/internal/cache"
	"github.com/nkrasnikov/tinyurl/internal/middleware"
	"github.com/nkrasnikov/tinyurl/internal/repository"
	"github.com/nkrasnikov/tinyurl/internal/services"
	"github.com/nkrasnikov/tinyurl/internal/workers"
)

// RunServerCmd starts the HTTP service together with the expiry sweeper.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the tinyurl HTTP server and the expiry sweeper.",
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg := cmd.Cfg
		if cfg == nil {
			log.Fatalf("FATAL: Configuration was not loaded.")
		}

		// TranslateError makes unique-constraint violations surface as
		// gorm.ErrDuplicatedKey, the collision signal the services rely on.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("FATAL: Could not connect to the database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("FATAL: Could not obtain the underlying SQL database: %v", err)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Warning: error closing the database connection: %v", err)
			}
		}()

		userRepo := repository.NewUserRepository(db)

		// The anonymous owner row is seeded explicitly at startup so that
		// anonymously created links always have a valid owner.
		if err := userRepo.EnsureAnonymousUser(context.Background()); err != nil {
			log.Fatalf("FATAL: Could not seed the anonymous user: %v", err)
		}

		var linkRepo repository.LinkRepository = repository.NewLinkRepository(db)
		if cfg.Cache.Enabled {
			cached, err := cache.NewCachedLinkRepository(linkRepo, cfg.Cache.TTL())
			if err != nil {
				log.Fatalf("FATAL: Could not initialize the link cache: %v", err)
			}
			linkRepo = cached
			log.Printf("Link cache enabled, TTL %s", cfg.Cache.TTL())
		}

		linkService := services.NewLinkService(linkRepo, services.NewRandomAliasGenerator())
		authService := services.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

		// The sweeper runs on its own schedule, independent of request
		// handling; deletes are idempotent so no coordination is needed.
		sweeperCtx, stopSweeper := context.WithCancel(context.Background())
		defer stopSweeper()
		sweeper := workers.NewExpirySweeper(linkRepo, cfg.Sweeper.Interval(), cfg.Sweeper.MaxRetries, cfg.Sweeper.RetryDelay())
		go sweeper.Run(sweeperCtx)

		router := gin.Default()
		if cfg.RateLimiter.Enabled {
			limiter := middleware.NewIPRateLimiter(cfg.RateLimiter.MaxRequests, cfg.RateLimiter.WindowMinutes)
			router.Use(limiter.Middleware())
			log.Printf("Rate limiter enabled: %d requests per %d minute(s)", cfg.RateLimiter.MaxRequests, cfg.RateLimiter.WindowMinutes)
		}
		api.SetupRoutes(router, linkService, authService, cfg)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		go func() {
			log.Printf("Server started on port %d", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("FATAL: Server error: %v", err)
			}
		}()

		// Block until SIGINT/SIGTERM, then drain in-flight requests.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received, stopping...")

		stopSweeper()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("FATAL: Forced shutdown: %v", err)
		}
		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
