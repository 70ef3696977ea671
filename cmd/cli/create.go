package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	cmd2 "github.com/nkrasnikov/tinyurl/cmd"
	"github.com/nkrasnikov/tinyurl/internal/models"
	"github.com/nkrasnikov/tinyurl/internal/repository"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

var (
	targetURLFlag string
	aliasFlag     string
	expiresFlag   string
)

// CreateCmd represents the 'create' command.
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short link for a target URL.",
	Long: `This command shortens the given URL and prints the allocated alias.
Links created from the CLI belong to the anonymous owner.

Example:
  tinyurl create --url="https://www.google.com/search?q=go+lang"
  tinyurl create --url="https://example.com" --alias=ex1 --expires="31.12.2026 23:59"`,
	Run: func(cmd *cobra.Command, args []string) {
		if targetURLFlag == "" {
			log.Fatalf("FATAL: The --url flag is required")
		}

		cfg := cmd2.Cfg
		if cfg == nil {
			log.Fatalf("FATAL: Configuration was not loaded.")
		}

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

		linkRepo := repository.NewLinkRepository(db)
		linkService := services.NewLinkService(linkRepo, services.NewRandomAliasGenerator())

		link, err := linkService.CreateLink(context.Background(), targetURLFlag, aliasFlag, expiresFlag, models.AnonymousUserID)
		if err != nil {
			log.Fatalf("FATAL: Could not create the short link: %v", err)
		}

		fmt.Printf("Short link created successfully:\n")
		fmt.Printf("Alias: %s\n", link.Alias)
		fmt.Printf("Full URL: %s/links/%s\n", cfg.Server.BaseURL, link.Alias)
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&targetURLFlag, "url", "u", "", "The long URL to shorten")
	CreateCmd.Flags().StringVarP(&aliasFlag, "alias", "a", "", "Optional custom alias")
	CreateCmd.Flags().StringVarP(&expiresFlag, "expires", "e", "", "Optional expiry date (DD.MM.YYYY HH:MM)")

	CreateCmd.MarkFlagRequired("url")

	cmd2.RootCmd.AddCommand(CreateCmd)
}
