package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	cmd2 "github.com/nkrasnikov/tinyurl/cmd"
	apperrors "github.com/nkrasnikov/tinyurl/internal/errors"
	"github.com/nkrasnikov/tinyurl/internal/repository"
	"github.com/nkrasnikov/tinyurl/internal/services"
)

// aliasStatsFlag holds the value of the --code flag.
var aliasStatsFlag string

// StatsCmd represents the 'stats' command.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows the usage statistics of a short link.",
	Long: `This command prints the target URL, the creation date, the number of
redirects and the last-used timestamp of a short link.

Example:
  tinyurl stats --code="xyz123"`,
	Run: func(cmd *cobra.Command, args []string) {
		if aliasStatsFlag == "" {
			log.Fatalf("FATAL: The --code flag is required")
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

		link, err := linkService.GetLinkStats(context.Background(), aliasStatsFlag)
		if err != nil {
			var notFound *apperrors.ErrLinkNotFound
			if errors.As(err, &notFound) {
				log.Fatalf("FATAL: Short link '%s' not found", aliasStatsFlag)
			}
			log.Fatalf("FATAL: Error fetching statistics: %v", err)
		}

		fmt.Printf("Statistics for alias: %s\n", link.Alias)
		fmt.Printf("Target URL: %s\n", link.TargetURL)
		fmt.Printf("Created at: %s\n", link.CreatedAt)
		fmt.Printf("Total redirects: %d\n", link.VisitCount)
		if link.LastUsedAt != nil {
			fmt.Printf("Last used at: %s\n", link.LastUsedAt)
		} else {
			fmt.Println("Last used at: never")
		}
	},
}

func init() {
	StatsCmd.Flags().StringVarP(&aliasStatsFlag, "code", "c", "", "The alias to show statistics for")

	StatsCmd.MarkFlagRequired("code")

	cmd2.RootCmd.AddCommand(StatsCmd)
}
