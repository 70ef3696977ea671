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
)

// MigrateCmd represents the 'migrate' command.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Runs the database migrations and seeds the anonymous user.",
	Long: `This command connects to the configured SQLite database, runs the
automatic GORM migrations for the 'users' and 'links' tables and seeds the
sentinel anonymous owner row. Re-running it is a no-op.`,
	Run: func(cmd *cobra.Command, args []string) {
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

		log.Println("Running database migrations...")
		if err := db.AutoMigrate(&models.User{}, &models.Link{}); err != nil {
			log.Fatalf("FATAL: Error running migrations: %v", err)
		}

		userRepo := repository.NewUserRepository(db)
		if err := userRepo.EnsureAnonymousUser(context.Background()); err != nil {
			log.Fatalf("FATAL: Could not seed the anonymous user: %v", err)
		}

		fmt.Println("Database migrations executed successfully.")
	},
}

func init() {
	cmd2.RootCmd.AddCommand(MigrateCmd)
}
