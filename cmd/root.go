package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/nkrasnikov/tinyurl/internal/config"
)

// Cfg holds the configuration loaded once before any subcommand runs.
var Cfg *config.Config

// RootCmd is the base command of the tinyurl binary.
var RootCmd = &cobra.Command{
	Use:   "tinyurl",
	Short: "tinyurl is a URL-shortening service with user accounts.",
	Long: `tinyurl maps long URLs to short aliases, redirects visitors to the
target, tracks usage statistics and scopes links to their owners.

Run 'tinyurl run-server' to start the HTTP service, or use the
create/stats/migrate subcommands for one-off operations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("FATAL: Could not load configuration: %v", err)
		}
		Cfg = cfg
	},
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
