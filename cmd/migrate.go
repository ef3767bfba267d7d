package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/config"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cfg)
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Msg("migrate up: ok")
	return nil
}
