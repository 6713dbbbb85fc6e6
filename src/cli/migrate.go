package cli

import (
	"log"

	"fintrack-server/src/backend"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := backend.Migrate(cfg); err != nil {
				return err
			}
			log.Printf("INFO: Migrations applied for %s backend", cfg.DataBackend)
			return nil
		},
	}
}
