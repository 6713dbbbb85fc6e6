// Package cli holds the fintrack commands.
package cli

import (
	"context"

	"fintrack-server/src/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v   = viper.New()
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:               "fintrack",
		Short:             "Personal finance tracker API",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("backend", "", "data backend (postgres, sqlite, memory)")
	_ = v.BindPFlag("data_backend", rootCmd.PersistentFlags().Lookup("backend"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(mailerCmd())
}

// Execute runs the command line until ctx is cancelled or the command
// returns.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}
