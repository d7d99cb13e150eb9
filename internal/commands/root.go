package commands

import (
	"github.com/cardcycle/backend/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "cardcycle",
		Short: "Billing cycle engine for linked credit accounts",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", ".env", "config file (.env or YAML)")

	opts := func() appOptions {
		return appOptions{viper: viper.New(), configFile: configFile, log: logger.New()}
	}

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newRepairCommand(opts))
	rootCmd.AddCommand(newSyncCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))

	return rootCmd
}
