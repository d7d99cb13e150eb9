package commands

import (
	"encoding/json"
	"io"

	"github.com/cardcycle/backend/internal/config"
	"github.com/cardcycle/backend/internal/database"
	"github.com/cardcycle/backend/internal/models"
	"github.com/spf13/cobra"
)

func newRepairCommand(opts func() appOptions) *cobra.Command {
	var accountID, mode string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Recompute an account's cycles from stored data and apply the diff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.ParseMode(mode)
			if err != nil {
				return err
			}
			a, err := newApp(opts())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.repair.Repair(cmd.Context(), accountID, m)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&mode, "mode", string(config.ModeBackfill), "preview or backfill")

	return cmd
}

func newSyncCommand(opts func() appOptions) *cobra.Command {
	var accountID, mode string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch an account's data from the aggregator, then repair its cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.ParseMode(mode)
			if err != nil {
				return err
			}
			a, err := newApp(opts())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.sync.SyncAccount(cmd.Context(), accountID, m)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&mode, "mode", string(config.ModeBackfill), "preview or backfill")

	return cmd
}

func newMigrateCommand(opts func() appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := database.Migrate(cmd.Context(), a.db); err != nil {
				return err
			}
			a.log.Info().Msg("Schema applied")
			return nil
		},
	}
}

func printReport(w io.Writer, report *models.RepairReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
