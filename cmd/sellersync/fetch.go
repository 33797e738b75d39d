package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/sellersync/internal/services/runs"
)

var fetchJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [profile-id...]",
	Short: "Harvest sessions and fetch finance figures for profiles",
	Long: `Runs a batch: each profile is started, its session harvested and the finance
APIs queried with it. With no arguments every profile known to the profile manager is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		report, err := application.RunService.RunSync(ctx, runs.TriggerCLI, args)
		if err != nil {
			return err
		}

		if fetchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}

		if report.Failed > 0 {
			return fmt.Errorf("%d of %d profiles failed", report.Failed, report.Total)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the full report as JSON")
}
