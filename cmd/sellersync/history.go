package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show stored batch runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()

		if len(args) == 1 {
			report, err := application.RunService.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		}

		reports, err := application.RunService.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
			return nil
		}

		out := newTable(cmd.OutOrStdout(), "RUN", "STARTED", "TRIGGER", "TOTAL", "OK", "FAILED", "SKIPPED", "DURATION")
		for _, r := range reports {
			out.row(
				r.RunID,
				r.StartedAt.Local().Format(time.DateTime),
				r.Trigger,
				fmt.Sprint(r.Total),
				fmt.Sprint(r.Succeeded),
				fmt.Sprint(r.Failed),
				fmt.Sprint(r.Skipped),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			)
		}
		return out.flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}
