package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ternarybob/sellersync/internal/models"
)

type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	t.row(headers...)
	return t
}

func (t *table) row(cells ...string) {
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) flush() error {
	return t.w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// printReport prints one line per profile then the settlement months of each success
func printReport(out io.Writer, report *models.BatchReport) error {
	fmt.Fprintf(out, "Run %s (%s) %s\n", report.RunID, report.Trigger, report.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "%d profiles: %d ok, %d failed, %d skipped\n\n",
		report.Total, report.Succeeded, report.Failed, report.Skipped)

	t := newTable(out, "PROFILE", "STATUS", "ATTEMPTS", "ON HOLD", "TOTAL PAID", "LAST PAID", "MESSAGE")
	for _, r := range report.Results {
		onHold, totalPaid, lastPaid := "", "", ""
		if r.Report != nil {
			onHold = r.Report.OnHold
			totalPaid = r.Report.Payments.TotalPaid
			lastPaid = strings.TrimSpace(r.Report.Payments.LastPaidAmount + " " + r.Report.Payments.LastPaidAt)
		}
		t.row(r.ProfileID, r.Status(), fmt.Sprint(r.Attempts), onHold, totalPaid, lastPaid, r.Message)
	}
	if err := t.flush(); err != nil {
		return err
	}

	for _, r := range report.Results {
		if r.Report == nil || len(r.Report.Months) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s settlements\n", r.ProfileID)
		months := newTable(out, "MONTH", "AMOUNT")
		for _, m := range r.Report.Months {
			amount := m.Amount
			if m.Failed() {
				amount = models.ValueError
			}
			months.row(m.Label, amount)
		}
		if err := months.flush(); err != nil {
			return err
		}
	}
	return nil
}
