package finance

import (
	"fmt"
	"time"
)

// monthWindow is one calendar month in the reporting timezone.
// End is the last whole second of the month.
type monthWindow struct {
	Label string
	Start time.Time
	End   time.Time
}

// reportingZone returns the fixed-offset zone the target reports in
func reportingZone(offsetHours int) *time.Location {
	name := "UTC"
	if offsetHours != 0 {
		name = fmt.Sprintf("UTC%+d", offsetHours)
	}
	return time.FixedZone(name, offsetHours*3600)
}

// settlementMonths lists every month from January of the previous year through
// the month containing now, in loc
func settlementMonths(now time.Time, loc *time.Location) []monthWindow {
	local := now.In(loc)
	first := time.Date(local.Year()-1, time.January, 1, 0, 0, 0, 0, loc)
	count := 12 + int(local.Month())

	windows := make([]monthWindow, 0, count)
	for i := 0; i < count; i++ {
		start := first.AddDate(0, i, 0)
		windows = append(windows, monthWindow{
			Label: start.Format("2006-01"),
			Start: start,
			End:   start.AddDate(0, 1, 0).Add(-time.Second),
		})
	}
	return windows
}
