package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementMonths_CountAndBoundaries(t *testing.T) {
	loc := reportingZone(-8)
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, loc)

	windows := settlementMonths(now, loc)

	require.Len(t, windows, 12+3)

	first := windows[0]
	assert.Equal(t, "2024-01", first.Label)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc), first.Start)
	assert.Equal(t, time.Date(2024, time.January, 31, 23, 59, 59, 0, loc), first.End)

	feb := windows[1]
	assert.Equal(t, "2024-02", feb.Label)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, loc), feb.End)

	last := windows[len(windows)-1]
	assert.Equal(t, "2025-03", last.Label)
	assert.Equal(t, time.Date(2025, time.March, 31, 23, 59, 59, 0, loc), last.End)

	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End.Add(time.Second), windows[i].Start, "windows are contiguous")
	}
}

func TestSettlementMonths_UsesReportingZone(t *testing.T) {
	loc := reportingZone(-8)
	// 03:00 UTC on New Year's Day is still the previous year in UTC-8
	now := time.Date(2025, time.January, 1, 3, 0, 0, 0, time.UTC)

	windows := settlementMonths(now, loc)

	require.Len(t, windows, 24)
	assert.Equal(t, "2023-01", windows[0].Label)
	assert.Equal(t, "2024-12", windows[23].Label)
	assert.Equal(t, int64(1672560000), windows[0].Start.Unix(), "2023-01-01T08:00:00Z")
}

func TestSettlementMonths_December(t *testing.T) {
	loc := reportingZone(-8)
	windows := settlementMonths(time.Date(2024, time.December, 31, 23, 0, 0, 0, loc), loc)
	assert.Len(t, windows, 24)
}

func TestReportingZone(t *testing.T) {
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, reportingZone(-8)).Zone()
	assert.Equal(t, -8*3600, offset)
	assert.Equal(t, "UTC-8", reportingZone(-8).String())
	assert.Equal(t, "UTC", reportingZone(0).String())
}
