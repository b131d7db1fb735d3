package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, Period7Days, ParsePeriod("7d"))
	assert.Equal(t, Period30Days, ParsePeriod("30d"))
	assert.Equal(t, PeriodAll, ParsePeriod("all"))

	// Unknown and empty values fall back to 30 days without erroring
	assert.Equal(t, Period30Days, ParsePeriod(""))
	assert.Equal(t, Period30Days, ParsePeriod("90d"))
	assert.Equal(t, Period30Days, ParsePeriod("ALL"))
}

func TestNewWindowBounds(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	w := NewWindow(Period7Days, now)
	require.NotNil(t, w.PeriodStart)
	assert.Equal(t, now.AddDate(0, 0, -7), *w.PeriodStart)

	w = NewWindow(Period30Days, now)
	require.NotNil(t, w.PeriodStart)
	assert.Equal(t, now.AddDate(0, 0, -30), *w.PeriodStart)

	w = NewWindow(PeriodAll, now)
	assert.Nil(t, w.PeriodStart)
}

func TestNewWindowAlwaysComputesSevenDayCutoff(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// The trend cutoff is independent of the selected period
	for _, period := range []Period{Period7Days, Period30Days, PeriodAll} {
		w := NewWindow(period, now)
		assert.Equal(t, now.AddDate(0, 0, -7), w.SevenDaysAgo)
		assert.Equal(t, now, w.Now)
	}
}

func TestNewWindowAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	// March 30 2025 is the spring-forward Sunday in Rome; a 7 day
	// wall-clock subtraction across it is 7*24h minus one hour.
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, loc)
	w := NewWindow(Period7Days, now)
	require.NotNil(t, w.PeriodStart)

	elapsed := now.Sub(*w.PeriodStart)
	assert.InDelta(t, (7 * 24 * time.Hour).Hours(), elapsed.Hours(), 1.0)
	assert.True(t, w.PeriodStart.Equal(time.Date(2025, 3, 26, 10, 0, 0, 0, loc)))
}
