// Package stats turns raw vote and issue rows into the aggregates the
// admin dashboard renders: period-filtered averages, per-team and
// per-employee rankings, staff insight lists and issue triage counts.
// Everything here is pure; callers fetch the rows.
package stats

import "time"

// Period is the symbolic time-window filter of the dashboard.
type Period string

const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	PeriodAll    Period = "all"
)

// ParsePeriod maps a query parameter to a Period. Unknown or empty
// values silently fall back to 30 days, they never error.
func ParsePeriod(raw string) Period {
	switch Period(raw) {
	case Period7Days, Period30Days, PeriodAll:
		return Period(raw)
	default:
		return Period30Days
	}
}

// Window carries every cutoff of one dashboard render, computed from a
// single "now" so the independent queries can't skew against each other.
type Window struct {
	Now time.Time
	// PeriodStart is the inclusive lower bound of the selected period,
	// nil for "all".
	PeriodStart *time.Time
	// SevenDaysAgo is always computed regardless of the selected period;
	// the trend indicators stay period-filter-independent.
	SevenDaysAgo time.Time
}

// NewWindow resolves a period at the given instant. Cutoffs use
// wall-clock day subtraction, so around DST transitions they can drift
// from an exact 24h multiple by up to an hour. Accepted imprecision.
func NewWindow(period Period, now time.Time) Window {
	w := Window{
		Now:          now,
		SevenDaysAgo: now.AddDate(0, 0, -7),
	}

	switch period {
	case Period7Days:
		start := now.AddDate(0, 0, -7)
		w.PeriodStart = &start
	case Period30Days:
		start := now.AddDate(0, 0, -30)
		w.PeriodStart = &start
	case PeriodAll:
		// no lower bound
	}

	return w
}
