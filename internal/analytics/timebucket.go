package analytics

import (
	"time"
)

// seriesMonths is the fixed length of the monthly series views.
const seriesMonths = 12

// monthLabel formats a time as the "YYYY-MM" bucket label.
func monthLabel(t time.Time) string {
	return t.Format("2006-01")
}

// windowStart returns the first day of the earliest month in the trailing
// twelve-month window, so the series ends at the current calendar month.
func windowStart(now time.Time) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, -(seriesMonths - 1), 0)
}

// fillMonths turns sparse grouped results into a dense, chronologically
// ascending series of exactly seriesMonths entries. Months missing from
// present are filled with zero(label). The metric shape is up to the caller,
// which is what lets the monthly-spending and income-vs-expense views share
// this.
func fillMonths[T any](start time.Time, present map[string]T, zero func(label string) T) []T {
	out := make([]T, 0, seriesMonths)
	for i := 0; i < seriesMonths; i++ {
		label := monthLabel(start.AddDate(0, i, 0))
		if v, ok := present[label]; ok {
			out = append(out, v)
		} else {
			out = append(out, zero(label))
		}
	}
	return out
}
