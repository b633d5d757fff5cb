package period

import (
	"errors"
	"strings"
	"time"
)

// ISODate is the wire format for period boundaries (no time component).
const ISODate = "2006-01-02"

// Period is an inclusive date window carried as ISO date strings.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Set holds the three windows every comparison endpoint works with.
type Set struct {
	Current     Period `json:"current"`
	LastMonth   Period `json:"last_month"`
	LastQuarter Period `json:"last_quarter"`
}

// ShortPeriodCutoffDays separates the two legacy chaining rules: windows
// shorter than this touch the current window, longer ones leave a one-day
// gap. Both rules are kept intentionally; callers that change this must
// update the boundary regression tests.
const ShortPeriodCutoffDays = 60

var ErrInvalidPeriod = errors.New("invalid_period")

// Parse validates an ISO date string and returns its UTC midnight instant.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(ISODate, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrInvalidPeriod
	}
	return t.UTC(), nil
}

// Resolve computes the current, last-month and last-quarter windows for a
// period length in days. When current is nil the current window ends today.
// Negative lengths are treated as already-computed day counts.
func Resolve(current *Period, periodDays int, today time.Time) Set {
	today = dayUTC(today)

	cur := Period{
		From: today.AddDate(0, 0, -periodDays).Format(ISODate),
		To:   today.Format(ISODate),
	}
	if current != nil {
		cur = *current
	}

	curFrom, err := Parse(cur.From)
	if err != nil {
		curFrom = today.AddDate(0, 0, -periodDays)
		cur.From = curFrom.Format(ISODate)
	}

	if periodDays >= ShortPeriodCutoffDays {
		// Gapped rule: both windows end the day before the current window.
		anchor := curFrom.AddDate(0, 0, -1)
		return Set{
			Current:     cur,
			LastMonth:   windowEndingAt(anchor, 30),
			LastQuarter: windowEndingAt(anchor, 90),
		}
	}

	// Touching rule: both windows end exactly at the current window start.
	return Set{
		Current: cur,
		LastMonth: Period{
			From: curFrom.AddDate(0, 0, -30).Format(ISODate),
			To:   cur.From,
		},
		LastQuarter: Period{
			From: curFrom.AddDate(0, 0, -90).Format(ISODate),
			To:   cur.From,
		},
	}
}

// ExtendedRange is the superset window fetched once to cover all three
// periods: [today - periodDays - 90, today]. It always anchors at today,
// ignoring any explicit current-period override.
func ExtendedRange(periodDays int, today time.Time) Period {
	today = dayUTC(today)
	return Period{
		From: today.AddDate(0, 0, -periodDays-90).Format(ISODate),
		To:   today.Format(ISODate),
	}
}

// Contains reports whether the ISO date falls inside the window. ISO date
// strings compare lexicographically in calendar order, so no parsing is
// needed; timestamps are truncated to their date prefix first.
func (p Period) Contains(date string) bool {
	date = strings.TrimSpace(date)
	if len(date) > len(ISODate) {
		date = date[:len(ISODate)]
	}
	if date == "" {
		return false
	}
	return date >= p.From && date <= p.To
}

// Filter slices rows to those whose date falls inside the window. Used to
// split one extended-range fetch into per-period subsets client-side.
func Filter[T any](rows []T, dateOf func(T) string, p Period) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if p.Contains(dateOf(row)) {
			out = append(out, row)
		}
	}
	return out
}

func windowEndingAt(end time.Time, days int) Period {
	return Period{
		From: end.AddDate(0, 0, -(days - 1)).Format(ISODate),
		To:   end.Format(ISODate),
	}
}

func dayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
