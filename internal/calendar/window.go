// Package calendar holds the pure view math for the dashboard: resolving
// view-aligned date windows, splitting events into per-day fragments,
// projecting the agenda feed, and placing timed fragments on the day grid.
package calendar

import (
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// DefaultHorizonDays is the agenda lookahead when the config does not
// override it.
const DefaultHorizonDays = 30

// Resolve computes the half-open [start, end) window for a view mode.
//
// Month, week and day windows pivot around reference. The agenda window
// deliberately ignores reference and anchors to now: it is a lookahead feed
// from today, not a view around an arbitrary date.
func Resolve(reference time.Time, mode model.ViewMode, now time.Time, horizonDays int) model.ViewWindow {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	var start, end time.Time
	switch mode {
	case model.ModeWeek:
		start = startOfWeek(reference)
		end = start.AddDate(0, 0, 7)
	case model.ModeDay:
		start = model.StartOfDay(reference)
		end = start.AddDate(0, 0, 1)
	case model.ModeAgenda:
		start = model.StartOfDay(now)
		end = start.AddDate(0, 0, horizonDays)
	default: // month
		firstOfMonth := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, reference.Location())
		lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
		start = startOfWeek(firstOfMonth)
		// Sunday on/after the last day, then one more day for the
		// exclusive bound. The span is always a multiple of 7 days.
		end = startOfWeek(lastOfMonth).AddDate(0, 0, 7)
	}

	return model.ViewWindow{Mode: mode, Start: start, End: end}
}

// MonthLeadingPad returns how many cells precede day 1 of reference's month
// in a Monday-first grid. A month starting on Monday pads zero cells.
func MonthLeadingPad(reference time.Time) int {
	first := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, reference.Location())
	return mondayOffset(first)
}

// startOfWeek returns Monday 00:00 of the week containing t.
// Weekday numbering treats Sunday as 0, so the shift is (weekday+6)%7.
func startOfWeek(t time.Time) time.Time {
	day := model.StartOfDay(t)
	return day.AddDate(0, 0, -mondayOffset(day))
}

func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
