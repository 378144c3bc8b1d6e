package calendar

import (
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// FragmentEvents splits every event intersecting the window into per-day
// fragments. A same-day event produces exactly one fragment that keeps its
// timed start and end for grid placement. A multi-day event produces one
// all-day fragment per occupied calendar day inside the window; the first
// occupied day is the non-continuation fragment and every later day is a
// continuation bar.
//
// End instants are exclusive day boundaries: a date-only end, or a timed end
// landing exactly on midnight, does not occupy its own day.
func FragmentEvents(events []model.RawEvent, window model.ViewWindow) []model.Fragment {
	var fragments []model.Fragment
	for _, ev := range events {
		fragments = append(fragments, fragmentOne(ev, window)...)
	}
	return fragments
}

func fragmentOne(ev model.RawEvent, window model.ViewWindow) []model.Fragment {
	first := ev.Start.Day()
	last := lastOccupiedDay(ev)
	if last.Before(first) {
		// Degenerate zero-length all-day event; still occupies its start day.
		last = first
	}

	if first.Equal(last) {
		if !window.Contains(first) {
			return nil
		}
		frag := baseFragment(ev, first)
		frag.AllDay = ev.AllDay()
		return []model.Fragment{frag}
	}

	// Walk only the days inside the window; a span reaching far past either
	// edge must not cost one iteration per occupied day. The continuation
	// flag still derives from the true first occupied day, so a bar entering
	// the window from the left renders as a continuation.
	walk, stop := first, last
	continuation := false
	if walk.Before(window.Start) {
		walk = window.Start
		continuation = true
	}
	if !stop.Before(window.End) {
		stop = window.End.AddDate(0, 0, -1)
	}

	var out []model.Fragment
	for day := walk; !day.After(stop); day = day.AddDate(0, 0, 1) {
		if window.Contains(day) {
			frag := baseFragment(ev, day)
			frag.AllDay = true
			frag.Continuation = continuation
			out = append(out, frag)
		}
		continuation = true
	}
	return out
}

func baseFragment(ev model.RawEvent, day time.Time) model.Fragment {
	return model.Fragment{
		EventUID:    ev.UID,
		Day:         day,
		Start:       ev.Start,
		End:         ev.End,
		Summary:     ev.Summary,
		Color:       ev.Color,
		SourceID:    ev.SourceID,
		SourceName:  ev.SourceName,
		Location:    ev.Location,
		Description: ev.Description,
	}
}

// lastOccupiedDay applies the exclusive-end convention.
func lastOccupiedDay(ev model.RawEvent) time.Time {
	endDay := ev.End.Day()
	if ev.End.DateOnly || ev.End.Time.Equal(endDay) {
		return endDay.AddDate(0, 0, -1)
	}
	return endDay
}
