package calendar

import (
	"sort"
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// AgendaKind distinguishes the two transition entries an event can produce
// in the agenda feed.
type AgendaKind string

const (
	AgendaStart AgendaKind = "start"
	AgendaEnd   AgendaKind = "end"
)

// AgendaEntry is a single row of the agenda feed: an event starting (or, for
// multi-day events, finishing) at a particular instant inside the window.
type AgendaEntry struct {
	Kind   AgendaKind     `json:"kind"`
	When   time.Time      `json:"when"`
	AllDay bool           `json:"all_day"`
	Event  model.RawEvent `json:"event"`
}

// ProjectAgenda turns the merged event set into an ordered feed of start and
// end transitions within the agenda window.
//
// Every overlapping event contributes a start entry at max(start, window
// start) when that instant falls inside the window. Multi-day events also
// contribute an end entry, marking where a multi-day span finishes, when
// the end instant is inside the window. Instants outside the window never
// appear, even when the owning event straddles a boundary. The sort is
// stable, so entries sharing an instant keep the original event order.
func ProjectAgenda(events []model.RawEvent, window model.ViewWindow) []AgendaEntry {
	var entries []AgendaEntry
	for _, ev := range events {
		if !agendaOverlaps(ev, window) {
			continue
		}

		start := ev.Start.Time
		if start.Before(window.Start) {
			start = window.Start
		}
		if window.Contains(start) {
			entries = append(entries, AgendaEntry{
				Kind:   AgendaStart,
				When:   start,
				AllDay: ev.AllDay(),
				Event:  ev,
			})
		}

		if !model.SameDay(ev.Start.Time, ev.End.Time) && window.Contains(ev.End.Time) {
			entries = append(entries, AgendaEntry{
				Kind:   AgendaEnd,
				When:   ev.End.Time,
				AllDay: ev.AllDay(),
				Event:  ev,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].When.Before(entries[j].When)
	})
	return entries
}

// agendaOverlaps applies the half-open overlap test, with one carve-out: a
// zero-length event (equal date-only start and end marks a single-day all-day
// event) has no interior to overlap with, so it counts when its instant sits
// inside the window.
func agendaOverlaps(ev model.RawEvent, window model.ViewWindow) bool {
	if ev.Start.Time.Equal(ev.End.Time) {
		return window.Contains(ev.Start.Time)
	}
	return ev.Start.Time.Before(window.End) && ev.End.Time.After(window.Start)
}
