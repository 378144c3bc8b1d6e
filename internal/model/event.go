package model

import "time"

// RawEvent is a calendar event as delivered by a source, tagged with the
// source's identity by the aggregator before merging. Start <= End always;
// a date-only event with Start == End is a single-day all-day event, and a
// date-only End greater than Start is an exclusive day boundary.
type RawEvent struct {
	UID         string  `json:"uid"`
	SourceID    string  `json:"source_id"`
	SourceName  string  `json:"source_name"`
	Color       string  `json:"color"`
	Summary     string  `json:"summary"`
	Start       Instant `json:"start"`
	End         Instant `json:"end"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description,omitempty"`
}

// AllDay reports whether the event has whole-day granularity.
func (e RawEvent) AllDay() bool {
	return e.Start.DateOnly
}

// Fragment is a per-calendar-day projection of a RawEvent. A same-day event
// yields exactly one fragment carrying its timed start/end; a multi-day event
// yields one all-day fragment per occupied day, the first of which has
// Continuation == false.
type Fragment struct {
	EventUID     string    `json:"event_uid"`
	Day          time.Time `json:"day"`
	AllDay       bool      `json:"all_day"`
	Continuation bool      `json:"continuation"`
	Start        Instant   `json:"start"`
	End          Instant   `json:"end"`
	Summary      string    `json:"summary"`
	Color        string    `json:"color"`
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// ViewMode selects which calendar view a window is resolved for.
type ViewMode string

const (
	ModeMonth  ViewMode = "month"
	ModeWeek   ViewMode = "week"
	ModeDay    ViewMode = "day"
	ModeAgenda ViewMode = "agenda"
)

// ParseViewMode maps a request string onto a ViewMode, defaulting to month.
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ModeWeek, ModeDay, ModeAgenda:
		return ViewMode(s)
	default:
		return ModeMonth
	}
}

// ViewWindow is the half-open [Start, End) instant range a view renders.
// Derived state, never persisted.
type ViewWindow struct {
	Mode  ViewMode  `json:"mode"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of whole calendar days the window spans.
func (w ViewWindow) Days() int {
	return int(w.End.Sub(w.Start) / (24 * time.Hour))
}

// Contains reports whether t falls inside the window.
func (w ViewWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
