package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Instant is a point in time that is either timed (full date+time+offset)
// or date-only (whole-day granularity). Calendar sources deliver both kinds
// and the distinction matters everywhere downstream: date-only ends are
// exclusive day boundaries, timed ends are exact.
type Instant struct {
	Time     time.Time
	DateOnly bool
}

// At returns a timed Instant.
func At(t time.Time) Instant {
	return Instant{Time: t}
}

// OnDay returns a date-only Instant for the calendar day containing t.
func OnDay(t time.Time) Instant {
	return Instant{Time: StartOfDay(t), DateOnly: true}
}

// ParseInstant accepts either a bare date ("2006-01-02") or an RFC 3339
// timestamp. Bare dates produce date-only instants in the given location.
func ParseInstant(s string, loc *time.Location) (Instant, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(dayLayout) {
		t, err := time.ParseInLocation(dayLayout, s, loc)
		if err != nil {
			return Instant{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return Instant{Time: t, DateOnly: true}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Instant{}, fmt.Errorf("parse instant %q: %w", s, err)
	}
	return Instant{Time: t.In(loc)}, nil
}

// Day returns midnight of the calendar day containing the instant, in the
// instant's own location.
func (i Instant) Day() time.Time {
	return StartOfDay(i.Time)
}

func (i Instant) IsZero() bool {
	return i.Time.IsZero()
}

func (i Instant) Before(other Instant) bool {
	return i.Time.Before(other.Time)
}

func (i Instant) After(other Instant) bool {
	return i.Time.After(other.Time)
}

// String renders the wire form: bare date for date-only instants, RFC 3339
// otherwise.
func (i Instant) String() string {
	if i.DateOnly {
		return i.Time.Format(dayLayout)
	}
	return i.Time.Format(time.RFC3339)
}

func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseInstant(s, time.Local)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// StartOfDay returns midnight of the day containing t, preserving location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
