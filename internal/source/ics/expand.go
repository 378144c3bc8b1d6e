package ics

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/hearthdash/hearth/internal/model"
)

// A very large recurrence should never blow up a dashboard render.
const maxOccurrences = 1000

// parsedEvent is one VEVENT before recurrence expansion.
type parsedEvent struct {
	uid         string
	summary     string
	location    string
	description string
	start       time.Time
	end         time.Time
	allDay      bool
	rawRRule    string
	exDates     []time.Time
	recurrence  *time.Time
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (parsedEvent, error) {
	var out parsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing DTSTART")
	}
	out.start = start

	// DTSTART with VALUE=DATE or without a time component marks an all-day
	// event. DTEND is then exclusive per RFC 5545.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.allDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.allDay = true
		}
		if out.allDay {
			// Re-parse the bare date in the display zone so midnight lands
			// on the right day regardless of the library's UTC default.
			if t, perr := time.ParseInLocation("20060102", p.Value, loc); perr == nil {
				out.start = t
			}
		}
	}

	end, err := ve.GetEndAt()
	if err != nil {
		// No DTEND: all-day events span one day, timed events are points.
		if out.allDay {
			end = out.start.AddDate(0, 0, 1)
		} else {
			end = out.start
		}
	}
	out.end = end
	if out.allDay {
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if t, perr := time.ParseInLocation("20060102", p.Value, loc); perr == nil {
				out.end = t
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parsePropertyTime(strings.TrimSpace(part), loc); err == nil {
				out.exDates = append(out.exDates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parsePropertyTime(p.Value, loc); err == nil {
			out.recurrence = &t
		}
	}

	return out, nil
}

func parsePropertyTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// expand turns parsed VEVENTs into raw events overlapping [rangeStart,
// rangeEnd). RRULEs are expanded bounded to the range, EXDATEs removed, and
// RECURRENCE-ID overrides replace the matching occurrence.
func expand(events []parsedEvent, rangeStart, rangeEnd time.Time, loc *time.Location) []model.RawEvent {
	overrides := make(map[string][]parsedEvent)
	for _, ev := range events {
		if ev.recurrence != nil {
			overrides[ev.uid] = append(overrides[ev.uid], ev)
		}
	}

	var out []model.RawEvent
	for _, ev := range events {
		if ev.recurrence != nil {
			continue
		}
		if ev.rawRRule == "" {
			if ev.end.After(rangeStart) && ev.start.Before(rangeEnd) {
				out = append(out, toRawEvent(ev, ev.start, ev.end, loc))
			}
			continue
		}
		out = append(out, expandRecurring(ev, overrides[ev.uid], rangeStart, rangeEnd, loc)...)
	}
	return out
}

func expandRecurring(ev parsedEvent, overrides []parsedEvent, rangeStart, rangeEnd time.Time, loc *time.Location) []model.RawEvent {
	r, err := rrule.StrToRRule(ev.rawRRule)
	if err != nil {
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	// Pull occurrences starting one event-length early so instances that
	// began before the range but still overlap it are kept.
	dur := ev.end.Sub(ev.start)
	times := set.Between(rangeStart.Add(-dur).In(ev.start.Location()), rangeEnd.In(ev.start.Location()), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}

	var out []model.RawEvent
	for _, occStart := range times {
		occEnd := occStart.Add(dur)
		if !occEnd.After(rangeStart) || !occStart.Before(rangeEnd) {
			continue
		}
		src := ev
		if o, ok := matchOverride(overrides, occStart); ok {
			src = o
			occStart, occEnd = o.start, o.end
		}
		out = append(out, toRawEvent(src, occStart, occEnd, loc))
	}
	return out
}

func matchOverride(overrides []parsedEvent, occStart time.Time) (parsedEvent, bool) {
	for _, ov := range overrides {
		if ov.recurrence != nil && ov.recurrence.In(occStart.Location()).Equal(occStart) {
			return ov, true
		}
	}
	return parsedEvent{}, false
}

func toRawEvent(ev parsedEvent, start, end time.Time, loc *time.Location) model.RawEvent {
	var startI, endI model.Instant
	if ev.allDay {
		startI = model.OnDay(start.In(loc))
		endI = model.OnDay(end.In(loc))
	} else {
		startI = model.At(start.In(loc))
		endI = model.At(end.In(loc))
	}
	return model.RawEvent{
		UID:         ev.uid,
		Summary:     ev.summary,
		Start:       startI,
		End:         endI,
		Location:    ev.location,
		Description: ev.description,
	}
}
