package ics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hearthdash/hearth/internal/source"
)

const sampleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:single-1
SUMMARY:Dentist
DTSTART:20240315T093000Z
DTEND:20240315T100000Z
LOCATION:Town
END:VEVENT
BEGIN:VEVENT
UID:allday-1
SUMMARY:Camp
DTSTART;VALUE=DATE:20240316
DTEND;VALUE=DATE:20240318
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Swim practice
DTSTART:20240304T170000Z
DTEND:20240304T180000Z
RRULE:FREQ=WEEKLY;BYDAY=MO
EXDATE:20240318T170000Z
END:VEVENT
END:VCALENDAR
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveFeed(t *testing.T, handler http.HandlerFunc) *Feed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(map[string]string{"family": srv.URL}, time.UTC, testLogger())
}

func TestEventsExpandsFeed(t *testing.T) {
	f := serveFeed(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleFeed)
	})

	start := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)
	events, err := f.Events(context.Background(), "family", start, end)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}

	byUID := map[string]int{}
	for _, ev := range events {
		byUID[ev.UID]++
	}
	if byUID["single-1"] != 1 {
		t.Errorf("single event count = %d, want 1", byUID["single-1"])
	}
	if byUID["allday-1"] != 1 {
		t.Errorf("all-day event count = %d, want 1", byUID["allday-1"])
	}
	// Mondays in range: Mar 11, 18, 25(excluded by range end), with Mar 18
	// removed by EXDATE.
	if byUID["weekly-1"] != 1 {
		t.Errorf("weekly event count = %d, want 1", byUID["weekly-1"])
	}

	for _, ev := range events {
		if ev.UID == "allday-1" {
			if !ev.Start.DateOnly || !ev.End.DateOnly {
				t.Errorf("all-day event should carry date-only instants: %+v", ev)
			}
			if got := ev.End.Day().Format("2006-01-02"); got != "2024-03-18" {
				t.Errorf("all-day end = %q, want exclusive 2024-03-18", got)
			}
		}
	}
}

func TestEventsRecurrenceBounded(t *testing.T) {
	f := serveFeed(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleFeed)
	})

	// A window covering four Mondays, one removed by EXDATE.
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	events, err := f.Events(context.Background(), "family", start, end)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}

	var weekly int
	for _, ev := range events {
		if ev.UID == "weekly-1" {
			weekly++
			if ev.Summary != "Swim practice" {
				t.Errorf("summary = %q", ev.Summary)
			}
			if d := ev.End.Time.Sub(ev.Start.Time); d != time.Hour {
				t.Errorf("occurrence duration = %v, want 1h", d)
			}
		}
	}
	if weekly != 3 {
		t.Errorf("weekly occurrences = %d, want 3", weekly)
	}
}

func TestEventsServesCacheOn304(t *testing.T) {
	var requests int
	f := serveFeed(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		io.WriteString(w, sampleFeed)
	})

	start := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

	first, err := f.Events(context.Background(), "family", start, end)
	if err != nil {
		t.Fatalf("first fetch error = %v", err)
	}
	second, err := f.Events(context.Background(), "family", start, end)
	if err != nil {
		t.Fatalf("second fetch error = %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	if len(first) != len(second) {
		t.Errorf("cached result differs: %d vs %d events", len(first), len(second))
	}
}

func TestEventsUnknownSource(t *testing.T) {
	f := New(map[string]string{}, time.UTC, testLogger())
	_, err := f.Events(context.Background(), "nope", time.Now(), time.Now())
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestEventsServerErrorWrapsUnavailable(t *testing.T) {
	f := serveFeed(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	})
	_, err := f.Events(context.Background(), "family", time.Now(), time.Now())
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}
