package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hearthdash/hearth/internal/aggregate"
	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticEvents serves a fixed event set for every source.
type staticEvents struct {
	events []model.RawEvent
}

func (s *staticEvents) Events(ctx context.Context, sourceID string, start, end time.Time) ([]model.RawEvent, error) {
	return s.events, nil
}

// recordingCommander captures CreateEvent calls.
type recordingCommander struct {
	mu     sync.Mutex
	inputs []source.EventInput
	err    error
}

func (c *recordingCommander) CreateEvent(ctx context.Context, sourceID string, input source.EventInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.inputs = append(c.inputs, input)
	return nil
}

// startedAggregator builds an aggregator over the events, starts it on the
// window, and blocks until the first snapshot lands.
func startedAggregator(t *testing.T, events []model.RawEvent, window model.ViewWindow) *aggregate.Aggregator {
	t.Helper()

	updated := make(chan struct{}, 4)
	agg := aggregate.New(
		&staticEvents{events: events},
		[]model.CalendarSource{{ID: "calendar.family", Name: "Family", Color: "#123456", Visible: true}},
		time.Millisecond,
		testLogger(),
		func(aggregate.Snapshot) { updated <- struct{}{} },
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	agg.Start(ctx, window)

	select {
	case <-updated:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first snapshot")
	}
	return agg
}

func fixedClock(h *CalendarHandler, at time.Time) {
	h.now = func() time.Time { return at }
}

func TestCalendarViewMonth(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	window := model.ViewWindow{
		Mode:  model.ModeMonth,
		Start: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	events := []model.RawEvent{
		{
			UID:     "e1",
			Summary: "Dentist",
			Start:   model.At(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)),
			End:     model.At(time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)),
		},
	}
	agg := startedAggregator(t, events, window)

	h := NewCalendarHandler(agg, nil, time.UTC, 30, testLogger())
	fixedClock(h, now)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?mode=month&date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	h.View(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Window    model.ViewWindow `json:"window"`
		Fragments []model.Fragment `json:"fragments"`
		Pad       *int             `json:"leading_pad"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.Window.Start.Format("2006-01-02"); got != "2024-02-26" {
		t.Errorf("window start = %s, want 2024-02-26", got)
	}
	if len(resp.Fragments) != 1 || resp.Fragments[0].EventUID != "e1" {
		t.Errorf("fragments = %+v", resp.Fragments)
	}
	if resp.Pad == nil || *resp.Pad != 4 {
		t.Errorf("leading_pad = %v, want 4 (March 2024 starts on Friday)", resp.Pad)
	}
}

func TestCalendarGridGeometry(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	window := model.ViewWindow{
		Mode:  model.ModeDay,
		Start: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
	}
	events := []model.RawEvent{
		{
			UID:     "e1",
			Summary: "Dentist",
			Start:   model.At(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)),
			End:     model.At(time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)),
		},
		{
			UID:     "e2",
			Summary: "Fair",
			Start:   model.OnDay(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
			End:     model.OnDay(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)),
		},
	}
	agg := startedAggregator(t, events, window)

	h := NewCalendarHandler(agg, nil, time.UTC, 30, testLogger())
	fixedClock(h, now)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/grid?mode=day&date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	h.Grid(rec, req)

	var resp struct {
		Blocks []struct {
			EventUID string `json:"event_uid"`
			AllDay   bool   `json:"all_day"`
			Geometry *struct {
				Top    int `json:"top"`
				Height int `json:"height"`
			} `json:"geometry"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(resp.Blocks))
	}
	for _, b := range resp.Blocks {
		switch b.EventUID {
		case "e1":
			if b.Geometry == nil || b.Geometry.Top != 570 || b.Geometry.Height != 90 {
				t.Errorf("timed block geometry = %+v", b.Geometry)
			}
		case "e2":
			if b.Geometry != nil {
				t.Errorf("all-day block should carry no geometry")
			}
		}
	}
}

func TestCalendarAgenda(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	window := model.ViewWindow{
		Mode:  model.ModeAgenda,
		Start: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC),
	}
	events := []model.RawEvent{
		{
			UID:     "e1",
			Summary: "Dentist",
			Start:   model.At(time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC)),
			End:     model.At(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)),
		},
	}
	agg := startedAggregator(t, events, window)

	h := NewCalendarHandler(agg, nil, time.UTC, 30, testLogger())
	fixedClock(h, now)

	req := httptest.NewRequest(http.MethodGet, "/api/agenda", nil)
	rec := httptest.NewRecorder()
	h.Agenda(rec, req)

	var resp struct {
		Entries []struct {
			Kind string `json:"kind"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Kind != "start" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestCreateEventValidation(t *testing.T) {
	window := model.ViewWindow{
		Mode:  model.ModeMonth,
		Start: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := startedAggregator(t, nil, window)
	cmd := &recordingCommander{}
	h := NewCalendarHandler(agg, cmd, time.UTC, 30, testLogger())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing summary", `{"source_id":"calendar.family","start":"2024-03-15T09:00:00Z","end":"2024-03-15T10:00:00Z"}`, http.StatusBadRequest},
		{"missing source", `{"summary":"X","start":"2024-03-15T09:00:00Z","end":"2024-03-15T10:00:00Z"}`, http.StatusBadRequest},
		{"end before start", `{"source_id":"calendar.family","summary":"X","start":"2024-03-15T10:00:00Z","end":"2024-03-15T09:00:00Z"}`, http.StatusBadRequest},
		{"valid", `{"source_id":"calendar.family","summary":"X","start":"2024-03-15T09:00:00Z","end":"2024-03-15T10:00:00Z"}`, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
	if len(cmd.inputs) != 1 || cmd.inputs[0].Summary != "X" {
		t.Errorf("commander calls = %+v", cmd.inputs)
	}
}

func TestCreateEventBackendFailure(t *testing.T) {
	window := model.ViewWindow{
		Mode:  model.ModeMonth,
		Start: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := startedAggregator(t, nil, window)
	cmd := &recordingCommander{err: source.ErrCommandRejected}
	h := NewCalendarHandler(agg, cmd, time.UTC, 30, testLogger())

	body := `{"source_id":"calendar.family","summary":"X","start":"2024-03-15T09:00:00Z","end":"2024-03-15T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestCreateEventWithoutCommander(t *testing.T) {
	window := model.ViewWindow{
		Mode:  model.ModeMonth,
		Start: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := startedAggregator(t, nil, window)
	h := NewCalendarHandler(agg, nil, time.UTC, 30, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}
