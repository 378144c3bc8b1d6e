package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hearthdash/hearth/internal/database"
	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/store"
)

func sourceFixture(t *testing.T) (*SourceHandler, *store.SettingsStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	settings := store.NewSettingsStore(db)

	window := model.ViewWindow{
		Mode:  model.ModeMonth,
		Start: time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := startedAggregator(t, nil, window)
	return NewSourceHandler(agg, settings, testLogger()), settings
}

func TestSourceList(t *testing.T) {
	h, _ := sourceFixture(t)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	var sources []model.CalendarSource
	if err := json.Unmarshal(rec.Body.Bytes(), &sources); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sources) != 1 || sources[0].ID != "calendar.family" || !sources[0].Visible {
		t.Errorf("sources = %+v", sources)
	}
}

func TestSourceSetVisibilityPersists(t *testing.T) {
	h, settings := sourceFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sources/calendar.family/visibility", strings.NewReader(`{"visible":false}`))
	req.SetPathValue("id", "calendar.family")
	rec := httptest.NewRecorder()
	h.SetVisibility(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sources []model.CalendarSource
	if err := json.Unmarshal(rec.Body.Bytes(), &sources); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sources[0].Visible {
		t.Error("source still visible after toggle")
	}

	visible, ok := settings.SourceVisibility("calendar.family")
	if !ok || visible {
		t.Errorf("persisted visibility = %v, %v; want false, true", visible, ok)
	}
}

func TestSourceSetVisibilityUnknown(t *testing.T) {
	h, _ := sourceFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sources/nope/visibility", strings.NewReader(`{"visible":true}`))
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.SetVisibility(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
