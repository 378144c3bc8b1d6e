package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hearthdash/hearth/internal/aggregate"
	"github.com/hearthdash/hearth/internal/calendar"
	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

// CalendarHandler serves the normalized calendar views. Reads come from the
// aggregator's current snapshot; a window change retargets the aggregator,
// and the refreshed snapshot is announced over the push hub.
type CalendarHandler struct {
	agg         *aggregate.Aggregator
	commander   source.Commander
	loc         *time.Location
	horizonDays int
	logger      *slog.Logger

	now func() time.Time
}

func NewCalendarHandler(agg *aggregate.Aggregator, commander source.Commander, loc *time.Location, horizonDays int, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		agg:         agg,
		commander:   commander,
		loc:         loc,
		horizonDays: horizonDays,
		logger:      logger,
		now:         time.Now,
	}
}

// resolveWindow derives the view window from the mode and date query
// parameters, returning the reference date actually used. An absent or
// malformed date falls back to now.
func (h *CalendarHandler) resolveWindow(r *http.Request) (model.ViewWindow, time.Time) {
	now := h.now().In(h.loc)
	mode := model.ParseViewMode(r.URL.Query().Get("mode"))

	reference := now
	if ref := r.URL.Query().Get("date"); ref != "" {
		if inst, err := model.ParseInstant(ref, h.loc); err == nil {
			reference = inst.Time
		}
	}
	return calendar.Resolve(reference, mode, now, h.horizonDays), reference
}

// View returns the day fragments for the requested window.
func (h *CalendarHandler) View(w http.ResponseWriter, r *http.Request) {
	window, reference := h.resolveWindow(r)
	h.agg.SetWindow(window)
	snap := h.agg.Snapshot()

	fragments := calendar.FragmentEvents(snap.Events, window)
	if fragments == nil {
		fragments = []model.Fragment{}
	}
	resp := map[string]any{
		"window":    window,
		"fragments": fragments,
	}
	if window.Mode == model.ModeMonth {
		resp["leading_pad"] = calendar.MonthLeadingPad(reference)
	}
	if !snap.Fetched.IsZero() {
		resp["fetched"] = snap.Fetched
	}
	writeJSON(w, http.StatusOK, resp)
}

type gridBlock struct {
	model.Fragment
	Geometry *calendar.BlockGeometry `json:"geometry,omitempty"`
}

// Grid returns fragments with pixel geometry for the week and day layouts.
// All-day fragments carry no geometry; the frontend stacks them in the
// all-day lane.
func (h *CalendarHandler) Grid(w http.ResponseWriter, r *http.Request) {
	window, _ := h.resolveWindow(r)
	h.agg.SetWindow(window)
	snap := h.agg.Snapshot()

	fragments := calendar.FragmentEvents(snap.Events, window)
	blocks := make([]gridBlock, 0, len(fragments))
	for _, frag := range fragments {
		block := gridBlock{Fragment: frag}
		if geo, ok := calendar.Geometry(frag); ok {
			block.Geometry = &geo
		}
		blocks = append(blocks, block)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window": window,
		"blocks": blocks,
	})
}

// Agenda returns the upcoming start and end transitions from now.
func (h *CalendarHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	window := calendar.Resolve(now, model.ModeAgenda, now, h.horizonDays)
	h.agg.SetWindow(window)
	snap := h.agg.Snapshot()

	entries := calendar.ProjectAgenda(snap.Events, window)
	if entries == nil {
		entries = []calendar.AgendaEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":  window,
		"entries": entries,
	})
}

type createEventRequest struct {
	SourceID    string    `json:"source_id"`
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// Create adds an event to a calendar source and triggers a re-fetch so the
// new event shows up in the next snapshot.
func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.commander == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event creation is not available"})
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Summary = strings.TrimSpace(req.Summary)
	if req.Summary == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "summary is required"})
		return
	}
	if req.SourceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source_id is required"})
		return
	}
	if req.Start.IsZero() || !req.End.After(req.Start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be after start"})
		return
	}

	input := source.EventInput{
		Summary:     req.Summary,
		Start:       req.Start.In(h.loc),
		End:         req.End.In(h.loc),
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.commander.CreateEvent(r.Context(), req.SourceID, input); err != nil {
		h.logger.Error("create event failed", "source_id", req.SourceID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "calendar backend rejected the event"})
		return
	}

	h.agg.Trigger()
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}
