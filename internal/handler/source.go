package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hearthdash/hearth/internal/aggregate"
	"github.com/hearthdash/hearth/internal/store"
)

// SourceHandler lists calendar sources and persists visibility toggles.
type SourceHandler struct {
	agg      *aggregate.Aggregator
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSourceHandler(agg *aggregate.Aggregator, settings *store.SettingsStore, logger *slog.Logger) *SourceHandler {
	return &SourceHandler{agg: agg, settings: settings, logger: logger}
}

// List returns all configured sources with their current visibility.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agg.Sources())
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// SetVisibility toggles one source. Hiding keeps the source configured; its
// events simply stop contributing to snapshots until it is shown again. The
// choice survives restarts.
func (h *SourceHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if !h.agg.SetVisible(id, req.Visible) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "source not found"})
		return
	}
	if err := h.settings.SetSourceVisibility(id, req.Visible); err != nil {
		h.logger.Error("persist source visibility", "source_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, h.agg.Sources())
}
