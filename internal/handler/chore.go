package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hearthdash/hearth/internal/chore"
	"github.com/hearthdash/hearth/internal/source"
	"github.com/hearthdash/hearth/internal/websocket"
)

// ChoreHandler serves the chore board and the optimistic toggle path.
type ChoreHandler struct {
	board  *chore.Board
	loc    *time.Location
	hub    *websocket.Hub
	logger *slog.Logger

	now func() time.Time
}

func NewChoreHandler(board *chore.Board, loc *time.Location, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		board:  board,
		loc:    loc,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// View returns the board for the current wall-clock time. Outside any
// configured period the board is idle and carries no tasks.
func (h *ChoreHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Snapshot(h.now().In(h.loc)))
}

type toggleRequest struct {
	ListID string `json:"list_id"`
	UID    string `json:"uid"`
}

// Toggle flips one task's completion. The board applies the change
// optimistically and rolls back if the backend rejects it, in which case the
// dashboard re-renders from the unchanged state.
func (h *ChoreHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ListID == "" || req.UID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "list_id and uid are required"})
		return
	}

	if err := h.board.Toggle(r.Context(), req.ListID, req.UID); err != nil {
		h.logger.Warn("toggle failed", "list_id", req.ListID, "uid", req.UID, "error", err)
		if errors.Is(err, source.ErrUpdateRejected) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "to-do backend rejected the change"})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	h.broadcast(websocket.ChoresUpdated())
	writeJSON(w, http.StatusOK, h.board.Snapshot(h.now().In(h.loc)))
}

type addRequest struct {
	ListID      string `json:"list_id"`
	Label       string `json:"label"`
	PeriodIndex int    `json:"period_index"`
}

// Add appends a new chore to a kid's list, optionally assigned to one of the
// configured periods (1-based; zero leaves the task unassigned).
func (h *ChoreHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.ListID == "" || req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "list_id and label are required"})
		return
	}
	if req.PeriodIndex < 0 || req.PeriodIndex > len(h.board.Periods()) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown period"})
		return
	}

	if err := h.board.Add(r.Context(), req.ListID, req.Label, req.PeriodIndex); err != nil {
		h.logger.Warn("add failed", "list_id", req.ListID, "label", req.Label, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "to-do backend rejected the task"})
		return
	}

	h.broadcast(websocket.ChoresUpdated())
	writeJSON(w, http.StatusCreated, h.board.Snapshot(h.now().In(h.loc)))
}
