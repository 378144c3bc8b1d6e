// Package reset returns completed chore tasks to pending once per local
// calendar day. The persisted marker is the sole guard: the check runs on
// every tick and is safe to invoke redundantly.
package reset

import (
	"context"
	"log/slog"
	"time"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

// MarkerKey is the settings key holding the last local calendar day the
// sweep ran, formatted 2006-01-02.
const MarkerKey = "last_reset_date"

const dayLayout = "2006-01-02"

// MarkerStore is the persisted single-value store for the reset marker.
type MarkerStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Scheduler runs the once-per-day completed-to-pending sweep across the
// managed task lists.
type Scheduler struct {
	lists   source.TaskLists
	listIDs []string
	store   MarkerStore
	loc     *time.Location
	logger  *slog.Logger
	onReset func()
}

// New creates a Scheduler. onReset, if non-nil, runs after a successful
// sweep so the caller can notify connected dashboards.
func New(lists source.TaskLists, listIDs []string, store MarkerStore, loc *time.Location, logger *slog.Logger, onReset func()) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		lists:   lists,
		listIDs: listIDs,
		store:   store,
		loc:     loc,
		logger:  logger,
		onReset: onReset,
	}
}

// Check compares the marker against now's local calendar day and, when
// stale, sweeps every managed list. List and item failures are logged and
// skipped; the marker only advances after the sweep has been attempted on
// every list, and never advances when every list fetch failed; that sweep
// is retried on the next tick. Invoking Check repeatedly within one day is
// a no-op beyond the marker comparison.
func (s *Scheduler) Check(ctx context.Context, now time.Time) {
	today := now.In(s.loc).Format(dayLayout)

	last, err := s.store.Get(MarkerKey)
	if err != nil {
		// A missing marker means the sweep has never run; anything else is
		// worth knowing about but must not block the reset.
		s.logger.Debug("reset marker read failed", "error", err)
	}
	if last == today {
		return
	}

	s.logger.Info("running daily chore reset", "last", last, "today", today)

	anySwept := false
	reset := 0
	for _, listID := range s.listIDs {
		items, err := s.lists.Items(ctx, listID)
		if err != nil {
			s.logger.Warn("reset: list unavailable, skipping", "list_id", listID, "error", err)
			continue
		}
		anySwept = true

		for _, item := range items {
			if !item.Completed() {
				continue
			}
			ident := item.UID
			if ident == "" {
				ident = item.Label
			}
			if err := s.lists.UpdateStatus(ctx, listID, ident, model.StatusPending); err != nil {
				s.logger.Warn("reset: item update failed, skipping", "list_id", listID, "item", ident, "error", err)
				continue
			}
			reset++
		}
	}

	if len(s.listIDs) > 0 && !anySwept {
		// Every list failed; leave the marker alone so the next tick retries.
		s.logger.Warn("reset: no list reachable, will retry")
		return
	}

	if err := s.store.Set(MarkerKey, today); err != nil {
		s.logger.Error("reset: marker write failed", "error", err)
		return
	}

	s.logger.Info("daily chore reset complete", "items_reset", reset)
	if s.onReset != nil {
		s.onReset()
	}
}
