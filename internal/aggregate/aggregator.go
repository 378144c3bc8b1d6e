// Package aggregate fans calendar fetches out across the configured sources
// and publishes merged snapshots. One aggregator instance owns the "events"
// fetch cycle: triggers are debounced, cycles never overlap, and the latest
// completed cycle's data is authoritative.
package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

// DefaultDebounce collapses bursts of triggers (window change, visibility
// toggle, host-state refresh) into one fetch cycle.
const DefaultDebounce = 50 * time.Millisecond

// Snapshot is the result of one completed fetch cycle.
type Snapshot struct {
	Window  model.ViewWindow
	Events  []model.RawEvent
	Fetched time.Time
}

// Aggregator fetches raw events for all visible sources over the current
// window. Per-source fetches run concurrently and are joined before the
// snapshot is swapped in; a failed source contributes an empty list and
// never aborts the cycle.
type Aggregator struct {
	events   source.EventSource
	debounce time.Duration
	logger   *slog.Logger
	onUpdate func(Snapshot)

	mu       sync.Mutex
	ctx      context.Context
	sources  []model.CalendarSource
	window   model.ViewWindow
	timer    *time.Timer
	busy     bool
	pending  bool
	snapshot Snapshot
}

// New creates an Aggregator over the given sources. onUpdate, if non-nil,
// runs after every completed cycle with the fresh snapshot.
func New(events source.EventSource, sources []model.CalendarSource, debounce time.Duration, logger *slog.Logger, onUpdate func(Snapshot)) *Aggregator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Aggregator{
		events:   events,
		sources:  sources,
		debounce: debounce,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Start binds the aggregator to its lifetime context and runs the first
// fetch cycle for the given window.
func (a *Aggregator) Start(ctx context.Context, window model.ViewWindow) {
	a.mu.Lock()
	a.ctx = ctx
	a.window = window
	a.mu.Unlock()
	a.Trigger()
}

// SetWindow swaps the active window and schedules a refresh.
func (a *Aggregator) SetWindow(window model.ViewWindow) {
	a.mu.Lock()
	changed := !window.Start.Equal(a.window.Start) || !window.End.Equal(a.window.End)
	a.window = window
	a.mu.Unlock()
	if changed {
		a.Trigger()
	}
}

// Sources returns the source set with current visibility.
func (a *Aggregator) Sources() []model.CalendarSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.CalendarSource, len(a.sources))
	copy(out, a.sources)
	return out
}

// SetVisible flips one source's visibility and schedules a refresh.
// Returns false for an unknown source id.
func (a *Aggregator) SetVisible(sourceID string, visible bool) bool {
	a.mu.Lock()
	found := false
	for i := range a.sources {
		if a.sources[i].ID == sourceID {
			a.sources[i].Visible = visible
			found = true
			break
		}
	}
	a.mu.Unlock()
	if found {
		a.Trigger()
	}
	return found
}

// Trigger schedules a fetch cycle. Triggers arriving within the debounce
// interval collapse into one cycle; a trigger landing while a cycle is in
// flight marks it pending and the cycle re-runs once after completion.
func (a *Aggregator) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.runCycle)
}

// Snapshot returns the latest completed cycle's data.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

func (a *Aggregator) runCycle() {
	a.mu.Lock()
	if a.busy {
		// A cycle is in flight; remember to go again when it finishes.
		a.pending = true
		a.mu.Unlock()
		return
	}
	a.busy = true
	ctx := a.ctx
	window := a.window
	sources := make([]model.CalendarSource, len(a.sources))
	copy(sources, a.sources)
	a.mu.Unlock()

	events := a.fetchAll(ctx, sources, window)

	a.mu.Lock()
	a.snapshot = Snapshot{Window: window, Events: events, Fetched: time.Now()}
	a.busy = false
	rerun := a.pending
	a.pending = false
	onUpdate := a.onUpdate
	snap := a.snapshot
	a.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snap)
	}
	if rerun {
		a.Trigger()
	}
}

// fetchAll fans out one fetch per visible source and joins the results.
// Sources are tagged onto their events before the merge so downstream
// consumers never need the source list again.
func (a *Aggregator) fetchAll(ctx context.Context, sources []model.CalendarSource, window model.ViewWindow) []model.RawEvent {
	results := make([][]model.RawEvent, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		if !src.Visible {
			continue
		}
		wg.Add(1)
		go func(i int, src model.CalendarSource) {
			defer wg.Done()
			events, err := a.events.Events(ctx, src.ID, window.Start, window.End)
			if err != nil {
				// Degrade to an empty list for this source only.
				a.logger.Warn("source fetch failed", "source_id", src.ID, "error", err)
				return
			}
			results[i] = tagEvents(events, src)
		}(i, src)
	}
	wg.Wait()

	var merged []model.RawEvent
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

func tagEvents(events []model.RawEvent, src model.CalendarSource) []model.RawEvent {
	color := src.Color
	if color == "" {
		color = model.DefaultSourceColor
	}
	for i := range events {
		events[i].SourceID = src.ID
		events[i].SourceName = src.Name
		events[i].Color = color
	}
	return events
}
