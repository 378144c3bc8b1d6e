package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// Mux routes event fetches to per-source backends, letting Home Assistant
// calendars and ICS subscriptions coexist behind one EventSource.
type Mux struct {
	backends map[string]EventSource
	fallback EventSource
}

// NewMux creates a Mux. fallback, if non-nil, serves any source id without
// an explicit binding.
func NewMux(fallback EventSource) *Mux {
	return &Mux{
		backends: make(map[string]EventSource),
		fallback: fallback,
	}
}

// Bind routes one source id to a backend.
func (m *Mux) Bind(sourceID string, backend EventSource) {
	m.backends[sourceID] = backend
}

func (m *Mux) Events(ctx context.Context, sourceID string, start, end time.Time) ([]model.RawEvent, error) {
	backend, ok := m.backends[sourceID]
	if !ok {
		backend = m.fallback
	}
	if backend == nil {
		return nil, fmt.Errorf("source %s: %w: no backend bound", sourceID, ErrSourceUnavailable)
	}
	return backend.Events(ctx, sourceID, start, end)
}
