// Package source defines the external facades the dashboard core consumes:
// calendar event feeds, to-do list backends, and the command channel for
// event creation. Backends live in subpackages; the core only sees these
// interfaces and the error taxonomy.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// Failure taxonomy. Every failure is scoped to the smallest unit possible
// (one source, one list, one write) and callers degrade rather than abort:
// an unavailable source becomes an empty list, an unavailable task list is
// skipped, a rejected write rolls back optimistic state.
var (
	ErrSourceUnavailable = errors.New("calendar source unavailable")
	ErrListUnavailable   = errors.New("task list unavailable")
	ErrUpdateRejected    = errors.New("task update rejected")
	ErrCommandRejected   = errors.New("command rejected")
)

// EventSource fetches raw events for one calendar source within an instant
// range. Failures wrap ErrSourceUnavailable.
type EventSource interface {
	Events(ctx context.Context, sourceID string, start, end time.Time) ([]model.RawEvent, error)
}

// TaskLists is the key/value to-do facade the chore board and the daily
// reset drive. Items returns the list's tasks (wrapping ErrListUnavailable
// on failure); UpdateStatus flips one item's status by its stable identifier
// (wrapping ErrUpdateRejected); AddItem appends a new pending item.
type TaskLists interface {
	Items(ctx context.Context, listID string) ([]model.ChoreTask, error)
	UpdateStatus(ctx context.Context, listID, itemUID string, status model.TaskStatus) error
	AddItem(ctx context.Context, listID, label string) error
}

// EventInput is the payload for creating a calendar event, mirroring the
// dashboard's add-event form.
type EventInput struct {
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Commander issues write commands against a calendar source. Failures wrap
// ErrCommandRejected.
type Commander interface {
	CreateEvent(ctx context.Context, sourceID string, input EventInput) error
}
