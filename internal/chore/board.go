package chore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

// Kid binds a household member to the to-do list backing their chores.
type Kid struct {
	Name   string
	ListID string
	Image  string
}

// Board owns the chore view state: the configured periods, the per-kid task
// caches, and the optimistic-write path to the to-do backend.
type Board struct {
	kids    []Kid
	periods []model.ChorePeriod
	lists   source.TaskLists
	logger  *slog.Logger

	mu    sync.RWMutex
	tasks map[string][]model.ChoreTask // keyed by list id
}

func NewBoard(kids []Kid, periods []model.ChorePeriod, lists source.TaskLists, logger *slog.Logger) *Board {
	return &Board{
		kids:    kids,
		periods: periods,
		lists:   lists,
		logger:  logger,
		tasks:   make(map[string][]model.ChoreTask),
	}
}

// Periods returns the configured period list.
func (b *Board) Periods() []model.ChorePeriod {
	return b.periods
}

// Refresh re-fetches every kid's list. A list that fails to fetch keeps its
// previous cached tasks; one broken backend must not blank the whole board.
func (b *Board) Refresh(ctx context.Context) {
	for _, kid := range b.kids {
		if kid.ListID == "" {
			continue
		}
		items, err := b.lists.Items(ctx, kid.ListID)
		if err != nil {
			b.logger.Warn("chore list fetch failed", "list_id", kid.ListID, "kid", kid.Name, "error", err)
			continue
		}
		items = ApplyLabelPrefixes(items, len(b.periods))
		b.mu.Lock()
		b.tasks[kid.ListID] = items
		b.mu.Unlock()
	}
}

// KidView is one kid's slice of the board for the active period.
type KidView struct {
	Name  string            `json:"name"`
	Image string            `json:"image,omitempty"`
	Tasks []model.ChoreTask `json:"tasks"`
	Done  int               `json:"done"`
	Total int               `json:"total"`
	// Percent is Done as a whole percentage of Total.
	Percent int `json:"percent"`
}

// View is the rendered chore board: the active period (nil when the clock
// sits in a gap between periods) and each kid's tasks for it.
type View struct {
	Period      *model.ChorePeriod `json:"period"`
	PeriodIndex int                `json:"period_index"`
	Kids        []KidView          `json:"kids"`
}

// Snapshot assembles the board for the given wall-clock time from the
// cached task lists.
func (b *Board) Snapshot(now time.Time) View {
	period, index, ok := ActivePeriod(now, b.periods)
	if !ok {
		return View{}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	view := View{Period: &period, PeriodIndex: index}
	for _, kid := range b.kids {
		tasks := TasksForPeriod(b.tasks[kid.ListID], index)
		if len(tasks) == 0 {
			continue
		}
		kv := KidView{Name: kid.Name, Image: kid.Image, Tasks: tasks, Total: len(tasks)}
		for _, t := range tasks {
			if t.Completed() {
				kv.Done++
			}
		}
		kv.Percent = kv.Done * 100 / kv.Total
		view.Kids = append(view.Kids, kv)
	}
	return view
}

// Add appends a new pending task to a list. A period assignment is encoded
// with the "<n>. " label-prefix convention so backends without a period
// field still round-trip it; Refresh strips it again on the way back in.
func (b *Board) Add(ctx context.Context, listID, label string, periodIndex int) error {
	if periodIndex < 0 || periodIndex > len(b.periods) {
		return fmt.Errorf("period index %d out of range", periodIndex)
	}
	sent := label
	if periodIndex > 0 {
		sent = fmt.Sprintf("%d. %s", periodIndex, label)
	}

	if err := b.lists.AddItem(ctx, listID, sent); err != nil {
		return fmt.Errorf("add task %q: %w", label, err)
	}

	if items, err := b.lists.Items(ctx, listID); err == nil {
		items = ApplyLabelPrefixes(items, len(b.periods))
		b.mu.Lock()
		b.tasks[listID] = items
		b.mu.Unlock()
	} else {
		b.logger.Warn("post-add refresh failed", "list_id", listID, "error", err)
	}
	return nil
}

// Toggle flips a task's status optimistically, then confirms the write with
// the backend. On success the list is re-fetched so the backend stays the
// source of truth; on failure the local flip is rolled back and the error
// surfaces to the caller.
func (b *Board) Toggle(ctx context.Context, listID, taskUID string) error {
	prev, next, ok := b.flip(listID, taskUID)
	if !ok {
		return fmt.Errorf("task %q not found in list %q", taskUID, listID)
	}

	// The backend identifies items by UID when available; labels are not
	// guaranteed unique within a list.
	ident := prev.UID
	if ident == "" {
		ident = prev.Label
	}

	if err := b.lists.UpdateStatus(ctx, listID, ident, next); err != nil {
		b.restore(listID, taskUID, prev.Status)
		return fmt.Errorf("toggle task %q: %w", taskUID, err)
	}

	// Reconcile against the backend's view of the list.
	if items, err := b.lists.Items(ctx, listID); err == nil {
		items = ApplyLabelPrefixes(items, len(b.periods))
		b.mu.Lock()
		b.tasks[listID] = items
		b.mu.Unlock()
	} else {
		b.logger.Warn("post-toggle refresh failed", "list_id", listID, "error", err)
	}
	return nil
}

// flip applies the optimistic status change and returns the pre-toggle task.
func (b *Board) flip(listID, taskUID string) (model.ChoreTask, model.TaskStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range b.tasks[listID] {
		if t.UID == taskUID || (t.UID == "" && t.Label == taskUID) {
			next := model.StatusCompleted
			if t.Completed() {
				next = model.StatusPending
			}
			b.tasks[listID][i].Status = next
			return t, next, true
		}
	}
	return model.ChoreTask{}, "", false
}

func (b *Board) restore(listID, taskUID string, status model.TaskStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, t := range b.tasks[listID] {
		if t.UID == taskUID || (t.UID == "" && t.Label == taskUID) {
			b.tasks[listID][i].Status = status
			return
		}
	}
}
