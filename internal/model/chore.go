package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskStatus is the two-state lifecycle of a chore task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// TimeOfDay is minutes from local midnight, 0..1439.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time of day %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q: bad minute", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MinuteOfDay converts a wall-clock time to a TimeOfDay.
func MinuteOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ChorePeriod is a named time-of-day interval, inclusive on both ends.
// Periods live in a caller-ordered list; a task references a period by its
// 1-based position in that list.
type ChorePeriod struct {
	Name  string    `json:"name"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether the minute falls inside the period.
func (p ChorePeriod) Contains(m TimeOfDay) bool {
	return m >= p.Start && m <= p.End
}

// ChoreTask is one item on an external to-do list. PeriodIndex is the 1-based
// index into the configured period list, or 0 when the task is unassigned.
// UID is the backend's stable identifier; labels are not guaranteed unique.
type ChoreTask struct {
	UID         string     `json:"uid"`
	Label       string     `json:"label"`
	ListID      string     `json:"list_id"`
	PeriodIndex int        `json:"period_index"`
	Status      TaskStatus `json:"status"`
}

// Completed is a convenience for the common status check.
func (t ChoreTask) Completed() bool {
	return t.Status == StatusCompleted
}
