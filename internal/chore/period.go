// Package chore groups recurring tasks into time-of-day periods and keeps
// the chore board in sync with the external to-do backend.
package chore

import (
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

// ActivePeriod scans the ordered period list and returns the first period
// containing now's minute-of-day, along with its 1-based index. Both period
// endpoints are inclusive. When no period matches (periods may leave gaps)
// ok is false and the board renders its idle state; a gap is not an error.
func ActivePeriod(now time.Time, periods []model.ChorePeriod) (model.ChorePeriod, int, bool) {
	minute := model.MinuteOfDay(now)
	for i, p := range periods {
		if p.Contains(minute) {
			return p, i + 1, true
		}
	}
	return model.ChorePeriod{}, 0, false
}

// TasksForPeriod filters tasks bound to the given 1-based period index.
// Unassigned tasks (index 0) never match an active period.
func TasksForPeriod(tasks []model.ChoreTask, periodIndex int) []model.ChoreTask {
	if periodIndex <= 0 {
		return nil
	}
	var out []model.ChoreTask
	for _, t := range tasks {
		if t.PeriodIndex == periodIndex {
			out = append(out, t)
		}
	}
	return out
}
