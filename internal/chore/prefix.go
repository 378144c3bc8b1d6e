package chore

import (
	"strconv"
	"strings"

	"github.com/hearthdash/hearth/internal/model"
)

// Some households encode the period directly in the to-do item label,
// e.g. "1. Make bed" for the first configured period. ApplyLabelPrefixes is
// the compatibility adapter for that convention: it fills PeriodIndex from
// the label prefix for tasks that don't already carry an assignment, and
// strips the prefix from the displayed label. The engine itself only ever
// sees PeriodIndex.
func ApplyLabelPrefixes(tasks []model.ChoreTask, periodCount int) []model.ChoreTask {
	out := make([]model.ChoreTask, len(tasks))
	for i, t := range tasks {
		if t.PeriodIndex == 0 {
			if idx, rest, ok := splitPrefix(t.Label); ok && idx <= periodCount {
				t.PeriodIndex = idx
				t.Label = rest
			}
		}
		out[i] = t
	}
	return out
}

// splitPrefix parses labels of the form "<n>. <rest>" with n >= 1.
func splitPrefix(label string) (int, string, bool) {
	dot := strings.Index(label, ".")
	if dot <= 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(strings.TrimSpace(label[:dot]))
	if err != nil || n < 1 {
		return 0, "", false
	}
	rest := strings.TrimSpace(label[dot+1:])
	if rest == "" {
		return 0, "", false
	}
	return n, rest, true
}
