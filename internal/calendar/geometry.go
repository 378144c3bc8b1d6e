package calendar

import "github.com/hearthdash/hearth/internal/model"

// MinVisibleMinutes is the floor on a rendered block's height. Zero-length
// and very short events still need to be visible and tappable on the grid.
const MinVisibleMinutes = 15

// BlockGeometry places a timed fragment on a 1440-unit day column, one unit
// per minute of the day.
type BlockGeometry struct {
	Top    int `json:"top"`
	Height int `json:"height"`
}

// Geometry computes the column placement for a timed fragment. All-day
// fragments have no grid position and return false.
//
// Overlapping blocks in the same column are not laned apart; concurrent
// events simply overlap, which the dashboard accepts.
func Geometry(frag model.Fragment) (BlockGeometry, bool) {
	if frag.AllDay {
		return BlockGeometry{}, false
	}

	start := frag.Start.Time
	top := start.Hour()*60 + start.Minute()

	height := int(frag.End.Time.Sub(start).Minutes())
	if height < MinVisibleMinutes {
		height = MinVisibleMinutes
	}

	return BlockGeometry{Top: top, Height: height}, true
}
