package calendar

import (
	"testing"
	"time"

	"github.com/hearthdash/hearth/internal/model"
)

func timedFragment(start, end time.Time) model.Fragment {
	return model.Fragment{Start: model.At(start), End: model.At(end)}
}

func TestGeometryPlacement(t *testing.T) {
	frag := timedFragment(
		time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 11, 0, 0, 0, time.UTC),
	)

	geo, ok := Geometry(frag)
	if !ok {
		t.Fatal("timed fragment should have geometry")
	}
	if geo.Top != 9*60+30 {
		t.Errorf("top = %d, want %d", geo.Top, 9*60+30)
	}
	if geo.Height != 90 {
		t.Errorf("height = %d, want 90", geo.Height)
	}
}

func TestGeometryClampsShortEvents(t *testing.T) {
	// A 5-minute event still renders MinVisibleMinutes tall.
	frag := timedFragment(
		time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 9, 5, 0, 0, time.UTC),
	)

	geo, _ := Geometry(frag)
	if geo.Height != MinVisibleMinutes {
		t.Errorf("height = %d, want %d", geo.Height, MinVisibleMinutes)
	}
}

func TestGeometryZeroDuration(t *testing.T) {
	at := time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC)
	geo, _ := Geometry(timedFragment(at, at))
	if geo.Height != MinVisibleMinutes {
		t.Errorf("height = %d, want %d", geo.Height, MinVisibleMinutes)
	}
	if geo.Top != 14*60 {
		t.Errorf("top = %d, want %d", geo.Top, 14*60)
	}
}

func TestGeometrySkipsAllDay(t *testing.T) {
	frag := model.Fragment{AllDay: true}
	if _, ok := Geometry(frag); ok {
		t.Error("all-day fragment should have no grid geometry")
	}
}

// Overlap between concurrent events is intentionally not resolved: two
// events at the same hour get the same placement and visually stack.
func TestGeometryOverlapUnresolved(t *testing.T) {
	a := timedFragment(
		time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC),
	)
	b := timedFragment(
		time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
	)

	geoA, _ := Geometry(a)
	geoB, _ := Geometry(b)
	if geoA.Top != geoB.Top {
		t.Errorf("concurrent events got different tops: %d vs %d", geoA.Top, geoB.Top)
	}
}
