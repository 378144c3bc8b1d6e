package model

// DefaultSourceColor is used when a calendar source has no configured color.
const DefaultSourceColor = "#6366f1"

// CalendarSource identifies one named calendar feed. Identity fields are
// fixed for the session; Visible is the only mutable piece and is flipped
// through the API.
type CalendarSource struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Icon    string `json:"icon,omitempty"`
	Visible bool   `json:"visible"`
}
