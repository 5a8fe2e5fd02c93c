// File: internal/screen/geometry.go
package screen

import "math"

// Coordinate is an absolute physical pixel position on the display. Values
// may be negative when the source window sits on a monitor left of or above
// the primary origin, but they are always finite. Coordinates are derived on
// demand and never persisted.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsFinite reports whether both components are real numbers.
func (c Coordinate) IsFinite() bool {
	return isFinite(c.X) && isFinite(c.Y)
}

// WindowBounds is the screen-space rectangle of a browser window. Width and
// height may legitimately be zero for a minimized or hidden window, so
// consumers must never divide by them.
type WindowBounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VisibilityState is a point-in-time snapshot from a DOM probe. It has no
// identity beyond the probe call and must never be cached: page state moves
// between calls.
type VisibilityState struct {
	Visible    bool `json:"visible"`
	Clickable  bool `json:"clickable"`
	InViewport bool `json:"in_viewport"`
}

// WindowInfo describes one browser window as enumerated by the scripting
// channel.
type WindowInfo struct {
	Index  int     `json:"index"`
	Title  string  `json:"title"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
