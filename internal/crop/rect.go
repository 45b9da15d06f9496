// Package crop holds the geometry of a crop selection: the rectangle in
// image pixel space, how it responds to drags, and how it maps onto a
// letterboxed display canvas.
package crop

import "math"

// Rect is an axis-aligned rectangle. Coordinates are image pixels unless the
// value came out of a Viewport, in which case they are canvas pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Within reports whether r is non-empty and lies inside [0,w]×[0,h].
func (r Rect) Within(w, h float64) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Right <= w && r.Bottom <= h &&
		r.Left < r.Right && r.Top < r.Bottom
}

// Point is a position on the image or the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a segment used for guide rendering.
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// CenteredSquare returns the largest square that fits in a w×h image,
// centered on both axes.
func CenteredSquare(w, h float64) Rect {
	return square(math.Min(w, h), w, h)
}

// Recenter moves r to the center of the image, keeping its width as the
// side of the square. The side is capped at min(w, h).
func Recenter(r Rect, w, h float64) Rect {
	return square(math.Min(r.Width(), math.Min(w, h)), w, h)
}

// Reset discards r and returns the default selection for a w×h image.
func Reset(w, h float64) Rect {
	return CenteredSquare(w, h)
}

func square(size, w, h float64) Rect {
	left := (w - size) / 2
	top := (h - size) / 2
	return Rect{Left: left, Top: top, Right: left + size, Bottom: top + size}
}

// Translate shifts r by (dx, dy). A move that would put any edge outside
// [0,w]×[0,h] is dropped entirely and r comes back unchanged; there is no
// partial clamping.
func Translate(r Rect, dx, dy, w, h float64) Rect {
	moved := Rect{
		Left:   r.Left + dx,
		Top:    r.Top + dy,
		Right:  r.Right + dx,
		Bottom: r.Bottom + dy,
	}
	if moved.Left < 0 || moved.Top < 0 || moved.Right > w || moved.Bottom > h {
		return r
	}
	return moved
}

// GridLines returns the rule-of-thirds guides of r: the two verticals first,
// then the two horizontals.
func GridLines(r Rect) [4]Line {
	thirdW := r.Width() / 3
	thirdH := r.Height() / 3

	var lines [4]Line
	for i := 1; i <= 2; i++ {
		x := r.Left + thirdW*float64(i)
		lines[i-1] = Line{From: Point{X: x, Y: r.Top}, To: Point{X: x, Y: r.Bottom}}
	}
	for i := 1; i <= 2; i++ {
		y := r.Top + thirdH*float64(i)
		lines[i+1] = Line{From: Point{X: r.Left, Y: y}, To: Point{X: r.Right, Y: y}}
	}
	return lines
}
