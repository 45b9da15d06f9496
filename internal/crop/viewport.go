package crop

import "math"

// Viewport describes how a w×h image is drawn on a canvas: uniformly scaled
// to fit inside it and centered, leaving letterbox margins on one axis.
type Viewport struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Fit computes the viewport of a w×h image on a cw×ch canvas.
func Fit(w, h, cw, ch float64) Viewport {
	if w <= 0 || h <= 0 {
		return Viewport{}
	}
	scale := math.Min(cw/w, ch/h)
	return Viewport{
		Scale:   scale,
		OffsetX: (cw - w*scale) / 2,
		OffsetY: (ch - h*scale) / 2,
	}
}

// ToDisplay maps an image-space rectangle to canvas coordinates.
func (v Viewport) ToDisplay(r Rect) Rect {
	return Rect{
		Left:   r.Left*v.Scale + v.OffsetX,
		Top:    r.Top*v.Scale + v.OffsetY,
		Right:  r.Right*v.Scale + v.OffsetX,
		Bottom: r.Bottom*v.Scale + v.OffsetY,
	}
}

// ToImage is the inverse of ToDisplay. A degenerate viewport maps everything
// to the zero rectangle.
func (v Viewport) ToImage(d Rect) Rect {
	if v.Scale == 0 {
		return Rect{}
	}
	return Rect{
		Left:   (d.Left - v.OffsetX) / v.Scale,
		Top:    (d.Top - v.OffsetY) / v.Scale,
		Right:  (d.Right - v.OffsetX) / v.Scale,
		Bottom: (d.Bottom - v.OffsetY) / v.Scale,
	}
}

// ToImageDelta converts a drag measured in canvas pixels into image pixels.
func (v Viewport) ToImageDelta(dx, dy float64) (float64, float64) {
	if v.Scale == 0 {
		return 0, 0
	}
	return dx / v.Scale, dy / v.Scale
}

// ToDisplay maps r from a w×h image onto a cw×ch canvas. r is not modified.
func ToDisplay(r Rect, w, h, cw, ch float64) (Rect, Viewport) {
	v := Fit(w, h, cw, ch)
	return v.ToDisplay(r), v
}

// FromDisplay maps a canvas rectangle back into image space.
func FromDisplay(d Rect, w, h, cw, ch float64) Rect {
	return Fit(w, h, cw, ch).ToImage(d)
}
