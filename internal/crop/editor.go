package crop

import (
	"errors"
	"image"
)

// ErrEmptyImage is returned when an editor is opened on an image without
// pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Overlay is everything a renderer needs to draw the selection on a canvas.
type Overlay struct {
	Viewport Viewport `json:"viewport"`
	Crop     Rect     `json:"crop"`
	Grid     [4]Line  `json:"grid"`
}

// Editor keeps the selection for one image while the user adjusts it.
// Events must be applied in the order they arrive; an Editor has a single
// owner and is not safe for concurrent use.
type Editor struct {
	width, height float64
	rect          Rect
	dragging      bool
	dragOrigin    Point
}

// NewEditor opens an editor on a w×h image with the default selection.
func NewEditor(w, h int) (*Editor, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}
	e := &Editor{width: float64(w), height: float64(h)}
	e.rect = CenteredSquare(e.width, e.height)
	return e, nil
}

// EditorFor opens an editor sized to img.
func EditorFor(img image.Image) (*Editor, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	return NewEditor(b.Dx(), b.Dy())
}

func (e *Editor) Rect() Rect { return e.rect }

func (e *Editor) Size() (float64, float64) { return e.width, e.height }

func (e *Editor) Dragging() bool { return e.dragging }

// DragStart records where a drag began.
func (e *Editor) DragStart(at Point) {
	e.dragging = true
	e.dragOrigin = at
}

// DragMove applies one drag sample expressed in image pixels.
func (e *Editor) DragMove(dx, dy float64) Rect {
	e.rect = Translate(e.rect, dx, dy, e.width, e.height)
	return e.rect
}

// DragMoveCanvas applies one drag sample measured on a cw×ch canvas.
func (e *Editor) DragMoveCanvas(dx, dy, cw, ch float64) Rect {
	ix, iy := Fit(e.width, e.height, cw, ch).ToImageDelta(dx, dy)
	return e.DragMove(ix, iy)
}

func (e *Editor) DragEnd() {
	e.dragging = false
}

func (e *Editor) Recenter() Rect {
	e.rect = Recenter(e.rect, e.width, e.height)
	return e.rect
}

func (e *Editor) Reset() Rect {
	e.rect = Reset(e.width, e.height)
	return e.rect
}

// Overlay projects the selection onto a cw×ch canvas.
func (e *Editor) Overlay(cw, ch float64) Overlay {
	display, v := ToDisplay(e.rect, e.width, e.height, cw, ch)
	return Overlay{Viewport: v, Crop: display, Grid: GridLines(display)}
}

// Cut materializes the current selection from src.
func (e *Editor) Cut(src image.Image) (*image.NRGBA, error) {
	return Materialize(e.rect, src)
}
