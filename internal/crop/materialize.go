package crop

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ExtractionError reports a crop rectangle that cannot be cut out of the
// source image.
type ExtractionError struct {
	Rect   Rect
	Bounds image.Rectangle
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract %.1f,%.1f-%.1f,%.1f from %v: %s",
		e.Rect.Left, e.Rect.Top, e.Rect.Right, e.Rect.Bottom, e.Bounds, e.Reason)
}

// Validate checks the rectangle invariant against a w×h image.
func Validate(r Rect, w, h float64) error {
	if !r.Within(w, h) {
		return &ExtractionError{
			Rect:   r,
			Bounds: image.Rect(0, 0, int(w), int(h)),
			Reason: "rectangle outside image bounds",
		}
	}
	return nil
}

// PixelRect truncates r to whole pixels the way the crop is cut: the origin
// is truncated, then the truncated width and height are added to it.
func PixelRect(r Rect) image.Rectangle {
	x := int(r.Left)
	y := int(r.Top)
	return image.Rect(x, y, x+int(r.Width()), y+int(r.Height()))
}

// Materialize cuts the region under r out of src and returns it as a new
// image whose bounds start at (0,0).
func Materialize(r Rect, src image.Image) (*image.NRGBA, error) {
	if src == nil {
		return nil, &ExtractionError{Rect: r, Reason: "no source image"}
	}
	bounds := src.Bounds()
	if err := Validate(r, float64(bounds.Dx()), float64(bounds.Dy())); err != nil {
		return nil, err
	}

	px := PixelRect(r).Add(bounds.Min)
	if px.Empty() || !px.In(bounds) {
		return nil, &ExtractionError{Rect: r, Bounds: bounds, Reason: "truncated rectangle is empty or out of bounds"}
	}
	return imaging.Crop(src, px), nil
}

// Save encodes img as PNG into dir under a fresh name and returns the path.
func Save(img image.Image, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create crop directory: %w", err)
	}
	path := filepath.Join(dir, "cropped_"+uuid.NewString()+".png")
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save cropped image: %w", err)
	}
	return path, nil
}
