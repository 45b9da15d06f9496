package crop

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEditor(t *testing.T) {
	e, err := NewEditor(800, 600)
	require.NoError(t, err)
	assert.Equal(t, Rect{Left: 100, Top: 0, Right: 700, Bottom: 600}, e.Rect())

	_, err = NewEditor(0, 600)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = EditorFor(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestEditorDragSequence(t *testing.T) {
	e, err := NewEditor(800, 600)
	require.NoError(t, err)

	e.DragStart(Point{X: 400, Y: 300})
	assert.True(t, e.Dragging())

	e.DragMove(-50, 0)
	e.DragMove(-60, 0) // would push left edge to -10
	e.DragMove(-50, 0)
	e.DragEnd()

	assert.False(t, e.Dragging())
	assert.Equal(t, Rect{Left: 0, Top: 0, Right: 600, Bottom: 600}, e.Rect())
}

func TestEditorDragMoveCanvas(t *testing.T) {
	e, err := NewEditor(800, 600)
	require.NoError(t, err)

	// canvas at half scale: 10 canvas pixels are 20 image pixels
	got := e.DragMoveCanvas(-10, 0, 400, 300)
	assert.Equal(t, Rect{Left: 80, Top: 0, Right: 680, Bottom: 600}, got)
}

func TestEditorRecenterReset(t *testing.T) {
	e, err := NewEditor(1000, 400)
	require.NoError(t, err)

	e.DragMove(-300, 0)
	assert.Equal(t, 0.0, e.Rect().Left)

	assert.Equal(t, Rect{Left: 300, Top: 0, Right: 700, Bottom: 400}, e.Recenter())
	assert.Equal(t, Rect{Left: 300, Top: 0, Right: 700, Bottom: 400}, e.Reset())
}

func TestEditorOverlay(t *testing.T) {
	e, err := NewEditor(800, 600)
	require.NoError(t, err)

	o := e.Overlay(400, 300)
	assert.Equal(t, Rect{Left: 50, Top: 0, Right: 350, Bottom: 300}, o.Crop)
	assert.Equal(t, 0.5, o.Viewport.Scale)
	assert.Equal(t, 150.0, o.Grid[0].From.X)
	assert.Equal(t, 100.0, o.Grid[2].From.Y)
}

func TestMaterialize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 80, 60))
	fill(src, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(10, 0, color.NRGBA{R: 255, A: 255})

	out, err := Materialize(CenteredSquare(80, 60), src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 60, 60), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 0))
}

func TestMaterializeTruncates(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	out, err := Materialize(Rect{Left: 1.9, Top: 2.2, Right: 21.7, Bottom: 12.9}, src)
	require.NoError(t, err)
	assert.Equal(t, 19, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())
}

func TestMaterializeNonZeroOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(100, 100, 140, 120))
	src.Set(110, 100, color.NRGBA{G: 255, A: 255})

	out, err := Materialize(CenteredSquare(40, 20), src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, out.NRGBAAt(0, 0))
}

func TestMaterializeRejectsInvalidRect(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 50, 50))

	tests := []struct {
		name string
		rect Rect
	}{
		{name: "outside", rect: Rect{Left: 40, Top: 0, Right: 60, Bottom: 20}},
		{name: "negative", rect: Rect{Left: -1, Top: 0, Right: 10, Bottom: 10}},
		{name: "empty", rect: Rect{Left: 10, Top: 10, Right: 10, Bottom: 20}},
		{name: "sub-pixel", rect: Rect{Left: 10.2, Top: 10, Right: 10.8, Bottom: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Materialize(tt.rect, src)
			var extractionErr *ExtractionError
			assert.True(t, errors.As(err, &extractionErr), "got %v", err)
		})
	}

	_, err := Materialize(Rect{Right: 1, Bottom: 1}, nil)
	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crops")
	img := image.NewNRGBA(image.Rect(0, 0, 12, 12))

	path, err := Save(img, dir)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	decoded, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 12, decoded.Bounds().Dx())
}

func fill(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}
