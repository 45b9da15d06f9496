package notification

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

func TestLargeIcon(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 200, 100, 64, 32},
		{"portrait", 50, 400, 8, 64},
		{"small stays", 40, 20, 40, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			icon := LargeIcon(imaging.New(tt.w, tt.h, color.White))
			assert.Equal(t, tt.wantW, icon.Bounds().Dx())
			assert.Equal(t, tt.wantH, icon.Bounds().Dy())
		})
	}
}

func TestSmallIcon(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}

	t.Run("landscape pads top and bottom", func(t *testing.T) {
		icon := SmallIcon(imaging.New(200, 100, red))
		assert.Equal(t, SmallIconSize, icon.Bounds().Dx())
		assert.Equal(t, SmallIconSize, icon.Bounds().Dy())

		assert.Zero(t, icon.NRGBAAt(48, 3).A)
		assert.Zero(t, icon.NRGBAAt(48, 92).A)
		assert.Equal(t, uint8(255), icon.NRGBAAt(1, 48).A)

		c := icon.NRGBAAt(48, 48)
		assert.Equal(t, c.R, c.G)
		assert.Equal(t, c.G, c.B)
	})

	t.Run("portrait pads left and right", func(t *testing.T) {
		icon := SmallIcon(imaging.New(100, 200, red))
		assert.Zero(t, icon.NRGBAAt(3, 48).A)
		assert.Zero(t, icon.NRGBAAt(92, 48).A)
		assert.Equal(t, uint8(255), icon.NRGBAAt(48, 1).A)
	})

	t.Run("extreme aspect ratio", func(t *testing.T) {
		icon := SmallIcon(imaging.New(20000, 1, red))
		assert.Equal(t, image.Rect(0, 0, SmallIconSize, SmallIconSize), icon.Bounds())
		assert.Zero(t, icon.NRGBAAt(48, 3).A)
		assert.Equal(t, uint8(255), icon.NRGBAAt(1, 48).A)
	})
}

func TestSmallIconFill(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "square", w: 50, h: 50, wantW: 80, wantH: 80},
		{name: "slightly wide keeps its width", w: 110, h: 100, wantW: 88, wantH: 80},
		{name: "wide is cropped to the canvas", w: 200, h: 100, wantW: 96, wantH: 80},
		{name: "tall is cropped to the canvas", w: 100, h: 300, wantW: 80, wantH: 96},
		{name: "one pixel high", w: 20000, h: 1, wantW: 96, wantH: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := smallIconFill(tt.w, tt.h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestIconRegistry(t *testing.T) {
	r := NewIconRegistry()
	a := r.Register("/cache/a.png")
	b := r.Register("/cache/b.png")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, r.Register("/cache/a.png"))

	path, ok := r.Lookup(a)
	assert.True(t, ok)
	assert.Equal(t, "/cache/a.png", path)

	r.Forget(a)
	_, ok = r.Lookup(a)
	assert.False(t, ok)
}
