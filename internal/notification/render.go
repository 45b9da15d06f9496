package notification

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	LargeIconSize = 64
	SmallIconSize = 96
	IconPadding   = 8
)

// LargeIcon shrinks img to fit inside 64×64 keeping its aspect ratio.
// Smaller images are returned at their own size.
func LargeIcon(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() > LargeIconSize || b.Dy() > LargeIconSize {
		return imaging.Fit(img, LargeIconSize, LargeIconSize, imaging.Lanczos)
	}
	return imaging.Clone(img)
}

// SmallIcon draws img onto a transparent 96×96 canvas so the short side spans
// the padded area, centres it, and removes colour.
func SmallIcon(img image.Image) *image.NRGBA {
	w, h := smallIconFill(img.Bounds().Dx(), img.Bounds().Dy())
	scaled := fillCenter(img, w, h)

	canvas := imaging.New(SmallIconSize, SmallIconSize, color.NRGBA{})
	canvas = imaging.PasteCenter(canvas, scaled)
	return imaging.Grayscale(canvas)
}

// fillCenter crops img around its centre to the w:h aspect and scales the
// crop to w×h. No intermediate image is larger than img or w×h.
func fillCenter(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	cw, ch := b.Dx(), b.Dy()
	if cw*h > ch*w {
		cw = max(1, ch*w/h)
	} else {
		ch = max(1, cw*h/w)
	}
	return imaging.Resize(imaging.CropAnchor(img, cw, ch, imaging.Center), w, h, imaging.Lanczos)
}

// smallIconFill returns the size of the scaled image that ends up on the
// canvas: the short side at the padded size, the long side scaled to match
// but never wider than the canvas.
func smallIconFill(w, h int) (int, int) {
	inner := SmallIconSize - 2*IconPadding
	if w > h {
		long := min(int(int64(w)*int64(inner)/int64(h)), SmallIconSize)
		return long, inner
	}
	long := min(int(int64(h)*int64(inner)/int64(w)), SmallIconSize)
	return inner, long
}

// IconID identifies a rendered icon file.
type IconID uint32

// IconRegistry maps icon ids to the files they were rendered into.
type IconRegistry struct {
	mu    sync.RWMutex
	icons map[IconID]string
}

func NewIconRegistry() *IconRegistry {
	return &IconRegistry{icons: make(map[IconID]string)}
}

// Register records path and returns its id, derived from the path.
func (r *IconRegistry) Register(path string) IconID {
	h := fnv.New32a()
	h.Write([]byte(path))
	id := IconID(h.Sum32())

	r.mu.Lock()
	r.icons[id] = path
	r.mu.Unlock()
	return id
}

func (r *IconRegistry) Lookup(id IconID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.icons[id]
	return path, ok
}

func (r *IconRegistry) Forget(id IconID) {
	r.mu.Lock()
	delete(r.icons, id)
	r.mu.Unlock()
}

// Icons are the rendered files for one image.
type Icons struct {
	LargePath string
	SmallID   IconID
}

// renderIcons writes both icons for img under dir/notification_icons.
func renderIcons(img image.Image, dir, name string, registry *IconRegistry) (Icons, error) {
	iconDir := filepath.Join(dir, "notification_icons")
	if err := os.MkdirAll(iconDir, 0755); err != nil {
		return Icons{}, fmt.Errorf("failed to create icon dir: %w", err)
	}

	largePath := filepath.Join(iconDir, name+"_large.png")
	if err := imaging.Save(LargeIcon(img), largePath); err != nil {
		return Icons{}, fmt.Errorf("failed to save large icon: %w", err)
	}

	smallPath := filepath.Join(iconDir, name+"_small.png")
	if err := imaging.Save(SmallIcon(img), smallPath); err != nil {
		return Icons{}, fmt.Errorf("failed to save small icon: %w", err)
	}

	return Icons{LargePath: largePath, SmallID: registry.Register(smallPath)}, nil
}
