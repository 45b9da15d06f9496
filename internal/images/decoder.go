// Package images turns locators into decoded pixels.
package images

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/null000O/StatBuddy/internal/models"
	"golang.org/x/sync/singleflight"

	_ "golang.org/x/image/webp"
)

// DecodeError reports an image that could not be read or decoded.
type DecodeError struct {
	Locator models.Locator
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Locator, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder decodes raster images honouring EXIF orientation and rasterizes
// SVG documents. Concurrent decodes of the same locator share one read.
type Decoder struct {
	resolver *Resolver
	group    singleflight.Group
}

func NewDecoder(resolver *Resolver) *Decoder {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Decoder{resolver: resolver}
}

// Decode returns the image behind loc. The caller's ctx only bounds its own
// wait; the shared read finishes for the other callers.
func (d *Decoder) Decode(ctx context.Context, loc models.Locator) (image.Image, error) {
	ch := d.group.DoChan(string(loc), func() (any, error) {
		return d.decode(context.WithoutCancel(ctx), loc)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("Shared decode", "locator", loc)
		}
		return res.Val.(image.Image), nil
	}
}

func (d *Decoder) decode(ctx context.Context, loc models.Locator) (image.Image, error) {
	rc, err := d.resolver.Open(ctx, loc)
	if err != nil {
		return nil, &DecodeError{Locator: loc, Err: err}
	}
	defer rc.Close()

	br, head := sniff(rc)
	var img image.Image
	if isSVG(loc, head) {
		img, err = decodeSVG(br)
	} else {
		img, err = imaging.Decode(br, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, &DecodeError{Locator: loc, Err: err}
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, &DecodeError{Locator: loc, Err: fmt.Errorf("image has no pixels")}
	}
	slog.Debug("Image decoded", "locator", loc, "width", b.Dx(), "height", b.Dy())
	return img, nil
}

// Config reads only the header: dimensions and format name.
func (d *Decoder) Config(ctx context.Context, loc models.Locator) (image.Config, string, error) {
	rc, err := d.resolver.Open(ctx, loc)
	if err != nil {
		return image.Config{}, "", &DecodeError{Locator: loc, Err: err}
	}
	defer rc.Close()

	cfg, format, err := DecodeConfig(loc, rc)
	if err != nil {
		return image.Config{}, "", &DecodeError{Locator: loc, Err: err}
	}
	return cfg, format, nil
}

// DecodeConfig reads the dimensions and format of the image in r. The
// locator's extension marks SVG documents that do not start with markup.
func DecodeConfig(loc models.Locator, r io.Reader) (image.Config, string, error) {
	br, head := sniff(r)
	if isSVG(loc, head) {
		cfg, err := decodeSVGConfig(br)
		return cfg, "svg", err
	}
	return image.DecodeConfig(br)
}
