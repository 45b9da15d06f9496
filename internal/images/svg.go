package images

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/null000O/StatBuddy/internal/models"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	// defaultSVGSize is used when an SVG declares neither a viewBox nor a
	// width and height.
	defaultSVGSize = 512
	maxSVGSize     = 2048
	sniffLen       = 512
)

// isSVG reports whether loc names an .svg file or head looks like SVG markup.
func isSVG(loc models.Locator, head []byte) bool {
	p := string(loc)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".svg") {
		return true
	}
	head = bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	return bytes.HasPrefix(head, []byte("<")) && bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// sniff wraps r so its first bytes can be inspected without consuming them.
func sniff(r io.Reader) (*bufio.Reader, []byte) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	return br, head
}

// svgSize picks the raster size of icon, keeping its aspect ratio and
// bounding the long side by maxSVGSize.
func svgSize(icon *oksvg.SvgIcon) (int, int) {
	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		return defaultSVGSize, defaultSVGSize
	}
	if long := math.Max(w, h); long > maxSVGSize {
		w, h = w*maxSVGSize/long, h*maxSVGSize/long
	}
	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

func readSVG(r io.Reader) (*oksvg.SvgIcon, int, int, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid svg: %w", err)
	}
	w, h := svgSize(icon)
	return icon, w, h, nil
}

// decodeSVG rasterizes an SVG document onto a transparent canvas.
func decodeSVG(r io.Reader) (image.Image, error) {
	icon, w, h, err := readSVG(r)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}

func decodeSVGConfig(r io.Reader) (image.Config, error) {
	_, w, h, err := readSVG(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{Width: w, Height: h}, nil
}
