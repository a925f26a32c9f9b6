package htmlstrip

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// SVGSurface is a [Surface] that renders an SVG document without a browser.
// Its size is the document's viewBox in CSS pixels.
type SVGSurface struct {
	mu   sync.Mutex
	icon *oksvg.SvgIcon
	dims Dimensions
}

// NewSVGSurface parses an SVG document.
func NewSVGSurface(data []byte) (*SVGSurface, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing SVG: %v", ErrUnsupportedContent, err)
	}
	w, h := icon.ViewBox.W, icon.ViewBox.H
	if !(w > 0) || !(h > 0) {
		return nil, fmt.Errorf("%w: SVG has no usable viewBox", ErrUnsupportedContent)
	}
	return &SVGSurface{icon: icon, dims: Dimensions{Width: w, Height: h}}, nil
}

// Measure implements [SurfaceMeasurer].
func (s *SVGSurface) Measure(context.Context) (Dimensions, error) {
	return s.dims, nil
}

// Rasterize implements [Rasterizer]. Only the requested band is drawn: the
// document is shifted up by r.Y and rendered onto a canvas the size of the
// band, on a white background.
func (s *SVGSurface) Rasterize(_ context.Context, r Region, scale float64) ([]byte, error) {
	if err := checkRegion(r, s.dims, scale); err != nil {
		return nil, err
	}
	r = clampRegion(r, s.dims)

	w := max(1, int(math.Ceil(s.dims.Width*scale)))
	h := max(1, int(math.Ceil(r.Height*scale)))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, xdraw.Src)

	s.mu.Lock()
	s.icon.SetTarget(0, -r.Y*scale, s.dims.Width*scale, s.dims.Height*scale)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	s.icon.Draw(raster, 1.0)
	s.mu.Unlock()

	return encodePNG(img)
}

// Close implements [Surface]. It is a no-op.
func (s *SVGSurface) Close() error {
	return nil
}

// NewSurface returns a pure-Go surface for SVG or raster content.
// HTML content yields [ErrNeedsBrowser]; use [Converter.Open] for it.
func NewSurface(c LoadedContent) (Surface, error) {
	switch c.Kind {
	case KindSVG:
		s, err := NewSVGSurface(c.Data)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindRaster:
		s, err := DecodeImageSurface(c.Data)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindHTML:
		return nil, ErrNeedsBrowser
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, c.Kind)
	}
}
