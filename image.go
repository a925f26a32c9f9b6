package htmlstrip

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSurface is a [Surface] over an already rendered image. One image
// pixel counts as one CSS pixel.
type ImageSurface struct {
	img image.Image
}

// NewImageSurface returns a surface over img.
func NewImageSurface(img image.Image) *ImageSurface {
	return &ImageSurface{img: img}
}

// DecodeImageSurface decodes a PNG, JPEG, GIF or WebP image.
func DecodeImageSurface(data []byte) (*ImageSurface, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedContent, err)
	}
	return NewImageSurface(img), nil
}

// Measure implements [SurfaceMeasurer].
func (s *ImageSurface) Measure(context.Context) (Dimensions, error) {
	b := s.img.Bounds()
	return Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

// Rasterize implements [Rasterizer]. Fractional region edges are rounded to
// the nearest row. Scales other than 1 resample with Catmull-Rom.
func (s *ImageSurface) Rasterize(ctx context.Context, r Region, scale float64) ([]byte, error) {
	dims, _ := s.Measure(ctx)
	if err := checkRegion(r, dims, scale); err != nil {
		return nil, err
	}
	r = clampRegion(r, dims)

	b := s.img.Bounds()
	// Each band owns the rows [round(Y), round(Y+Height)), so adjacent
	// bands partition the image.
	y0 := min(int(math.Round(r.Y)), b.Dy()-1)
	y1 := min(int(math.Round(r.Y+r.Height)), b.Dy())
	if y1 <= y0 {
		y1 = y0 + 1
	}
	src := image.Rect(b.Min.X, b.Min.Y+y0, b.Max.X, b.Min.Y+y1)

	w := max(1, int(math.Round(float64(src.Dx())*scale)))
	h := max(1, int(math.Round(float64(src.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		xdraw.Draw(dst, dst.Bounds(), s.img, src.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), s.img, src, xdraw.Src, nil)
	}
	return encodePNG(dst)
}

// Close implements [Surface]. It is a no-op.
func (s *ImageSurface) Close() error {
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("htmlstrip: encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
