package htmlstrip

import (
	"context"
	"fmt"
	"math"
)

// Dimensions is the size of a rendered surface in CSS pixels.
type Dimensions struct {
	Width  float64
	Height float64
}

// Region is a full-width horizontal band of a surface, in CSS pixels.
type Region struct {
	Y      float64
	Height float64
}

// Full returns the region covering the whole surface.
func (d Dimensions) Full() Region {
	return Region{Y: 0, Height: d.Height}
}

// RegionOf returns the region covered by s.
func RegionOf(s Segment) Region {
	return Region{Y: s.YStart, Height: s.Height()}
}

// SurfaceMeasurer reports the size of rendered content.
type SurfaceMeasurer interface {
	Measure(ctx context.Context) (Dimensions, error)
}

// Rasterizer renders a band of rendered content to a PNG image.
//
// The returned image holds only the requested band, scaled by scale: a
// region of height h on a surface of width w yields an image of roughly
// w*scale × h*scale device pixels.
type Rasterizer interface {
	Rasterize(ctx context.Context, r Region, scale float64) ([]byte, error)
}

// Surface is rendered content that can be measured and rasterized.
// Implementations never modify the content they were created from.
type Surface interface {
	SurfaceMeasurer
	Rasterizer
	Close() error
}

// CutMarker is implemented by surfaces that can draw visible cut marks
// into their content. Marks are drawn at the given offsets and replace any
// previously drawn marks; an empty plan removes them.
type CutMarker interface {
	MarkCuts(ctx context.Context, plan CutPlan, visible bool) error
}

// checkRegion validates r against a surface of the given dimensions.
func checkRegion(r Region, d Dimensions, scale float64) error {
	if !(r.Height > 0) || r.Y < 0 || math.IsInf(r.Height, 0) {
		return fmt.Errorf("%w: y=%v height=%v", ErrInvalidRegion, r.Y, r.Height)
	}
	if r.Y >= d.Height {
		return fmt.Errorf("%w: y=%v beyond surface height %v", ErrInvalidRegion, r.Y, d.Height)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: scale %v", ErrInvalidRegion, scale)
	}
	return nil
}

// clampRegion trims r so that it ends at the bottom of the surface.
func clampRegion(r Region, d Dimensions) Region {
	if r.Y+r.Height > d.Height {
		r.Height = d.Height - r.Y
	}
	return r
}
