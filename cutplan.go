package htmlstrip

import "math"

// PxPerMM is the number of CSS reference pixels in one millimetre (96 DPI).
// Surfaces are measured in CSS pixels, so this is fixed.
const PxPerMM = 96 / 25.4

// mmToPx converts millimetres to CSS pixels. Dividing by the inch first keeps
// whole-inch lengths exact.
func mmToPx(mm float64) float64 {
	return mm / 25.4 * 96
}

// CutPlan is an ordered list of vertical cut offsets in CSS pixels.
//
// Every offset of a plan returned by [ComputeCutPlan] lies strictly inside
// the surface it was computed for, and the offsets are strictly increasing.
type CutPlan []float64

// ComputeCutPlan returns the cut offsets for a surface of heightPx pixels cut
// every intervalMm millimetres.
//
// An interval that is not a positive finite number yields an empty plan, as
// does a surface no taller than one interval. The last partial strip is not
// represented by an offset; it is the band between the final cut and the
// bottom edge (see [CutPlan.Segments]).
func ComputeCutPlan(intervalMm, heightPx float64) CutPlan {
	if !(intervalMm > 0) || math.IsInf(intervalMm, 0) {
		return nil
	}
	if !(heightPx > 0) || math.IsInf(heightPx, 0) {
		return nil
	}

	intervalPx := mmToPx(intervalMm)
	if intervalPx >= heightPx {
		return nil
	}

	// Offsets are k*interval rather than a running sum so that long
	// documents do not accumulate rounding drift.
	plan := make(CutPlan, 0, int(heightPx/intervalPx))
	for k := 1; ; k++ {
		y := float64(k) * intervalPx
		if y >= heightPx {
			break
		}
		plan = append(plan, y)
	}
	return plan
}

// Boundaries returns [0] ++ p ++ [heightPx].
func (p CutPlan) Boundaries(heightPx float64) []float64 {
	b := make([]float64, 0, len(p)+2)
	b = append(b, 0)
	b = append(b, p...)
	return append(b, heightPx)
}

// Segment is the half-open vertical band [YStart, YEnd) of a surface.
type Segment struct {
	// Index is the 1-based position among retained segments.
	Index  int
	YStart float64
	YEnd   float64
}

// Height returns YEnd - YStart.
func (s Segment) Height() float64 {
	return s.YEnd - s.YStart
}

// Segments partitions a surface of heightPx pixels at the plan's offsets.
//
// Bands of zero or negative height are dropped and the remaining segments
// are numbered densely from 1.
func (p CutPlan) Segments(heightPx float64) []Segment {
	b := p.Boundaries(heightPx)
	segs := make([]Segment, 0, len(b)-1)
	for i := 0; i < len(b)-1; i++ {
		start, end := b[i], b[i+1]
		if end-start <= 0 {
			continue
		}
		segs = append(segs, Segment{Index: len(segs) + 1, YStart: start, YEnd: end})
	}
	return segs
}
