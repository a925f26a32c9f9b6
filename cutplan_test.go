package htmlstrip

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMmToPx(t *testing.T) {
	tests := []struct {
		mm   float64
		want float64
	}{
		{25.4, 96},
		{0, 0},
		{10, 37.7953},
		{297, 1122.5197},
	}
	for _, tt := range tests {
		got := mmToPx(tt.mm)
		if !almostEqual(got, tt.want, 0.001) {
			t.Errorf("mmToPx(%v) = %v, want ~%v", tt.mm, got, tt.want)
		}
	}
	if !almostEqual(PxPerMM, 3.7795, 0.0001) {
		t.Errorf("PxPerMM = %v", PxPerMM)
	}
}

func TestComputeCutPlan_NoInterval(t *testing.T) {
	for _, mm := range []float64{0, -1, -25.4, math.NaN(), math.Inf(1), math.Inf(-1)} {
		for _, h := range []float64{0, 1, 300, 1e6} {
			if got := ComputeCutPlan(mm, h); len(got) != 0 {
				t.Errorf("ComputeCutPlan(%v, %v) = %v, want empty", mm, h, got)
			}
		}
	}
}

func TestComputeCutPlan_OneInch(t *testing.T) {
	got := ComputeCutPlan(25.4, 300)
	want := CutPlan{96, 192, 288}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComputeCutPlan(25.4, 300) = %v, want %v", got, want)
	}
}

func TestComputeCutPlan_ShortSurface(t *testing.T) {
	tests := []struct {
		mm, h float64
	}{
		{25.4, 96},
		{25.4, 95.9},
		{100, 200},
		{10, 0},
		{10, -5},
		{10, math.NaN()},
	}
	for _, tt := range tests {
		plan := ComputeCutPlan(tt.mm, tt.h)
		if len(plan) != 0 {
			t.Errorf("ComputeCutPlan(%v, %v) = %v, want empty", tt.mm, tt.h, plan)
		}
	}

	segs := ComputeCutPlan(25.4, 96).Segments(96)
	if len(segs) != 1 || segs[0] != (Segment{Index: 1, YStart: 0, YEnd: 96}) {
		t.Errorf("segments = %+v, want the whole surface", segs)
	}
}

func TestComputeCutPlan_Bounds(t *testing.T) {
	for _, mm := range []float64{0.5, 1, 7.3, 25.4, 50, 80, 297} {
		for _, h := range []float64{1, 37.8, 300, 1123, 5000.5, 123456} {
			plan := ComputeCutPlan(mm, h)
			prev := 0.0
			for i, y := range plan {
				if !(y > 0 && y < h) {
					t.Fatalf("ComputeCutPlan(%v, %v)[%d] = %v out of (0, %v)", mm, h, i, y, h)
				}
				if y <= prev {
					t.Fatalf("ComputeCutPlan(%v, %v) not strictly increasing at %d: %v", mm, h, i, plan)
				}
				prev = y
			}
			if n := len(plan); n > 0 {
				// The next cut would reach or pass the bottom edge.
				if next := plan[n-1] + mmToPx(mm); next < h-1e-9 {
					t.Errorf("ComputeCutPlan(%v, %v) stops early at %v", mm, h, plan[n-1])
				}
			}
		}
	}
}

func TestComputeCutPlan_NoDrift(t *testing.T) {
	plan := ComputeCutPlan(25.4, 96*10000+1)
	if len(plan) != 10000 {
		t.Fatalf("len = %d, want 10000", len(plan))
	}
	if plan[len(plan)-1] != 960000 {
		t.Errorf("last offset = %v, want exactly 960000", plan[len(plan)-1])
	}
}

func TestComputeCutPlan_Idempotent(t *testing.T) {
	a := ComputeCutPlan(80, 2000)
	b := ComputeCutPlan(80, 2000)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("plans differ: %v vs %v", a, b)
	}
}

func TestCutPlan_Boundaries(t *testing.T) {
	got := CutPlan{100, 250}.Boundaries(300)
	want := []float64{0, 100, 250, 300}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Boundaries = %v, want %v", got, want)
	}

	if got := CutPlan(nil).Boundaries(50); !reflect.DeepEqual(got, []float64{0, 50}) {
		t.Errorf("empty plan boundaries = %v", got)
	}
}

func TestCutPlan_Segments(t *testing.T) {
	segs := CutPlan{100, 250}.Segments(300)
	wantHeights := []float64{100, 150, 50}
	if len(segs) != len(wantHeights) {
		t.Fatalf("got %d segments, want %d", len(segs), len(wantHeights))
	}
	for i, s := range segs {
		if s.Index != i+1 {
			t.Errorf("segment %d index = %d", i, s.Index)
		}
		if s.Height() != wantHeights[i] {
			t.Errorf("segment %d height = %v, want %v", i, s.Height(), wantHeights[i])
		}
	}
}

func TestCutPlan_SegmentsDropDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		plan  CutPlan
		h     float64
		wantY [][2]float64
	}{
		{"duplicate offset", CutPlan{100, 100, 250}, 300, [][2]float64{{0, 100}, {100, 250}, {250, 300}}},
		{"offset at bottom", CutPlan{100, 300}, 300, [][2]float64{{0, 100}, {100, 300}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := tt.plan.Segments(tt.h)
			if len(segs) != len(tt.wantY) {
				t.Fatalf("segments = %+v, want %d", segs, len(tt.wantY))
			}
			for i, s := range segs {
				if s.Index != i+1 || s.YStart != tt.wantY[i][0] || s.YEnd != tt.wantY[i][1] {
					t.Errorf("segment %d = %+v, want index %d %v", i, s, i+1, tt.wantY[i])
				}
			}
		})
	}
}

func TestCutPlan_Within(t *testing.T) {
	got := CutPlan{-5, 0, 50, 100, 150}.within(100)
	if !reflect.DeepEqual(got, CutPlan{50}) {
		t.Errorf("within = %v, want [50]", got)
	}
}
