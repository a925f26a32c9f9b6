package htmlstrip

import (
	"context"
	"errors"
	"image"
	"testing"
)

// twoTone is red on top, blue on the bottom.
const twoTone = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 400">
  <rect x="0" y="0" width="100" height="200" fill="#ff0000"/>
  <rect x="0" y="200" width="100" height="200" fill="#0000ff"/>
</svg>`

func rgbAt(img image.Image, x, y int) [3]uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

var (
	red  = [3]uint8{255, 0, 0}
	blue = [3]uint8{0, 0, 255}
)

func TestSVGSurface_Measure(t *testing.T) {
	s, err := NewSVGSurface([]byte(twoTone))
	if err != nil {
		t.Fatal(err)
	}
	dims, _ := s.Measure(context.Background())
	if dims != (Dimensions{Width: 100, Height: 400}) {
		t.Errorf("dims = %+v", dims)
	}
}

func TestSVGSurface_Rasterize(t *testing.T) {
	s, err := NewSVGSurface([]byte(twoTone))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		region Region
		scale  float64
		wantW  int
		wantH  int
		probes map[image.Point][3]uint8
	}{
		{"top band", Region{Y: 0, Height: 100}, 1, 100, 100, map[image.Point][3]uint8{{50, 50}: red}},
		{"bottom band", Region{Y: 200, Height: 100}, 1, 100, 100, map[image.Point][3]uint8{{50, 50}: blue}},
		{"straddling", Region{Y: 150, Height: 100}, 1, 100, 100, map[image.Point][3]uint8{{50, 25}: red, {50, 75}: blue}},
		{"clamped", Region{Y: 350, Height: 100}, 1, 100, 50, map[image.Point][3]uint8{{50, 25}: blue}},
		{"doubled", Region{Y: 150, Height: 100}, 2, 200, 200, map[image.Point][3]uint8{{100, 50}: red, {100, 150}: blue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := s.Rasterize(context.Background(), tt.region, tt.scale)
			if err != nil {
				t.Fatal(err)
			}
			img := decodePNG(t, data)
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			for p, want := range tt.probes {
				if got := rgbAt(img, p.X, p.Y); got != want {
					t.Errorf("pixel %v = %v, want %v", p, got, want)
				}
			}
		})
	}
}

func TestSVGSurface_Repeatable(t *testing.T) {
	s, err := NewSVGSurface([]byte(twoTone))
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.Rasterize(context.Background(), Region{Y: 200, Height: 100}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Rasterize(context.Background(), Region{Y: 0, Height: 50}, 3); err != nil {
		t.Fatal(err)
	}
	b, err := s.Rasterize(context.Background(), Region{Y: 200, Height: 100}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("rasterizing the same band twice gave different images")
	}
}

func TestNewSVGSurface_NoViewBox(t *testing.T) {
	_, err := NewSVGSurface([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="1" height="1"/></svg>`))
	if !errors.Is(err, ErrUnsupportedContent) {
		t.Errorf("error = %v, want ErrUnsupportedContent", err)
	}
}

func TestNewSurface(t *testing.T) {
	if _, err := NewSurface(LoadedContent{Kind: KindHTML, Data: []byte("<p>x</p>")}); !errors.Is(err, ErrNeedsBrowser) {
		t.Errorf("html: error = %v, want ErrNeedsBrowser", err)
	}

	s, err := NewSurface(LoadedContent{Kind: KindSVG, Data: []byte(twoTone)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*SVGSurface); !ok {
		t.Errorf("svg surface type = %T", s)
	}

	s, err = NewSurface(LoadedContent{Kind: KindRaster, Data: pngBytes(t, 2, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*ImageSurface); !ok {
		t.Errorf("raster surface type = %T", s)
	}

	if _, err := NewSurface(LoadedContent{Kind: KindRaster, Data: []byte("junk")}); !errors.Is(err, ErrUnsupportedContent) {
		t.Errorf("bad raster: error = %v", err)
	}
}

func TestExport_SVGEndToEnd(t *testing.T) {
	c, err := LoadText(twoTone)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != KindSVG {
		t.Fatalf("kind = %v, want svg", c.Kind)
	}
	s, err := NewSurface(c)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	art, err := NewExporter(WithScale(1)).Export(context.Background(), s, c.BaseName, &StripConfig{IntervalMm: 25.4, Segmented: true})
	if err != nil {
		t.Fatal(err)
	}
	wantH := []int{96, 96, 96, 96, 16}
	ents := art.Entries()
	if len(ents) != len(wantH) {
		t.Fatalf("got %d entries, want %d", len(ents), len(wantH))
	}
	for i, ent := range ents {
		if h := decodePNG(t, ent.Data).Bounds().Dy(); h != wantH[i] {
			t.Errorf("entry %s height = %d, want %d", ent.Name, h, wantH[i])
		}
	}
	if ents[0].Name != "pasted_001_segment.png" {
		t.Errorf("first entry = %s", ents[0].Name)
	}
}
