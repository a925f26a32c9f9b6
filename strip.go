package htmlstrip

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a named standard strip length.
type Preset struct {
	Name     string
	LengthMm float64
}

// Standard strip lengths. The paper lengths match the long edge of the
// corresponding sheet so a banner can be tiled onto it.
var (
	Receipt50  = Preset{Name: "receipt-50", LengthMm: 50}
	Receipt100 = Preset{Name: "receipt-100", LengthMm: 100}
	Receipt150 = Preset{Name: "receipt-150", LengthMm: 150}
	Receipt200 = Preset{Name: "receipt-200", LengthMm: 200}
	A3         = Preset{Name: "a3", LengthMm: 420}
	A4         = Preset{Name: "a4", LengthMm: 297}
	A5         = Preset{Name: "a5", LengthMm: 210}
	A6         = Preset{Name: "a6", LengthMm: 148}
	Letter     = Preset{Name: "letter", LengthMm: 279.4}
	Legal      = Preset{Name: "legal", LengthMm: 355.6}
	Tabloid    = Preset{Name: "tabloid", LengthMm: 431.8}
)

var presets = []Preset{
	Receipt50, Receipt100, Receipt150, Receipt200,
	A6, A5, A4, A3, Letter, Legal, Tabloid,
}

// Presets returns all presets ordered by length.
func Presets() []Preset {
	out := append([]Preset(nil), presets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LengthMm < out[j].LengthMm })
	return out
}

// LookupPreset returns the preset with the given case-insensitive name.
func LookupPreset(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// StripConfig controls how content is cut and exported.
//
// A nil StripConfig or zero-value fields use defaults: no cutting,
// single-image export at 2×, no cut marks.
type StripConfig struct {
	// IntervalMm is the strip length in millimetres. Zero or negative
	// means the content is not cut.
	IntervalMm float64

	// Preset, when set, names a [Preset] whose length replaces IntervalMm.
	Preset string

	// Segmented exports one image per strip bundled into a ZIP archive
	// instead of a single image of the whole content.
	Segmented bool

	// CutMarks draws visible dashed lines at the cut positions. Marks are
	// only drawn for single-image exports of HTML content; in segmented
	// mode the cut is the image edge.
	CutMarks bool
}

// resolved returns a copy with the preset applied.
func (c *StripConfig) resolved() (StripConfig, error) {
	if c == nil {
		return StripConfig{}, nil
	}
	r := *c
	if r.Preset != "" {
		p, ok := LookupPreset(r.Preset)
		if !ok {
			return StripConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, r.Preset)
		}
		r.IntervalMm = p.LengthMm
	}
	return r, nil
}

// ApplyPreset sets IntervalMm from the named preset. An empty name leaves
// the interval unchanged.
func (c *StripConfig) ApplyPreset(name string) error {
	if name == "" {
		return nil
	}
	p, ok := LookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	c.IntervalMm = p.LengthMm
	c.Preset = ""
	return nil
}
