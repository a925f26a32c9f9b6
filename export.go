package htmlstrip

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Export modes reported to an [Observer].
const (
	ModeSingle    = "single"
	ModeSegmented = "segmented"
	ModePreview   = "preview"
)

// FallbackBaseName is used when no title or source name is available.
const FallbackBaseName = "segment"

// Observer receives timing and outcome events from an [Exporter].
// Implementations must be safe for concurrent use.
type Observer interface {
	// Rasterized is called after every rasterization call.
	Rasterized(mode string, d time.Duration, err error)
	// Exported is called once per export with the number of images produced.
	Exported(mode string, images int, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) Rasterized(string, time.Duration, error)    {}
func (nopObserver) Exported(string, int, time.Duration, error) {}

// Renderable is rendered content an [Exporter] can slice.
type Renderable interface {
	SurfaceMeasurer
	Rasterizer
}

// Exporter slices rendered content into images and packages them.
//
// An Exporter runs one export at a time: calling [Exporter.BuildArtifact]
// while another export is running fails with [ErrExportInFlight].
type Exporter struct {
	cfg     config
	running atomic.Bool
}

// NewExporter returns an Exporter configured by opts. Only the scale,
// timeout, segment limit, logger and observer options apply.
func NewExporter(opts ...Option) *Exporter {
	return &Exporter{cfg: newConfig(opts)}
}

// SingleName returns the file name of a single-image export.
func SingleName(baseName string) string {
	return orFallback(baseName) + ".png"
}

// ArchiveName returns the file name of a segmented export.
func ArchiveName(baseName string) string {
	return orFallback(baseName) + ".zip"
}

// EntryName returns the archive entry name of the segment at the given
// 1-based index, e.g. "report_001_segment.png".
func EntryName(baseName string, index int) string {
	return fmt.Sprintf("%s_%03d_segment.png", orFallback(baseName), index)
}

func orFallback(baseName string) string {
	if baseName == "" {
		return FallbackBaseName
	}
	return baseName
}

// BuildArtifact exports s.
//
// When segmented is false the whole surface is rasterized once and plan is
// ignored. Otherwise every segment of plan is rasterized on its own, in
// order, and the images are bundled into a ZIP archive. A failure on any
// segment aborts the export.
func (e *Exporter) BuildArtifact(ctx context.Context, s Renderable, plan CutPlan, segmented bool, baseName string) (*Artifact, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrExportInFlight
	}
	defer e.running.Store(false)

	if e.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.timeout)
		defer cancel()
	}

	mode := ModeSingle
	if segmented {
		mode = ModeSegmented
	}
	start := time.Now()

	var (
		art *Artifact
		err error
	)
	if segmented {
		art, err = e.buildArchive(ctx, s, plan, baseName)
	} else {
		art, err = e.buildSingle(ctx, s, baseName)
	}

	images := 0
	if err == nil {
		images = 1
		if segmented {
			images = len(art.entries)
		}
	}
	e.cfg.observer.Exported(mode, images, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	e.cfg.logger.Debug().
		Str("mode", mode).
		Str("name", art.name).
		Int("images", images).
		Int("bytes", len(art.data)).
		Dur("took", time.Since(start)).
		Msg("export finished")
	return art, nil
}

// Export computes the cut plan of s for cfg and builds the artifact. When
// cfg asks for cut marks and s is a [CutMarker], the marks are drawn first;
// they are hidden in segmented mode, where the cut is the image edge.
// If cfg is nil, s is exported as a single uncut image.
func (e *Exporter) Export(ctx context.Context, s Renderable, baseName string, cfg *StripConfig) (*Artifact, error) {
	r, err := cfg.resolved()
	if err != nil {
		return nil, err
	}
	plan, dims, err := PlanSurface(ctx, s, &r)
	if err != nil {
		return nil, err
	}

	if m, ok := s.(CutMarker); ok && r.CutMarks {
		if err := m.MarkCuts(ctx, plan, !r.Segmented); err != nil {
			return nil, err
		}
	}

	e.cfg.logger.Debug().
		Str("base_name", baseName).
		Float64("interval_mm", r.IntervalMm).
		Float64("height_px", dims.Height).
		Int("cuts", len(plan)).
		Bool("segmented", r.Segmented).
		Msg("cut plan computed")

	return e.BuildArtifact(ctx, s, plan, r.Segmented, baseName)
}

// Running reports whether an export is in progress.
func (e *Exporter) Running() bool {
	return e.running.Load()
}

func (e *Exporter) buildSingle(ctx context.Context, s Renderable, baseName string) (*Artifact, error) {
	dims, err := s.Measure(ctx)
	if err != nil {
		return nil, fmt.Errorf("htmlstrip: measuring surface: %w", err)
	}
	data, err := e.rasterize(ctx, s, dims.Full(), e.cfg.scale, ModeSingle)
	if err != nil {
		return nil, fmt.Errorf("htmlstrip: rasterizing surface: %w", err)
	}
	return &Artifact{
		name:        SingleName(baseName),
		contentType: ContentTypePNG,
		data:        data,
	}, nil
}

func (e *Exporter) buildArchive(ctx context.Context, s Renderable, plan CutPlan, baseName string) (*Artifact, error) {
	entries, err := e.slice(ctx, s, plan, baseName, e.cfg.scale, ModeSegmented)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ent := range entries {
		// PNG data is already compressed.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: ent.Name, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("htmlstrip: adding %s to archive: %w", ent.Name, err)
		}
		if _, err := w.Write(ent.Data); err != nil {
			return nil, fmt.Errorf("htmlstrip: writing %s to archive: %w", ent.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("htmlstrip: finishing archive: %w", err)
	}

	return &Artifact{
		name:        ArchiveName(baseName),
		contentType: ContentTypeZIP,
		data:        buf.Bytes(),
		entries:     entries,
	}, nil
}

// Preview rasterizes every segment of plan at the preview scale and returns
// the images in order. It is meant for on-screen display and does not
// count as an export.
func (e *Exporter) Preview(ctx context.Context, s Renderable, plan CutPlan) ([]Entry, error) {
	start := time.Now()
	entries, err := e.slice(ctx, s, plan, FallbackBaseName, e.cfg.previewScale, ModePreview)
	e.cfg.observer.Exported(ModePreview, len(entries), time.Since(start), err)
	return entries, err
}

// slice rasterizes the segments of plan one after another.
func (e *Exporter) slice(ctx context.Context, s Renderable, plan CutPlan, baseName string, scale float64, mode string) ([]Entry, error) {
	dims, err := s.Measure(ctx)
	if err != nil {
		return nil, fmt.Errorf("htmlstrip: measuring surface: %w", err)
	}

	segs := plan.within(dims.Height).Segments(dims.Height)
	if e.cfg.maxSegments > 0 && len(segs) > e.cfg.maxSegments {
		return nil, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManySegments, len(segs), e.cfg.maxSegments)
	}

	entries := make([]Entry, 0, len(segs))
	for _, seg := range segs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("htmlstrip: segment %d: %w", seg.Index, err)
		}
		data, err := e.rasterize(ctx, s, RegionOf(seg), scale, mode)
		if err != nil {
			return nil, fmt.Errorf("htmlstrip: rasterizing segment %d: %w", seg.Index, err)
		}
		entries = append(entries, Entry{
			Name:    EntryName(baseName, seg.Index),
			Segment: seg,
			Data:    data,
		})
		e.cfg.logger.Debug().
			Int("segment", seg.Index).
			Float64("y", seg.YStart).
			Float64("height", seg.Height()).
			Int("bytes", len(data)).
			Msg("segment rasterized")
	}
	return entries, nil
}

func (e *Exporter) rasterize(ctx context.Context, s Rasterizer, r Region, scale float64, mode string) ([]byte, error) {
	start := time.Now()
	data, err := s.Rasterize(ctx, r, scale)
	e.cfg.observer.Rasterized(mode, time.Since(start), err)
	return data, err
}

// within drops offsets outside the open interval (0, heightPx).
func (p CutPlan) within(heightPx float64) CutPlan {
	out := make(CutPlan, 0, len(p))
	for _, y := range p {
		if y > 0 && y < heightPx {
			out = append(out, y)
		}
	}
	return out
}
