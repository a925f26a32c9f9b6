package htmlstrip

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/chromedp/chromedp"
)

// Converter renders content and cuts it into strips.
//
// A Converter manages a headless browser instance that is reused across
// multiple renders for performance. Each opened page gets its own tab. It is
// safe for concurrent use, but its [Exporter] runs one export at a time.
//
// Call [Converter.Close] when the Converter is no longer needed to release
// browser resources.
type Converter struct {
	cfg           config
	exporter      *Exporter
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewConverter creates a Converter with the given options.
//
// It starts a headless browser in the background. The caller must call
// [Converter.Close] when finished.
func NewConverter(opts ...Option) (*Converter, error) {
	cfg := newConfig(opts)

	if cfg.chromePath == "" && cfg.autoDownload {
		p, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = p
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("htmlstrip: starting browser: %w", err)
	}
	cfg.logger.Debug().Str("chrome", cfg.chromePath).Int("viewport_width", cfg.viewportWidth).Msg("browser started")

	return &Converter{
		cfg:           cfg,
		exporter:      &Exporter{cfg: cfg},
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Converter, including the
// browser process. Close is idempotent.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Exporter returns the exporter used by [Converter.Export].
func (c *Converter) Exporter() *Exporter {
	return c.exporter
}

// Open renders content and returns it as a surface. HTML is loaded into a
// new browser tab and the result is a [*Page]; SVG and raster content are
// rendered without the browser.
func (c *Converter) Open(ctx context.Context, content LoadedContent) (Surface, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if content.Kind != KindHTML {
		return NewSurface(content)
	}

	f, err := os.CreateTemp("", "htmlstrip-*.html")
	if err != nil {
		return nil, fmt.Errorf("htmlstrip: creating temp file: %w", err)
	}
	name := f.Name()
	cleanup := func() { os.Remove(name) }

	if _, err := f.Write(content.Data); err != nil {
		f.Close()
		cleanup()
		return nil, fmt.Errorf("htmlstrip: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("htmlstrip: closing temp file: %w", err)
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("htmlstrip: resolving path: %w", err)
	}
	p, err := c.openPage(ctx, "file://"+abs, cleanup)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OpenURL loads the web page at rawURL into a new browser tab.
func (c *Converter) OpenURL(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("htmlstrip: invalid URL %q: %w", rawURL, err)
	}
	return c.openPage(ctx, rawURL, nil)
}

// openPage navigates a new tab to targetURL. cleanup, if not nil, runs when
// the page is closed or fails to load.
func (c *Converter) openPage(ctx context.Context, targetURL string, cleanup func()) (*Page, error) {
	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	fail := func(err error) (*Page, error) {
		tabCancel()
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}
	if err := chromedp.Run(tabCtx); err != nil {
		return fail(fmt.Errorf("htmlstrip: opening tab: %w", err))
	}

	p := &Page{
		tabCtx:  tabCtx,
		cancel:  tabCancel,
		width:   c.cfg.viewportWidth,
		cleanup: cleanup,
	}
	if err := p.run(ctx,
		chromedp.EmulateViewport(int64(c.cfg.viewportWidth), initialViewportHeight),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fail(fmt.Errorf("htmlstrip: loading %s: %w", targetURL, err))
	}
	c.cfg.logger.Debug().Str("url", targetURL).Msg("page loaded")
	return p, nil
}

// Plan measures s and computes its cut plan for cfg. See [PlanSurface].
func (c *Converter) Plan(ctx context.Context, s SurfaceMeasurer, cfg *StripConfig) (CutPlan, Dimensions, error) {
	return PlanSurface(ctx, s, cfg)
}

// PlanSurface measures s and computes its cut plan for cfg. The plan is
// computed the same way whether or not the export will be segmented.
func PlanSurface(ctx context.Context, s SurfaceMeasurer, cfg *StripConfig) (CutPlan, Dimensions, error) {
	r, err := cfg.resolved()
	if err != nil {
		return nil, Dimensions{}, err
	}
	dims, err := s.Measure(ctx)
	if err != nil {
		return nil, Dimensions{}, err
	}
	return ComputeCutPlan(r.IntervalMm, dims.Height), dims, nil
}

// Export renders content and exports it according to cfg.
// If cfg is nil, the content is exported as a single uncut image.
func (c *Converter) Export(ctx context.Context, content LoadedContent, cfg *StripConfig) (*Artifact, error) {
	s, err := c.Open(ctx, content)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return c.exporter.Export(ctx, s, content.BaseName, cfg)
}

// ExportHTML exports an HTML string. The base name comes from its <title>,
// falling back to [PastedSource].
func (c *Converter) ExportHTML(ctx context.Context, html string, cfg *StripConfig) (*Artifact, error) {
	content, err := LoadText(html)
	if err != nil {
		return nil, err
	}
	return c.Export(ctx, content, cfg)
}

// ExportFile exports a local HTML, SVG or image file.
func (c *Converter) ExportFile(ctx context.Context, path string, cfg *StripConfig) (*Artifact, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	content, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Export(ctx, content, cfg)
}

// ExportURL exports the web page at rawURL. The base name comes from the
// page title, falling back to the last element of the URL path.
func (c *Converter) ExportURL(ctx context.Context, rawURL string, cfg *StripConfig) (*Artifact, error) {
	p, err := c.OpenURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	title, err := p.Title(ctx)
	if err != nil {
		return nil, err
	}
	var source string
	if u, err := url.Parse(rawURL); err == nil {
		source = path.Base(u.Path)
	}
	return c.exporter.Export(ctx, p, ResolveBaseName(title, source), cfg)
}

// Preview renders content and returns its strips at the preview scale.
func (c *Converter) Preview(ctx context.Context, content LoadedContent, cfg *StripConfig) ([]Entry, error) {
	s, err := c.Open(ctx, content)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	plan, _, err := c.Plan(ctx, s, cfg)
	if err != nil {
		return nil, err
	}
	return c.exporter.Preview(ctx, s, plan)
}

func (c *Converter) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// --- Package-level convenience functions ---

// ExportHTML exports an HTML string using a temporary [Converter].
// This is convenient for one-off exports. For repeated use, create a
// [Converter] with [NewConverter] to reuse the browser instance.
func ExportHTML(ctx context.Context, html string, cfg *StripConfig, opts ...Option) (*Artifact, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportHTML(ctx, html, cfg)
}

// ExportFile exports a local file using a temporary [Converter].
func ExportFile(ctx context.Context, path string, cfg *StripConfig, opts ...Option) (*Artifact, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportFile(ctx, path, cfg)
}

// ExportURL exports a web page using a temporary [Converter].
func ExportURL(ctx context.Context, rawURL string, cfg *StripConfig, opts ...Option) (*Artifact, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ExportURL(ctx, rawURL, cfg)
}
