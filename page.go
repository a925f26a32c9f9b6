package htmlstrip

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// initialViewportHeight is the window height pages are opened with. Pages
// are captured beyond the viewport, so it only affects CSS that depends on
// the viewport height.
const initialViewportHeight = 600

// measureScript returns the height of the laid-out content in CSS pixels,
// rounded up. The root element's scrollHeight never drops below the viewport
// height, so the bottom edge of the body's content is measured instead. In
// quirks mode the body itself is stretched to the viewport and only its
// content counts.
const measureScript = `(function() {
	var body = document.body;
	if (!body) return 0;
	var cs = getComputedStyle(body);
	var range = document.createRange();
	range.selectNodeContents(body);
	var bottom = range.getBoundingClientRect().bottom +
		parseFloat(cs.paddingBottom) + parseFloat(cs.borderBottomWidth);
	if (document.compatMode !== 'BackCompat') {
		bottom = Math.max(bottom, body.getBoundingClientRect().bottom);
	}
	return Math.ceil(bottom + parseFloat(cs.marginBottom) + window.scrollY);
})()`

// cutMarkScript replaces the cut marks in the document. It is formatted
// with a JSON array of offsets and a visibility flag.
const cutMarkScript = `(function(offsets, visible) {
	document.querySelectorAll('.htmlstrip-cut-mark').forEach(function(el) { el.remove(); });
	offsets.forEach(function(y) {
		var el = document.createElement('div');
		el.className = 'htmlstrip-cut-mark';
		el.style.cssText = 'position:absolute;left:0;right:0;height:0;margin:0;' +
			'border-top:1px dashed #e00;pointer-events:none;z-index:2147483647;top:' + y + 'px';
		if (!visible) el.style.visibility = 'hidden';
		document.body.appendChild(el);
	});
	return offsets.length;
})(%s, %t)`

// Page is HTML content loaded into a headless browser tab. It implements
// [Surface] and [CutMarker].
//
// A Page serializes all browser calls, so measuring, marking and
// rasterizing never interleave. Call [Page.Close] to close the tab.
type Page struct {
	mu      sync.Mutex
	tabCtx  context.Context
	cancel  context.CancelFunc
	width   int
	cleanup func()
	closed  bool
}

// run executes actions in the page's tab, bounded by ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Measure implements [SurfaceMeasurer].
func (p *Page) Measure(ctx context.Context) (Dimensions, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.measure(ctx)
}

func (p *Page) measure(ctx context.Context) (Dimensions, error) {
	if p.closed {
		return Dimensions{}, ErrClosed
	}
	var height float64
	if err := p.run(ctx, chromedp.Evaluate(measureScript, &height)); err != nil {
		return Dimensions{}, fmt.Errorf("htmlstrip: measuring page: %w", err)
	}
	return Dimensions{Width: float64(p.width), Height: height}, nil
}

// Rasterize implements [Rasterizer]. The browser captures only the
// requested band, at scale device pixels per CSS pixel.
func (p *Page) Rasterize(ctx context.Context, r Region, scale float64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dims, err := p.measure(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkRegion(r, dims, scale); err != nil {
		return nil, err
	}
	r = clampRegion(r, dims)

	var buf []byte
	if err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      0,
				Y:      r.Y,
				Width:  dims.Width,
				Height: r.Height,
				Scale:  scale,
			}).
			Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("htmlstrip: capturing y=%v height=%v: %w", r.Y, r.Height, err)
	}
	return buf, nil
}

// MarkCuts implements [CutMarker]. Hidden marks are still inserted so the
// document looks the same to scripts either way.
func (p *Page) MarkCuts(ctx context.Context, plan CutPlan, visible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	offsets, err := json.Marshal([]float64(append(CutPlan{}, plan...)))
	if err != nil {
		return fmt.Errorf("htmlstrip: encoding cut marks: %w", err)
	}
	var n int
	script := fmt.Sprintf(cutMarkScript, offsets, visible)
	if err := p.run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return fmt.Errorf("htmlstrip: drawing cut marks: %w", err)
	}
	return nil
}

// Title returns the document title as reported by the browser.
func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("htmlstrip: reading title: %w", err)
	}
	return title, nil
}

// Close closes the browser tab. Close is idempotent.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	if p.cleanup != nil {
		p.cleanup()
	}
	return nil
}
