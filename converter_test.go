package htmlstrip_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	htmlstrip "github.com/porticus-lab/go-html-strip"
)

// chromeAvailable reports whether a Chrome/Chromium executable is in PATH.
func chromeAvailable() bool {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if !chromeAvailable() {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}
}

func newTestConverter(t *testing.T, opts ...htmlstrip.Option) *htmlstrip.Converter {
	t.Helper()
	skipIfNoChrome(t)
	c, err := htmlstrip.NewConverter(append([]htmlstrip.Option{htmlstrip.WithNoSandbox()}, opts...)...)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// isPNG checks whether data starts with the PNG signature.
func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n"))
}

// tallHTML is exactly 1000 CSS pixels tall, well past the initial viewport.
const tallHTML = `<!DOCTYPE html>
<html><head><title>Tall Receipt</title>
<style>html, body { margin: 0; padding: 0; } div { height: 1000px; background: linear-gradient(#fff, #000); }</style>
</head><body><div></div></body></html>`

func TestExportHTML_Single(t *testing.T) {
	c := newTestConverter(t, htmlstrip.WithViewportWidth(400))

	art, err := c.ExportHTML(context.Background(), tallHTML, &htmlstrip.StripConfig{IntervalMm: 25.4})
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	if art.Name() != "Tall_Receipt.png" {
		t.Errorf("Name() = %q", art.Name())
	}
	if !isPNG(art.Bytes()) {
		t.Fatal("output is not a PNG")
	}
	img, err := png.DecodeConfig(art.Reader())
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 800 || img.Height != 2000 {
		t.Errorf("image = %dx%d, want 800x2000", img.Width, img.Height)
	}
}

func TestExportHTML_Segmented(t *testing.T) {
	c := newTestConverter(t, htmlstrip.WithScale(1))

	art, err := c.ExportHTML(context.Background(), tallHTML, &htmlstrip.StripConfig{IntervalMm: 25.4, Segmented: true})
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	if art.Name() != "Tall_Receipt.zip" {
		t.Errorf("Name() = %q", art.Name())
	}

	zr, err := zip.NewReader(art.Reader(), int64(art.Len()))
	if err != nil {
		t.Fatal(err)
	}
	// 10 full inches and a 40px remainder.
	if len(zr.File) != 11 {
		t.Fatalf("archive has %d files, want 11", len(zr.File))
	}
	for i, f := range zr.File {
		if want := htmlstrip.EntryName("Tall_Receipt", i+1); f.Name != want {
			t.Errorf("file %d = %s, want %s", i, f.Name, want)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := png.DecodeConfig(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		wantH := 96
		if i == 10 {
			wantH = 40
		}
		if cfg.Height != wantH {
			t.Errorf("%s height = %d, want %d", f.Name, cfg.Height, wantH)
		}
	}
}

func TestExportHTML_CutMarks(t *testing.T) {
	c := newTestConverter(t)

	art, err := c.ExportHTML(context.Background(), tallHTML, &htmlstrip.StripConfig{Preset: "receipt-100", CutMarks: true})
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	if !isPNG(art.Bytes()) {
		t.Error("output is not a PNG")
	}
}

func TestConverter_Plan(t *testing.T) {
	c := newTestConverter(t)
	content, err := htmlstrip.LoadText(tallHTML)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Open(context.Background(), content)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	plan, dims, err := c.Plan(context.Background(), s, &htmlstrip.StripConfig{IntervalMm: 25.4})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if dims.Height != 1000 || dims.Width != htmlstrip.DefaultViewportWidth {
		t.Errorf("dims = %+v", dims)
	}
	if len(plan) != 10 || plan[0] != 96 || plan[9] != 960 {
		t.Errorf("plan = %v", plan)
	}
}

// shortHTML is 300 CSS pixels tall, well short of the initial viewport.
const shortHTML = `<!DOCTYPE html>
<html><head><title>Short Receipt</title>
<style>html, body { margin: 0; padding: 0; } div { height: 300px; background: #000; }</style>
</head><body><div></div></body></html>`

func TestConverter_PlanShortPage(t *testing.T) {
	c := newTestConverter(t)
	content, err := htmlstrip.LoadText(shortHTML)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.Open(context.Background(), content)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	plan, dims, err := c.Plan(context.Background(), s, &htmlstrip.StripConfig{IntervalMm: 25.4})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if dims.Height != 300 {
		t.Errorf("height = %v, want 300", dims.Height)
	}
	if len(plan) != 3 || plan[0] != 96 || plan[2] != 288 {
		t.Errorf("plan = %v, want [96 192 288]", plan)
	}
}

func TestExportHTML_ShortPage(t *testing.T) {
	c := newTestConverter(t, htmlstrip.WithViewportWidth(400))

	art, err := c.ExportHTML(context.Background(), shortHTML, &htmlstrip.StripConfig{IntervalMm: 25.4})
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	img, err := png.DecodeConfig(art.Reader())
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 800 || img.Height != 600 {
		t.Errorf("image = %dx%d, want 800x600", img.Width, img.Height)
	}

	art, err = c.ExportHTML(context.Background(), shortHTML, &htmlstrip.StripConfig{IntervalMm: 25.4, Segmented: true})
	if err != nil {
		t.Fatalf("ExportHTML segmented: %v", err)
	}
	// Three full inches and a 12px remainder; nothing past the content.
	if n := len(art.Entries()); n != 4 {
		t.Errorf("got %d entries, want 4", n)
	}
}

func TestConverter_Preview(t *testing.T) {
	c := newTestConverter(t)
	content, err := htmlstrip.LoadText(tallHTML)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := c.Preview(context.Background(), content, &htmlstrip.StripConfig{Preset: "a4"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d previews, want 1", len(entries))
	}
}

func TestExportFile(t *testing.T) {
	c := newTestConverter(t)
	path := filepath.Join(t.TempDir(), "report.html")
	if err := os.WriteFile(path, []byte("<p>untitled</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	art, err := c.ExportFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	if art.Name() != "report.png" {
		t.Errorf("Name() = %q, want report.png", art.Name())
	}
}

func TestExportFile_NotFound(t *testing.T) {
	c := newTestConverter(t)
	_, err := c.ExportFile(context.Background(), "/nonexistent/file.html", nil)
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExportURL_InvalidURL(t *testing.T) {
	c := newTestConverter(t)
	_, err := c.ExportURL(context.Background(), "not-a-url", nil)
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestExportHTML_Blank(t *testing.T) {
	c := newTestConverter(t)
	if _, err := c.ExportHTML(context.Background(), "  \n", nil); !errors.Is(err, htmlstrip.ErrNoContent) {
		t.Errorf("error = %v, want ErrNoContent", err)
	}
}

func TestConverter_CloseIdempotent(t *testing.T) {
	skipIfNoChrome(t)
	c, err := htmlstrip.NewConverter(htmlstrip.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConverter_UsedAfterClose(t *testing.T) {
	skipIfNoChrome(t)
	c, err := htmlstrip.NewConverter(htmlstrip.WithNoSandbox())
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	_, err = c.ExportHTML(context.Background(), "<p>test</p>", nil)
	if !errors.Is(err, htmlstrip.ErrClosed) {
		t.Errorf("expected ErrClosed, got: %v", err)
	}
}

func TestExportHTML_PackageLevel(t *testing.T) {
	skipIfNoChrome(t)
	art, err := htmlstrip.ExportHTML(context.Background(), "<h1>Quick</h1>", nil, htmlstrip.WithNoSandbox())
	if err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	if !isPNG(art.Bytes()) {
		t.Error("output is not a PNG")
	}
}
