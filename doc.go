// Package htmlstrip renders HTML, SVG and images and cuts the result into
// fixed-length horizontal strips for receipt printers and tiled banners.
//
// # Exporting
//
// For one-off exports use the package-level helpers:
//
//	art, err := htmlstrip.ExportHTML(ctx, "<h1>Hello</h1>", nil)
//
// For repeated exports create a [Converter], which reuses the browser process:
//
//	c, err := htmlstrip.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	art, err := c.ExportHTML(ctx, "<h1>Hello</h1>", nil)
//	art, err  = c.ExportURL(ctx, "https://example.com", nil)
//	art, err  = c.ExportFile(ctx, "report.html", nil)
//
// Use [StripConfig] to set the strip length and choose between a single image
// and a ZIP archive of one image per strip:
//
//	cfg := &htmlstrip.StripConfig{
//	    IntervalMm: 80,
//	    Segmented:  true,
//	}
//	art, err := c.ExportHTML(ctx, html, cfg)
//
// Lengths are converted at 96 CSS pixels per inch. [Presets] lists the named
// standard lengths accepted in [StripConfig.Preset].
//
// An [Artifact] gives flexible access to the exported bytes:
//
//	art.Name()                         // "report.png" or "report.zip"
//	art.Bytes()                        // []byte
//	art.Base64()                       // base64 string (RFC 4648)
//	art.Reader()                       // *bytes.Reader
//	art.Entries()                      // segment images of a ZIP export
//	art.WriteToFile(art.Name(), 0o644) // write to disk
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	c, err := htmlstrip.NewConverter(htmlstrip.WithAutoDownload())
//
// # Without a browser
//
// SVG documents and PNG, JPEG, GIF or WebP images are rendered in pure Go.
// Load them, open a surface and export it with an [Exporter]:
//
//	content, err := htmlstrip.LoadFile("banner.svg")
//	s, err := htmlstrip.NewSurface(content)
//	art, err := htmlstrip.NewExporter().Export(ctx, s, content.BaseName, cfg)
//
// # Cut plans
//
// [ComputeCutPlan] is pure and can be used on its own:
//
//	plan := htmlstrip.ComputeCutPlan(25.4, 300) // [96 192 288]
//	for _, seg := range plan.Segments(300) {
//	    fmt.Println(seg.Index, seg.YStart, seg.YEnd)
//	}
package htmlstrip
