// htmlstrip cuts HTML, SVG and images into fixed-length strips.
//
// Usage:
//
//	htmlstrip export [options] <file|url|->
//	htmlstrip preview [options] <file|url|->
//	htmlstrip plan [options] <file|url|->
//	htmlstrip print [options] <file|url|->
//	htmlstrip presets
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	htmlstrip "github.com/porticus-lab/go-html-strip"
	"github.com/porticus-lab/go-html-strip/internal/config"
	"github.com/porticus-lab/go-html-strip/internal/logger"
	"github.com/porticus-lab/go-html-strip/printer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Pretty: true,
		File:   cfg.Logging.File,
		Output: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var run func(context.Context, config.Config, zerolog.Logger, []string) error
	switch os.Args[1] {
	case "export":
		run = runExport
	case "preview":
		run = runPreview
	case "plan":
		run = runPlan
	case "print":
		run = runPrint
	case "presets":
		run = runPresets
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, os.Args[2:]); err != nil {
		if errors.Is(err, htmlstrip.ErrNoContent) {
			// nothing to do
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`htmlstrip - cut HTML, SVG and images into fixed-length strips

Usage:
  htmlstrip export [options] <file|url|->
  htmlstrip preview [options] <file|url|->
  htmlstrip plan [options] <file|url|->
  htmlstrip print [options] <file|url|->
  htmlstrip presets

Commands:
  export    Write a PNG, or a ZIP of numbered strips with -s
  preview   Write every strip as a PNG into a directory
  plan      Print the cut offsets as JSON
  print     Send the export to the print service
  presets   List the named strip lengths

Options:
  -i <mm>         Strip length in millimetres (default: $CUT_INTERVAL_MM)
  -p <preset>     Named strip length, see "htmlstrip presets"
  -s              Segmented export: one image per strip
  -m              Draw cut marks (HTML only, single-image export)
  -o <path>       Output file, or directory for preview (default: derived from the title)
  -w <px>         Viewport width for HTML (default: $VIEWPORT_WIDTH)
  -e <url>        Print service endpoint (default: $PRINT_ENDPOINT)
  -k <key>        Print service API key (default: $THERMAL_API_TOKEN)
  --no-cut        Do not cut the paper after each printed image

A lone "-" reads markup from standard input. Inputs starting with http://
or https:// are loaded in the browser.

Examples:
  htmlstrip export -p receipt-100 -s receipt.html
  htmlstrip export -i 50 -m -o banner.png banner.svg
  cat page.html | htmlstrip plan -i 80 -
  htmlstrip print -p receipt-50 -s ticket.html
`)
}

// options are the parsed command-line options shared by all commands.
type options struct {
	intervalMm float64
	preset     string
	segmented  bool
	cutMarks   bool
	output     string
	width      int
	endpoint   string
	apiKey     string
	noCut      bool
	input      string
}

// parseOptions parses args. Unset values fall back to cfg.
func parseOptions(args []string, cfg config.Config) (options, error) {
	opts := options{
		intervalMm: cfg.Strip.IntervalMm,
		width:      cfg.Browser.ViewportWidth,
		endpoint:   cfg.Printer.Endpoint,
		apiKey:     cfg.Printer.APIKey,
	}

	value := func(i *int) (string, error) {
		flag := args[*i]
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-i":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			mm, err := strconv.ParseFloat(v, 64)
			if err != nil || mm <= 0 {
				return opts, fmt.Errorf("invalid strip length: %s", v)
			}
			if lo := cfg.Strip.MinIntervalMm; lo > 0 && mm < lo {
				return opts, fmt.Errorf("strip length %gmm is below the minimum of %gmm", mm, lo)
			}
			opts.intervalMm = mm
		case "-p":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			if _, ok := htmlstrip.LookupPreset(v); !ok {
				return opts, fmt.Errorf("%w: %q", htmlstrip.ErrUnknownPreset, v)
			}
			opts.preset = v
		case "-s":
			opts.segmented = true
		case "-m":
			opts.cutMarks = true
		case "-o":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			opts.output = v
		case "-w":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			w, err := strconv.Atoi(v)
			if err != nil || w <= 0 {
				return opts, fmt.Errorf("invalid viewport width: %s", v)
			}
			opts.width = w
		case "-e":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			opts.endpoint = v
		case "-k":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			opts.apiKey = v
		case "--no-cut":
			opts.noCut = true
		case "-":
			opts.input = "-"
		default:
			if strings.HasPrefix(args[i], "-") {
				return opts, fmt.Errorf("unknown option: %s", args[i])
			}
			if opts.input != "" {
				return opts, fmt.Errorf("more than one input: %s", args[i])
			}
			opts.input = args[i]
		}
	}

	if opts.input == "" {
		return opts, fmt.Errorf("no input specified")
	}
	return opts, nil
}

func (o options) stripConfig() *htmlstrip.StripConfig {
	return &htmlstrip.StripConfig{
		IntervalMm: o.intervalMm,
		Preset:     o.preset,
		Segmented:  o.segmented,
		CutMarks:   o.cutMarks,
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// urlSource returns the last element of the URL path, or "" when the URL
// has no path. The host is never used as a name.
func urlSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// session renders one input. The browser is only started for HTML and URLs.
type session struct {
	conv     *htmlstrip.Converter
	exporter *htmlstrip.Exporter
	surface  htmlstrip.Surface
	baseName string
}

func openSession(ctx context.Context, cfg config.Config, log zerolog.Logger, o options) (*session, error) {
	libOpts := []htmlstrip.Option{
		htmlstrip.WithLogger(log),
		htmlstrip.WithTimeout(cfg.Browser.Timeout),
		htmlstrip.WithViewportWidth(o.width),
		htmlstrip.WithScale(cfg.Strip.Scale),
		htmlstrip.WithPreviewScale(cfg.Strip.PreviewScale),
		htmlstrip.WithMaxSegments(cfg.Strip.MaxSegments),
	}
	if cfg.Browser.ChromePath != "" {
		libOpts = append(libOpts, htmlstrip.WithChromePath(cfg.Browser.ChromePath))
	}
	if cfg.Browser.NoSandbox {
		libOpts = append(libOpts, htmlstrip.WithNoSandbox())
	}
	if cfg.Browser.AutoDownload {
		libOpts = append(libOpts, htmlstrip.WithAutoDownload())
	}

	if isURL(o.input) {
		conv, err := htmlstrip.NewConverter(libOpts...)
		if err != nil {
			return nil, err
		}
		p, err := conv.OpenURL(ctx, o.input)
		if err != nil {
			conv.Close()
			return nil, err
		}
		title, err := p.Title(ctx)
		if err != nil {
			p.Close()
			conv.Close()
			return nil, err
		}
		return &session{
			conv:     conv,
			exporter: conv.Exporter(),
			surface:  p,
			baseName: htmlstrip.ResolveBaseName(title, urlSource(o.input)),
		}, nil
	}

	var (
		content htmlstrip.LoadedContent
		err     error
	)
	if o.input == "-" {
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return nil, fmt.Errorf("reading stdin: %w", rerr)
		}
		content, err = htmlstrip.LoadText(string(data))
	} else {
		content, err = htmlstrip.LoadFile(o.input)
	}
	if err != nil {
		return nil, err
	}

	s := &session{baseName: content.BaseName}
	if content.Kind == htmlstrip.KindHTML {
		if s.conv, err = htmlstrip.NewConverter(libOpts...); err != nil {
			return nil, err
		}
		s.exporter = s.conv.Exporter()
		s.surface, err = s.conv.Open(ctx, content)
	} else {
		s.exporter = htmlstrip.NewExporter(libOpts...)
		s.surface, err = htmlstrip.NewSurface(content)
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Debug().Str("source", content.Source).Str("kind", content.Kind.String()).Str("base_name", content.BaseName).Msg("content loaded")
	return s, nil
}

func (s *session) Close() {
	if s.surface != nil {
		s.surface.Close()
	}
	if s.conv != nil {
		s.conv.Close()
	}
}

// runExport implements the "export" command.
func runExport(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	o, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg, log, o)
	if err != nil {
		return err
	}
	defer s.Close()

	art, err := s.exporter.Export(ctx, s.surface, s.baseName, o.stripConfig())
	if err != nil {
		return err
	}

	out := o.output
	if out == "" {
		out = art.Name()
	}
	if err := art.WriteToFile(out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	images := 1
	if art.Segmented() {
		images = len(art.Entries())
	}
	fmt.Printf("%s (%d image(s), %d bytes)\n", out, images, art.Len())
	return nil
}

// runPreview implements the "preview" command.
func runPreview(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	o, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg, log, o)
	if err != nil {
		return err
	}
	defer s.Close()

	plan, _, err := htmlstrip.PlanSurface(ctx, s.surface, o.stripConfig())
	if err != nil {
		return err
	}
	entries, err := s.exporter.Preview(ctx, s.surface, plan)
	if err != nil {
		return err
	}

	dir := o.output
	if dir == "" {
		dir = s.baseName + "_preview"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, e := range entries {
		name := htmlstrip.EntryName(s.baseName, e.Segment.Index)
		if err := os.WriteFile(filepath.Join(dir, name), e.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	fmt.Printf("%s (%d strip(s))\n", dir, len(entries))
	return nil
}

// planOutput is the JSON written by the "plan" command.
type planOutput struct {
	BaseName string        `json:"base_name"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Cuts     []float64     `json:"cuts"`
	Segments []planSegment `json:"segments"`
}

type planSegment struct {
	Index  int     `json:"index"`
	YStart float64 `json:"y_start"`
	YEnd   float64 `json:"y_end"`
}

// runPlan implements the "plan" command.
func runPlan(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	o, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg, log, o)
	if err != nil {
		return err
	}
	defer s.Close()

	plan, dims, err := htmlstrip.PlanSurface(ctx, s.surface, o.stripConfig())
	if err != nil {
		return err
	}

	out := planOutput{
		BaseName: s.baseName,
		Width:    dims.Width,
		Height:   dims.Height,
		Cuts:     append([]float64{}, plan...),
	}
	for _, seg := range plan.Segments(dims.Height) {
		out.Segments = append(out.Segments, planSegment{seg.Index, seg.YStart, seg.YEnd})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// runPrint implements the "print" command.
func runPrint(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	o, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}

	clientOpts := []printer.Option{
		printer.WithAPIKey(o.apiKey),
		printer.WithTimeout(cfg.Printer.Timeout),
		printer.WithLogger(log),
	}
	if cfg.Printer.AllowRemote {
		clientOpts = append(clientOpts, printer.WithAllowRemote())
	}
	client, err := printer.New(o.endpoint, clientOpts...)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cfg, log, o)
	if err != nil {
		return err
	}
	defer s.Close()

	art, err := s.exporter.Export(ctx, s.surface, s.baseName, o.stripConfig())
	if err != nil {
		return err
	}
	if err := client.PrintArtifact(ctx, art, !o.noCut); err != nil {
		return err
	}
	fmt.Printf("printed %s via %s\n", art.Name(), client.Endpoint())
	return nil
}

// runPresets implements the "presets" command.
func runPresets(_ context.Context, _ config.Config, _ zerolog.Logger, _ []string) error {
	for _, p := range htmlstrip.Presets() {
		fmt.Printf("%-12s %6.1f mm  %7.1f px\n", p.Name, p.LengthMm, p.LengthMm*htmlstrip.PxPerMM)
	}
	return nil
}
