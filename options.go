package htmlstrip

import (
	"time"

	"github.com/rs/zerolog"
)

// Default rendering parameters.
const (
	// DefaultScale is the device pixel ratio used for exported images.
	DefaultScale = 2.0
	// DefaultPreviewScale is the device pixel ratio used for previews.
	DefaultPreviewScale = 1.0
	// DefaultViewportWidth is the CSS width HTML content is laid out at.
	DefaultViewportWidth = 800
)

// config holds internal configuration shared by [Converter] and [Exporter].
type config struct {
	chromePath    string
	timeout       time.Duration
	noSandbox     bool
	headless      string
	autoDownload  bool
	viewportWidth int

	scale        float64
	previewScale float64
	maxSegments  int

	logger   zerolog.Logger
	observer Observer
}

func defaultConfig() config {
	return config{
		timeout:       30 * time.Second,
		headless:      "new",
		viewportWidth: DefaultViewportWidth,
		scale:         DefaultScale,
		previewScale:  DefaultPreviewScale,
		logger:        zerolog.Nop(),
		observer:      nopObserver{},
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Option configures a [Converter] or an [Exporter].
type Option func(*config)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration of a single render or export.
// Defaults to 30 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload downloads a compatible Chromium build on first use when
// no explicit path is set with [WithChromePath].
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithViewportWidth sets the CSS width, in pixels, that HTML content is
// laid out at. Non-positive values keep the default of 800.
func WithViewportWidth(px int) Option {
	return func(c *config) {
		if px > 0 {
			c.viewportWidth = px
		}
	}
}

// WithScale sets the device pixel ratio for exported images. Defaults to 2.
func WithScale(scale float64) Option {
	return func(c *config) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithPreviewScale sets the device pixel ratio for previews. Defaults to 1.
func WithPreviewScale(scale float64) Option {
	return func(c *config) {
		if scale > 0 {
			c.previewScale = scale
		}
	}
}

// WithMaxSegments limits how many segments a single export may produce.
// Zero means no limit.
func WithMaxSegments(n int) Option {
	return func(c *config) {
		c.maxSegments = n
	}
}

// WithLogger sets the logger used for debug and progress events.
// By default nothing is logged.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver registers an [Observer] notified of rasterizations and exports.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}
