package htmlstrip

import "errors"

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Converter] or surface.
	ErrClosed = errors.New("htmlstrip: converter is closed")

	// ErrNoContent is returned when a load has nothing to load, such as
	// blank pasted text. Callers usually treat it as a no-op.
	ErrNoContent = errors.New("htmlstrip: no content")

	// ErrUnsupportedContent is returned for input that is neither markup
	// nor a decodable raster image.
	ErrUnsupportedContent = errors.New("htmlstrip: unsupported content type")

	// ErrNeedsBrowser is returned by [NewSurface] for HTML content, which
	// can only be rendered by a [Converter].
	ErrNeedsBrowser = errors.New("htmlstrip: HTML content requires a browser")

	// ErrExportInFlight is returned when an [Exporter] is asked to start an
	// export while another one is still running.
	ErrExportInFlight = errors.New("htmlstrip: export already in progress")

	// ErrTooManySegments is returned when a cut plan would produce more
	// segments than the configured maximum.
	ErrTooManySegments = errors.New("htmlstrip: too many segments")

	// ErrUnknownPreset is returned for a preset name that [LookupPreset]
	// does not know.
	ErrUnknownPreset = errors.New("htmlstrip: unknown preset")

	// ErrInvalidRegion is returned when a rasterization region is empty or
	// outside the surface.
	ErrInvalidRegion = errors.New("htmlstrip: invalid region")
)
