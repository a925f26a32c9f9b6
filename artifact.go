package htmlstrip

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// Content types of exported artifacts.
const (
	ContentTypePNG = "image/png"
	ContentTypeZIP = "application/zip"
)

// Entry is one image inside a segmented [Artifact].
type Entry struct {
	Name    string
	Segment Segment
	Data    []byte
}

// Artifact holds the output of an export: either a single PNG image or a
// ZIP archive of numbered segment images. It provides helpers for common
// output forms such as raw bytes, base64 encoding, and streaming readers.
//
// It is safe to call its methods multiple times; the underlying data is
// never modified.
type Artifact struct {
	name        string
	contentType string
	data        []byte
	entries     []Entry
}

// Name returns the download file name, e.g. "report.png" or "report.zip".
func (a *Artifact) Name() string {
	return a.name
}

// ContentType returns the MIME type of [Artifact.Bytes].
func (a *Artifact) ContentType() string {
	return a.contentType
}

// Segmented reports whether the artifact is a ZIP archive of segments.
func (a *Artifact) Segmented() bool {
	return a.contentType == ContentTypeZIP
}

// Entries returns the segment images of a segmented artifact in archive
// order. It returns nil for a single-image artifact.
func (a *Artifact) Entries() []Entry {
	return a.entries
}

// Bytes returns the raw PNG or ZIP content.
func (a *Artifact) Bytes() []byte {
	return a.data
}

// Base64 returns the content encoded as a standard base64 string (RFC 4648).
// This is the form the print service expects in its JSON payload.
func (a *Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.data)
}

// Reader returns an [*bytes.Reader] over the content, suitable for HTTP
// responses or object-storage uploads.
func (a *Artifact) Reader() *bytes.Reader {
	return bytes.NewReader(a.data)
}

// WriteTo writes the full content to w. It implements [io.WriterTo].
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// WriteToFile writes the content to the file at path, creating it if needed.
func (a *Artifact) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, a.data, perm)
}

// Len returns the size of the content in bytes.
func (a *Artifact) Len() int {
	return len(a.data)
}

// String implements fmt.Stringer.
func (a *Artifact) String() string {
	if a.Segmented() {
		return fmt.Sprintf("%s (%d segments, %d bytes)", a.name, len(a.entries), len(a.data))
	}
	return fmt.Sprintf("%s (%d bytes)", a.name, len(a.data))
}
