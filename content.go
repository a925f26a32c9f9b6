package htmlstrip

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies how loaded content is rendered.
type Kind int

const (
	// KindHTML is markup rendered by a headless browser.
	KindHTML Kind = iota
	// KindSVG is an SVG document rendered in pure Go.
	KindSVG
	// KindRaster is an already rendered PNG, JPEG, GIF or WebP image.
	KindRaster
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindSVG:
		return "svg"
	case KindRaster:
		return "raster"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// PastedSource is the source name given to content loaded from text.
const PastedSource = "pasted"

// LoadedContent is the result of one load: the content itself and the base
// name every file produced from it is named after. A new load produces a
// new value; nothing is shared between loads.
type LoadedContent struct {
	// BaseName is the stem of output file names, see [ResolveBaseName].
	BaseName string
	// Source is the name the content was loaded from: a file name, a URL
	// or [PastedSource].
	Source string
	// Kind selects the renderer.
	Kind Kind
	// Data is the raw content.
	Data []byte
}

// Markup returns the content as a string.
func (c LoadedContent) Markup() string {
	return string(c.Data)
}

// LoadFile loads the file at path. The base name is taken from the
// document's <title> when it has one, and from the file name otherwise.
func LoadFile(path string) (LoadedContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadedContent{}, fmt.Errorf("htmlstrip: %w", err)
	}
	defer f.Close()
	return LoadReader(filepath.Base(path), f)
}

// LoadReader loads content read from r. name is the source file name; it is
// used for kind detection and as the fallback base name.
func LoadReader(name string, r io.Reader) (LoadedContent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return LoadedContent{}, fmt.Errorf("htmlstrip: reading %s: %w", name, err)
	}
	return load(name, data)
}

// LoadText loads pasted markup. Surrounding whitespace is ignored; text
// that is empty after trimming yields [ErrNoContent].
func LoadText(text string) (LoadedContent, error) {
	return load(PastedSource, []byte(strings.TrimSpace(text)))
}

func load(name string, data []byte) (LoadedContent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return LoadedContent{}, ErrNoContent
	}
	kind, err := DetectKind(name, data)
	if err != nil {
		return LoadedContent{}, err
	}
	var title string
	if kind != KindRaster {
		title = ExtractTitle(string(data))
	}
	return LoadedContent{
		BaseName: ResolveBaseName(title, name),
		Source:   name,
		Kind:     kind,
		Data:     data,
	}, nil
}

// DetectKind sniffs data to decide how it is rendered. The extensions
// .html, .htm and .svg take precedence over the sniffed type.
func DetectKind(name string, data []byte) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return KindHTML, nil
	case ".svg":
		return KindSVG, nil
	}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is("image/svg+xml"):
			return KindSVG, nil
		case m.Is("image/png"), m.Is("image/jpeg"), m.Is("image/gif"), m.Is("image/webp"):
			return KindRaster, nil
		case m.Is("text/plain"):
			return KindHTML, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedContent, mt.String())
}

// ExtractTitle returns the text of the first <title> element in markup, or
// "" when there is none.
func ExtractTitle(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) != atom.Title {
				continue
			}
			// The tokenizer treats <title> as raw text, so its whole
			// content arrives as a single text token.
			if z.Next() == html.TextToken {
				return string(z.Text())
			}
			return ""
		}
	}
}

// SanitizeName makes s safe for use in file names: surrounding whitespace
// is trimmed, inner whitespace runs become a single underscore, and every
// character other than ASCII letters, digits, '_' and '-' is removed.
func SanitizeName(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if isNameRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// ResolveBaseName picks the base name for output files: the sanitized title
// if anything is left of it, else the source name without its extension,
// else [FallbackBaseName].
func ResolveBaseName(title, source string) string {
	if t := SanitizeName(title); t != "" {
		return t
	}
	base := filepath.Base(source)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return FallbackBaseName
}
