// Package printer sends exported images to a local thermal print service.
//
// The service accepts a single JSON request per job:
//
//	POST /api/print
//	x-api-key: <key>
//	{"file_base64": "...", "filename": "receipt.png", "options": {"mode": "image", "cut": true}}
//
// By default a [Client] only talks to loopback addresses, because the print
// service is meant to run next to the printer.
package printer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	htmlstrip "github.com/porticus-lab/go-html-strip"
)

// DefaultEndpoint is the print service address used when none is configured.
const DefaultEndpoint = "http://localhost:8069/api/print"

// APIKeyHeader carries the operator-supplied key.
const APIKeyHeader = "x-api-key"

// maxReasonBytes bounds how much of an error response body is kept.
const maxReasonBytes = 4 << 10

// Print modes understood by the service.
const (
	ModeImage = "image"
	ModeText  = "text"
	ModeRaw   = "raw"
)

// ErrRemoteEndpoint is returned when the endpoint is not a loopback address
// and [WithAllowRemote] was not given.
var ErrRemoteEndpoint = errors.New("printer: endpoint is not a local address")

// Options are the per-job print options.
type Options struct {
	Mode string `json:"mode"`
	Cut  bool   `json:"cut"`
}

// Request is the JSON body of a print job.
type Request struct {
	FileBase64 string  `json:"file_base64,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	Text       string  `json:"text,omitempty"`
	Options    Options `json:"options"`
}

// RequestError is returned when the service answers with a non-2xx status.
// Reason is the response body, or the status text when the body is empty.
type RequestError struct {
	StatusCode int
	Reason     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("printer: %d: %s", e.StatusCode, e.Reason)
}

// Client submits print jobs.
type Client struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	allowRemote bool
	log         zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithAPIKey sets the key sent in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the HTTP client. The default has a 30 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithAllowRemote permits endpoints that are not loopback addresses.
func WithAllowRemote() Option {
	return func(c *Client) { c.allowRemote = true }
}

// WithLogger sets the logger used for request events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the service at endpoint, or [DefaultEndpoint]
// when endpoint is empty.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("printer: invalid endpoint %q", endpoint)
	}
	if !c.allowRemote && !IsLocalHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteEndpoint, u.Hostname())
	}
	return c, nil
}

// IsLocalHost reports whether host names this machine.
func IsLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Endpoint returns the service URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PrintImage prints a PNG image.
func (c *Client) PrintImage(ctx context.Context, filename string, png []byte, cut bool) error {
	return c.Send(ctx, Request{
		FileBase64: base64.StdEncoding.EncodeToString(png),
		Filename:   filename,
		Options:    Options{Mode: ModeImage, Cut: cut},
	})
}

// PrintArtifact prints an export. A single image is printed as one job; a
// segmented export is printed one strip per job, in order, each cut when cut
// is true. The first failure stops the remaining strips.
func (c *Client) PrintArtifact(ctx context.Context, a *htmlstrip.Artifact, cut bool) error {
	if !a.Segmented() {
		return c.PrintImage(ctx, a.Name(), a.Bytes(), cut)
	}
	for _, e := range a.Entries() {
		if err := c.PrintImage(ctx, e.Name, e.Data, cut); err != nil {
			return fmt.Errorf("printer: %s: %w", e.Name, err)
		}
	}
	return nil
}

// Send submits one job. It is attempted once.
func (c *Client) Send(ctx context.Context, job Request) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("printer: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("printer: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printer: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxReasonBytes))
		reason := errorReason(msg)
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("filename", job.Filename).Str("reason", reason).Msg("print request rejected")
		return &RequestError{StatusCode: resp.StatusCode, Reason: reason}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Info().
		Str("filename", job.Filename).
		Str("mode", job.Options.Mode).
		Bool("cut", job.Options.Cut).
		Dur("took", time.Since(start)).
		Msg("print request sent")
	return nil
}

// errorReason extracts the failure reason from a response body. Services
// that answer {"detail": "..."} get the detail; anything else is used as is.
func errorReason(body []byte) string {
	var v struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &v); err == nil && v.Detail != "" {
		return v.Detail
	}
	return strings.TrimSpace(string(body))
}
