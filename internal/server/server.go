// Package server exposes exports, cut plans and printing over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	htmlstrip "github.com/porticus-lab/go-html-strip"
	"github.com/porticus-lab/go-html-strip/internal/metrics"
	"github.com/porticus-lab/go-html-strip/internal/store"
	"github.com/porticus-lab/go-html-strip/printer"
)

// Backend renders and exports content. *htmlstrip.Converter implements it.
type Backend interface {
	Open(ctx context.Context, content htmlstrip.LoadedContent) (htmlstrip.Surface, error)
	Export(ctx context.Context, content htmlstrip.LoadedContent, cfg *htmlstrip.StripConfig) (*htmlstrip.Artifact, error)
}

// Printer prints finished exports. *printer.Client implements it.
type Printer interface {
	PrintArtifact(ctx context.Context, a *htmlstrip.Artifact, cut bool) error
}

// Uploader stores finished exports and returns their location.
type Uploader interface {
	Upload(ctx context.Context, id, name, contentType string, data []byte) (string, error)
}

// Dependencies wires the server. Printer and Uploader are optional.
type Dependencies struct {
	Backend      Backend
	Printer      Printer
	Status       store.Store
	Uploader     Uploader
	Logger       zerolog.Logger
	MaxBodyBytes int64
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// Server handles the HTTP API.
type Server struct {
	deps Dependencies
	log  zerolog.Logger
}

// New returns a Server. A missing status store defaults to an in-memory one.
func New(deps Dependencies) *Server {
	if deps.Status == nil {
		deps.Status = store.NewMemory(time.Hour)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 16 << 20
	}
	return &Server{deps: deps, log: deps.Logger}
}

// RegisterRoutes adds the API routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("POST /api/print", s.handlePrint)
	mux.HandleFunc("GET /api/exports/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ExportRequest is the JSON body of /api/export, /api/plan and /api/print.
// Content is given either as markup in HTML or as base64 in DataBase64.
type ExportRequest struct {
	HTML       string  `json:"html,omitempty"`
	DataBase64 string  `json:"data_base64,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	IntervalMm float64 `json:"interval_mm,omitempty"`
	Preset     string  `json:"preset,omitempty"`
	Segmented  bool    `json:"segmented,omitempty"`
	CutMarks   bool    `json:"cut_marks,omitempty"`
	// Cut asks the printer to cut after each image. Only /api/print uses it.
	Cut *bool `json:"cut,omitempty"`
}

type planSegment struct {
	Index  int     `json:"index"`
	YStart float64 `json:"y_start"`
	YEnd   float64 `json:"y_end"`
}

type planResponse struct {
	BaseName   string        `json:"base_name"`
	IntervalMm float64       `json:"interval_mm"`
	IntervalPx float64       `json:"interval_px"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Cuts       []float64     `json:"cuts"`
	Segments   []planSegment `json:"segments"`
}

type printResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Images int    `json:"images"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	content, cfg, _, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := uuid.NewString()
	art, err := s.export(r.Context(), id, content, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name()))
	w.Header().Set("Content-Length", strconv.Itoa(art.Len()))
	w.Header().Set("X-Export-ID", id)
	w.Header().Set("X-Export-Images", strconv.Itoa(imageCount(art)))
	w.WriteHeader(http.StatusOK)
	_, _ = art.WriteTo(w)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	content, cfg, _, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	surf, err := s.deps.Backend.Open(r.Context(), content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer surf.Close()

	plan, dims, err := htmlstrip.PlanSurface(r.Context(), surf, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := planResponse{
		BaseName:   content.BaseName,
		IntervalMm: cfg.IntervalMm,
		IntervalPx: cfg.IntervalMm * htmlstrip.PxPerMM,
		Width:      dims.Width,
		Height:     dims.Height,
		Cuts:       append([]float64{}, plan...),
		Segments:   []planSegment{},
	}
	for _, seg := range plan.Segments(dims.Height) {
		resp.Segments = append(resp.Segments, planSegment{Index: seg.Index, YStart: seg.YStart, YEnd: seg.YEnd})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	if s.deps.Printer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "printing is not configured"})
		return
	}
	content, cfg, req, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := uuid.NewString()
	art, err := s.export(r.Context(), id, content, cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}

	cut := true
	if req.Cut != nil {
		cut = *req.Cut
	}
	err = s.deps.Printer.PrintArtifact(r.Context(), art, cut)
	metrics.IncPrint(err)
	if err != nil {
		s.log.Error().Err(err).Str("export_id", id).Msg("print failed")
		s.writeError(w, err)
		return
	}
	s.log.Info().Str("export_id", id).Str("name", art.Name()).Msg("export printed")
	writeJSON(w, http.StatusOK, printResponse{ID: id, Name: art.Name(), Images: imageCount(art)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Str("export_id", id).Msg("status lookup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status lookup failed"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "export not found"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	type preset struct {
		Name     string  `json:"name"`
		LengthMm float64 `json:"length_mm"`
	}
	out := []preset{}
	for _, p := range htmlstrip.Presets() {
		out = append(out, preset{Name: p.Name, LengthMm: p.LengthMm})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// export runs one export and records its status under id.
func (s *Server) export(ctx context.Context, id string, content htmlstrip.LoadedContent, cfg *htmlstrip.StripConfig) (*htmlstrip.Artifact, error) {
	done := metrics.TrackInFlight()
	defer done()

	start := time.Now()
	_ = s.setStatus(ctx, id, store.Status{Status: store.StatusRunning, Start: &start})

	art, err := s.deps.Backend.Export(ctx, content, cfg)
	end := time.Now()
	if err != nil {
		s.log.Error().Err(err).Str("export_id", id).Str("base_name", content.BaseName).Msg("export failed")
		_ = s.setStatus(ctx, id, store.Status{Status: store.StatusFailed, Message: err.Error(), Start: &start, End: &end})
		return nil, err
	}

	st := store.Status{
		Status: store.StatusDone,
		Name:   art.Name(),
		Images: imageCount(art),
		Bytes:  art.Len(),
		Start:  &start,
		End:    &end,
	}
	if s.deps.Uploader != nil {
		loc, err := s.deps.Uploader.Upload(ctx, id, art.Name(), art.ContentType(), art.Bytes())
		if err != nil {
			// the export itself succeeded
			s.log.Warn().Err(err).Str("export_id", id).Msg("upload failed")
			st.Message = "upload failed: " + err.Error()
		} else {
			st.Location = loc
		}
	}
	_ = s.setStatus(ctx, id, st)

	s.log.Info().
		Str("export_id", id).
		Str("name", art.Name()).
		Int("images", st.Images).
		Int("bytes", st.Bytes).
		Dur("took", end.Sub(start)).
		Msg("export finished")
	return art, nil
}

func (s *Server) setStatus(ctx context.Context, id string, st store.Status) error {
	// Status records outlive the request.
	ctx = context.WithoutCancel(ctx)
	if err := s.deps.Status.Set(ctx, id, st); err != nil {
		s.log.Warn().Err(err).Str("export_id", id).Msg("status update failed")
		return err
	}
	return nil
}

// decode reads an ExportRequest and loads its content.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (htmlstrip.LoadedContent, *htmlstrip.StripConfig, ExportRequest, error) {
	var req ExportRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return htmlstrip.LoadedContent{}, nil, req, err
		}
		return htmlstrip.LoadedContent{}, nil, req, badRequest("invalid JSON body: " + err.Error())
	}

	cfg := &htmlstrip.StripConfig{
		IntervalMm: req.IntervalMm,
		Segmented:  req.Segmented,
		CutMarks:   req.CutMarks,
	}
	if err := cfg.ApplyPreset(req.Preset); err != nil {
		return htmlstrip.LoadedContent{}, nil, req, err
	}

	var (
		content htmlstrip.LoadedContent
		err     error
	)
	switch {
	case req.DataBase64 != "":
		data, derr := base64.StdEncoding.DecodeString(req.DataBase64)
		if derr != nil {
			return htmlstrip.LoadedContent{}, nil, req, badRequest("invalid data_base64")
		}
		name := req.Filename
		if name == "" {
			name = htmlstrip.PastedSource
		}
		content, err = htmlstrip.LoadReader(name, bytes.NewReader(data))
	case req.Filename != "":
		content, err = htmlstrip.LoadReader(req.Filename, strings.NewReader(strings.TrimSpace(req.HTML)))
	default:
		content, err = htmlstrip.LoadText(req.HTML)
	}
	if err != nil {
		return htmlstrip.LoadedContent{}, nil, req, err
	}
	return content, cfg, req, nil
}

type requestError string

func (e requestError) Error() string { return string(e) }

func badRequest(msg string) error { return requestError(msg) }

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= 500 {
		s.log.Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// StatusCode maps an error to the HTTP status it is reported with.
func StatusCode(err error) int {
	var reqErr requestError
	var printErr *printer.RequestError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, htmlstrip.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, htmlstrip.ErrUnsupportedContent):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, htmlstrip.ErrUnknownPreset),
		errors.Is(err, htmlstrip.ErrTooManySegments),
		errors.Is(err, htmlstrip.ErrInvalidRegion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, htmlstrip.ErrExportInFlight):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &printErr), errors.Is(err, printer.ErrRemoteEndpoint):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func imageCount(a *htmlstrip.Artifact) int {
	if a.Segmented() {
		return len(a.Entries())
	}
	return 1
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
