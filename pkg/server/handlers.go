package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/chordserve/chordserve/pkg/auth"
	"github.com/chordserve/chordserve/pkg/converter"
	"github.com/chordserve/chordserve/pkg/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Handlers bundles the route handlers and their dependencies.
type Handlers struct {
	processor *converter.Processor
	logger    *slog.Logger
	metrics   *Metrics
}

// NewHandlers creates the handler set.
func NewHandlers(processor *converter.Processor, logger *slog.Logger, metrics *Metrics) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		processor: processor,
		logger:    logger,
		metrics:   metrics,
	}
}

// handleIndex serves the HTML documentation page.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	version, err := h.processor.Version(r.Context())
	if err != nil {
		version = "unknown"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ RendererVersion string }{version}); err != nil {
		h.logger.Error("failed to render documentation page", "error", err)
	}
}

// healthStatus is the health check response body.
type healthStatus struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	Timestamp         string `json:"timestamp"`
	RendererAvailable bool   `json:"chordpro_available"`
}

// handleHealth reports service health, probing the renderer with a short
// timeout so a wedged chordpro install shows up as degraded.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:    "healthy",
		Service:   "chordserve",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := h.processor.Version(r.Context()); err != nil {
		status.Status = "degraded"
	} else {
		status.RendererAvailable = true
	}
	h.metrics.SetRendererAvailable(status.RendererAvailable)

	writeJSON(w, status)
}

// handleConvert validates the request body, runs one conversion session, and
// streams the artifact back. The output temp file is deleted after streaming
// on every exit path.
func (h *Handlers) handleConvert(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("convert request", "client_ip", auth.ClientIP(r), "request_id", GetRequestID(r.Context()))

	content, format, opts, verr := parseConvertRequest(r)
	if verr != nil {
		writeError(w, r, http.StatusBadRequest, domain.ErrorResponse{
			Code:    domain.CodeValidationFailed,
			Message: verr.Error(),
			Field:   verr.Field,
		})
		return
	}

	start := time.Now()
	artifact, err := h.processor.Process(r.Context(), content, format, opts)
	duration := time.Since(start)

	if err != nil {
		h.metrics.RecordConversion(string(format), classifyOutcome(err), duration)
		h.writeConversionError(w, r, err)
		return
	}
	defer artifact.Cleanup()

	h.metrics.RecordConversion(string(format), OutcomeSuccess, duration)
	h.metrics.RecordArtifact(string(format), artifact.Size)

	f, err := os.Open(artifact.Path)
	if err != nil {
		h.logger.Error("failed to open rendered artifact", "error", err)
		writeError(w, r, http.StatusInternalServerError, domain.ErrorResponse{
			Code:    domain.CodeInternal,
			Message: "processing failed",
		})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=output.%s", format.Extension()))

	if _, err := io.Copy(w, f); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.Warn("streaming artifact interrupted", "error", err)
	}
}

// writeConversionError maps session failures to the error taxonomy. Renderer
// diagnostics arrive pre-sanitized from the converter.
func (h *Handlers) writeConversionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case converter.IsTimeout(err):
		writeError(w, r, http.StatusInternalServerError, domain.ErrorResponse{
			Code:    domain.CodeRendererTimeout,
			Message: "chordpro processing timed out",
		})
	case converter.IsRendererFailure(err):
		writeError(w, r, http.StatusInternalServerError, domain.ErrorResponse{
			Code:    domain.CodeRendererFailed,
			Message: err.Error(),
		})
	case errors.Is(err, converter.ErrUnsupportedFormat):
		// Unreachable with upstream validation; kept so a direct caller of
		// this handler still gets a sane response.
		writeError(w, r, http.StatusBadRequest, domain.ErrorResponse{
			Code:    domain.CodeValidationFailed,
			Message: "unsupported output format",
			Field:   "output_format",
		})
	default:
		h.logger.Error("conversion failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, domain.ErrorResponse{
			Code:    domain.CodeInternal,
			Message: "processing failed",
		})
	}
}

// classifyOutcome picks the metrics label for a failed session.
func classifyOutcome(err error) string {
	switch {
	case converter.IsTimeout(err):
		return OutcomeTimeout
	case converter.IsRendererFailure(err):
		return OutcomeRenderer
	case errors.Is(err, converter.ErrArtifactIO):
		return OutcomeIO
	default:
		return OutcomeIO
	}
}

// parseConvertRequest validates the request body shape field by field so the
// 400 response names the offending field. The content size bound is checked
// here, before any file I/O.
func parseConvertRequest(r *http.Request) (string, converter.Format, converter.Options, *converter.ValidationError) {
	var opts converter.Options

	// Bound the body read; the content field alone may be up to 1MiB and
	// JSON escaping can roughly double it.
	body := http.MaxBytesReader(nil, r.Body, 4*MaxContentBytes)

	var raw struct {
		Content      json.RawMessage `json:"content"`
		OutputFormat json.RawMessage `json:"output_format"`
		Options      json.RawMessage `json:"options"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", "", opts, &converter.ValidationError{Field: "body", Message: "must be a JSON object"}
	}

	if len(raw.Content) == 0 {
		return "", "", opts, &converter.ValidationError{Field: "content", Message: "is required"}
	}
	var content string
	if err := json.Unmarshal(raw.Content, &content); err != nil {
		return "", "", opts, &converter.ValidationError{Field: "content", Message: "must be a string"}
	}
	if content == "" {
		return "", "", opts, &converter.ValidationError{Field: "content", Message: "is required"}
	}
	if len(content) > MaxContentBytes {
		return "", "", opts, &converter.ValidationError{Field: "content", Message: "too large (max 1MB)"}
	}

	format := converter.DefaultFormat
	if len(raw.OutputFormat) != 0 {
		var name string
		if err := json.Unmarshal(raw.OutputFormat, &name); err != nil {
			return "", "", opts, &converter.ValidationError{Field: "output_format", Message: "must be a string"}
		}
		format = converter.Format(name)
		if !format.Valid() {
			return "", "", opts, &converter.ValidationError{Field: "output_format", Message: "must be one of pdf, text, cho, html"}
		}
	}

	if len(raw.Options) != 0 {
		if err := json.Unmarshal(raw.Options, &opts); err != nil {
			var verr *converter.ValidationError
			if errors.As(err, &verr) {
				return "", "", opts, verr
			}
			return "", "", opts, &converter.ValidationError{Field: "options", Message: "must be an object"}
		}
	}

	return content, format, opts, nil
}

// handleFormats lists the supported output formats.
func (h *Handlers) handleFormats(w http.ResponseWriter, _ *http.Request) {
	formats := converter.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	writeJSON(w, map[string]any{
		"supported_formats": names,
		"default_format":    string(converter.DefaultFormat),
	})
}

// optionSchema describes one recognized conversion option. Documentation
// only; enforcement happens during request validation.
type optionSchema struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Examples    []any  `json:"examples,omitempty"`
}

// handleOptions describes the recognized option schema to callers.
func (h *Handlers) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"supported_options": map[string]optionSchema{
			"transpose": {
				Type:        "integer",
				Description: "Transpose by semitones",
			},
			"meta": {
				Type:        "object",
				Description: "Metadata key-value pairs",
			},
			"diagrams": {
				Type:        "boolean",
				Description: "Include chord diagrams",
			},
			"config": {
				Type:        "string|array",
				Description: "ChordPro configuration(s). Supports a single config, a comma-separated list (e.g., 'ukulele,modern3'), or an array of configs",
				Examples:    []any{"ukulele", "ukulele,modern3", []string{"ukulele", "modern3"}},
			},
		},
	})
}
