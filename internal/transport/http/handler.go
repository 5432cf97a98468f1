// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package http provides HTTP transport layer for the QR code tool.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/pipeline"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/session"
)

// Limits bounds request sizes accepted by the handlers.
type Limits struct {
	MaxBodySize  int64
	MaxLogoBytes int64
	MinSize      int
	MaxSize      int
}

// BlobOpener resolves a logo reference to its bytes.
type BlobOpener interface {
	Open(ref string) ([]byte, string, error)
}

type Handler struct {
	enc      qr.Encoder
	sessions *session.Registry
	blobs    BlobOpener
	logger   *zap.Logger
	limits   Limits
	defaults pipeline.Request
}

// NewHandler creates a new HTTP handler for QR code generation and studio sessions.
func NewHandler(enc qr.Encoder, sessions *session.Registry, blobs BlobOpener, logger *zap.Logger, limits Limits, defaults pipeline.Request) *Handler {
	return &Handler{
		enc:      enc,
		sessions: sessions,
		blobs:    blobs,
		logger:   logger,
		limits:   limits,
		defaults: defaults,
	}
}

// Generate handles POST /generate?size={pixels}&ec={L|M|Q|H}&theme={light|dark}&fg=&bg= requests.
// Accepts raw text/URL in body, returns PNG image.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	// Fast fail for obvious oversized requests
	if r.ContentLength > h.limits.MaxBodySize {
		h.logger.Warn("Request body too large (ContentLength check)",
			zap.Int64("content_length", r.ContentLength),
			zap.Int64("max_allowed", h.limits.MaxBodySize),
			zap.String("remote_addr", r.RemoteAddr),
		)
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBodySize)

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r.Body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.logger.Warn("Request body too large",
				zap.Int64("max_allowed", h.limits.MaxBodySize),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.logger.Error("Failed to read request body", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		writeError(w, http.StatusInternalServerError, "Failed to read request body")
		return
	}

	body := buf.Bytes()
	if len(body) == 0 {
		h.logger.Warn("Empty request body received", zap.String("remote_addr", r.RemoteAddr))
		writeError(w, http.StatusBadRequest, "Request body is empty")
		return
	}

	req, err := h.generateRequest(r)
	if err != nil {
		h.logger.Warn("Invalid generate parameters",
			zap.Error(err),
			zap.String("query", r.URL.RawQuery),
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.writeErr(w, err)
		return
	}
	req.Text = string(body)

	surface, err := pipeline.Render(h.enc, req)
	if err != nil {
		h.logger.Warn("Failed to generate QR code",
			zap.Error(err),
			zap.Int("data_length", len(body)),
			zap.Int("size", req.SizePx),
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.writeErr(w, err)
		return
	}

	png, err := pipeline.EncodePNG(surface)
	if err != nil {
		h.logger.Error("Failed to encode PNG", zap.Error(err))
		h.writeErr(w, err)
		return
	}

	writePNG(w, png, "")

	h.logger.Info("QR code request completed successfully",
		zap.Int("data_length", len(body)),
		zap.Int("size", req.SizePx),
		zap.String("level", string(req.Level)),
		zap.Int("output_size", len(png)),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// generateRequest builds a stateless render request from query parameters.
// Unlike sessions, /generate accepts any size within the configured range.
// An empty body is rejected before this point, while a whitespace-only body
// is passed through and renders the blank placeholder like session text does.
func (h *Handler) generateRequest(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := h.defaults

	if sizeStr := q.Get("size"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < h.limits.MinSize || size > h.limits.MaxSize {
			return req, badRequest(fmt.Sprintf("Invalid size parameter: must be between %d and %d", h.limits.MinSize, h.limits.MaxSize))
		}
		req.SizePx = size
	}
	if ec := q.Get("ec"); ec != "" {
		level, err := qr.ParseLevel(ec)
		if err != nil {
			return req, err
		}
		req.Level = level
	}
	if t := q.Get("theme"); t != "" {
		theme, err := qr.ParseTheme(t)
		if err != nil {
			return req, err
		}
		req.Theme = theme
	}
	fg, err := optionalColor(q.Get("fg"))
	if err != nil {
		return req, err
	}
	bg, err := optionalColor(q.Get("bg"))
	if err != nil {
		return req, err
	}
	if fg != nil {
		req.Foreground = fg
	}
	if bg != nil {
		req.Background = bg
	}
	return req, nil
}

// optionalColor parses s, returning nil for an empty value.
func optionalColor(s string) (color.Color, error) {
	if s == "" {
		return nil, nil
	}
	return qr.ParseColor(s)
}

// HealthCheck handles GET /health requests for liveness/readiness probes.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

// badRequestError carries a client-facing message for a 400 response.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// statusFor maps domain errors onto HTTP status codes and client messages.
func statusFor(err error) (int, string) {
	var br *badRequestError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, pipeline.ErrInvalidSize),
		errors.Is(err, qr.ErrInvalidLevel),
		errors.Is(err, qr.ErrInvalidTheme),
		errors.Is(err, qr.ErrInvalidColor):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, qr.ErrEncode):
		return http.StatusUnprocessableEntity, "Payload cannot be encoded at the requested size and error correction"
	case errors.Is(err, logo.ErrAssetRead):
		return http.StatusUnprocessableEntity, "Uploaded file is not a usable image"
	case errors.Is(err, pipeline.ErrExport):
		return http.StatusConflict, "Nothing has been rendered yet"
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, logo.ErrDisposed),
		errors.Is(err, pipeline.ErrClosed):
		return http.StatusNotFound, "Session not found"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled request error", zap.Error(err))
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePNG(w http.ResponseWriter, png []byte, filename string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
