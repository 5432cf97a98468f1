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

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/pipeline"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/session"
)

type logoResponse struct {
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"contentType"`
	Oversize    bool   `json:"oversize"`
}

type sessionResponse struct {
	ID                 string        `json:"id"`
	Text               string        `json:"text"`
	Size               int           `json:"size"`
	ErrorCorrection    string        `json:"errorCorrection"`
	Theme              string        `json:"theme"`
	Foreground         string        `json:"foreground"`
	Background         string        `json:"background"`
	Generation         uint64        `json:"generation"`
	RenderedGeneration uint64        `json:"renderedGeneration"`
	Pending            bool          `json:"pending"`
	LastError          string        `json:"lastError,omitempty"`
	Logo               *logoResponse `json:"logo,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// updateRequest is a partial edit. Absent fields are left unchanged; an empty
// foreground or background removes the override.
type updateRequest struct {
	Text            *string `json:"text"`
	Size            *int    `json:"size"`
	ErrorCorrection *string `json:"errorCorrection"`
	Theme           *string `json:"theme"`
	Foreground      *string `json:"foreground"`
	Background      *string `json:"background"`
}

func newLogoResponse(a *logo.Asset) *logoResponse {
	if a == nil {
		return nil
	}
	return &logoResponse{
		Ref:         a.Ref(),
		Name:        a.DisplayName,
		Bytes:       a.ByteSize,
		ContentType: a.ContentType,
		Oversize:    a.Oversize,
	}
}

func newSessionResponse(s *session.Session) sessionResponse {
	snap := s.Pipeline.Snapshot()
	req := snap.Request
	resp := sessionResponse{
		ID:                 s.ID,
		Text:               req.Text,
		Size:               req.SizePx,
		ErrorCorrection:    string(req.Level),
		Theme:              string(req.Theme),
		Foreground:         qr.FormatColor(req.Foreground),
		Background:         qr.FormatColor(req.Background),
		Generation:         snap.Generation,
		RenderedGeneration: snap.RenderedGeneration,
		Pending:            snap.Pending,
		Logo:               newLogoResponse(s.Logos.Current()),
		CreatedAt:          s.CreatedAt,
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	return resp
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return nil, false
	}
	return s, true
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create()
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		h.writeErr(w, err)
		return
	}
	h.logger.Info("Session created",
		zap.String("session", s.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)
	w.Header().Set("Location", "/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// UpdateSession handles PATCH /sessions/{id}. The edit is applied as one
// mutation; the render happens asynchronously.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBodySize)
	var body updateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeErr(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	edit, err := body.edit()
	if err != nil {
		h.logger.Warn("Invalid session update", zap.String("session", s.ID), zap.Error(err))
		h.writeErr(w, err)
		return
	}
	if err := s.Pipeline.Apply(edit); err != nil {
		h.logger.Warn("Rejected session update", zap.String("session", s.ID), zap.Error(err))
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newSessionResponse(s))
}

// edit parses every field up front so a bad value rejects the whole update.
func (u updateRequest) edit() (func(*pipeline.Request), error) {
	var (
		level  qr.Level
		theme  qr.Theme
		fg, bg color.Color
		err    error
	)
	if u.ErrorCorrection != nil {
		if level, err = qr.ParseLevel(*u.ErrorCorrection); err != nil {
			return nil, err
		}
	}
	if u.Theme != nil {
		if theme, err = qr.ParseTheme(*u.Theme); err != nil {
			return nil, err
		}
	}
	if u.Foreground != nil {
		if fg, err = optionalColor(*u.Foreground); err != nil {
			return nil, err
		}
	}
	if u.Background != nil {
		if bg, err = optionalColor(*u.Background); err != nil {
			return nil, err
		}
	}
	if u.Size != nil && !pipeline.ValidSize(*u.Size) {
		return nil, fmt.Errorf("%w: %d", pipeline.ErrInvalidSize, *u.Size)
	}

	return func(r *pipeline.Request) {
		if u.Text != nil {
			r.Text = *u.Text
		}
		if u.Size != nil {
			r.SizePx = *u.Size
		}
		if u.ErrorCorrection != nil {
			r.Level = level
		}
		if u.Theme != nil {
			r.Theme = theme
		}
		if u.Foreground != nil {
			r.Foreground = fg
		}
		if u.Background != nil {
			r.Background = bg
		}
	}, nil
}

// DeleteSession handles DELETE /sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSession handles GET /sessions/{id}/qr.png. It waits for pending edits
// to render and downloads the current surface.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Pipeline.Settle(r.Context()); err != nil {
		h.logger.Debug("Export abandoned before render settled", zap.String("session", s.ID), zap.Error(err))
		return
	}

	png, err := s.Pipeline.ExportPNG()
	if err != nil {
		h.logger.Warn("Export failed", zap.String("session", s.ID), zap.Error(err))
		h.writeErr(w, err)
		return
	}
	writePNG(w, png, pipeline.ExportFilename)

	h.logger.Info("Session exported",
		zap.String("session", s.ID),
		zap.Int("output_size", len(png)),
	)
}

// UploadLogo handles PUT /sessions/{id}/logo. The image is taken from the
// multipart field "file" or, for other content types, the raw body.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.limits.MaxLogoBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Logo too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxLogoBytes)

	f := logo.File{
		Name:        r.URL.Query().Get("name"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        r.Body,
	}
	if strings.HasPrefix(f.ContentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.writeErr(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, `Multipart upload must carry a "file" field`)
			return
		}
		defer file.Close()
		f = logo.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	}
	if f.Name == "" {
		f.Name = "logo"
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		// Let the decoder name the format.
		f.ContentType = ""
	}

	asset, err := s.SetLogo(f)
	if err != nil {
		h.logger.Warn("Logo upload rejected",
			zap.String("session", s.ID),
			zap.String("name", f.Name),
			zap.Error(err),
		)
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLogoResponse(asset))
}

// GetLogo handles GET /sessions/{id}/logo and serves the stored bytes.
func (h *Handler) GetLogo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	asset := s.Logos.Current()
	if asset == nil {
		writeError(w, http.StatusNotFound, "No logo set")
		return
	}
	data, contentType, err := h.blobs.Open(asset.Ref())
	if err != nil {
		// Replaced or cleared between Current and Open.
		writeError(w, http.StatusNotFound, "No logo set")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteLogo handles DELETE /sessions/{id}/logo.
func (h *Handler) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClearLogo()
	w.WriteHeader(http.StatusNoContent)
}
