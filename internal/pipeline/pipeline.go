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

// Package pipeline keeps a rendered QR surface consistent with the current
// input state. Every mutation marks the request dirty and schedules a single
// render task; mutations made before that task runs share one render, and
// only the result for the latest input is ever drawn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
)

// PlaceholderPayload is encoded instead of empty or whitespace-only text.
const PlaceholderPayload = " "

// DefaultSize is the preset used when a request leaves SizePx unset.
const DefaultSize = 256

// SizePresets are the only sizes a pipeline accepts.
var SizePresets = []int{192, 256, 320}

var (
	ErrInvalidSize = errors.New("pipeline: unsupported size preset")
	// ErrClosed is returned by mutations on a closed pipeline.
	ErrClosed = errors.New("pipeline: closed")
)

// Request is the full input of one render.
type Request struct {
	Text   string
	SizePx int
	Level  qr.Level
	Theme  qr.Theme

	// Foreground and Background override the theme palette when non-nil.
	Foreground color.Color
	Background color.Color

	Logo      *logo.Asset
	LogoScale float64
}

// Payload returns the text to encode, substituting PlaceholderPayload for blank text.
func (r Request) Payload() string {
	if strings.TrimSpace(r.Text) == "" {
		return PlaceholderPayload
	}
	return r.Text
}

// Palette resolves the effective colors.
func (r Request) Palette() qr.Palette {
	p := r.Theme.Palette()
	if r.Foreground != nil {
		p.Foreground = r.Foreground
	}
	if r.Background != nil {
		p.Background = r.Background
	}
	return p
}

func (r Request) options() qr.Options {
	pal := r.Palette()
	opts := qr.Options{
		SizePx:     r.SizePx,
		Level:      r.Level,
		Foreground: pal.Foreground,
		Background: pal.Background,
		LogoScale:  r.LogoScale,
	}
	if r.Logo != nil {
		opts.Logo = r.Logo.Image
	}
	return opts
}

func (r Request) validate() error {
	if !ValidSize(r.SizePx) {
		return fmt.Errorf("%w: %d", ErrInvalidSize, r.SizePx)
	}
	if _, err := qr.ParseLevel(string(r.Level)); err != nil {
		return err
	}
	if _, err := qr.ParseTheme(string(r.Theme)); err != nil {
		return err
	}
	return nil
}

func withDefaults(r Request) Request {
	if r.SizePx == 0 {
		r.SizePx = DefaultSize
	}
	if r.Level == "" {
		r.Level = qr.LevelM
	}
	if r.Theme == "" {
		r.Theme = qr.ThemeLight
	}
	return r
}

// ValidSize reports whether size is one of SizePresets.
func ValidSize(size int) bool {
	return slices.Contains(SizePresets, size)
}

// Surface is the raster produced by a successful render. It must be treated as read-only.
type Surface struct {
	Image      image.Image
	Request    Request
	Generation uint64
	RenderedAt time.Time
}

// Stats counts render task outcomes.
type Stats struct {
	Renders   uint64
	Failures  uint64
	Discarded uint64
}

// Snapshot is a consistent view of a pipeline's state.
type Snapshot struct {
	Request            Request
	Generation         uint64
	RenderedGeneration uint64
	Pending            bool
	LastError          error
	Stats              Stats
}

// Render encodes req without touching any pipeline state.
func Render(enc qr.Encoder, req Request) (*Surface, error) {
	img, err := enc.Encode(req.Payload(), req.options())
	if err != nil {
		return nil, err
	}
	return &Surface{Image: img, Request: req, RenderedAt: time.Now()}, nil
}

// Pipeline owns the current Request and its RenderedSurface.
type Pipeline struct {
	enc    qr.Encoder
	sched  Scheduler
	logger *zap.Logger

	mu      sync.Mutex
	req     Request
	gen     uint64
	settled uint64
	dirty   bool
	closed  bool
	surface *Surface
	lastErr error
	stats   Stats
	notify  chan struct{}
}

// New creates a pipeline and schedules the first render of initial.
// Zero fields of initial take defaults (256px, level M, light theme).
func New(enc qr.Encoder, sched Scheduler, logger *zap.Logger, initial Request) (*Pipeline, error) {
	initial = withDefaults(initial)
	if err := initial.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		enc:    enc,
		sched:  sched,
		logger: logger,
		req:    initial,
		notify: make(chan struct{}),
	}
	p.mutate(func(*Request) error { return nil })
	return p, nil
}

// UpdateText sets the text to encode.
func (p *Pipeline) UpdateText(text string) {
	p.mutate(func(r *Request) error {
		r.Text = text
		return nil
	})
}

// UpdateSize sets the output size; size must be one of SizePresets.
func (p *Pipeline) UpdateSize(size int) error {
	if !ValidSize(size) {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return p.mutate(func(r *Request) error {
		r.SizePx = size
		return nil
	})
}

// UpdateErrorCorrection sets the error correction level.
func (p *Pipeline) UpdateErrorCorrection(level qr.Level) error {
	if _, err := qr.ParseLevel(string(level)); err != nil {
		return err
	}
	return p.mutate(func(r *Request) error {
		r.Level = level
		return nil
	})
}

// UpdateTheme switches the default palette.
func (p *Pipeline) UpdateTheme(theme qr.Theme) error {
	if _, err := qr.ParseTheme(string(theme)); err != nil {
		return err
	}
	return p.mutate(func(r *Request) error {
		r.Theme = theme
		return nil
	})
}

// UpdateColors overrides the palette. A nil color falls back to the theme.
func (p *Pipeline) UpdateColors(fg, bg color.Color) {
	p.mutate(func(r *Request) error {
		r.Foreground = fg
		r.Background = bg
		return nil
	})
}

// UpdateLogo sets or, with nil, removes the logo overlay.
func (p *Pipeline) UpdateLogo(asset *logo.Asset) {
	p.mutate(func(r *Request) error {
		r.Logo = asset
		return nil
	})
}

// Apply edits several fields as one mutation. If the edited request is
// invalid nothing changes and the validation error is returned.
// edit runs under the pipeline lock and must not call back into p.
func (p *Pipeline) Apply(edit func(*Request)) error {
	return p.mutate(func(r *Request) error {
		edit(r)
		return r.validate()
	})
}

// mutate applies edit to a copy of the request and, if it succeeds, publishes
// the copy as a new generation and schedules a render unless one is pending.
func (p *Pipeline) mutate(edit func(*Request) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	next := p.req
	if err := edit(&next); err != nil {
		p.mu.Unlock()
		return err
	}
	p.req = next
	p.gen++
	schedule := !p.dirty
	p.dirty = true
	p.mu.Unlock()

	if schedule {
		p.sched.Schedule(p.flush)
	}
	return nil
}

// flush drains the dirty flag and renders the latest request once.
func (p *Pipeline) flush() {
	p.mu.Lock()
	if p.closed || !p.dirty {
		p.mu.Unlock()
		return
	}
	req, gen := p.req, p.gen
	p.dirty = false
	p.mu.Unlock()

	surface, err := Render(p.enc, req)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Renders++
	switch {
	case p.closed || gen != p.gen:
		p.stats.Discarded++
		p.logger.Debug("Discarding stale render",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", p.gen),
		)
	case err != nil:
		// Preview only: keep the previous surface on screen.
		p.stats.Failures++
		p.lastErr = err
		p.logger.Debug("Render failed, keeping previous surface",
			zap.Uint64("generation", gen),
			zap.Int("data_length", len(req.Text)),
			zap.Int("size", req.SizePx),
			zap.String("level", string(req.Level)),
			zap.Error(err),
		)
	default:
		surface.Generation = gen
		p.surface = surface
		p.lastErr = nil
		p.logger.Debug("Surface rendered",
			zap.Uint64("generation", gen),
			zap.Int("size", req.SizePx),
			zap.String("level", string(req.Level)),
		)
	}

	if gen > p.settled {
		p.settled = gen
	}
	p.broadcastLocked()
}

func (p *Pipeline) broadcastLocked() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// Settle blocks until the latest mutation has been rendered (or has failed),
// the pipeline is closed, or ctx is done.
func (p *Pipeline) Settle(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.closed || p.settled >= p.gen {
			p.mu.Unlock()
			return nil
		}
		ch := p.notify
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Surface returns the last successfully rendered surface, or nil before the first one.
func (p *Pipeline) Surface() *Surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

// Snapshot returns the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{
		Request:    p.req,
		Generation: p.gen,
		Pending:    p.settled < p.gen,
		LastError:  p.lastErr,
		Stats:      p.stats,
	}
	if p.surface != nil {
		s.RenderedGeneration = p.surface.Generation
	}
	return s
}

// ExportPNG serializes the current surface.
func (p *Pipeline) ExportPNG() ([]byte, error) {
	return EncodePNG(p.Surface())
}

// Close stops rendering. Pending and in-flight renders are discarded and
// later mutations are ignored. The last surface stays exportable.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.dirty = false
	p.broadcastLocked()
}
