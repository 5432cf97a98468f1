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

// Package qr turns a text payload into a QR code raster.
// Symbol construction is delegated to skip2/go-qrcode; this package maps
// levels and colors onto it and composites an optional logo into the center.
package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// ErrEncode is returned when a payload cannot be represented as a QR code
// with the requested options.
var ErrEncode = errors.New("qr: encode failure")

// Options controls how a payload is rasterized.
type Options struct {
	SizePx     int
	Level      Level
	Foreground color.Color
	Background color.Color

	// Logo, when set, is drawn over an excavated square in the center.
	Logo image.Image
	// LogoScale is the logo edge as a fraction of the image edge.
	// Zero means DefaultLogoScale.
	LogoScale float64
}

// Encoder rasterizes payloads into QR code images.
type Encoder interface {
	Encode(payload string, opts Options) (image.Image, error)
}

type encoder struct {
	logger  *zap.Logger
	minSize int
	maxSize int
}

// NewEncoder creates a QR encoder accepting sizes in [minSize, maxSize].
func NewEncoder(logger *zap.Logger, minSize, maxSize int) Encoder {
	return &encoder{
		logger:  logger,
		minSize: minSize,
		maxSize: maxSize,
	}
}

// Encode creates a QR code raster for payload. The returned image is at least
// opts.SizePx wide; a symbol that needs more modules than pixels grows the image.
func (e *encoder) Encode(payload string, opts Options) (image.Image, error) {
	e.logger.Debug("Starting QR code generation",
		zap.Int("data_length", len(payload)),
		zap.String("payload_preview", truncateString(payload, 32)),
		zap.Int("size", opts.SizePx),
		zap.String("level", string(opts.Level)),
		zap.Bool("logo", opts.Logo != nil),
	)

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: data cannot be empty", ErrEncode)
	}

	if opts.SizePx < e.minSize || opts.SizePx > e.maxSize {
		e.logger.Warn("QR code generation failed: invalid size",
			zap.Int("size", opts.SizePx),
			zap.Int("min", e.minSize),
			zap.Int("max", e.maxSize),
		)
		return nil, fmt.Errorf("%w: size must be between %d and %d", ErrEncode, e.minSize, e.maxSize)
	}

	level := opts.Level
	if level == "" {
		level = LevelM
	}
	recovery, err := level.recovery()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	q, err := qrcode.New(payload, recovery)
	if err != nil {
		e.logger.Debug("Failed to encode QR code",
			zap.Error(err),
			zap.Int("data_length", len(payload)),
			zap.String("level", string(level)),
		)
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	fg, bg := opts.Foreground, opts.Background
	if fg == nil {
		fg = color.Black
	}
	if bg == nil {
		bg = color.White
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	img := toRGBA(q.Image(opts.SizePx))
	if opts.Logo != nil {
		excavate(img, opts.Logo, opts.LogoScale, bg)
	}

	e.logger.Debug("QR code generated successfully",
		zap.Int("version", q.VersionNumber),
		zap.String("image_dimensions", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy())),
	)

	return img, nil
}

func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	xdraw.Draw(dst, b, src, b.Min, xdraw.Src)
	return dst
}

// truncateString truncates a string to maxLen for safe logging with proper UTF-8 handling.
func truncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
