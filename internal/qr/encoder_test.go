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

package qr

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestEncoder() Encoder {
	return NewEncoder(zap.NewNop(), 64, 2048)
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestEncodeSizes(t *testing.T) {
	enc := newTestEncoder()
	for _, size := range []int{192, 256, 320} {
		img, err := enc.Encode("https://wso2.com", Options{SizePx: size, Level: LevelM})
		if err != nil {
			t.Fatalf("Encode(size=%d) error = %v", size, err)
		}
		if got := img.Bounds().Dx(); got != size {
			t.Errorf("Encode(size=%d) width = %d", size, got)
		}
		if got := img.Bounds().Dy(); got != size {
			t.Errorf("Encode(size=%d) height = %d", size, got)
		}
	}
}

func TestEncodeColors(t *testing.T) {
	fg := color.RGBA{0x12, 0x34, 0x56, 0xff}
	bg := color.RGBA{0xfe, 0xdc, 0xba, 0xff}

	img, err := newTestEncoder().Encode("colors", Options{SizePx: 256, Level: LevelL, Foreground: fg, Background: bg})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Quiet zone corner and the top-left finder pattern.
	if got := rgbaAt(img, 0, 0); got != bg {
		t.Errorf("corner pixel = %v, want background %v", got, bg)
	}
	if got := rgbaAt(img, 40, 40); got != fg {
		t.Errorf("finder pixel = %v, want foreground %v", got, fg)
	}
}

func TestEncodeDefaultsToBlackOnWhite(t *testing.T) {
	img, err := newTestEncoder().Encode("defaults", Options{SizePx: 256})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got := rgbaAt(img, 0, 0); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("corner pixel = %v, want white", got)
	}
	if got := rgbaAt(img, 40, 40); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Errorf("finder pixel = %v, want black", got)
	}
}

func TestEncodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		opts    Options
	}{
		{"empty payload", "", Options{SizePx: 256, Level: LevelM}},
		{"size too small", "x", Options{SizePx: 10, Level: LevelM}},
		{"size too large", "x", Options{SizePx: 4096, Level: LevelM}},
		{"unknown level", "x", Options{SizePx: 256, Level: "Z"}},
		{"over capacity at H", strings.Repeat("a", 3000), Options{SizePx: 192, Level: LevelH}},
	}

	enc := newTestEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := enc.Encode(tt.payload, tt.opts)
			if !errors.Is(err, ErrEncode) {
				t.Errorf("Encode() error = %v, want ErrEncode", err)
			}
			if img != nil {
				t.Errorf("Encode() returned an image on failure")
			}
		})
	}
}

func TestEncodeLogoExcavation(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	logo := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			logo.SetRGBA(x, y, red)
		}
	}
	bg := color.RGBA{0xff, 0xff, 0xff, 0xff}

	img, err := newTestEncoder().Encode("https://wso2.com/logo", Options{
		SizePx:     256,
		Level:      LevelH,
		Background: bg,
		Logo:       logo,
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	center := rgbaAt(img, 128, 128)
	if center.R < 0xf0 || center.G > 0x10 || center.B > 0x10 {
		t.Errorf("center pixel = %v, want logo red", center)
	}

	// 256 * 0.22 = 56px logo starting at x=100, padded by 5px of background.
	if got := rgbaAt(img, 97, 128); got != bg {
		t.Errorf("excavated margin pixel = %v, want background", got)
	}
}

func TestExcavateClampsScale(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	bg := color.RGBA{0, 0xff, 0, 0xff}

	excavate(dst, image.NewRGBA(image.Rect(0, 0, 10, 10)), 0.9, bg)

	// With MaxLogoScale the hole spans 30px plus 3px padding either side.
	if got := rgbaAt(dst, 50-15-3, 50); got != bg {
		t.Errorf("hole edge = %v, want background", got)
	}
	if got := rgbaAt(dst, 10, 50); got == bg {
		t.Errorf("pixel outside clamped hole was cleared")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 4, "this..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
