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
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/skip2/go-qrcode"
)

var (
	ErrInvalidLevel = errors.New("qr: invalid error correction level")
	ErrInvalidTheme = errors.New("qr: invalid theme")
	ErrInvalidColor = errors.New("qr: invalid color")
)

// Level is a QR error correction level.
type Level string

const (
	LevelL Level = "L" // ~7% recovery
	LevelM Level = "M" // ~15% recovery
	LevelQ Level = "Q" // ~25% recovery
	LevelH Level = "H" // ~30% recovery
)

// ParseLevel accepts L, M, Q or H in any case.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := l.recovery(); err != nil {
		return "", err
	}
	return l, nil
}

func (l Level) recovery() (qrcode.RecoveryLevel, error) {
	switch l {
	case LevelL:
		return qrcode.Low, nil
	case LevelM:
		return qrcode.Medium, nil
	case LevelQ:
		return qrcode.High, nil
	case LevelH:
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, string(l))
}

// Theme selects the default palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Palette is a foreground/background color pair.
type Palette struct {
	Foreground color.Color
	Background color.Color
}

var (
	lightPalette = Palette{
		Foreground: color.RGBA{0x02, 0x06, 0x17, 0xff},
		Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
	}
	darkPalette = Palette{
		Foreground: color.RGBA{0xf8, 0xfa, 0xfc, 0xff},
		Background: color.RGBA{0x05, 0x07, 0x06, 0xff},
	}
)

// Palette returns the theme's colors. Unknown themes get the light palette.
func (t Theme) Palette() Palette {
	if t == ThemeDark {
		return darkPalette
	}
	return lightPalette
}

// ParseColor parses "#rgb" or "#rrggbb"; the leading '#' is optional.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidColor, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// FormatColor renders c as "#rrggbb". A nil color formats as "".
func FormatColor(c color.Color) string {
	if c == nil {
		return ""
	}
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
