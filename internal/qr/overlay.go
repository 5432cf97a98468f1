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
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultLogoScale is used when Options.LogoScale is zero.
	DefaultLogoScale = 0.22
	// MaxLogoScale caps the excavated area; beyond it even level H
	// cannot reliably recover the covered modules.
	MaxLogoScale = 0.3
)

// excavate clears a background-colored square in the center of dst and draws
// logo inside it, scaled to fit while keeping its aspect ratio.
func excavate(dst *image.RGBA, logo image.Image, scale float64, bg color.Color) {
	if scale <= 0 {
		scale = DefaultLogoScale
	}
	if scale > MaxLogoScale {
		scale = MaxLogoScale
	}

	b := dst.Bounds()
	side := int(float64(min(b.Dx(), b.Dy())) * scale)
	lb := logo.Bounds()
	if side < 1 || lb.Empty() {
		return
	}

	pad := max(side/10, 1)
	cx, cy := b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2
	half := side/2 + pad
	hole := image.Rect(cx-half, cy-half, cx+half, cy+half)
	xdraw.Draw(dst, hole, image.NewUniform(bg), image.Point{}, xdraw.Src)

	w, h := side, side
	if lb.Dx() >= lb.Dy() {
		h = max(side*lb.Dy()/lb.Dx(), 1)
	} else {
		w = max(side*lb.Dx()/lb.Dy(), 1)
	}
	target := image.Rect(cx-w/2, cy-h/2, cx-w/2+w, cy-h/2+h)
	xdraw.CatmullRom.Scale(dst, target, logo, lb, xdraw.Over, nil)
}
