// This file is part of core3ds.
//
// core3ds is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// core3ds is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with core3ds.  If not, see <https://www.gnu.org/licenses/>.

package gpu

import (
	"image"

	"golang.org/x/image/draw"
)

// nativeImage returns the current framebuffer as a standard library RGBA
// image, suitable as a source for scaling or encoding.
func (g *GPU) nativeImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, FramebufferWidth, FramebufferHeight))
	copy(img.Pix, g.RGBABytes())
	return img
}

// ScaleTo renders the current framebuffer into a width x height RGBA
// image using a high-quality scaler, for a host window whose size does
// not match the native framebuffer resolution. Nearest-neighbour
// sampling inside the draw-call pipeline stays pixel-exact; this scaler
// only applies to the final present step.
func (g *GPU) ScaleTo(width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), g.nativeImage(), image.Rect(0, 0, FramebufferWidth, FramebufferHeight), draw.Over, nil)
	return dst
}
