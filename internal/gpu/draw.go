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

import "image/color"

// shaderOpKind selects one of the two microword behaviours the shader
// stage supports.
type shaderOpKind int

const (
	opXORConstant shaderOpKind = iota
	opRotateChannels
)

type shaderOp struct {
	kind shaderOpKind
}

// retranslateShader rebuilds the translated microword sequence from the
// raw microcode buffer: each microword's low bit selects
// XOR-with-constant (bit clear) or channel-rotation (bit set). Re-derived
// in full on every shader-code or shader-constant write so that a
// constant change retroactively applies to already-uploaded code, the
// same way changing a uniform affects every subsequent draw without
// needing to re-upload the program.
func (g *GPU) retranslateShader() {
	g.shaderOps = g.shaderOps[:0]
	for _, word := range g.shaderCode {
		if word&0x1 == 0 {
			g.shaderOps = append(g.shaderOps, shaderOp{kind: opXORConstant})
		} else {
			g.shaderOps = append(g.shaderOps, shaderOp{kind: opRotateChannels})
		}
	}
}

// runShader applies the translated microword sequence to an RGBA8 colour
// packed as 0xAABBGGRR (matching the wire/clear colour convention used
// throughout this package).
func (g *GPU) runShader(c uint32) uint32 {
	for _, op := range g.shaderOps {
		switch op.kind {
		case opXORConstant:
			c ^= g.shaderConstant
		case opRotateChannels:
			r, gC, b, a := c&0xFF, (c>>8)&0xFF, (c>>16)&0xFF, (c>>24)&0xFF
			c = a | (r << 8) | (gC << 16) | (b << 24)
		}
	}
	return c
}

// formatRoundTrip converts an RGBA8 colour to fmt's representable
// precision and back, so that format-dependent precision loss is applied
// uniformly regardless of whether a colour reaches the framebuffer via
// clear or via a draw call.
func formatRoundTrip(c uint32, fmt FramebufferFormat) uint32 {
	if fmt == FramebufferRGBA8 {
		return c
	}
	return rgb565ToRGBA8(rgba8ToRGB565(c))
}

func rgba8ToRGB565(c uint32) uint16 {
	r, g, b := uint16(c&0xFF), uint16((c>>8)&0xFF), uint16((c>>16)&0xFF)
	return (r>>3)<<11 | (g>>2)<<5 | (b >> 3)
}

func rgb565ToRGBA8(v uint16) uint32 {
	r := uint32((v>>11)&0x1F) * 255 / 31
	g := uint32((v>>5)&0x3F) * 255 / 63
	b := uint32(v&0x1F) * 255 / 31
	return r | (g << 8) | (b << 16) | (0xFF << 24)
}

// sampleTexture reads one texel at normalised coordinates (u, v), each in
// [0, 0xFFFF], and returns it as packed RGBA8.
func (g *GPU) sampleTexture(u, v uint16) uint32 {
	if g.textureWidth == 0 || g.textureHeight == 0 {
		return 0xFFFFFFFF // callers only reach here once a texture is confirmed bound; this is a defensive fallback
	}
	x := uint32(u) * g.textureWidth / 0x10000
	y := uint32(v) * g.textureHeight / 0x10000

	switch g.textureFormat {
	case TextureRGB565:
		offset := g.textureBase + (y*g.textureWidth+x)*2
		lo := uint16(g.mem.ReadByteTolerant(offset))
		hi := uint16(g.mem.ReadByteTolerant(offset + 1))
		return rgb565ToRGBA8(lo | hi<<8)
	default: // TextureRGBA8
		offset := g.textureBase + (y*g.textureWidth+x)*4
		return g.mem.ReadWordTolerant(offset)
	}
}

// combine runs the TEV-stage0 combiner: with a texture bound, it
// modulates (multiplies, channel-wise) the texture sample into the
// vertex colour; with no texture bound, the vertex colour passes through
// unchanged.
func combine(vertexColour, textureColour uint32, hasTexture bool) uint32 {
	if !hasTexture {
		return vertexColour
	}
	out := uint32(0)
	for shift := uint(0); shift < 32; shift += 8 {
		vc := (vertexColour >> shift) & 0xFF
		tc := (textureColour >> shift) & 0xFF
		out |= ((vc * tc) / 0xFF) << shift
	}
	return out
}

// vertex is one decoded vertex record.
type vertex struct {
	x, y int32
	// depth is derived from the vertex's index rather than a dedicated
	// per-vertex field, since the vertex record carries no depth
	// component; this keeps the depth test deterministic and reproducible
	// across a replayed trace without inventing an unspecified wire field.
	depth    uint16
	colour   uint32
	hasColor bool
	u, v     uint16
	hasUV    bool
}

// fetchIndex reads one element of the index buffer.
func (g *GPU) fetchIndex(i uint32) uint32 {
	addr := g.indexBufferBase
	switch g.indexFormat {
	case IndexU16:
		addr += i * 2
		lo := uint32(g.mem.ReadByteTolerant(addr))
		hi := uint32(g.mem.ReadByteTolerant(addr + 1))
		return lo | hi<<8
	default: // IndexU8
		return uint32(g.mem.ReadByteTolerant(addr + i))
	}
}

// fetchVertex reads one vertex record at the given index.
func (g *GPU) fetchVertex(index uint32) vertex {
	stride := uint32(g.vertexFormat.Stride)
	if stride == 0 {
		stride = 4
	}
	base := g.vertexBufferBase + index*stride

	word := g.mem.ReadWordTolerant(base)
	v := vertex{
		x:     int32(int16(word)),
		y:     int32(int16(word >> 16)),
		depth: uint16(index),
	}

	if g.vertexFormat.ColorOffset != absentOffset {
		v.colour = g.mem.ReadWordTolerant(base + uint32(g.vertexFormat.ColorOffset))
		v.hasColor = true
	} else {
		v.colour = 0xFFFFFFFF
	}

	if g.vertexFormat.TexCoordOffset != absentOffset {
		tc := g.mem.ReadWordTolerant(base + uint32(g.vertexFormat.TexCoordOffset))
		v.u, v.v = uint16(tc), uint16(tc>>16)
		v.hasUV = true
	}

	return v
}

// draw iterates the index buffer from drawBaseVertex in groups of three,
// rasterising each resulting triangle into the framebuffer.
func (g *GPU) draw() {
	count := g.drawVertexCount
	for t := uint32(0); t+3 <= count; t += 3 {
		var tri [3]vertex
		for k := 0; k < 3; k++ {
			idx := g.fetchIndex(g.drawBaseVertex + t + uint32(k))
			tri[k] = g.fetchVertex(idx)
		}
		g.rasterizeTriangle(tri)
	}
	g.frameComplete++
}

// rasterizeTriangle fills the integer bounding box of tri, testing each
// candidate pixel for barycentric containment, viewport/scissor
// containment, and (if enabled) the depth test, before shading, blending
// and writing it.
func (g *GPU) rasterizeTriangle(tri [3]vertex) {
	minX, maxX := tri[0].x, tri[0].x
	minY, maxY := tri[0].y, tri[0].y
	for _, v := range tri[1:] {
		if v.x < minX {
			minX = v.x
		}
		if v.x > maxX {
			maxX = v.x
		}
		if v.y < minY {
			minY = v.y
		}
		if v.y > maxY {
			maxY = v.y
		}
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !g.viewport.contains(x, y) || !g.scissor.contains(x, y) {
				continue
			}
			w0, w1, w2, ok := barycentric(tri[0], tri[1], tri[2], x, y)
			if !ok {
				continue
			}
			g.shadePixel(tri, w0, w1, w2, x, y)
		}
	}
}

// barycentric computes the (unnormalised) barycentric weights of point
// (px, py) with respect to triangle (a, b, c) and reports whether the
// point lies inside (all weights same sign as the triangle's own area).
func barycentric(a, b, c vertex, px, py int32) (w0, w1, w2 int64, ok bool) {
	area := edge(a, b, int64(c.x), int64(c.y))
	if area == 0 {
		return 0, 0, 0, false
	}
	w0 = edge(b, c, int64(px), int64(py))
	w1 = edge(c, a, int64(px), int64(py))
	w2 = edge(a, b, int64(px), int64(py))
	if area > 0 {
		return w0, w1, w2, w0 >= 0 && w1 >= 0 && w2 >= 0
	}
	return w0, w1, w2, w0 <= 0 && w1 <= 0 && w2 <= 0
}

func edge(a, b vertex, px, py int64) int64 {
	return (px-int64(a.x))*int64(b.y-a.y) - (py-int64(a.y))*int64(b.x-a.x)
}

// shadePixel computes, tests and writes one covered pixel.
func (g *GPU) shadePixel(tri [3]vertex, w0, w1, w2 int64, x, y int32) {
	total := w0 + w1 + w2
	if total == 0 {
		return
	}

	depth := interpolateDepth(tri, w0, w1, w2, total)
	offset := uint32(y)*FramebufferWidth + uint32(x)
	if int(offset) >= len(g.depthBuffer) {
		return
	}

	if g.depthTestEnable && depth > g.depthBuffer[offset] {
		return
	}

	vertexColour := interpolateColour(tri, w0, w1, w2, total)

	var textureColour uint32
	hasTexture := g.textureWidth != 0
	if hasTexture {
		u, v := interpolateUV(tri, w0, w1, w2, total)
		textureColour = g.sampleTexture(u, v)
	}

	shaded := g.runShader(combine(vertexColour, textureColour, hasTexture))
	shaded = formatRoundTrip(shaded, g.framebufferFormat)

	existing := g.framebuffer[offset]
	blended := blend(existing, shaded, g.blendRGBEquation, g.blendAlphaEquation)
	g.framebuffer[offset] = blended

	if g.depthWriteEnable {
		g.depthBuffer[offset] = depth
	}
}

// PutPixel draws a single point directly through the shading pipeline
// (texture sample, shader, blend, depth test/write), as a convenience over
// building a one-triangle vertex/index buffer in memory for the common
// case of a host wanting to set one pixel. It reuses shadePixel with a
// degenerate, zero-area "triangle" of three coincident vertices so every
// barycentric weight collapses to the same point.
func (g *GPU) PutPixel(x, y int32, colour uint32) {
	if !g.viewport.contains(x, y) || !g.scissor.contains(x, y) {
		return
	}
	v := vertex{x: x, y: y, depth: 0, colour: colour, hasColor: true}
	g.shadePixel([3]vertex{v, v, v}, 1, 1, 1, x, y)
}

func interpolateDepth(tri [3]vertex, w0, w1, w2, total int64) uint16 {
	d := (int64(tri[0].depth)*w0 + int64(tri[1].depth)*w1 + int64(tri[2].depth)*w2) / total
	if d < 0 {
		d = 0
	}
	if d > 0xFFFF {
		d = 0xFFFF
	}
	return uint16(d)
}

func interpolateColour(tri [3]vertex, w0, w1, w2, total int64) uint32 {
	var out [4]byte
	for shift := uint(0); shift < 4; shift++ {
		c0 := int64((tri[0].colour >> (shift * 8)) & 0xFF)
		c1 := int64((tri[1].colour >> (shift * 8)) & 0xFF)
		c2 := int64((tri[2].colour >> (shift * 8)) & 0xFF)
		v := (c0*w0 + c1*w1 + c2*w2) / total
		out[shift] = clampByte(v)
	}
	return uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
}

func interpolateUV(tri [3]vertex, w0, w1, w2, total int64) (uint16, uint16) {
	u := (int64(tri[0].u)*w0 + int64(tri[1].u)*w1 + int64(tri[2].u)*w2) / total
	v := (int64(tri[0].v)*w0 + int64(tri[1].v)*w1 + int64(tri[2].v)*w2) / total
	return uint16(clampU16(u)), uint16(clampU16(v))
}

func clampByte(v int64) byte {
	if v < 0 {
		return 0
	}
	if v > 0xFF {
		return 0xFF
	}
	return byte(v)
}

func clampU16(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}

// blend applies the per-channel blend equation: 0 overwrites the
// destination with the source, anything else averages source and
// destination 50/50. The RGB and alpha equations are tracked separately
// but applied the same way; real hardware's richer blend-factor space is
// out of scope.
func blend(dst, src uint32, rgbEq, alphaEq uint8) uint32 {
	d := color.RGBA{uint8(dst), uint8(dst >> 8), uint8(dst >> 16), uint8(dst >> 24)}
	s := color.RGBA{uint8(src), uint8(src >> 8), uint8(src >> 16), uint8(src >> 24)}

	mix := func(a, b uint8, eq uint8) uint8 {
		if eq == 0 {
			return b
		}
		return uint8((uint16(a) + uint16(b)) / 2)
	}

	r := mix(d.R, s.R, rgbEq)
	g := mix(d.G, s.G, rgbEq)
	b := mix(d.B, s.B, rgbEq)
	a := mix(d.A, s.A, alphaEq)

	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}
