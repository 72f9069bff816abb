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

// Package gpu implements a PICA-style GPU command processor: a FIFO
// packet decoder, a sparse register file, and a fixed-function draw-call
// pipeline that rasterises into an internal framebuffer.
package gpu

// Memory is the capability the GPU needs from the physical bus to fetch
// vertex records and texture texels: tolerant word/byte reads, since the
// GPU reads memory it does not own the mapping discipline for.
type Memory interface {
	ReadWordTolerant(addr uint32) uint32
	ReadByteTolerant(addr uint32) uint8
}

// Register names the sparse 16-bit register indices the command
// processor recognises. Values are arbitrary but fixed, chosen to group
// related registers into contiguous ranges.
type Register uint16

const (
	RegViewportXY Register = 0x0020 + iota
	RegViewportWH
	RegScissorXY
	RegScissorWH
)

const (
	// RegAttributeBase is the first of eight contiguous attribute-enable
	// registers; writing register RegAttributeBase+n sets or clears
	// attribute-enable bit n according to whether the written value is
	// non-zero.
	RegAttributeBase Register = 0x0040
)

const (
	RegIndexFormat Register = 0x0060 + iota
	RegVertexFormat
	RegVertexBufferBase
	RegIndexBufferBase
	RegDepthStencil
	RegBlendEquation
	RegTextureBase
	RegTextureSize
	RegTextureFormat
	RegFramebufferFormat
	RegShaderCode
	RegShaderConstant
	RegColorClear
	RegDrawBaseVertex
	RegDrawVertexCount
	RegDrawTrigger
)

// IndexFormat selects the element width of the index buffer.
type IndexFormat int

const (
	IndexU8 IndexFormat = iota
	IndexU16
)

// TextureFormat selects the bound texture's pixel encoding.
type TextureFormat int

const (
	TextureRGBA8 TextureFormat = iota
	TextureRGB565
)

// FramebufferFormat selects the output framebuffer's pixel encoding.
type FramebufferFormat int

const (
	FramebufferRGBA8 FramebufferFormat = iota
	FramebufferRGB565
)

// Rect is an axis-aligned integer rectangle used for the viewport and
// scissor tests.
type Rect struct {
	X, Y, W, H int32
}

func (r Rect) contains(x, y int32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// VertexFormat packs the per-vertex record layout: the byte stride
// between consecutive records, and the byte offset of an optional colour
// word and an optional texture-coordinate word within each record.
// absentOffset marks a field as not present in the record.
const absentOffset = 0xFF

type VertexFormat struct {
	Stride         uint8
	ColorOffset    uint8
	TexCoordOffset uint8
}

// TraceEntry is one applied register write, retained for deterministic
// replay.
type TraceEntry struct {
	Register Register
	Value    uint32
}

// Const framebuffer dimensions: the 3DS top-screen resolution, used as
// the GPU's internal render target regardless of which physical screen a
// present() call is ultimately routed to by the host.
const (
	FramebufferWidth  = 400
	FramebufferHeight = 240
)

// GPU is the command processor and fixed-function rasteriser.
type GPU struct {
	mem Memory

	regs map[Register]uint32

	viewport Rect
	scissor  Rect

	attributeEnable uint8

	indexFormat  IndexFormat
	vertexFormat VertexFormat

	vertexBufferBase uint32
	indexBufferBase  uint32

	depthTestEnable  bool
	depthWriteEnable bool

	blendRGBEquation   uint8
	blendAlphaEquation uint8

	textureBase   uint32
	textureWidth  uint32
	textureHeight uint32
	textureFormat TextureFormat

	framebufferFormat FramebufferFormat

	shaderCode      []uint32
	shaderConstant  uint32
	shaderOps       []shaderOp

	drawBaseVertex  uint32
	drawVertexCount uint32

	framebuffer []uint32 // RGBA8, row-major, FramebufferWidth x FramebufferHeight
	depthBuffer []uint16

	frameComplete int // count of pending frame-complete events, drained by the orchestrator
	present       uint64

	trace []TraceEntry
	fifo  []uint32
}

// New returns a GPU with a black, cleared framebuffer and the default
// fixed-function state (no attributes enabled, depth test and write off,
// source-overwrite blending, RGBA8 everywhere).
func New(mem Memory) *GPU {
	g := &GPU{
		mem:         mem,
		regs:        make(map[Register]uint32),
		framebuffer: make([]uint32, FramebufferWidth*FramebufferHeight),
		depthBuffer: make([]uint16, FramebufferWidth*FramebufferHeight),
	}
	return g
}

// Trace returns the accumulated register-write trace log.
func (g *GPU) Trace() []TraceEntry { return g.trace }

// ClearTrace empties the trace log.
func (g *GPU) ClearTrace() { g.trace = nil }

// Framebuffer returns the raw RGBA8 pixel grid by reference; callers that
// need a stable snapshot should copy it.
func (g *GPU) Framebuffer() []uint32 { return g.framebuffer }

// Present increments the frame-presentation counter by k.
func (g *GPU) Present(k uint64) { g.present += k }

// PresentCount returns the current frame-presentation counter.
func (g *GPU) PresentCount() uint64 { return g.present }

// TakeFrameComplete reports whether at least one frame-complete event is
// pending and, if so, consumes one.
func (g *GPU) TakeFrameComplete() bool {
	if g.frameComplete == 0 {
		return false
	}
	g.frameComplete--
	return true
}

// RGBABytes copies the framebuffer out as little-endian RGBA bytes, the
// form the host façade hands back to callers.
func (g *GPU) RGBABytes() []byte {
	out := make([]byte, len(g.framebuffer)*4)
	for i, px := range g.framebuffer {
		out[i*4+0] = uint8(px)
		out[i*4+1] = uint8(px >> 8)
		out[i*4+2] = uint8(px >> 16)
		out[i*4+3] = uint8(px >> 24)
	}
	return out
}

// IngestWords feeds a run of FIFO words (e.g. from a DMA GPU-feed
// transfer or the kernel's GPU hand-off queue) into the command
// processor, decoding and applying whatever complete packets it finds.
// A trailing partial packet (insufficient payload words remaining) stays
// queued in the FIFO and is applied once a later call supplies the rest
// of its payload.
func (g *GPU) IngestWords(words []uint32) {
	g.fifo = append(g.fifo, words...)
	g.drainFIFO()
}

// EnqueueWords satisfies the kernel's GPUHandoff collaborator interface;
// it is the same operation as IngestWords, named to match the "gsp::Gpu"
// service's vocabulary rather than the DMA engine's.
func (g *GPU) EnqueueWords(words []uint32) { g.IngestWords(words) }

func (g *GPU) drainFIFO() {
	for len(g.fifo) > 0 {
		header := g.fifo[0]
		register := Register(header & 0xFFFF)
		count := int((header >> 16) & 0x7F)
		sequential := header&(1<<23) != 0
		if count == 0 {
			count = 1
		}

		if len(g.fifo) < 1+count {
			return // partial packet; wait for more words
		}

		payload := g.fifo[1 : 1+count]
		g.fifo = g.fifo[1+count:]

		for i, v := range payload {
			target := register
			if sequential {
				target = register + Register(i)
			}
			g.applyWrite(target, v)
		}
	}
}

// applyWrite updates the sparse register file, appends a trace entry,
// and invokes the register's corresponding state action.
func (g *GPU) applyWrite(r Register, v uint32) {
	g.regs[r] = v
	g.trace = append(g.trace, TraceEntry{Register: r, Value: v})

	switch {
	case r == RegViewportXY:
		g.viewport.X, g.viewport.Y = int32(int16(v)), int32(int16(v>>16))
	case r == RegViewportWH:
		g.viewport.W, g.viewport.H = int32(v&0xFFFF), int32(v>>16)
	case r == RegScissorXY:
		g.scissor.X, g.scissor.Y = int32(int16(v)), int32(int16(v>>16))
	case r == RegScissorWH:
		g.scissor.W, g.scissor.H = int32(v&0xFFFF), int32(v>>16)

	case r >= RegAttributeBase && r < RegAttributeBase+8:
		bit := uint(r - RegAttributeBase)
		if v != 0 {
			g.attributeEnable |= 1 << bit
		} else {
			g.attributeEnable &^= 1 << bit
		}

	case r == RegIndexFormat:
		if v != 0 {
			g.indexFormat = IndexU16
		} else {
			g.indexFormat = IndexU8
		}
	case r == RegVertexFormat:
		g.vertexFormat = VertexFormat{
			Stride:         uint8(v),
			ColorOffset:    uint8(v >> 8),
			TexCoordOffset: uint8(v >> 16),
		}
	case r == RegVertexBufferBase:
		g.vertexBufferBase = v
	case r == RegIndexBufferBase:
		g.indexBufferBase = v

	case r == RegDepthStencil:
		g.depthTestEnable = v&0x1 != 0
		g.depthWriteEnable = v&0x2 != 0

	case r == RegBlendEquation:
		g.blendRGBEquation = uint8(v)
		g.blendAlphaEquation = uint8(v >> 8)

	case r == RegTextureBase:
		g.textureBase = v
	case r == RegTextureSize:
		g.textureWidth, g.textureHeight = v>>16, v&0xFFFF
	case r == RegTextureFormat:
		if v != 0 {
			g.textureFormat = TextureRGB565
		} else {
			g.textureFormat = TextureRGBA8
		}

	case r == RegFramebufferFormat:
		if v != 0 {
			g.framebufferFormat = FramebufferRGB565
		} else {
			g.framebufferFormat = FramebufferRGBA8
		}

	case r == RegShaderCode:
		g.shaderCode = append(g.shaderCode, v)
		g.retranslateShader()
	case r == RegShaderConstant:
		g.shaderConstant = v
		g.retranslateShader()

	case r == RegColorClear:
		g.clear(v)

	case r == RegDrawBaseVertex:
		g.drawBaseVertex = v
	case r == RegDrawVertexCount:
		g.drawVertexCount = v
	case r == RegDrawTrigger:
		if v&0x1 != 0 {
			g.draw()
		}
	}
}

// clear fills the framebuffer with colour (format-converted from its
// RGBA8 wire representation to the active framebuffer format and back,
// so that format-dependent precision loss is visible in the cleared
// colour the same way it would be for drawn pixels) and resets the depth
// buffer to its far value.
func (g *GPU) clear(colour uint32) {
	converted := formatRoundTrip(colour, g.framebufferFormat)
	for i := range g.framebuffer {
		g.framebuffer[i] = converted
	}
	for i := range g.depthBuffer {
		g.depthBuffer[i] = 0xFFFF
	}
}
