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

// Package hostapi is the thin façade that exposes the emulator core as a
// library. It does no ROM/title container parsing, audio synthesis, or
// diagnostics serialisation of its own beyond what it forwards from
// internal/orchestrator; those remain the orchestrator's and loader's
// concerns. This package only adapts them into the flat operation set a
// host embedding the core would call.
package hostapi

import (
	"github.com/arclight3ds/core3ds/hardware/dma"
	"github.com/arclight3ds/core3ds/internal/orchestrator"
	"github.com/arclight3ds/core3ds/internal/prefs"
)

// Emulator is a thin, host-facing wrapper around one Orchestrator
// instance.
type Emulator struct {
	o *orchestrator.Orchestrator
}

// New creates an Emulator with no title loaded yet.
func New(p *prefs.Prefs, seed int64) *Emulator {
	return &Emulator{o: orchestrator.New(p, seed)}
}

// Reset discards the current Emulator state and starts over with the
// same preferences, unloaded.
func (e *Emulator) Reset(p *prefs.Prefs, seed int64) {
	e.o = orchestrator.New(p, seed)
}

// LoadTitle parses and installs a title image, per internal/loader's
// format. This is the "load a title package" operation; a raw ROM image
// with no container format is just the degenerate single-segment case of
// the same image format, so there is no separate entry point for it.
func (e *Emulator) LoadTitle(data []byte) error {
	return e.o.Boot(data)
}

// Run executes exactly cycles cycles, stopping early and returning the
// first error encountered (typically an MMU fault or undefined
// instruction).
func (e *Emulator) Run(cycles uint64) error {
	return e.o.Run(cycles)
}

// RunSynced executes a budget scaled by how far emulated time has
// drifted from the host's wall clock at nowUs, per the timing model's
// drift policy, then runs that many cycles.
func (e *Emulator) RunSynced(nowUs int64, requested uint64) error {
	return e.o.Run(e.o.RecommendedBudget(nowUs, requested))
}

// EnqueueGPUWords feeds raw FIFO words directly into the GPU command
// processor, bypassing the kernel's IPC dispatch, useful for a host
// driving the GPU without a running title process.
func (e *Emulator) EnqueueGPUWords(words []uint32) {
	e.o.GPU.IngestWords(words)
}

// DrawPoint is a convenience over the GPU broker for setting a single
// pixel without building a one-triangle vertex/index buffer in memory.
func (e *Emulator) DrawPoint(x, y int32, colour uint32) {
	e.o.GPU.PutPixel(x, y, colour)
}

// QueueDMA queues a DMA transfer through the orchestrator's scheduler.
func (e *Emulator) QueueDMA(t dma.Transfer) {
	e.o.QueueDMA(t)
}

// SetDriftAnchor is not exposed separately: drift policy lives in Prefs
// (passed at New/Reset) and the wall-clock anchor is set once, internally,
// at Orchestrator construction. A host that needs to re-anchor (e.g.
// after a long pause) should Reset with the same Prefs.

// PeekByte reads a physical byte without regard to mapping/writability,
// for host-side debugging.
func (e *Emulator) PeekByte(addr uint32) uint8 {
	v, _ := e.o.Bus.Peek(addr)
	return v
}

// PokeByte writes a physical byte without regard to mapping/writability.
func (e *Emulator) PokeByte(addr uint32, v uint8) { e.o.Bus.Poke(addr, v) }

// PeekWord reads a physical little-endian word without regard to
// mapping/writability.
func (e *Emulator) PeekWord(addr uint32) uint32 {
	var out uint32
	for i := uint32(0); i < 4; i++ {
		v, _ := e.o.Bus.Peek(addr + i)
		out |= uint32(v) << (8 * i)
	}
	return out
}

// PokeWord writes a physical little-endian word without regard to
// mapping/writability.
func (e *Emulator) PokeWord(addr uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		e.o.Bus.Poke(addr+i, uint8(v>>(8*i)))
	}
}

// FrameBuffer returns the current framebuffer as little-endian RGBA
// bytes.
func (e *Emulator) FrameBuffer() []byte { return e.o.GPU.RGBABytes() }

// TakeAudioSamples returns the accumulated audio sample buffer and clears
// it.
func (e *Emulator) TakeAudioSamples() []int {
	samples := e.o.Clock.Samples()
	out := make([]int, len(samples.Data))
	copy(out, samples.Data)
	e.o.Clock.ClearSamples()
	return out
}

// SetInput forwards a host input sample (button mask, touch coordinates)
// to the emulated pad.
func (e *Emulator) SetInput(buttons uint32, touchX, touchY int32) {
	e.o.SetInput(buttons, touchX, touchY)
}

// Snapshot is a structured read of the emulator's externally-visible
// state, for a host that wants to display or serialise it without
// reaching into internal types.
type Snapshot struct {
	PC             uint32
	SP             uint32
	Halted         bool
	PresentCount   uint64
	TopScanline    int
	BottomScanline int
	TopVBlanks     uint64
	BottomVBlanks  uint64
}

// State returns a Snapshot of the emulator's current externally-visible
// state.
func (e *Emulator) State() Snapshot {
	return Snapshot{
		PC:             e.o.CPU.Regs.PC(),
		SP:             e.o.CPU.Regs.SP(),
		Halted:         e.o.CPU.Halted,
		PresentCount:   e.o.GPU.PresentCount(),
		TopScanline:    e.o.Clock.TopScanline(),
		BottomScanline: e.o.Clock.BottomScanline(),
		TopVBlanks:     e.o.Clock.TopVBlanks(),
		BottomVBlanks:  e.o.Clock.BottomVBlanks(),
	}
}

// Diagnostics is a structured read of the orchestrator's ring-buffer
// sizes and boot-checkpoint progress.
type Diagnostics struct {
	CPUFetchEntries    int
	IPCEntries         int
	ServiceCallEntries int
	MMUFaultEntries    int
	GPUCommandEntries  int
	CheckpointsReached []string
	DivergenceIndex    int
}

// DiagnosticsSnapshot returns a Diagnostics read of the orchestrator's
// current diagnostics state.
func (e *Emulator) DiagnosticsSnapshot() Diagnostics {
	cpuFetch, ipc, serviceCall, mmuFault, gpuCommand := e.o.Diagnostics()
	return Diagnostics{
		CPUFetchEntries:    len(cpuFetch),
		IPCEntries:         len(ipc),
		ServiceCallEntries: len(serviceCall),
		MMUFaultEntries:    len(mmuFault),
		GPUCommandEntries:  len(gpuCommand),
		CheckpointsReached: e.o.CheckpointsReached(),
		DivergenceIndex:    e.o.CheckpointDivergence(),
	}
}
