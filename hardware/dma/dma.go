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

// Package dma implements the DMA engine: queued
// transfers that complete after a word-count-proportional latency, either
// by copying words between physical addresses or by feeding words into the
// GPU's command FIFO.
package dma

import "github.com/arclight3ds/core3ds/hardware/irq"

// Mode selects what a transfer does on completion.
type Mode int

const (
	// ModeMemToMem copies Words 32-bit words from Source to Dest,
	// incrementing both addresses by 4 per word.
	ModeMemToMem Mode = iota
	// ModeGPUFeed reads Words 32-bit words starting at Source and hands
	// them to the GPU's FIFO ingest in order; Dest is ignored.
	ModeGPUFeed
)

// Memory is the capability the memory-to-memory mode needs from the
// physical bus: tolerant word access, since DMA transfers operate on
// physical addresses directly and bypass the MMU.
type Memory interface {
	ReadWordTolerant(addr uint32) uint32
	WriteWordTolerant(addr uint32, v uint32)
}

// GPUIngest is the capability the GPU-feed mode needs: handing a run of
// words to the GPU's command FIFO for decode.
type GPUIngest interface {
	IngestWords(words []uint32)
}

// Transfer is one queued or in-flight DMA request.
type Transfer struct {
	Channel int
	Source  uint32
	Dest    uint32
	Words   uint32
	Mode    Mode
}

// Engine holds the in-flight transfer list and the collaborators needed to
// execute completions.
type Engine struct {
	mem    Memory
	gpu    GPUIngest
	irq    *irq.Controller
	inFlight []Transfer
}

// New returns an Engine bound to mem (for memory-to-memory copies), gpu
// (for FIFO-feed transfers), and irqCtrl (to raise DMA-0 on completion).
func New(mem Memory, gpu GPUIngest, irqCtrl *irq.Controller) *Engine {
	return &Engine{mem: mem, gpu: gpu, irq: irqCtrl}
}

// Queue appends t to the in-flight list and returns the cycle latency the
// orchestrator should schedule a completion event for: max(words, 1)
// cycles.
func (e *Engine) Queue(t Transfer) uint32 {
	e.inFlight = append(e.inFlight, t)
	if t.Words == 0 {
		return 1
	}
	return t.Words
}

// Complete pops the first in-flight transfer on channel and executes it.
// Memory-to-memory mode copies Words words from Source to Dest; GPU-feed
// mode reads Words words from Source and ingests them into the GPU FIFO.
// On success it raises the DMA-0 IRQ line. Complete is a no-op (and raises
// nothing) if no transfer is queued on channel.
func (e *Engine) Complete(channel int) {
	idx := -1
	for i, t := range e.inFlight {
		if t.Channel == channel {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	t := e.inFlight[idx]
	e.inFlight = append(e.inFlight[:idx], e.inFlight[idx+1:]...)

	switch t.Mode {
	case ModeMemToMem:
		src, dst := t.Source, t.Dest
		for i := uint32(0); i < t.Words; i++ {
			v := e.mem.ReadWordTolerant(src)
			e.mem.WriteWordTolerant(dst, v)
			src += 4
			dst += 4
		}
	case ModeGPUFeed:
		words := make([]uint32, t.Words)
		addr := t.Source
		for i := range words {
			words[i] = e.mem.ReadWordTolerant(addr)
			addr += 4
		}
		if e.gpu != nil {
			e.gpu.IngestWords(words)
		}
	}

	if e.irq != nil {
		e.irq.Raise(irq.LineDMA0)
	}
}

// Pending reports how many transfers are currently in flight, for
// diagnostics.
func (e *Engine) Pending() int { return len(e.inFlight) }
