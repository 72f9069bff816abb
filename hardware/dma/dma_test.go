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

package dma

import (
	"testing"

	"github.com/arclight3ds/core3ds/hardware/irq"
)

type fakeMemory struct {
	words map[uint32]uint32
}

func newFakeMemory() *fakeMemory { return &fakeMemory{words: make(map[uint32]uint32)} }

func (m *fakeMemory) ReadWordTolerant(addr uint32) uint32 { return m.words[addr] }
func (m *fakeMemory) WriteWordTolerant(addr uint32, v uint32) {
	m.words[addr] = v
}

type fakeGPU struct {
	ingested [][]uint32
}

func (g *fakeGPU) IngestWords(words []uint32) {
	g.ingested = append(g.ingested, append([]uint32(nil), words...))
}

func TestQueueReturnsWordCountLatencyWithMinimumOfOne(t *testing.T) {
	e := New(newFakeMemory(), &fakeGPU{}, irq.New())

	if lat := e.Queue(Transfer{Channel: 0, Words: 8}); lat != 8 {
		t.Fatalf("Queue() latency = %d, want 8", lat)
	}
	if lat := e.Queue(Transfer{Channel: 1, Words: 0}); lat != 1 {
		t.Fatalf("Queue() latency for a zero-word transfer = %d, want 1 (minimum)", lat)
	}
}

func TestCompleteMemToMemCopiesWords(t *testing.T) {
	mem := newFakeMemory()
	mem.words[0x1000] = 0xAAAA
	mem.words[0x1004] = 0xBBBB
	e := New(mem, &fakeGPU{}, irq.New())

	e.Queue(Transfer{Channel: 0, Source: 0x1000, Dest: 0x2000, Words: 2, Mode: ModeMemToMem})
	e.Complete(0)

	if mem.words[0x2000] != 0xAAAA || mem.words[0x2004] != 0xBBBB {
		t.Fatalf("memory-to-memory copy = (%#x, %#x), want (0xaaaa, 0xbbbb)", mem.words[0x2000], mem.words[0x2004])
	}
}

func TestCompleteGPUFeedIngestsWordsInOrder(t *testing.T) {
	mem := newFakeMemory()
	mem.words[0x3000] = 1
	mem.words[0x3004] = 2
	mem.words[0x3008] = 3
	gpu := &fakeGPU{}
	e := New(mem, gpu, irq.New())

	e.Queue(Transfer{Channel: 2, Source: 0x3000, Words: 3, Mode: ModeGPUFeed})
	e.Complete(2)

	if len(gpu.ingested) != 1 {
		t.Fatalf("gpu.ingested has %d batches, want 1", len(gpu.ingested))
	}
	got := gpu.ingested[0]
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("ingested words = %v, want [1 2 3]", got)
	}
}

func TestCompleteRaisesDMAZeroIRQ(t *testing.T) {
	ctrl := irq.New()
	e := New(newFakeMemory(), &fakeGPU{}, ctrl)

	e.Queue(Transfer{Channel: 0, Words: 1, Mode: ModeMemToMem})
	e.Complete(0)

	if !ctrl.Pending(irq.LineDMA0) {
		t.Fatalf("irq.LineDMA0 not pending after Complete(), want it raised")
	}
}

func TestCompleteOnEmptyChannelIsANoOp(t *testing.T) {
	ctrl := irq.New()
	e := New(newFakeMemory(), &fakeGPU{}, ctrl)

	e.Complete(0) // nothing queued

	if ctrl.Pending(irq.LineDMA0) {
		t.Fatalf("irq.LineDMA0 raised for a channel with nothing queued")
	}
}

func TestCompleteOnlyPopsTheMatchingChannel(t *testing.T) {
	mem := newFakeMemory()
	e := New(mem, &fakeGPU{}, irq.New())

	e.Queue(Transfer{Channel: 0, Words: 1, Mode: ModeMemToMem})
	e.Queue(Transfer{Channel: 1, Words: 1, Mode: ModeMemToMem})

	e.Complete(1)
	if e.Pending() != 1 {
		t.Fatalf("Pending() = %d after completing channel 1, want 1 (channel 0 still queued)", e.Pending())
	}
}
