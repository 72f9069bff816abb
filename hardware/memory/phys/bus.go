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

// Package phys implements a segmented physical address space: an ordered
// list of mapped segments (main RAM, video RAM, MMIO, BIOS, ROM), checked
// and tolerant byte/word accessors, and 4KiB-paged MMIO device dispatch.
package phys

import (
	"github.com/arclight3ds/core3ds/internal/coreerrors"
	"github.com/arclight3ds/core3ds/internal/curated"
)

// Standard physical address map, bit-exact.
const (
	MainRAMBase = 0x0000_0000
	MainRAMLen  = 128 * 1024 * 1024

	MMIOBase = 0x1010_0000
	MMIOLen  = 1 * 1024 * 1024

	VideoRAMBase = 0x1F00_0000
	VideoRAMLen  = 1 * 1024 * 1024

	BIOSBase = 0x1FFF_0000
	BIOSLen  = 64 * 1024

	ROMBase = 0x0800_0000

	// mmioPageSize is the granularity at which MMIO devices register.
	mmioPageSize = 4096
)

// Bus is the segmented physical memory bus.
type Bus struct {
	segments []*Segment
	devices  map[uint32]bus_Device
}

// bus_Device avoids an import cycle with the bus package at the type
// level while keeping the same method set; phys.Bus satisfies
// bus.Checked/bus.Tolerant/bus.DebugBus and accepts anything satisfying
// bus.Device without importing that package's Device name directly into
// the public surface (RegisterMMIODevice takes the interface literal).
type bus_Device interface {
	ReadU32(addr uint32) uint32
	WriteU32(addr uint32, v uint32)
}

// New creates a Bus with RAM, VRAM, MMIO and BIOS mapped per the standard
// address map. ROM is not mapped until InstallROM is called.
func New() *Bus {
	b := &Bus{
		devices: make(map[uint32]bus_Device),
	}
	b.segments = []*Segment{
		newBackedSegment(MainRAMBase, MainRAMLen, true, KindRAM),
		newBackedSegment(MMIOBase, MMIOLen, true, KindMMIO),
		newBackedSegment(VideoRAMBase, VideoRAMLen, true, KindVRAM),
		newBackedSegment(BIOSBase, BIOSLen, false, KindBIOS),
	}
	return b
}

// find returns the segment containing addr, or nil.
func (b *Bus) find(addr uint32) *Segment {
	for _, s := range b.segments {
		if s.contains(addr) {
			return s
		}
	}
	return nil
}

// InstallROM replaces any prior ROM segment and maps a non-writable
// segment at ROMBase of length len(image), bit-copying image into it.
func (b *Bus) InstallROM(image []byte) {
	filtered := b.segments[:0]
	for _, s := range b.segments {
		if s.Kind != KindROM {
			filtered = append(filtered, s)
		}
	}
	b.segments = filtered

	seg := newBackedSegment(ROMBase, uint32(len(image)), false, KindROM)
	copy(seg.backing, image)
	b.segments = append(b.segments, seg)
}

// ClearWritable zeroes the backing store of every writable, non-MMIO
// segment (RAM and VRAM). The MMIO segment is skipped: its accesses go to
// registered devices rather than to its backing store, and devices are
// responsible for their own reset.
func (b *Bus) ClearWritable() {
	for _, s := range b.segments {
		if s.Writable && s.Kind != KindMMIO {
			for i := range s.backing {
				s.backing[i] = 0
			}
		}
	}
}

// RegisterMMIODevice installs dev to handle all 32-bit-aligned word
// accesses within the 4KiB page starting at pageBase. pageBase must be a
// multiple of 4096 and must fall inside the MMIO segment.
func (b *Bus) RegisterMMIODevice(pageBase uint32, dev bus_Device) {
	b.devices[pageBase-pageBase%mmioPageSize] = dev
}

func (b *Bus) deviceFor(addr uint32) (bus_Device, uint32, bool) {
	page := addr - addr%mmioPageSize
	dev, ok := b.devices[page]
	return dev, page, ok
}

// ---- checked byte/word access ----

// ReadByte returns the byte at addr, or MemoryOutOfBounds if no segment
// contains addr.
func (b *Bus) ReadByte(addr uint32) (uint8, error) {
	s := b.find(addr)
	if s == nil {
		return 0, curated.Errorf(coreerrors.MemoryOutOfBounds, addr)
	}
	if s.Kind == KindMMIO {
		return b.mmioReadByte(addr), nil
	}
	return s.backing[s.offset(addr)], nil
}

// WriteByte writes v at addr. It fails with MemoryOutOfBounds when no
// segment contains addr; it silently succeeds (no state change) when the
// enclosing segment is not writable.
func (b *Bus) WriteByte(addr uint32, v uint8) error {
	s := b.find(addr)
	if s == nil {
		return curated.Errorf(coreerrors.MemoryOutOfBounds, addr)
	}
	if !s.Writable {
		return nil
	}
	if s.Kind == KindMMIO {
		b.mmioWriteByte(addr, v)
		return nil
	}
	s.backing[s.offset(addr)] = v
	return nil
}

// ReadWord reads a little-endian 32-bit word as four sequential checked
// byte reads at addr, addr+1, addr+2, addr+3 (wrapping on overflow, since
// uint32 arithmetic wraps naturally in Go).
func (b *Bus) ReadWord(addr uint32) (uint32, error) {
	var out uint32
	for i := uint32(0); i < 4; i++ {
		v, err := b.ReadByte(addr + i)
		if err != nil {
			return 0, err
		}
		out |= uint32(v) << (8 * i)
	}
	return out, nil
}

// WriteWord writes v as four sequential checked byte writes.
func (b *Bus) WriteWord(addr uint32, v uint32) error {
	for i := uint32(0); i < 4; i++ {
		if err := b.WriteByte(addr+i, uint8(v>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// ---- tolerant byte/word access ----

// ReadByteTolerant never fails: an unmapped address reads as zero.
func (b *Bus) ReadByteTolerant(addr uint32) uint8 {
	v, err := b.ReadByte(addr)
	if err != nil {
		return 0
	}
	return v
}

// WriteByteTolerant never fails: writes to unmapped or read-only ranges
// are discarded.
func (b *Bus) WriteByteTolerant(addr uint32, v uint8) {
	_ = b.WriteByte(addr, v)
}

// ReadWordTolerant reads four tolerant bytes and assembles them
// little-endian.
func (b *Bus) ReadWordTolerant(addr uint32) uint32 {
	var out uint32
	for i := uint32(0); i < 4; i++ {
		out |= uint32(b.ReadByteTolerant(addr+i)) << (8 * i)
	}
	return out
}

// WriteWordTolerant writes four tolerant bytes.
func (b *Bus) WriteWordTolerant(addr uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		b.WriteByteTolerant(addr+i, uint8(v>>(8*i)))
	}
}

// ---- debug access ----

// Peek reads addr without raising errors; ok is false if unmapped.
func (b *Bus) Peek(addr uint32) (uint8, bool) {
	s := b.find(addr)
	if s == nil {
		return 0, false
	}
	if s.Kind == KindMMIO {
		return b.mmioReadByte(addr), true
	}
	return s.backing[s.offset(addr)], true
}

// Poke writes addr regardless of writability, for debugger/host use. ok is
// false if unmapped.
func (b *Bus) Poke(addr uint32, v uint8) bool {
	s := b.find(addr)
	if s == nil {
		return false
	}
	if s.Kind == KindMMIO {
		b.mmioWriteByte(addr, v)
		return true
	}
	s.backing[s.offset(addr)] = v
	return true
}
