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

package phys

// Kind distinguishes the handful of physical memory kinds. Kept as a
// tagged enum rather than a set of booleans so that dispatch in Bus can
// switch exhaustively.
type Kind int

const (
	KindRAM Kind = iota
	KindVRAM
	KindMMIO
	KindBIOS
	KindROM
)

func (k Kind) String() string {
	switch k {
	case KindRAM:
		return "ram"
	case KindVRAM:
		return "vram"
	case KindMMIO:
		return "mmio"
	case KindBIOS:
		return "bios"
	case KindROM:
		return "rom"
	default:
		return "unknown"
	}
}

// Segment is one mapped region of the physical address space: an origin,
// a length, a writability flag, a backing store and a kind. MMIO segments
// do not use backing; they dispatch through the device table in Bus
// instead (see mmio.go).
type Segment struct {
	Origin   uint32
	Length   uint32
	Writable bool
	Kind     Kind
	backing  []byte
}

// contains reports whether addr lies within this segment.
func (s *Segment) contains(addr uint32) bool {
	return addr >= s.Origin && uint64(addr) < uint64(s.Origin)+uint64(s.Length)
}

// offset returns addr's index into the segment's backing store. Callers
// must have already verified contains(addr).
func (s *Segment) offset(addr uint32) uint32 {
	return addr - s.Origin
}

func newBackedSegment(origin, length uint32, writable bool, kind Kind) *Segment {
	return &Segment{
		Origin:   origin,
		Length:   length,
		Writable: writable,
		Kind:     kind,
		backing:  make([]byte, length),
	}
}
