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

// Package registers implements the ARM11-style register file used by the
// CPU package: sixteen general registers with per-mode banking of SP/LR,
// and a CPSR/SPSR pair carrying condition flags, interrupt-disable,
// Thumb-state and processor mode.
package registers

// Mode is one of the five banked processor modes participating in
// register banking. Encodings match the real ARM mode field
// so that MSR/MRS round-trip through a CPSR word without translation.
type Mode uint32

const (
	ModeUser Mode = 0x10
	ModeIRQ  Mode = 0x12
	ModeSVC  Mode = 0x13
	ModeABT  Mode = 0x17
	ModeUND  Mode = 0x1B
)

// Valid reports whether m is one of the five modes this design supports.
func (m Mode) Valid() bool {
	switch m {
	case ModeUser, ModeIRQ, ModeSVC, ModeABT, ModeUND:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeIRQ:
		return "irq"
	case ModeSVC:
		return "svc"
	case ModeABT:
		return "abt"
	case ModeUND:
		return "und"
	default:
		return "???"
	}
}

// PSR is a program status word: the four NZCV condition flags, the
// interrupt-disable and Thumb-state bits, and the processor mode.
type PSR struct {
	Negative bool
	Zero     bool
	Carry    bool
	Overflow bool

	IRQDisable bool
	Thumb      bool
	Mode       Mode
}

// ToWord packs the PSR into its 32-bit hardware encoding (N=31 Z=30 C=29
// V=28, I=7, T=5, mode=4:0).
func (p PSR) ToWord() uint32 {
	var w uint32
	if p.Negative {
		w |= 1 << 31
	}
	if p.Zero {
		w |= 1 << 30
	}
	if p.Carry {
		w |= 1 << 29
	}
	if p.Overflow {
		w |= 1 << 28
	}
	if p.IRQDisable {
		w |= 1 << 7
	}
	if p.Thumb {
		w |= 1 << 5
	}
	w |= uint32(p.Mode) & 0x1F
	return w
}

// FromWord unpacks a 32-bit PSR encoding. The mode field is masked to its
// 5 bits but not validated; callers that need a strictly-valid mode should
// check Mode.Valid().
func FromWord(w uint32) PSR {
	return PSR{
		Negative:   w&(1<<31) != 0,
		Zero:       w&(1<<30) != 0,
		Carry:      w&(1<<29) != 0,
		Overflow:   w&(1<<28) != 0,
		IRQDisable: w&(1<<7) != 0,
		Thumb:      w&(1<<5) != 0,
		Mode:       Mode(w & 0x1F),
	}
}

// SetNZ derives the Negative and Zero flags from result.
func (p *PSR) SetNZ(result uint32) {
	p.Negative = result&0x8000_0000 != 0
	p.Zero = result == 0
}

func (p PSR) String() string {
	s := [4]byte{'n', 'z', 'c', 'v'}
	if p.Negative {
		s[0] = 'N'
	}
	if p.Zero {
		s[1] = 'Z'
	}
	if p.Carry {
		s[2] = 'C'
	}
	if p.Overflow {
		s[3] = 'V'
	}
	return string(s[:]) + " " + p.Mode.String()
}
