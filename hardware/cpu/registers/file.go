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

package registers

// bank holds the per-mode SP/LR pair and (for non-user modes) the saved
// SPSR.
type bank struct {
	sp   uint32
	lr   uint32
	spsr PSR
}

// File is the full ARM11-style register file: R0..R12 shared across all
// modes, a banked SP (R13) and LR (R14) pair per mode, a single visible
// PC (R15) and the current CPSR. Because SP/LR accessors always resolve
// through the bank keyed by the current CPSR mode, a mode switch is
// nothing more than assigning CPSR.Mode: no explicit save/restore step is
// needed to keep SP and LR in the general file always reflecting the
// current mode.
type File struct {
	r    [13]uint32 // R0..R12
	pc   uint32
	cpsr PSR

	banks map[Mode]*bank
}

// NewFile returns a File reset to the zero register state in User mode
// with interrupts disabled and ARM (not Thumb) instruction state.
func NewFile() *File {
	f := &File{
		banks: map[Mode]*bank{
			ModeUser: {},
			ModeIRQ:  {},
			ModeSVC:  {},
			ModeABT:  {},
			ModeUND:  {},
		},
	}
	f.cpsr = PSR{Mode: ModeUser, IRQDisable: true}
	return f
}

func (f *File) currentBank() *bank {
	b, ok := f.banks[f.cpsr.Mode]
	if !ok {
		// defensive: an invalid mode falls back to user banking rather
		// than panicking, matching the CPU's tolerant posture elsewhere.
		return f.banks[ModeUser]
	}
	return b
}

// Reset zeroes every general register and every bank, and re-enters User
// mode with interrupts disabled.
func (f *File) Reset() {
	for i := range f.r {
		f.r[i] = 0
	}
	f.pc = 0
	for m := range f.banks {
		f.banks[m] = &bank{}
	}
	f.cpsr = PSR{Mode: ModeUser, IRQDisable: true}
}

// R returns general register n (0..12).
func (f *File) R(n int) uint32 { return f.r[n] }

// SetR sets general register n (0..12).
func (f *File) SetR(n int, v uint32) { f.r[n] = v }

// SP returns the banked stack pointer (R13) for the current mode.
func (f *File) SP() uint32 { return f.currentBank().sp }

// SetSP sets the banked stack pointer for the current mode.
func (f *File) SetSP(v uint32) { f.currentBank().sp = v }

// LR returns the banked link register (R14) for the current mode.
func (f *File) LR() uint32 { return f.currentBank().lr }

// SetLR sets the banked link register for the current mode.
func (f *File) SetLR(v uint32) { f.currentBank().lr = v }

// PC returns the program counter (R15).
func (f *File) PC() uint32 { return f.pc }

// SetPC sets the program counter.
func (f *File) SetPC(v uint32) { f.pc = v }

// GetReg is a uniform accessor over R0..R15 for decode logic that
// addresses registers by number (e.g. Rd/Rn/Rm fields).
func (f *File) GetReg(n int) uint32 {
	switch {
	case n == 13:
		return f.SP()
	case n == 14:
		return f.LR()
	case n == 15:
		return f.pc
	default:
		return f.r[n]
	}
}

// SetReg is the uniform setter counterpart to GetReg.
func (f *File) SetReg(n int, v uint32) {
	switch {
	case n == 13:
		f.SetSP(v)
	case n == 14:
		f.SetLR(v)
	case n == 15:
		f.pc = v
	default:
		f.r[n] = v
	}
}

// CPSR returns the current program status word.
func (f *File) CPSR() PSR { return f.cpsr }

// SetCPSR installs psr as the current CPSR directly (no mode-switch side
// effects beyond what reading SP/LR naturally picks up, since those
// resolve through the bank keyed by cpsr.Mode).
func (f *File) SetCPSR(psr PSR) { f.cpsr = psr }

// SPSR returns the saved PSR for the current mode. Undefined (returns the
// zero PSR) in User mode, which has no SPSR.
func (f *File) SPSR() PSR { return f.currentBank().spsr }

// SetSPSR sets the saved PSR for the current mode.
func (f *File) SetSPSR(psr PSR) { f.currentBank().spsr = psr }

// EnterMode performs the register-file half of exception entry: save the
// pre-exception CPSR as the new mode's SPSR, switch to newMode, and set
// the new mode's LR to returnAddr. The caller is responsible for setting
// PC to the exception vector and adjusting the T/I bits of the (now
// current) CPSR.
func (f *File) EnterMode(newMode Mode, returnAddr uint32) {
	priorCPSR := f.cpsr
	f.cpsr.Mode = newMode
	f.currentBank().spsr = priorCPSR
	f.SetLR(returnAddr)
}

// ReturnFromException copies the current mode's SPSR back into CPSR. The
// mode field inside that SPSR determines which bank SP/LR resolve to from
// this point on, so the mode switch is implicit.
func (f *File) ReturnFromException() {
	f.cpsr = f.currentBank().spsr
}
