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

// Package cpu implements an ARM11-style CPU interpreter: ARM and Thumb
// decode/execute, condition codes, banked mode registers, and exception
// entry/return.
package cpu

import (
	"github.com/arclight3ds/core3ds/hardware/cpu/registers"
	"github.com/arclight3ds/core3ds/hardware/mmu"
	"github.com/arclight3ds/core3ds/internal/instance"
)

// Memory is the capability set the CPU needs from the physical bus: a
// checked word read (used by the MMU to walk the translation table and
// by the CPU to fetch ARM instructions) and tolerant byte/word access for
// data operations once a virtual address has been translated.
type Memory interface {
	ReadWord(addr uint32) (uint32, error)
	ReadByteTolerant(addr uint32) uint8
	WriteByteTolerant(addr uint32, v uint8)
	ReadWordTolerant(addr uint32) uint32
	WriteWordTolerant(addr uint32, v uint32)
}

// TraceEntry is one instruction-trace ring entry.
type TraceEntry struct {
	PC     uint32
	Opcode uint32
	Thumb  bool
}

// CPU is the ARM11-style interpreter core.
type CPU struct {
	instance *instance.Instance

	Regs *registers.File
	MMU  *mmu.MMU
	mem  Memory

	// Halted is set by the wait-for-interrupt opcode and cleared when an
	// IRQ is taken.
	Halted bool

	// fault-address/fault-status registers, populated on abort.
	IFAR, IFSR uint32
	DFAR, DFSR uint32

	lastException ExceptionRecord
	exceptionSeq  uint64

	// Tracing controls whether Step() appends to the trace ring.
	Tracing    bool
	trace      []TraceEntry
	traceCap   int
}

// New creates a CPU bound to mem. The register file starts reset; the
// caller must set PC (typically via the loader's entry point) before the
// first Step().
func New(inst *instance.Instance, mem Memory) *CPU {
	capacity := 256
	if inst != nil && inst.Prefs != nil && inst.Prefs.TraceCapacity > 0 {
		capacity = inst.Prefs.TraceCapacity
	}
	return &CPU{
		instance: inst,
		Regs:     registers.NewFile(),
		MMU:      mmu.New(),
		mem:      mem,
		traceCap: capacity,
	}
}

// Reset reinitialises the register file and clears the halted/exception
// state. Does not move PC to any particular vector; callers load PC from
// the loader's entry point explicitly.
func (c *CPU) Reset() {
	c.Regs.Reset()
	if c.instance != nil && c.instance.Prefs != nil && c.instance.Prefs.RandomiseOnReset && c.instance.Random != nil {
		for i := 0; i < 13; i++ {
			c.Regs.SetR(i, c.instance.Random.Uint32())
		}
	}
	c.Halted = false
	c.lastException = ExceptionRecord{}
	c.IFAR, c.IFSR, c.DFAR, c.DFSR = 0, 0, 0, 0
}

// LastException returns the most recently recorded exception.
func (c *CPU) LastException() ExceptionRecord { return c.lastException }

// ExceptionSeq returns a counter incremented every time an exception is
// taken, so that callers can detect a fresh exception without LastException
// appearing to repeat across steps that take none.
func (c *CPU) ExceptionSeq() uint64 { return c.exceptionSeq }

// Trace returns the accumulated instruction-trace ring.
func (c *CPU) Trace() []TraceEntry { return c.trace }

// ClearTrace empties the trace ring.
func (c *CPU) ClearTrace() { c.trace = nil }

func (c *CPU) appendTrace(pc, opcode uint32, thumb bool) {
	if !c.Tracing {
		return
	}
	c.trace = append(c.trace, TraceEntry{PC: pc, Opcode: opcode, Thumb: thumb})
	if len(c.trace) > c.traceCap {
		c.trace = c.trace[len(c.trace)-c.traceCap:]
	}
}

// privileged reports whether the current mode may bypass unprivileged-only
// AP restrictions. Every banked mode except User is privileged.
func (c *CPU) privileged() bool {
	return c.Regs.CPSR().Mode != registers.ModeUser
}

// translate walks a virtual address through the MMU for the given access
// kind, recording a prefetch/data abort exception (as appropriate) and
// returning ok=false if translation failed.
func (c *CPU) translate(va uint32, acc mmu.Access, dataAccess bool) (uint32, bool) {
	pa, err := c.MMU.Translate(translateReader{c.mem}, va, acc, c.privileged())
	if err == nil {
		return pa, true
	}

	f, ok := err.(*mmu.Fault)
	if !ok {
		return 0, false
	}

	if dataAccess {
		c.DFAR = f.VA
		c.DFSR = encodeFSR(f.Kind)
		c.takeException(ExceptionDataAbort, VectorDataAbort, c.Regs.PC()+8, 0)
		c.lastException.FaultKind = f.Kind.String()
		c.lastException.FaultAddress = f.VA
	} else {
		c.IFAR = f.VA
		c.IFSR = encodeFSR(f.Kind)
		c.takeException(ExceptionPrefetchAbort, VectorPrefetchAbort, c.Regs.PC()+4, 0)
		c.lastException.FaultKind = f.Kind.String()
		c.lastException.FaultAddress = f.VA
	}
	return 0, false
}

// translateReader adapts Memory to mmu.WordReader.
type translateReader struct{ m Memory }

func (r translateReader) ReadWord(addr uint32) (uint32, error) { return r.m.ReadWord(addr) }

// encodeFSR maps an mmu.FaultKind to a small, stable fault-status code.
// The exact bit layout isn't architecturally significant here; what
// matters is that distinct kinds encode distinctly and are inspectable.
func encodeFSR(k mmu.FaultKind) uint32 {
	switch k {
	case mmu.FaultTranslation:
		return 0x5
	case mmu.FaultDomain:
		return 0x9
	case mmu.FaultPermission:
		return 0xD
	case mmu.FaultAlignment:
		return 0x1
	default:
		return 0x0
	}
}

// takeException performs the register-file half of exception entry:
// SPSR_<mode> <- CPSR, switch banked SP/LR, LR_<mode> <- return address,
// set interrupt-disable, clear T-bit, jump to vector.
func (c *CPU) takeException(kind ExceptionKind, vector, returnAddr uint32, opcode uint32) {
	newMode := registers.ModeSVC
	switch kind {
	case ExceptionUndefined:
		newMode = registers.ModeUND
	case ExceptionSoftwareInterrupt:
		newMode = registers.ModeSVC
	case ExceptionPrefetchAbort, ExceptionDataAbort:
		newMode = registers.ModeABT
	case ExceptionIRQ:
		newMode = registers.ModeIRQ
	}

	c.Regs.EnterMode(newMode, returnAddr)

	cpsr := c.Regs.CPSR()
	cpsr.IRQDisable = true
	cpsr.Thumb = false
	c.Regs.SetCPSR(cpsr)

	c.Regs.SetPC(vector)

	c.exceptionSeq++
	c.lastException = ExceptionRecord{
		Kind:       kind,
		Vector:     vector,
		ReturnAddr: returnAddr,
		Opcode:     opcode,
	}
}

// TakeIRQ is called by the orchestrator when the IRQ controller reports a
// pending, enabled line and the CPU's CPSR does not have interrupts
// disabled. It wakes the CPU from halted state and enters the IRQ vector.
func (c *CPU) TakeIRQ() {
	if c.Regs.CPSR().IRQDisable {
		return
	}
	c.Halted = false
	c.takeException(ExceptionIRQ, VectorIRQ, c.Regs.PC()+4, 0)
}

// Step executes one instruction (ARM or Thumb according to the current
// T-bit) and returns the number of cycles consumed. Per-opcode timing is
// out of scope; every step costs a flat 1 cycle,
// including steps taken while halted, so that the scheduler and timing
// model continue to advance and eventually deliver the IRQ that wakes the
// CPU.
func (c *CPU) Step() int {
	if c.Halted {
		return 1
	}

	thumb := c.Regs.CPSR().Thumb
	pc := c.Regs.PC()

	if thumb {
		if pc&0x1 != 0 {
			c.dataAbortAlignment(pc)
			return 1
		}
	} else if pc&0x3 != 0 {
		c.dataAbortAlignment(pc)
		return 1
	}

	acc := mmu.AccessExecute
	pa, ok := c.translate(pc, acc, false)
	if !ok {
		return 1
	}

	if thumb {
		word, err := c.mem.ReadWord(pa &^ 3)
		if err != nil {
			return 1
		}
		var opcode uint16
		if pa&2 != 0 {
			opcode = uint16(word >> 16)
		} else {
			opcode = uint16(word)
		}
		c.appendTrace(pc, uint32(opcode), true)
		c.Regs.SetPC(pc + 2)
		c.executeThumb(opcode)
	} else {
		opcode, err := c.mem.ReadWord(pa)
		if err != nil {
			return 1
		}
		c.appendTrace(pc, opcode, false)
		c.Regs.SetPC(pc + 4)
		c.executeARM(opcode)
	}

	return 1
}

// dataAbortAlignment reports an unaligned instruction fetch as a prefetch
// abort with the alignment fault kind.
func (c *CPU) dataAbortAlignment(pc uint32) {
	c.IFAR = pc
	c.IFSR = encodeFSR(mmu.FaultAlignment)
	c.takeException(ExceptionPrefetchAbort, VectorPrefetchAbort, pc+4, 0)
	c.lastException.FaultKind = mmu.FaultAlignment.String()
	c.lastException.FaultAddress = pc
}
