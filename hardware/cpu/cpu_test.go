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

package cpu

import (
	"testing"

	"github.com/arclight3ds/core3ds/hardware/cpu/registers"
)

func newTestCPU() (*CPU, *mockMemory) {
	mem := newMockMemory()
	return New(nil, mem), mem
}

func TestStepADDSSetsZeroAndCarryOnUnsignedOverflow(t *testing.T) {
	c, mem := newTestCPU()
	mem.setInstruction(0, 0xE0910002) // ADDS R0, R1, R2
	c.Regs.SetR(1, 0xFFFF_FFFF)
	c.Regs.SetR(2, 1)

	c.Step()

	if c.Regs.R(0) != 0 {
		t.Fatalf("R0 = %#x, want 0", c.Regs.R(0))
	}
	cpsr := c.Regs.CPSR()
	if !cpsr.Zero || !cpsr.Carry || cpsr.Overflow {
		t.Fatalf("CPSR = %+v, want Zero=true Carry=true Overflow=false", cpsr)
	}
	if c.Regs.PC() != 4 {
		t.Fatalf("PC after Step() = %#x, want 4", c.Regs.PC())
	}
}

func TestStepCMPDoesNotWriteRd(t *testing.T) {
	c, mem := newTestCPU()
	// CMP R1, R2 (cond=AL, op=1010=CMP, S forced 1 by the encoding itself)
	mem.setInstruction(0, 0xE1510002)
	c.Regs.SetR(1, 5)
	c.Regs.SetR(2, 5)

	c.Step()

	if c.Regs.R(1) != 5 {
		t.Fatalf("CMP must not write its destination register, R1 = %d, want 5", c.Regs.R(1))
	}
	if !c.Regs.CPSR().Zero {
		t.Fatalf("CPSR.Zero = false after CMP of equal operands, want true")
	}
}

func TestUndefinedInstructionTakesUndefinedException(t *testing.T) {
	c, mem := newTestCPU()
	mem.setInstruction(0, 0xEC000000) // bits 27:26 = 11: no decode case claims this space

	c.Step()

	if c.LastException().Kind != ExceptionUndefined {
		t.Fatalf("LastException().Kind = %v, want ExceptionUndefined", c.LastException().Kind)
	}
	if c.Regs.PC() != VectorUndefined {
		t.Fatalf("PC after undefined exception = %#x, want VectorUndefined (%#x)", c.Regs.PC(), VectorUndefined)
	}
	if c.Regs.CPSR().Mode != registers.ModeUND {
		t.Fatalf("CPSR().Mode after undefined exception = %v, want ModeUND", c.Regs.CPSR().Mode)
	}
	if c.ExceptionSeq() != 1 {
		t.Fatalf("ExceptionSeq() = %d, want 1", c.ExceptionSeq())
	}
}

func TestSWITakesSoftwareInterruptException(t *testing.T) {
	c, mem := newTestCPU()
	mem.setInstruction(0, 0xEF00_002A) // SWI #0x2A

	c.Step()

	ex := c.LastException()
	if ex.Kind != ExceptionSoftwareInterrupt {
		t.Fatalf("LastException().Kind = %v, want ExceptionSoftwareInterrupt", ex.Kind)
	}
	if ex.SWIImm24 != 0x2A {
		t.Fatalf("LastException().SWIImm24 = %#x, want 0x2A", ex.SWIImm24)
	}
	if c.Regs.PC() != VectorSoftwareInt {
		t.Fatalf("PC after SWI = %#x, want VectorSoftwareInt (%#x)", c.Regs.PC(), VectorSoftwareInt)
	}
	if c.Regs.CPSR().Mode != registers.ModeSVC {
		t.Fatalf("CPSR().Mode after SWI = %v, want ModeSVC", c.Regs.CPSR().Mode)
	}
}

func TestBXToOddAddressSwitchesToThumb(t *testing.T) {
	c, _ := newTestCPU()
	c.Regs.SetR(1, 0x1001)

	c.executeARM(0xE12FFF11) // BX R1

	if !c.Regs.CPSR().Thumb {
		t.Fatalf("CPSR().Thumb = false after BX to an odd address, want true")
	}
	if c.Regs.PC() != 0x1000 {
		t.Fatalf("PC after BX = %#x, want 0x1000 (target with bit0 cleared)", c.Regs.PC())
	}
}

func TestBXToEvenAddressStaysARM(t *testing.T) {
	c, _ := newTestCPU()
	c.Regs.SetR(2, 0x2000)

	c.executeARM(0xE12FFF12) // BX R2

	if c.Regs.CPSR().Thumb {
		t.Fatalf("CPSR().Thumb = true after BX to an even address, want false")
	}
	if c.Regs.PC() != 0x2000 {
		t.Fatalf("PC after BX = %#x, want 0x2000", c.Regs.PC())
	}
}

func TestUnalignedARMFetchTakesAlignmentPrefetchAbort(t *testing.T) {
	c, _ := newTestCPU()
	c.Regs.SetPC(1) // unaligned for a 4-byte ARM fetch

	c.Step()

	ex := c.LastException()
	if ex.Kind != ExceptionPrefetchAbort || ex.FaultKind != "alignment" {
		t.Fatalf("LastException() = %+v, want a PrefetchAbort with FaultKind=alignment", ex)
	}
}

func TestConditionFailureSkipsExecutionAndAdvancesPC(t *testing.T) {
	c, mem := newTestCPU()
	// MOVEQ R0, #1: cond=EQ(0000), but CPSR.Zero is clear, so this must not
	// write R0.
	mem.setInstruction(0, 0x03A00001)
	c.Regs.SetR(0, 0xAAAA)

	c.Step()

	if c.Regs.R(0) != 0xAAAA {
		t.Fatalf("R0 = %#x, want unchanged 0xaaaa since the EQ condition should fail", c.Regs.R(0))
	}
	if c.Regs.PC() != 4 {
		t.Fatalf("PC = %#x, want 4 even though the conditional instruction did not execute", c.Regs.PC())
	}
}

func TestTakeIRQRespectsIRQDisable(t *testing.T) {
	c, _ := newTestCPU()
	cpsr := c.Regs.CPSR()
	cpsr.IRQDisable = true
	c.Regs.SetCPSR(cpsr)

	c.TakeIRQ()

	if c.ExceptionSeq() != 0 {
		t.Fatalf("TakeIRQ() entered an exception despite IRQDisable being set")
	}
}

func TestTakeIRQEntersIRQModeAndWakesFromHalt(t *testing.T) {
	c, _ := newTestCPU()
	c.Halted = true
	cpsr := c.Regs.CPSR()
	cpsr.IRQDisable = false
	c.Regs.SetCPSR(cpsr)

	c.TakeIRQ()

	if c.Halted {
		t.Fatalf("Halted = true after TakeIRQ(), want false")
	}
	if c.Regs.CPSR().Mode != registers.ModeIRQ {
		t.Fatalf("CPSR().Mode after TakeIRQ() = %v, want ModeIRQ", c.Regs.CPSR().Mode)
	}
	if c.Regs.PC() != VectorIRQ {
		t.Fatalf("PC after TakeIRQ() = %#x, want VectorIRQ (%#x)", c.Regs.PC(), VectorIRQ)
	}
}
