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
	"github.com/arclight3ds/core3ds/hardware/cpu/registers"
	"github.com/arclight3ds/core3ds/hardware/mmu"
)

// wfiOpcode is the literal ARM encoding for wait-for-interrupt.
const wfiOpcode = 0xE320F003

// executeARM decodes and executes one ARM (32-bit) instruction. Because
// several ARM encodings share overlapping bit ranges (multiply and
// halfword transfer both set bits 7 and 4, and both live inside the same
// top-level "000" class as ordinary data processing), the narrower, more
// specific patterns are tested before the catch-all data-processing case
// so that every opcode is classified exactly once.
func (c *CPU) executeARM(opcode uint32) {
	cond := uint8(opcode >> 28)
	if !conditionPasses(cond, c.Regs.CPSR()) {
		return
	}

	if opcode == wfiOpcode {
		c.Halted = true
		return
	}

	switch {
	case opcode&0x0F000000 == 0x0F000000: // SWI
		c.execSWI(opcode & 0x00FF_FFFF)

	case isMRS(opcode):
		c.execMRS(opcode)

	case isMSRRegister(opcode), isMSRImmediate(opcode):
		c.execMSR(opcode)

	case isCPS(opcode):
		c.execCPS(opcode)

	case opcode&0x0F000010 == 0x0E000010 && (opcode>>24)&0x1 == 0: // MRC/MCR, coproc 15
		c.execCoproc(opcode)

	case opcode&0x0FFF_FFF0 == 0x012F_FF10: // BX
		c.execBX(opcode)

	case opcode&0x0FC0_00F0 == 0x0000_0090: // MUL/MLA
		c.execMultiply(opcode)

	case opcode&0x0E00_0090 == 0x0000_0090 && (opcode>>5)&0x3 != 0: // halfword/signed transfer
		c.execHalfwordTransfer(opcode)

	case opcode&0x0E00_0000 == 0x0A00_0000: // B/BL
		c.execBranch(opcode)

	case opcode&0x0C00_0000 == 0x0400_0000: // single data transfer
		c.execSingleDataTransfer(opcode)

	case opcode&0x0C00_0000 == 0x0000_0000: // data processing
		c.execDataProcessing(opcode)

	default:
		c.takeException(ExceptionUndefined, VectorUndefined, c.Regs.PC(), opcode)
	}
}

func isMRS(opcode uint32) bool {
	return opcode&0x0FBF_0FFF == 0x010F_0000
}

func isMSRRegister(opcode uint32) bool {
	return opcode&0x0FB0_FFF0 == 0x0120_F000
}

func isMSRImmediate(opcode uint32) bool {
	return opcode&0x0FB0_F000 == 0x0320_F000
}

func isCPS(opcode uint32) bool {
	return opcode&0xFFE0_0000 == 0xF100_0000 && (opcode>>16)&0x1 == 0
}

// ---- SWI ----

func (c *CPU) execSWI(imm24 uint32) {
	retAddr := c.Regs.PC() // PC already advanced past the SWI instruction
	c.takeException(ExceptionSoftwareInterrupt, VectorSoftwareInt, retAddr, imm24)
	c.lastException.SWIImm24 = imm24
}

// ---- MRS / MSR / CPS ----

func (c *CPU) execMRS(opcode uint32) {
	rd := int((opcode >> 12) & 0xF)
	useSPSR := opcode&(1<<22) != 0
	if useSPSR {
		c.Regs.SetReg(rd, c.Regs.SPSR().ToWord())
	} else {
		c.Regs.SetReg(rd, c.Regs.CPSR().ToWord())
	}
}

func (c *CPU) execMSR(opcode uint32) {
	var value uint32
	if isMSRImmediate(opcode) {
		imm := opcode & 0xFF
		rot := (opcode >> 8) & 0xF * 2
		value, _ = shift(shiftROR, imm, uint8(rot), false)
	} else {
		rm := int(opcode & 0xF)
		value = c.Regs.GetReg(rm)
	}

	useSPSR := opcode&(1<<22) != 0
	writeFlags := opcode&(1<<19) != 0
	writeControl := opcode&(1<<16) != 0

	target := c.Regs.CPSR()
	if useSPSR {
		target = c.Regs.SPSR()
	}

	if writeFlags {
		top := registers.FromWord(value)
		target.Negative = top.Negative
		target.Zero = top.Zero
		target.Carry = top.Carry
		target.Overflow = top.Overflow
	}
	if writeControl {
		ctrl := registers.FromWord(value)
		target.IRQDisable = ctrl.IRQDisable
		target.Thumb = ctrl.Thumb
		if ctrl.Mode.Valid() {
			target.Mode = ctrl.Mode
		}
	}

	if useSPSR {
		c.Regs.SetSPSR(target)
	} else {
		c.Regs.SetCPSR(target)
	}
}

// execCPS implements the documented subset: CPSIE/CPSID affecting only
// the IRQ-disable bit (imod bits 19:18 of 0b11 = disable, 0b10 = enable).
func (c *CPU) execCPS(opcode uint32) {
	imod := (opcode >> 18) & 0x3
	if imod == 0 {
		return
	}
	cpsr := c.Regs.CPSR()
	cpsr.IRQDisable = imod == 0x3
	c.Regs.SetCPSR(cpsr)
}

// ---- Coprocessor 15 (MMU configuration) ----

func (c *CPU) execCoproc(opcode uint32) {
	coproc := (opcode >> 8) & 0xF
	if coproc != 15 {
		c.takeException(ExceptionUndefined, VectorUndefined, c.Regs.PC(), opcode)
		return
	}

	load := opcode&(1<<20) != 0
	crn := (opcode >> 16) & 0xF
	crm := opcode & 0xF
	opc2 := (opcode >> 5) & 0x7
	rd := int((opcode >> 12) & 0xF)

	if load {
		var v uint32
		switch crn {
		case 1:
			v = c.MMU.Control()
		case 2:
			v = c.MMU.TTBR0()
		case 3:
			v = c.MMU.DACR()
		}
		c.Regs.SetReg(rd, v)
		return
	}

	v := c.Regs.GetReg(rd)
	switch crn {
	case 1:
		c.MMU.WriteControl(v)
	case 2:
		c.MMU.WriteTTBR0(v)
	case 3:
		c.MMU.WriteDACR(v)
	case 8:
		// TLBIALL-equivalent: any write to CRn=8 invalidates the TLB,
		// regardless of CRm/opc2 sub-selector.
		_ = crm
		_ = opc2
		c.MMU.InvalidateTLB()
	}
}

// ---- Branch exchange ----

func (c *CPU) execBX(opcode uint32) {
	rm := int(opcode & 0xF)
	target := c.Regs.GetReg(rm)

	cpsr := c.Regs.CPSR()
	cpsr.Thumb = target&0x1 != 0
	c.Regs.SetCPSR(cpsr)
	c.Regs.SetPC(target &^ 1)
}

// ---- Branch / branch-with-link ----

func (c *CPU) execBranch(opcode uint32) {
	link := opcode&(1<<24) != 0
	offset := opcode & 0x00FF_FFFF
	// sign extend 24-bit, then word-align (<<2)
	var signed int32
	if offset&0x0080_0000 != 0 {
		signed = int32(offset|0xFF00_0000) << 2
	} else {
		signed = int32(offset << 2)
	}

	if link {
		c.Regs.SetLR(c.Regs.PC())
	}
	c.Regs.SetPC(uint32(int32(c.Regs.PC()) + signed))
}

// ---- Multiply ----

func (c *CPU) execMultiply(opcode uint32) {
	accumulate := opcode&(1<<21) != 0
	setFlags := opcode&(1<<20) != 0
	rd := int((opcode >> 16) & 0xF)
	rn := int((opcode >> 12) & 0xF)
	rs := int((opcode >> 8) & 0xF)
	rm := int(opcode & 0xF)

	result := c.Regs.GetReg(rm) * c.Regs.GetReg(rs)
	if accumulate {
		result += c.Regs.GetReg(rn)
	}
	c.Regs.SetReg(rd, result)

	if setFlags {
		cpsr := c.Regs.CPSR()
		cpsr.SetNZ(result)
		c.Regs.SetCPSR(cpsr)
	}
}

// ---- Operand-2 (data processing / single data transfer shared helper) ----

// operand2 evaluates the 12-bit operand2 field, returning the value and
// the shifter carry-out (used by data-processing's S-flag logic).
func (c *CPU) operand2(opcode uint32, immediate bool) (uint32, bool) {
	carryIn := c.Regs.CPSR().Carry

	if immediate {
		imm := opcode & 0xFF
		rot := uint8((opcode>>8)&0xF) * 2
		return shift(shiftROR, imm, rot, carryIn)
	}

	rm := int(opcode & 0xF)
	value := c.Regs.GetReg(rm)
	kind := shiftType((opcode >> 5) & 0x3)

	var amount uint8
	if opcode&(1<<4) != 0 {
		rs := int((opcode >> 8) & 0xF)
		amount = uint8(c.Regs.GetReg(rs) & 0xFF)
		if amount == 0 {
			return value, carryIn
		}
	} else {
		amount = uint8((opcode >> 7) & 0x1F)
	}

	return shift(kind, value, amount, carryIn)
}

// ---- Data processing ----

func (c *CPU) execDataProcessing(opcode uint32) {
	immediate := opcode&(1<<25) != 0
	op := (opcode >> 21) & 0xF
	setFlags := opcode&(1<<20) != 0
	rn := int((opcode >> 16) & 0xF)
	rd := int((opcode >> 12) & 0xF)

	op2, shiftCarry := c.operand2(opcode, immediate)
	n := c.Regs.GetReg(rn)

	var result uint32
	var writesResult = true
	carry := c.Regs.CPSR().Carry
	overflow := c.Regs.CPSR().Overflow

	switch op {
	case 0x0: // AND
		result = n & op2
		carry = shiftCarry
	case 0x1: // EOR
		result = n ^ op2
		carry = shiftCarry
	case 0x2: // SUB
		result, carry, overflow = subWithFlags(n, op2)
	case 0x3: // RSB
		result, carry, overflow = subWithFlags(op2, n)
	case 0x4: // ADD
		result, carry, overflow = addWithFlags(n, op2)
	case 0x5: // ADC
		cIn := uint32(0)
		if c.Regs.CPSR().Carry {
			cIn = 1
		}
		result, carry, overflow = addWithCarryFlags(n, op2, cIn)
	case 0x6: // SBC
		bIn := uint32(1)
		if c.Regs.CPSR().Carry {
			bIn = 0
		}
		result, carry, overflow = subWithCarryFlags(n, op2, bIn)
	case 0x7: // RSC
		bIn := uint32(1)
		if c.Regs.CPSR().Carry {
			bIn = 0
		}
		result, carry, overflow = subWithCarryFlags(op2, n, bIn)
	case 0x8: // TST
		result = n & op2
		carry = shiftCarry
		writesResult = false
	case 0x9: // TEQ
		result = n ^ op2
		carry = shiftCarry
		writesResult = false
	case 0xA: // CMP
		result, carry, overflow = subWithFlags(n, op2)
		writesResult = false
	case 0xB: // CMN
		result, carry, overflow = addWithFlags(n, op2)
		writesResult = false
	case 0xC: // ORR
		result = n | op2
		carry = shiftCarry
	case 0xD: // MOV
		result = op2
		carry = shiftCarry
	case 0xE: // BIC
		result = n &^ op2
		carry = shiftCarry
	case 0xF: // MVN
		result = ^op2
		carry = shiftCarry
	}

	if writesResult {
		if rd == 15 {
			c.Regs.SetPC(result)
			if setFlags {
				// writes to PC with S set restore CPSR from SPSR
				c.Regs.ReturnFromException()
			}
			return
		}
		c.Regs.SetReg(rd, result)
	}

	if setFlags {
		cpsr := c.Regs.CPSR()
		cpsr.SetNZ(result)
		cpsr.Carry = carry
		cpsr.Overflow = overflow
		c.Regs.SetCPSR(cpsr)
	}
}

func addWithFlags(a, b uint32) (uint32, bool, bool) {
	return addWithCarryFlags(a, b, 0)
}

func addWithCarryFlags(a, b, carryIn uint32) (uint32, bool, bool) {
	sum := uint64(a) + uint64(b) + uint64(carryIn)
	result := uint32(sum)
	carry := sum > 0xFFFF_FFFF
	overflow := (^(a^b))&(a^result)&0x8000_0000 != 0
	return result, carry, overflow
}

func subWithFlags(a, b uint32) (uint32, bool, bool) {
	return subWithCarryFlags(a, b, 1)
}

// subWithCarryFlags computes a - b - (1-borrowIn), where borrowIn=1 means
// "no borrow" (matching ARM's inverted-carry SBC semantics).
func subWithCarryFlags(a, b, borrowIn uint32) (uint32, bool, bool) {
	diff := uint64(a) - uint64(b) - uint64(1-borrowIn)
	result := uint32(diff)
	carry := a >= b+(1-borrowIn) // carry set means "no borrow"
	overflow := (a^b)&(a^result)&0x8000_0000 != 0
	return result, carry, overflow
}

// ---- Single data transfer (LDR/STR byte or word) ----

func (c *CPU) execSingleDataTransfer(opcode uint32) {
	registerOffset := opcode&(1<<25) != 0
	pre := opcode&(1<<24) != 0
	up := opcode&(1<<23) != 0
	byteAccess := opcode&(1<<22) != 0
	writeback := opcode&(1<<21) != 0
	load := opcode&(1<<20) != 0
	rn := int((opcode >> 16) & 0xF)
	rd := int((opcode >> 12) & 0xF)

	var offset uint32
	if registerOffset {
		offset, _ = c.operand2(opcode, false)
	} else {
		offset = opcode & 0x0FFF
	}

	base := c.Regs.GetReg(rn)
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	acc := mmu.AccessRead
	if !load {
		acc = mmu.AccessWrite
	}

	pa, ok := c.translate(addr, acc, true)
	if ok {
		if load {
			var v uint32
			if byteAccess {
				v = uint32(c.mem.ReadByteTolerant(pa))
			} else {
				v = c.mem.ReadWordTolerant(pa)
			}
			if rd == 15 {
				c.Regs.SetPC(v &^ 0x3)
			} else {
				c.Regs.SetReg(rd, v)
			}
		} else {
			v := c.Regs.GetReg(rd)
			if byteAccess {
				c.mem.WriteByteTolerant(pa, uint8(v))
			} else {
				c.mem.WriteWordTolerant(pa, v)
			}
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.Regs.SetReg(rn, addr)
	} else if writeback {
		c.Regs.SetReg(rn, addr)
	}
}

// ---- Halfword / signed byte transfer ----

func (c *CPU) execHalfwordTransfer(opcode uint32) {
	pre := opcode&(1<<24) != 0
	up := opcode&(1<<23) != 0
	immediateOffset := opcode&(1<<22) != 0
	writeback := opcode&(1<<21) != 0
	load := opcode&(1<<20) != 0
	rn := int((opcode >> 16) & 0xF)
	rd := int((opcode >> 12) & 0xF)
	sh := (opcode >> 5) & 0x3

	var offset uint32
	if immediateOffset {
		offset = ((opcode >> 4) & 0xF0) | (opcode & 0xF)
	} else {
		rm := int(opcode & 0xF)
		offset = c.Regs.GetReg(rm)
	}

	base := c.Regs.GetReg(rn)
	addr := base
	if pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	acc := mmu.AccessRead
	if !load {
		acc = mmu.AccessWrite
	}

	pa, ok := c.translate(addr, acc, true)
	if ok {
		if load {
			var v uint32
			switch sh {
			case 0x1: // unsigned halfword
				v = uint32(c.mem.ReadWordTolerant(pa &^ 1))
				if pa&2 != 0 {
					v >>= 16
				}
				v &= 0xFFFF
			case 0x2: // signed byte
				b := c.mem.ReadByteTolerant(pa)
				v = uint32(int32(int8(b)))
			case 0x3: // signed halfword
				word := c.mem.ReadWordTolerant(pa &^ 1)
				var h uint16
				if pa&2 != 0 {
					h = uint16(word >> 16)
				} else {
					h = uint16(word)
				}
				v = uint32(int32(int16(h)))
			}
			c.Regs.SetReg(rd, v)
		} else if sh == 0x1 {
			v := c.Regs.GetReg(rd)
			lo := uint16(v)
			word := c.mem.ReadWordTolerant(pa &^ 1)
			if pa&2 != 0 {
				word = (word &^ 0xFFFF0000) | (uint32(lo) << 16)
			} else {
				word = (word &^ 0xFFFF) | uint32(lo)
			}
			c.mem.WriteWordTolerant(pa&^1, word)
		}
	}

	if !pre {
		if up {
			addr = base + offset
		} else {
			addr = base - offset
		}
		c.Regs.SetReg(rn, addr)
	} else if writeback {
		c.Regs.SetReg(rn, addr)
	}
}
