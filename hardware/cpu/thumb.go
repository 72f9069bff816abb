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

import "github.com/arclight3ds/core3ds/hardware/mmu"

// executeThumb decodes and executes one Thumb (16-bit) instruction,
// covering the subset named: shift-immediate forms,
// add/subtract register-or-immediate, MOV/CMP/ADD/SUB immediate with the
// destination encoded in the opcode, Hi-register ADD/CMP/MOV/BX,
// conditional branches, unconditional branches, PC-relative LDR, and
// LDR/STR with a scaled 5-bit immediate via a base register.
func (c *CPU) executeThumb(opcode uint16) {
	switch {
	case opcode&0xF800 == 0x1800: // format 2: add/subtract
		c.thumbAddSub(opcode)

	case opcode&0xE000 == 0x0000: // format 1: move shifted register
		c.thumbShiftImmediate(opcode)

	case opcode&0xE000 == 0x2000: // format 3: mov/cmp/add/sub immediate
		c.thumbImmediateOp(opcode)

	case opcode&0xFC00 == 0x4400: // format 5: hi-register ops / BX
		c.thumbHiRegister(opcode)

	case opcode&0xF800 == 0x4800: // format 6: PC-relative load
		c.thumbPCRelativeLoad(opcode)

	case opcode&0xE000 == 0x6000: // format 9: load/store, 5-bit immediate
		c.thumbImmediateTransfer(opcode)

	case opcode&0xFF00 == 0xDF00: // SWI (reserved cond 1111 in format 16)
		c.execSWI(uint32(opcode & 0xFF))

	case opcode&0xF000 == 0xD000: // format 16: conditional branch
		c.thumbConditionalBranch(opcode)

	case opcode&0xF800 == 0xE000: // format 18: unconditional branch
		c.thumbUnconditionalBranch(opcode)

	default:
		c.takeException(ExceptionUndefined, VectorUndefined, c.Regs.PC(), uint32(opcode))
	}
}

// thumbShiftImmediate: LSL/LSR/ASR Rd, Rs, #imm5.
func (c *CPU) thumbShiftImmediate(opcode uint16) {
	op := (opcode >> 11) & 0x3
	imm5 := uint8((opcode >> 6) & 0x1F)
	rs := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	value := c.Regs.GetReg(rs)
	carryIn := c.Regs.CPSR().Carry

	var result uint32
	var carry bool
	switch op {
	case 0:
		result, carry = shift(shiftLSL, value, imm5, carryIn)
	case 1:
		result, carry = shift(shiftLSR, value, imm5, carryIn)
	case 2:
		result, carry = shift(shiftASR, value, imm5, carryIn)
	default:
		return
	}

	c.Regs.SetReg(rd, result)
	cpsr := c.Regs.CPSR()
	cpsr.SetNZ(result)
	cpsr.Carry = carry
	c.Regs.SetCPSR(cpsr)
}

// thumbAddSub: ADD/SUB Rd, Rs, Rn|#imm3.
func (c *CPU) thumbAddSub(opcode uint16) {
	useImmediate := opcode&(1<<10) != 0
	subtract := opcode&(1<<9) != 0
	field := uint32((opcode >> 6) & 0x7)
	rs := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	var operand uint32
	if useImmediate {
		operand = field
	} else {
		operand = c.Regs.GetReg(int(field))
	}

	n := c.Regs.GetReg(rs)
	var result uint32
	var carry, overflow bool
	if subtract {
		result, carry, overflow = subWithFlags(n, operand)
	} else {
		result, carry, overflow = addWithFlags(n, operand)
	}

	c.Regs.SetReg(rd, result)
	cpsr := c.Regs.CPSR()
	cpsr.SetNZ(result)
	cpsr.Carry = carry
	cpsr.Overflow = overflow
	c.Regs.SetCPSR(cpsr)
}

// thumbImmediateOp: MOV/CMP/ADD/SUB Rd, #imm8.
func (c *CPU) thumbImmediateOp(opcode uint16) {
	op := (opcode >> 11) & 0x3
	rd := int((opcode >> 8) & 0x7)
	imm8 := uint32(opcode & 0xFF)

	n := c.Regs.GetReg(rd)
	var result uint32
	carry := c.Regs.CPSR().Carry
	overflow := c.Regs.CPSR().Overflow
	writesResult := true

	switch op {
	case 0x0: // MOV
		result = imm8
	case 0x1: // CMP
		result, carry, overflow = subWithFlags(n, imm8)
		writesResult = false
	case 0x2: // ADD
		result, carry, overflow = addWithFlags(n, imm8)
	case 0x3: // SUB
		result, carry, overflow = subWithFlags(n, imm8)
	}

	if writesResult {
		c.Regs.SetReg(rd, result)
	}

	cpsr := c.Regs.CPSR()
	cpsr.SetNZ(result)
	cpsr.Carry = carry
	cpsr.Overflow = overflow
	c.Regs.SetCPSR(cpsr)
}

// thumbHiRegister: ADD/CMP/MOV over the full R0-R15 range, and BX.
func (c *CPU) thumbHiRegister(opcode uint16) {
	op := (opcode >> 8) & 0x3
	h1 := opcode&(1<<7) != 0
	h2 := opcode&(1<<6) != 0
	rs := int((opcode>>3)&0x7) + boolToInt(h2)*8
	rd := int(opcode&0x7) + boolToInt(h1)*8

	switch op {
	case 0x0: // ADD
		c.Regs.SetReg(rd, c.Regs.GetReg(rd)+c.Regs.GetReg(rs))
	case 0x1: // CMP
		result, carry, overflow := subWithFlags(c.Regs.GetReg(rd), c.Regs.GetReg(rs))
		cpsr := c.Regs.CPSR()
		cpsr.SetNZ(result)
		cpsr.Carry = carry
		cpsr.Overflow = overflow
		c.Regs.SetCPSR(cpsr)
	case 0x2: // MOV
		c.Regs.SetReg(rd, c.Regs.GetReg(rs))
	case 0x3: // BX
		target := c.Regs.GetReg(rs)
		cpsr := c.Regs.CPSR()
		cpsr.Thumb = target&0x1 != 0
		c.Regs.SetCPSR(cpsr)
		c.Regs.SetPC(target &^ 1)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// thumbPCRelativeLoad: LDR Rd, [PC, #imm8*4].
func (c *CPU) thumbPCRelativeLoad(opcode uint16) {
	rd := int((opcode >> 8) & 0x7)
	imm8 := uint32(opcode&0xFF) * 4

	armPC := c.Regs.PC() + 2 // architectural PC reads as instr_addr+4
	base := armPC &^ 0x3
	addr := base + imm8

	pa, ok := c.translate(addr, mmu.AccessRead, true)
	if ok {
		c.Regs.SetReg(rd, c.mem.ReadWordTolerant(pa))
	}
}

// thumbImmediateTransfer: LDR/STR[B] Rd, [Rb, #imm5] (format 9).
func (c *CPU) thumbImmediateTransfer(opcode uint16) {
	byteAccess := opcode&(1<<12) != 0
	load := opcode&(1<<11) != 0
	imm5 := uint32((opcode >> 6) & 0x1F)
	rb := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	offset := imm5
	if !byteAccess {
		offset *= 4
	}
	addr := c.Regs.GetReg(rb) + offset

	acc := mmu.AccessRead
	if !load {
		acc = mmu.AccessWrite
	}

	pa, ok := c.translate(addr, acc, true)
	if !ok {
		return
	}

	if load {
		if byteAccess {
			c.Regs.SetReg(rd, uint32(c.mem.ReadByteTolerant(pa)))
		} else {
			c.Regs.SetReg(rd, c.mem.ReadWordTolerant(pa))
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

// thumbConditionalBranch: B<cond> label (every condition except the
// reserved 0xF, which format 16 instead uses for SWI and is handled
// earlier in executeThumb's dispatch).
func (c *CPU) thumbConditionalBranch(opcode uint16) {
	cond := uint8((opcode >> 8) & 0xF)
	if !conditionPasses(cond, c.Regs.CPSR()) {
		return
	}
	offset := int32(int8(opcode & 0xFF)) * 2
	c.Regs.SetPC(uint32(int32(c.Regs.PC()+2) + offset))
}

// thumbUnconditionalBranch: B label.
func (c *CPU) thumbUnconditionalBranch(opcode uint16) {
	raw := opcode & 0x07FF
	var signed int32
	if raw&0x0400 != 0 {
		signed = int32(raw|0xF800) * 2
	} else {
		signed = int32(raw) * 2
	}
	c.Regs.SetPC(uint32(int32(c.Regs.PC()+2) + signed))
}
