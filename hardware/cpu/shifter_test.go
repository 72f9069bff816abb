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

import "testing"

func TestShiftLSLZeroKeepsIncomingCarry(t *testing.T) {
	_, carry := shift(shiftLSL, 0xFFFF_FFFF, 0, true)
	if !carry {
		t.Fatalf("LSL #0 carry = false, want incoming carry (true) preserved")
	}
	_, carry = shift(shiftLSL, 0xFFFF_FFFF, 0, false)
	if carry {
		t.Fatalf("LSL #0 carry = true, want incoming carry (false) preserved")
	}
}

func TestShiftLSRZeroMeansThirtyTwo(t *testing.T) {
	value, carry := shift(shiftLSR, 0x8000_0000, 0, false)
	if value != 0 || !carry {
		t.Fatalf("LSR #0 on 0x80000000 = (%#x, %v), want (0, true) per LSR #32 semantics", value, carry)
	}
}

func TestShiftASRZeroMeansThirtyTwo(t *testing.T) {
	value, carry := shift(shiftASR, 0x8000_0000, 0, false)
	if value != 0xFFFF_FFFF || !carry {
		t.Fatalf("ASR #0 on a negative value = (%#x, %v), want (0xFFFFFFFF, true) per ASR #32 semantics", value, carry)
	}
}

func TestShiftRORZeroIsRRXThroughCarry(t *testing.T) {
	value, carry := shift(shiftROR, 0x0000_0001, 0, true)
	if value != 0x8000_0000 || !carry {
		t.Fatalf("ROR #0 (RRX) on 1 with carry-in = (%#x, %v), want (0x80000000, true)", value, carry)
	}
	value, carry = shift(shiftROR, 0x0000_0002, 0, false)
	if value != 0x0000_0001 || carry {
		t.Fatalf("ROR #0 (RRX) on 2 with no carry-in = (%#x, %v), want (1, false)", value, carry)
	}
}

func TestShiftLSLOrdinaryAmount(t *testing.T) {
	value, carry := shift(shiftLSL, 0x0000_0001, 4, false)
	if value != 0x10 || carry {
		t.Fatalf("LSL #4 on 1 = (%#x, %v), want (0x10, false)", value, carry)
	}
}

func TestShiftROROrdinaryAmount(t *testing.T) {
	value, carry := shift(shiftROR, 0x0000_0001, 1, false)
	if value != 0x8000_0000 || !carry {
		t.Fatalf("ROR #1 on 1 = (%#x, %v), want (0x80000000, true)", value, carry)
	}
}
