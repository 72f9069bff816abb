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

import "github.com/arclight3ds/core3ds/hardware/cpu/registers"

// conditionPasses implements the standard 15 ARM condition-code encodings
// plus "always", evaluated against the current NZCV flags.
func conditionPasses(cond uint8, p registers.PSR) bool {
	switch cond {
	case 0x0: // EQ
		return p.Zero
	case 0x1: // NE
		return !p.Zero
	case 0x2: // CS/HS
		return p.Carry
	case 0x3: // CC/LO
		return !p.Carry
	case 0x4: // MI
		return p.Negative
	case 0x5: // PL
		return !p.Negative
	case 0x6: // VS
		return p.Overflow
	case 0x7: // VC
		return !p.Overflow
	case 0x8: // HI
		return p.Carry && !p.Zero
	case 0x9: // LS
		return !p.Carry || p.Zero
	case 0xA: // GE
		return p.Negative == p.Overflow
	case 0xB: // LT
		return p.Negative != p.Overflow
	case 0xC: // GT
		return !p.Zero && p.Negative == p.Overflow
	case 0xD: // LE
		return p.Zero || p.Negative != p.Overflow
	case 0xE: // AL
		return true
	default: // 0xF: reserved on this subset, treated as always
		return true
	}
}
