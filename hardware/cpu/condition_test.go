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

func TestConditionPassesEQNE(t *testing.T) {
	p := registers.PSR{Zero: true}
	if !conditionPasses(0x0, p) {
		t.Fatalf("EQ should pass when Zero is set")
	}
	if conditionPasses(0x1, p) {
		t.Fatalf("NE should not pass when Zero is set")
	}
}

func TestConditionPassesGTLE(t *testing.T) {
	// GT: !Z && N==V
	p := registers.PSR{Negative: true, Overflow: true}
	if !conditionPasses(0xC, p) {
		t.Fatalf("GT should pass when Z=0 and N==V")
	}
	if conditionPasses(0xD, p) {
		t.Fatalf("LE should not pass when Z=0 and N==V")
	}

	p = registers.PSR{Zero: true}
	if !conditionPasses(0xD, p) {
		t.Fatalf("LE should pass when Zero is set regardless of N/V")
	}
}

func TestConditionPassesALAndReserved(t *testing.T) {
	p := registers.PSR{}
	if !conditionPasses(0xE, p) {
		t.Fatalf("AL should always pass")
	}
	if !conditionPasses(0xF, p) {
		t.Fatalf("the reserved encoding should be treated as always-pass")
	}
}

func TestConditionPassesHILS(t *testing.T) {
	p := registers.PSR{Carry: true, Zero: false}
	if !conditionPasses(0x8, p) {
		t.Fatalf("HI should pass when Carry set and Zero clear")
	}
	p = registers.PSR{Carry: true, Zero: true}
	if conditionPasses(0x8, p) {
		t.Fatalf("HI should not pass when Zero is also set")
	}
	if !conditionPasses(0x9, p) {
		t.Fatalf("LS should pass when Zero is set")
	}
}
