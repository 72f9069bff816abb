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

// Package mmu implements a single-level section-paged MMU: a control
// register, TTBR0, DACR, a section-keyed TLB, and the translation/
// permission walk that turns a virtual address into a physical one or a
// Fault.
package mmu

// WordReader is the minimal capability the MMU needs from the physical
// bus to walk the translation table: a checked 32-bit read.
type WordReader interface {
	ReadWord(addr uint32) (uint32, error)
}

// Access distinguishes the three ways the CPU may touch memory, needed to
// apply AP/XN permission checks correctly.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessExecute
)

// Control register bit layout (ARM-standard positions, reused rather than
// invented): bit0 enables the MMU, bit2 enables the D-cache, bit12 enables
// the I-cache.
const (
	ctrlMMUEnable = 1 << 0
	ctrlDCache    = 1 << 2
	ctrlICache    = 1 << 12
)

// tlbEntry is a cached section translation.
type tlbEntry struct {
	physBase uint32
	domain   uint8
	ap       uint8
	apx      bool
	xn       bool
}

// MMU holds the three control words and the section TLB.
type MMU struct {
	control uint32
	ttbr0   uint32
	dacr    uint32

	tlb map[uint32]tlbEntry
}

// New returns an MMU with the MMU disabled (identity translation) and an
// empty TLB.
func New() *MMU {
	return &MMU{tlb: make(map[uint32]tlbEntry)}
}

// Control returns the current control word.
func (m *MMU) Control() uint32 { return m.control }

// TTBR0 returns the current translation-table base register.
func (m *MMU) TTBR0() uint32 { return m.ttbr0 }

// DACR returns the current domain access control register.
func (m *MMU) DACR() uint32 { return m.dacr }

// Enabled reports whether the MMU-enable bit of control is set.
func (m *MMU) Enabled() bool { return m.control&ctrlMMUEnable != 0 }

// WriteControl installs a new control word. The TLB is flushed if the
// MMU-enable, I-cache or D-cache bits changed.
func (m *MMU) WriteControl(v uint32) {
	changed := (m.control ^ v) & (ctrlMMUEnable | ctrlICache | ctrlDCache)
	m.control = v
	if changed != 0 {
		m.InvalidateTLB()
	}
}

// WriteTTBR0 installs a new translation-table base and flushes the TLB.
func (m *MMU) WriteTTBR0(v uint32) {
	m.ttbr0 = v
	m.InvalidateTLB()
}

// WriteDACR installs a new domain access control register and flushes
// the TLB.
func (m *MMU) WriteDACR(v uint32) {
	m.dacr = v
	m.InvalidateTLB()
}

// InvalidateTLB discards every cached section translation. Called on
// control/TTBR0/DACR writes that affect translation and by the CPU's
// explicit TLB-invalidate coprocessor opcodes.
func (m *MMU) InvalidateTLB() {
	m.tlb = make(map[uint32]tlbEntry)
}

const sectionMask = 0xFFF0_0000
const sectionOffsetMask = 0x000F_FFFF

// domainMode extracts the DACR's two-bit mode for domain d (0..15).
func (m *MMU) domainMode(d uint8) uint8 {
	return uint8((m.dacr >> (2 * uint(d))) & 0x3)
}

// Translate converts va to a physical address, enforcing domain/AP/APX/XN
// permissions for access kind acc by a privileged (non-user-mode) or
// unprivileged caller. When the MMU is disabled translation is the
// identity.
func (m *MMU) Translate(r WordReader, va uint32, acc Access, privileged bool) (uint32, error) {
	if !m.Enabled() {
		return va, nil
	}

	key := va & sectionMask

	e, ok := m.tlb[key]
	if !ok {
		descAddr := m.ttbr0 + (va>>20)*4
		desc, err := r.ReadWord(descAddr)
		if err != nil {
			return 0, &Fault{Kind: FaultTranslation, VA: va}
		}
		if desc&0x3 != 0x2 {
			return 0, &Fault{Kind: FaultTranslation, VA: va}
		}

		e = tlbEntry{
			physBase: desc & 0xFFF0_0000,
			domain:   uint8((desc >> 5) & 0xF),
			ap:       uint8((desc >> 10) & 0x3),
			apx:      desc&(1<<15) != 0,
			xn:       desc&(1<<4) != 0,
		}
		m.tlb[key] = e
	}

	mode := m.domainMode(e.domain)
	switch mode {
	case 0x3: // manager: unconditionally pass, still subject to XN below
	case 0x1: // client: enforce AP/APX/XN
		if acc == AccessExecute && e.xn {
			return 0, &Fault{Kind: FaultPermission, VA: va}
		}
		if !apPermits(e.ap, e.apx, acc, privileged) {
			return 0, &Fault{Kind: FaultPermission, VA: va}
		}
	default: // 0x0 and the reserved 0x2 encoding both fault
		return 0, &Fault{Kind: FaultDomain, VA: va}
	}

	if acc == AccessExecute && e.xn && mode == 0x3 {
		return 0, &Fault{Kind: FaultPermission, VA: va}
	}

	return e.physBase | (va & sectionOffsetMask), nil
}

// apPermits implements the client-mode AP/APX permission truth table.
func apPermits(ap uint8, apx bool, acc Access, privileged bool) bool {
	switch ap {
	case 0x0:
		return false
	case 0x1:
		return privileged
	case 0x2:
		if privileged {
			return true
		}
		return acc == AccessRead || acc == AccessExecute
	case 0x3:
		if apx {
			return acc != AccessWrite
		}
		return true
	default:
		return false
	}
}
