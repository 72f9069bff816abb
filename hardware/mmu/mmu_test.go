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

package mmu

import "testing"

type fakeBus struct {
	words map[uint32]uint32
}

func newFakeBus() *fakeBus { return &fakeBus{words: make(map[uint32]uint32)} }

func (b *fakeBus) ReadWord(addr uint32) (uint32, error) {
	return b.words[addr], nil
}

// section writes a section descriptor for virtual address va (TTBR0 at
// base) with the given domain, AP, APX and XN fields.
func (b *fakeBus) section(base, va uint32, domain, ap uint8, apx, xn bool, physBase uint32) {
	desc := uint32(0x2) // section descriptor type
	desc |= uint32(domain&0xF) << 5
	desc |= uint32(ap&0x3) << 10
	if apx {
		desc |= 1 << 15
	}
	if xn {
		desc |= 1 << 4
	}
	desc |= physBase & 0xFFF0_0000
	b.words[base+(va>>20)*4] = desc
}

func TestTranslateIdentityWhenDisabled(t *testing.T) {
	m := New()
	pa, err := m.Translate(newFakeBus(), 0x1234_5678, AccessRead, true)
	if err != nil || pa != 0x1234_5678 {
		t.Fatalf("Translate() with MMU disabled = (%#x, %v), want identity with no error", pa, err)
	}
}

func TestTranslateRejectsNonSectionDescriptor(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x3) // domain 0: manager
	bus := newFakeBus()
	bus.words[0] = 0x0 // descriptor type bits != 0b10

	_, err := m.Translate(bus, 0x0010_0000, AccessRead, true)
	f, ok := err.(*Fault)
	if !ok || f.Kind != FaultTranslation {
		t.Fatalf("Translate() with a non-section descriptor = %v, want a FaultTranslation", err)
	}
}

func TestTranslateManagerDomainBypassesAP(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x3) // domain 0: manager
	bus := newFakeBus()
	bus.section(0, 0x0010_0000, 0, 0x0, false, false, 0x2000_0000) // AP=0 would deny everyone in client mode

	pa, err := m.Translate(bus, 0x0010_0004, AccessWrite, false)
	if err != nil {
		t.Fatalf("Translate() in a manager domain = %v, want success despite AP=0", err)
	}
	if pa != 0x2000_0004 {
		t.Fatalf("Translate() physical address = %#x, want 0x20000004", pa)
	}
}

func TestTranslateNoAccessDomainFaults(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x0) // domain 0: no access
	bus := newFakeBus()
	bus.section(0, 0x0010_0000, 0, 0x3, false, false, 0x2000_0000)

	_, err := m.Translate(bus, 0x0010_0000, AccessRead, true)
	f, ok := err.(*Fault)
	if !ok || f.Kind != FaultDomain {
		t.Fatalf("Translate() in a no-access domain = %v, want a FaultDomain", err)
	}
}

func TestTranslateClientDomainEnforcesAP(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x1) // domain 0: client
	bus := newFakeBus()
	// AP=0x1: privileged-only
	bus.section(0, 0x0010_0000, 0, 0x1, false, false, 0x2000_0000)

	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, true); err != nil {
		t.Fatalf("privileged read under AP=1 = %v, want success", err)
	}
	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, false); err == nil {
		t.Fatalf("unprivileged read under AP=1 should fault, got none")
	}
}

func TestTranslateAPXMakesReadOnlyEvenForPrivileged(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x1) // domain 0: client
	bus := newFakeBus()
	// AP=0x3 with APX set: read-only for everyone.
	bus.section(0, 0x0010_0000, 0, 0x3, true, false, 0x2000_0000)

	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, true); err != nil {
		t.Fatalf("privileged read under AP=3/APX = %v, want success", err)
	}
	_, err := m.Translate(bus, 0x0010_0000, AccessWrite, true)
	f, ok := err.(*Fault)
	if !ok || f.Kind != FaultPermission {
		t.Fatalf("privileged write under AP=3/APX = %v, want a FaultPermission", err)
	}
}

func TestTranslateXNBlocksExecuteOnly(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x1) // domain 0: client
	bus := newFakeBus()
	bus.section(0, 0x0010_0000, 0, 0x3, false, true, 0x2000_0000) // AP=3 (full access), XN set

	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, true); err != nil {
		t.Fatalf("XN should not block a data read, got %v", err)
	}
	_, err := m.Translate(bus, 0x0010_0000, AccessExecute, true)
	f, ok := err.(*Fault)
	if !ok || f.Kind != FaultPermission {
		t.Fatalf("XN should block an execute access, got %v", err)
	}
}

func TestWriteControlFlushesTLBOnlyWhenRelevantBitsChange(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x3)
	bus := newFakeBus()
	bus.section(0, 0x0010_0000, 0, 0x3, false, false, 0x2000_0000)

	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, true); err != nil {
		t.Fatalf("initial Translate() = %v, want success", err)
	}
	if len(m.tlb) != 1 {
		t.Fatalf("tlb entries = %d, want 1 after a successful translation", len(m.tlb))
	}

	// writing the same control word back should not invalidate the TLB.
	m.WriteControl(ctrlMMUEnable)
	if len(m.tlb) != 1 {
		t.Fatalf("tlb entries = %d after a no-op WriteControl, want 1 (unflushed)", len(m.tlb))
	}

	m.WriteControl(ctrlMMUEnable | ctrlDCache)
	if len(m.tlb) != 0 {
		t.Fatalf("tlb entries = %d after a cache-bit change, want 0 (flushed)", len(m.tlb))
	}
}

func TestWriteTTBR0AndDACRFlushTLB(t *testing.T) {
	m := New()
	m.WriteControl(ctrlMMUEnable)
	m.WriteDACR(0x3)
	bus := newFakeBus()
	bus.section(0, 0x0010_0000, 0, 0x3, false, false, 0x2000_0000)
	m.Translate(bus, 0x0010_0000, AccessRead, true)
	if len(m.tlb) != 1 {
		t.Fatalf("tlb entries = %d, want 1 before either write", len(m.tlb))
	}

	m.WriteTTBR0(0x1000)
	if len(m.tlb) != 0 {
		t.Fatalf("tlb entries = %d after WriteTTBR0, want 0", len(m.tlb))
	}

	bus.section(0x1000, 0x0010_0000, 0, 0x3, false, false, 0x2000_0000)
	if _, err := m.Translate(bus, 0x0010_0000, AccessRead, true); err != nil {
		t.Fatalf("Translate() at the new TTBR0 = %v, want success", err)
	}
	if len(m.tlb) != 1 {
		t.Fatalf("tlb entries = %d, want 1 before WriteDACR", len(m.tlb))
	}

	m.WriteDACR(0x1)
	if len(m.tlb) != 0 {
		t.Fatalf("tlb entries = %d after WriteDACR, want 0", len(m.tlb))
	}
}
