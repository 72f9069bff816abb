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

// FaultKind distinguishes the four disjoint fault kinds: translation,
// domain, permission, and alignment. Alignment faults are raised by the
// CPU before it ever calls into the MMU, but the kind lives here so that
// both layers share one vocabulary.
type FaultKind int

const (
	FaultTranslation FaultKind = iota
	FaultDomain
	FaultPermission
	FaultAlignment
)

func (k FaultKind) String() string {
	switch k {
	case FaultTranslation:
		return "translation"
	case FaultDomain:
		return "domain"
	case FaultPermission:
		return "permission"
	case FaultAlignment:
		return "alignment"
	default:
		return "unknown"
	}
}

// Fault is the error type returned by Translate. It carries the faulting
// kind and the virtual address being translated, which the CPU uses to
// populate IFAR/DFAR.
type Fault struct {
	Kind FaultKind
	VA   uint32
}

func (f *Fault) Error() string {
	return "mmu: " + f.Kind.String() + " fault"
}
