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

// Package coreerrors lists the curated.Errorf patterns raised by the
// core. Each constant below is a pattern string suitable for
// curated.Is()/Has().
package coreerrors

const (
	// loader / image errors
	ImageTooSmall        = "image: too small"
	ImageInvalidMagic    = "image: invalid magic"
	ImageTooLarge        = "image: too large"
	ImageInvalidLayout   = "image: invalid layout"
	ImageInvalidExheader = "image: invalid extended header"

	// memory bus errors
	MemoryOutOfBounds = "memory: out of bounds access at %#08x"

	// CPU-observable faults
	UndefinedInstruction = "cpu: undefined instruction %#08x at %#08x"
	SoftwareInterrupt    = "cpu: software interrupt %#x"
	PrefetchAbort        = "cpu: prefetch abort (%s) at %#08x"
	DataAbort            = "cpu: data abort (%s) at %#08x"
	IRQTaken             = "cpu: irq line %s"

	// kernel / IPC errors
	ServiceCallFailed = "kernel: service call failed pc=%#08x cmd=%#x handle=%#x result=%#08x"

	// orchestrator errors
	ROMNotLoaded = "orchestrator: rom not loaded"
)
