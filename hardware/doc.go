// Package hardware is the base package for the 3DS-class hardware
// emulation. It has no exported types of its own; everything lives in
// its sub-packages, which the orchestrator composes cycle by cycle:
//
//   - cpu: ARM11-style interpreter (ARM/Thumb decode, exceptions)
//   - cpu/registers: banked register file, CPSR/SPSR
//   - mmu: single-level section-paged MMU
//   - memory/phys: segmented physical bus and MMIO
//   - irq: priority-ordered IRQ line controller
//   - scheduler: cycle-based pending-event scheduler
//   - dma: queued memory/GPU-feed transfer engine
package hardware
