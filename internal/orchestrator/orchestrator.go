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

// Package orchestrator composes the CPU, MMU, memory bus, IRQ
// controller, scheduler, DMA engine, micro-kernel, GPU command processor
// and timing model into a single per-cycle control loop.
package orchestrator

import (
	"fmt"

	"github.com/arclight3ds/core3ds/hardware/cpu"
	"github.com/arclight3ds/core3ds/hardware/dma"
	"github.com/arclight3ds/core3ds/hardware/irq"
	"github.com/arclight3ds/core3ds/hardware/memory/phys"
	"github.com/arclight3ds/core3ds/hardware/scheduler"
	"github.com/arclight3ds/core3ds/internal/coreerrors"
	"github.com/arclight3ds/core3ds/internal/curated"
	"github.com/arclight3ds/core3ds/internal/gpu"
	"github.com/arclight3ds/core3ds/internal/instance"
	"github.com/arclight3ds/core3ds/internal/kernel"
	"github.com/arclight3ds/core3ds/internal/loader"
	"github.com/arclight3ds/core3ds/internal/logger"
	"github.com/arclight3ds/core3ds/internal/prefs"
	"github.com/arclight3ds/core3ds/internal/timing"
)

const logTag = "orchestrator"

const (
	// bootProcess is the single title process this orchestrator creates.
	// Real hardware multiplexes several processes; a minimal bring-up
	// loader only ever runs one at a time.
	bootProcess kernel.ProcessID = 1

	// defaultStackTop is where SP is initialised absent a title-supplied
	// stack-size hint; it sits comfortably above the mapped RAM segments
	// used by a small title image.
	defaultStackTop = phys.MainRAMBase + phys.MainRAMLen - 0x10

	// timerIntervalCycles is the fixed period the boot-arranged hardware
	// timer reschedules itself at.
	timerIntervalCycles = 4096

	ringCapacity = 64
)

// Orchestrator owns every subsystem and the per-cycle control flow that
// ties them together.
type Orchestrator struct {
	inst *instance.Instance

	Bus   *phys.Bus
	CPU   *cpu.CPU
	IRQ   *irq.Controller
	Sched *scheduler.Scheduler
	DMA   *dma.Engine
	Kernel *kernel.Kernel
	GPU   *gpu.GPU
	Clock *timing.Clock

	pad *padState
	fs  *titleFS

	diagnostics *diagnostics
	checkpoints *checkpointProfiler

	gpuTraceSeen int

	booted bool
}

// New returns an Orchestrator with every subsystem constructed and wired,
// but with no title installed yet; call Boot before Run.
func New(p *prefs.Prefs, seed int64) *Orchestrator {
	inst := instance.New(p, seed)

	bus := phys.New()
	irqCtrl := irq.New()
	gpuProc := gpu.New(bus)
	dmaEngine := dma.New(bus, gpuProc, irqCtrl)
	pad := &padState{}
	fs := newTitleFS(nil)

	o := &Orchestrator{
		inst:  inst,
		Bus:   bus,
		CPU:   cpu.New(inst, bus),
		IRQ:   irqCtrl,
		Sched: scheduler.New(),
		DMA:   dmaEngine,
		GPU:   gpuProc,
		Clock: timing.New(inst.Prefs),

		pad: pad,
		fs:  fs,

		diagnostics: newDiagnostics(ringCapacity),
		checkpoints: newCheckpointProfiler(),
	}

	o.Kernel = kernel.New(fs, gpuProc, pad, o.Sched.Now)
	return o
}

// Boot parses a title image, installs its segments into RAM, primes the
// CPU's entry point and stack, creates the title's process, and arms the
// periodic hardware timer. It is an error to call Boot twice.
func (o *Orchestrator) Boot(data []byte) error {
	if o.booted {
		return curated.Errorf("orchestrator: title already booted")
	}

	img, err := loader.Parse(data)
	if err != nil {
		return err
	}

	o.Bus.ClearWritable()
	copyInto(o.Bus, img.Text.VirtualAddress, img.TextBytes)
	copyInto(o.Bus, img.ReadOnly.VirtualAddress, img.ReadOnlyBytes)
	copyInto(o.Bus, img.Data.VirtualAddress, img.DataBytes)

	bssStart := img.Data.VirtualAddress + img.Data.Size
	for i := uint32(0); i < img.BSSLength; i++ {
		o.Bus.WriteByteTolerant(bssStart+i, 0)
	}

	o.fs.backing = img.Filesystem

	o.CPU.Reset()
	o.CPU.Regs.SetPC(img.EntryPoint)
	stackTop := defaultStackTop
	if img.StackSize != 0 {
		stackTop = img.Data.VirtualAddress + img.Data.Size + img.BSSLength + img.StackSize
	}
	o.CPU.Regs.SetSP(stackTop)

	o.Kernel.CreateProcess(bootProcess)

	o.armTimer()
	o.checkpoints.Mark("rom-installed")
	o.booted = true
	return nil
}

func copyInto(bus *phys.Bus, base uint32, data []byte) {
	for i, b := range data {
		bus.WriteByteTolerant(base+uint32(i), b)
	}
}

// armTimer schedules the next LineTimer0 raise and reschedules itself
// from within the fired callback, giving the title a free-running
// periodic interrupt source without any host involvement.
func (o *Orchestrator) armTimer() {
	o.Sched.ScheduleIn(timerIntervalCycles, scheduler.PriorityTimer, func(firedAt uint64) {
		o.IRQ.Raise(irq.LineTimer0)
		o.armTimer()
	})
}

// QueueDMA queues a DMA transfer and schedules its completion at the
// engine-reported latency.
func (o *Orchestrator) QueueDMA(t dma.Transfer) {
	delay := o.DMA.Queue(t)
	o.Sched.ScheduleIn(uint64(delay), scheduler.PriorityDMA, func(firedAt uint64) {
		o.DMA.Complete(t.Channel)
	})
}

// Step runs exactly one emulated cycle: IRQ delivery, one CPU
// instruction, trace/diagnostics capture, scheduler and timing advance,
// exception post-processing, one IPC pump step, and new-frame/new-sample
// bookkeeping.
//
// If the CPU step raised a data or prefetch abort, Step logs it and
// returns a structured error once the scheduler and timing have advanced
// by the step's cost, skipping this cycle's remaining bookkeeping; the CPU itself has already vectored to its abort
// handler and the next Step call proceeds normally from there.
func (o *Orchestrator) Step() error {
	if !o.booted {
		return curated.Errorf(coreerrors.ROMNotLoaded)
	}

	o.deliverIRQ()

	seqBefore := o.CPU.ExceptionSeq()
	cycles := o.CPU.Step()

	if entries := o.CPU.Trace(); len(entries) > 0 {
		last := entries[len(entries)-1]
		o.diagnostics.cpuFetch.add(fmt.Sprintf("pc=%#08x opcode=%#08x thumb=%t", last.PC, last.Opcode, last.Thumb))
		o.checkpoints.Mark("first-fetch")
	}

	o.Sched.Advance(uint64(cycles))
	o.Clock.Advance(uint64(cycles))

	if o.CPU.ExceptionSeq() != seqBefore {
		if err := o.observeException(); err != nil {
			return err
		}
	}

	o.pumpIPC()

	if trace := o.GPU.Trace(); len(trace) > o.gpuTraceSeen {
		for _, t := range trace[o.gpuTraceSeen:] {
			o.diagnostics.gpuCommand.add(fmt.Sprintf("reg=%#04x value=%#08x", t.Register, t.Value))
		}
		o.gpuTraceSeen = len(trace)
		o.checkpoints.Mark("first-gpu-write")
	}

	if o.GPU.TakeFrameComplete() {
		o.GPU.Present(1)
		o.checkpoints.Mark("first-present")
	}

	return nil
}

// observeException handles the bookkeeping for a freshly taken
// exception: SWI dispatch goes through the kernel, aborts are logged and
// surfaced as structured errors.
func (o *Orchestrator) observeException() error {
	exc := o.CPU.LastException()

	switch exc.Kind {
	case cpu.ExceptionSoftwareInterrupt:
		o.checkpoints.Mark("first-swi")
		o.dispatchSWI(exc.SWIImm24)

	case cpu.ExceptionDataAbort, cpu.ExceptionPrefetchAbort:
		pattern := coreerrors.DataAbort
		if exc.Kind == cpu.ExceptionPrefetchAbort {
			pattern = coreerrors.PrefetchAbort
		}
		o.diagnostics.mmuFault.add(fmt.Sprintf("%s fault=%s addr=%#08x", exc.Kind, exc.FaultKind, exc.FaultAddress))
		return curated.Errorf(pattern, exc.FaultKind, exc.FaultAddress)

	case cpu.ExceptionUndefined:
		o.diagnostics.mmuFault.add(fmt.Sprintf("undefined opcode=%#08x at pc=%#08x", exc.Opcode, exc.ReturnAddr))
		return curated.Errorf(coreerrors.UndefinedInstruction, exc.Opcode, exc.ReturnAddr)
	}

	return nil
}

// dispatchSWI reads the trapping instruction's argument registers,
// dispatches through the kernel, and writes the result code back to R0.
// No other register is written; reply messages stay queued in the kernel.
func (o *Orchestrator) dispatchSWI(imm24 uint32) {
	logger.Logf(logger.Suppress, logTag, coreerrors.SoftwareInterrupt, imm24)

	args := []uint32{o.CPU.Regs.R(0), o.CPU.Regs.R(1), o.CPU.Regs.R(2), o.CPU.Regs.R(3)}

	result, wakeDelay := o.Kernel.Dispatch(bootProcess, imm24, args)
	o.CPU.Regs.SetR(0, uint32(result))

	if wakeDelay > 0 {
		o.Sched.ScheduleIn(wakeDelay, scheduler.PriorityServiceWake, func(firedAt uint64) {
			o.Kernel.Unblock(bootProcess)
		})
	}

	last := o.Kernel.LastDispatch()
	o.diagnostics.serviceCall.add(fmt.Sprintf("cmd=%#x handle=%#x result=%s", last.CommandID, last.Handle, last.Result))
}

// pumpIPC drains at most one IPC step and, if it actually dispatched a
// request this cycle, records the dispatch in the IPC diagnostics log.
func (o *Orchestrator) pumpIPC() {
	before := o.Kernel.LastDispatch()
	o.Kernel.Pump()
	after := o.Kernel.LastDispatch()
	if after != before {
		o.diagnostics.ipc.add(fmt.Sprintf("command=%#x handle=%#x result=%s", after.CommandID, after.Handle, after.Result))
	}
}

// deliverIRQ takes the highest-priority pending, enabled IRQ line if the
// CPU's CPSR permits interrupts, acknowledging it only once the CPU
// actually acted on it.
func (o *Orchestrator) deliverIRQ() {
	line, ok := o.IRQ.NextPending()
	if !ok {
		return
	}
	if o.CPU.Regs.CPSR().IRQDisable {
		return
	}
	o.CPU.TakeIRQ()
	o.IRQ.AcknowledgeNextPending()
	logger.Logf(logger.Suppress, logTag, coreerrors.IRQTaken, line)
}

// Diagnostics exposes the five named ring buffers for host/debugger
// inspection.
func (o *Orchestrator) Diagnostics() (cpuFetch, ipc, serviceCall, mmuFault, gpuCommand []string) {
	return o.diagnostics.cpuFetch.Entries(),
		o.diagnostics.ipc.Entries(),
		o.diagnostics.serviceCall.Entries(),
		o.diagnostics.mmuFault.Entries(),
		o.diagnostics.gpuCommand.Entries()
}

// CheckpointDivergence reports the first boot-checkpoint index the
// emulator diverged from the expected sequence at, or -1 if every
// checkpoint reached so far matches.
func (o *Orchestrator) CheckpointDivergence() int {
	return o.checkpoints.DivergenceIndex()
}

// CheckpointsReached returns the boot checkpoints reached so far, in the
// order they were reached.
func (o *Orchestrator) CheckpointsReached() []string {
	return o.checkpoints.Reached()
}

// Run executes cycles Step calls, halting early (and returning the
// error) if a Step fails. Run applies no drift correction of its own:
// the count is used as given, and budget pacing is left to the caller
// via RecommendedBudget.
func (o *Orchestrator) Run(cycles uint64) error {
	for i := uint64(0); i < cycles; i++ {
		if err := o.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RecommendedBudget scales requested cycles by how far emulated time has
// drifted from the host's wall clock, per the timing model's drift
// policy.
func (o *Orchestrator) RecommendedBudget(nowUs int64, requested uint64) uint64 {
	return o.Clock.RecommendedBudget(nowUs, requested)
}

// SetInput forwards a host input sample to the emulated pad/touch state.
func (o *Orchestrator) SetInput(buttons uint32, touchX, touchY int32) {
	o.pad.Set(buttons, touchX, touchY)
}
