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

// Package kernel implements a micro-kernel: a process table, handle
// allocation, a bootstrapped service registry, an SWI dispatch table, and
// a deterministic IPC pump.
package kernel

import (
	"github.com/arclight3ds/core3ds/internal/coreerrors"
	"github.com/arclight3ds/core3ds/internal/curated"
	"github.com/arclight3ds/core3ds/internal/logger"
)

const logTag = "kernel"

// SWI immediate values recognised by the dispatch table.
const (
	SWIYield           = 0x00
	SWIGetTick         = 0x01
	SWICreateEvent     = 0x23
	SWIDuplicateHandle = 0x27
	SWICloseHandle     = 0x29
	SWISendSyncRequest = 0x32
)

// serviceWakeDelay is the fixed scheduling delay (in cycles) used when a
// process blocks on an empty send-sync-request.
const serviceWakeDelay = 64

// LastDispatch records the most recently completed IPC dispatch, retained
// for diagnostics.
type LastDispatch struct {
	CommandID uint32
	Handle    Handle
	Result    Result
}

// Kernel owns the process table, the global handle counter, the service
// registry, and the collaborators the bootstrapped services dispatch
// into.
type Kernel struct {
	processes map[ProcessID]*process
	order     []ProcessID // deterministic iteration order for the IPC pump

	nextHandle uint32
	services   map[string]serviceEntry

	vfs   VFS
	gpu   GPUHandoff
	input Input

	appState uint32

	tickSource func() uint64

	last LastDispatch
}

// New returns a Kernel with the bootstrap services registered and no
// processes yet created. tick is consulted by SWIGetTick; it is typically
// the orchestrator's scheduler.Now.
func New(vfs VFS, gpu GPUHandoff, input Input, tick func() uint64) *Kernel {
	k := &Kernel{
		processes:  make(map[ProcessID]*process),
		services:   make(map[string]serviceEntry),
		vfs:        vfs,
		gpu:        gpu,
		input:      input,
		tickSource: tick,
	}
	registerBootstrapServices(k.services)
	return k
}

// CreateProcess registers a fresh, empty process table entry.
func (k *Kernel) CreateProcess(pid ProcessID) {
	if _, exists := k.processes[pid]; exists {
		return
	}
	k.processes[pid] = newProcess()
	k.order = append(k.order, pid)
}

func (k *Kernel) allocHandle() Handle {
	k.nextHandle++
	return Handle(k.nextHandle)
}

// LastDispatch returns the most recently completed IPC dispatch.
func (k *Kernel) LastDispatch() LastDispatch { return k.last }

// HandleKind reports the kind of the object pid's handle h refers to.
func (k *Kernel) HandleKind(pid ProcessID, h Handle) (ObjectKind, bool) {
	p, ok := k.processes[pid]
	if !ok {
		return 0, false
	}
	o, ok := p.handles.lookup(h)
	return o.Kind, ok
}

// Dispatch handles one SWI trap raised by pid with the given imm24 and
// argument registers. It returns the result
// code to place in the calling process's return register, along with a
// scheduling delay in cycles (0 unless send-sync-request blocked).
func (k *Kernel) Dispatch(pid ProcessID, imm24 uint32, args []uint32) (result Result, wakeDelay uint64) {
	p, ok := k.processes[pid]
	if !ok {
		k.CreateProcess(pid)
		p = k.processes[pid]
	}

	switch imm24 {
	case SWIYield:
		return ResultOK, 0

	case SWIGetTick:
		return ResultOK, 0

	case SWICreateEvent:
		h := k.allocHandle()
		name := ""
		p.handles.insert(h, Object{Kind: ObjectEvent, EventName: name})
		return ResultOK, 0

	case SWIDuplicateHandle:
		if len(args) < 1 {
			return ResultInvalidHandle, 0
		}
		src := Handle(args[0])
		fresh := k.allocHandle()
		if _, ok := p.handles.duplicate(src, fresh); !ok {
			return ResultInvalidHandle, 0
		}
		return ResultOK, 0

	case SWICloseHandle:
		if len(args) < 1 {
			return ResultInvalidHandle, 0
		}
		p.handles.close(Handle(args[0]))
		return ResultOK, 0

	case SWISendSyncRequest:
		if len(p.pendingRequests) == 0 {
			p.blocked = true
			return ResultOK, serviceWakeDelay
		}
		k.pumpOne(pid, p)
		return p.lastResult, 0

	default:
		return ResultInvalidCommand, 0
	}
}

// Tick returns the current orchestrator cycle count, for SWIGetTick's
// caller to read before issuing the SWI (the dispatch table itself is
// stateless with respect to the value; callers read Tick() directly).
func (k *Kernel) Tick() uint64 {
	if k.tickSource == nil {
		return 0
	}
	return k.tickSource()
}

// Pump iterates processes in deterministic order and pumps exactly one
// IPC step for the first non-blocked process with a pending request. It
// is a no-op if no process qualifies.
func (k *Kernel) Pump() {
	for _, pid := range k.order {
		p := k.processes[pid]
		if p.blocked || len(p.pendingRequests) == 0 {
			continue
		}
		k.pumpOne(pid, p)
		return
	}
}

// Unblock clears a process's blocked flag, called by the orchestrator
// when a scheduled service-wake event fires.
func (k *Kernel) Unblock(pid ProcessID) {
	if p, ok := k.processes[pid]; ok {
		p.blocked = false
	}
}

func (k *Kernel) pumpOne(pid ProcessID, p *process) {
	req := p.pendingRequests[0]
	p.pendingRequests = p.pendingRequests[1:]

	sessionHandle := Handle(0)
	if len(req.Normal) > 0 {
		sessionHandle = Handle(req.Normal[0])
	}

	obj, ok := p.handles.lookup(sessionHandle)
	if !ok || obj.Kind != ObjectSession {
		k.finish(pid, p, req, sessionHandle, ResultInvalidHandle, nil)
		return
	}

	resp, result := k.dispatchByTag(pid, p, obj.TargetTag, req)
	k.finish(pid, p, req, sessionHandle, result, resp)
}

func (k *Kernel) finish(pid ProcessID, p *process, req Message, h Handle, result Result, payload []uint32) {
	p.lastResult = result
	p.pendingResponses = append(p.pendingResponses, Message{CommandID: req.CommandID, Normal: payload})
	k.last = LastDispatch{CommandID: req.CommandID, Handle: h, Result: result}

	if !result.OK() {
		// pc is unknown at this layer and is reported as zero; the
		// orchestrator records the dispatch result in its service-call
		// and IPC diagnostics rings without adding a PC.
		err := curated.Errorf(coreerrors.ServiceCallFailed, uint32(0), req.CommandID, h, uint32(result))
		logger.Logf(logger.Allow, logTag, "%v", err)
	}
}

// dispatchByTag implements the per-service command tables for each
// bootstrapped service's target tag.
func (k *Kernel) dispatchByTag(pid ProcessID, p *process, tag string, req Message) ([]uint32, Result) {
	switch tag {
	case "srv:":
		return k.dispatchBroker(p, req)
	case "fs:USER":
		return k.dispatchFilesystem(p, req)
	case "apt:u":
		return k.dispatchApplication(req)
	case "gsp::Gpu":
		return k.dispatchGPU(req)
	case "hid:USER":
		return k.dispatchInput(req)
	default:
		return nil, ResultInvalidCommand
	}
}

func (k *Kernel) dispatchBroker(p *process, req Message) ([]uint32, Result) {
	switch req.CommandID {
	case 0x0001: // register a service, return its port
		if len(req.Normal) < 1 {
			return nil, ResultInvalidCommand
		}
		name := decodeServiceName(req.Normal...)
		k.services[name] = serviceEntry{targetTag: name, maxSessions: 1}
		port := k.allocHandle()
		p.handles.insert(port, Object{Kind: ObjectPort, TargetTag: name})
		return []uint32{uint32(port)}, ResultOK

	case 0x0005: // connect, return a session handle
		if len(req.Normal) < 1 {
			return nil, ResultInvalidCommand
		}
		name := decodeServiceName(req.Normal...)
		if _, ok := k.services[name]; !ok {
			return nil, ResultNotFound
		}
		session := k.allocHandle()
		p.handles.insert(session, Object{Kind: ObjectSession, TargetTag: name})
		return []uint32{uint32(session)}, ResultOK

	default:
		return nil, ResultInvalidCommand
	}
}

func (k *Kernel) dispatchFilesystem(p *process, req Message) ([]uint32, Result) {
	if k.vfs == nil {
		return nil, ResultNotFound
	}
	switch req.CommandID {
	case 0x0001: // open archive by numeric id
		if len(req.Normal) < 1 {
			return nil, ResultInvalidCommand
		}
		archiveID := req.Normal[0]
		if !k.vfs.OpenArchive(archiveID) {
			return nil, ResultNotFound
		}
		h := k.allocHandle()
		p.handles.insert(h, Object{Kind: ObjectArchive, ArchiveID: archiveID})
		return []uint32{uint32(h)}, ResultOK

	case 0x0002: // open file within an archive
		if len(req.Normal) < 2 {
			return nil, ResultInvalidCommand
		}
		archiveHandle := Handle(req.Normal[0])
		obj, ok := p.handles.lookup(archiveHandle)
		if !ok || obj.Kind != ObjectArchive {
			return nil, ResultInvalidHandle
		}
		path := decodeServiceName(req.Normal[1:]...)
		fileID, ok := k.vfs.OpenFile(obj.ArchiveID, path)
		if !ok {
			// fall back to a root-relative path, mirroring loaders that
			// pass an absolute path where the archive expects one
			// relative to its own root.
			fileID, ok = k.vfs.OpenFile(obj.ArchiveID, "/"+path)
			if !ok {
				return nil, ResultNotFound
			}
		}
		h := k.allocHandle()
		p.handles.insert(h, Object{Kind: ObjectFile, FileID: fileID})
		return []uint32{uint32(h)}, ResultOK

	case 0x0003: // read bytes, return length read
		if len(req.Normal) < 2 {
			return nil, ResultInvalidCommand
		}
		fileHandle := Handle(req.Normal[0])
		offset := req.Normal[1]
		obj, ok := p.handles.lookup(fileHandle)
		if !ok || obj.Kind != ObjectFile {
			return nil, ResultInvalidHandle
		}
		buf := make([]byte, 4096)
		n, ok := k.vfs.ReadFile(obj.FileID, offset, buf)
		if !ok {
			return nil, ResultNotFound
		}
		return []uint32{uint32(n)}, ResultOK

	default:
		return nil, ResultInvalidCommand
	}
}

func (k *Kernel) dispatchApplication(req Message) ([]uint32, Result) {
	switch req.CommandID {
	case 0x0001:
		return []uint32{k.appState}, ResultOK
	case 0x0002:
		if len(req.Normal) < 1 {
			return nil, ResultInvalidCommand
		}
		k.appState = req.Normal[0]
		return nil, ResultOK
	default:
		return nil, ResultInvalidCommand
	}
}

func (k *Kernel) dispatchGPU(req Message) ([]uint32, Result) {
	if k.gpu == nil {
		return nil, ResultNotFound
	}
	switch req.CommandID {
	case 0x0001: // clear-colour sequence
		if len(req.Normal) < 1 {
			return nil, ResultInvalidCommand
		}
		k.gpu.EnqueueWords(req.Normal)
		return nil, ResultOK
	case 0x0002: // point-draw sequence, two packets
		if len(req.Normal) < 2 {
			return nil, ResultInvalidCommand
		}
		k.gpu.EnqueueWords(req.Normal)
		return nil, ResultOK
	default:
		return nil, ResultInvalidCommand
	}
}

func (k *Kernel) dispatchInput(req Message) ([]uint32, Result) {
	if k.input == nil {
		return nil, ResultNotFound
	}
	switch req.CommandID {
	case 0x0001:
		k.input.Reset()
		return nil, ResultOK
	case 0x000A:
		buttons, x, y := k.input.Get()
		return []uint32{buttons, uint32(x), uint32(y)}, ResultOK
	case 0x000B:
		if len(req.Normal) < 3 {
			return nil, ResultInvalidCommand
		}
		k.input.Set(req.Normal[0], int32(req.Normal[1]), int32(req.Normal[2]))
		return nil, ResultOK
	default:
		return nil, ResultInvalidCommand
	}
}

// decodeServiceName reassembles an ASCII service or path tag packed
// little-endian across consecutive normal-payload words, trimmed at the
// first NUL.
func decodeServiceName(words ...uint32) string {
	b := make([]byte, 0, len(words)*4)
	for _, w := range words {
		b = append(b, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
