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

package orchestrator

import (
	"bytes"

	"github.com/bradleyjkemp/memviz"
)

// ring is a small fixed-capacity ring buffer of diagnostic strings, used
// for the five named logs the orchestrator keeps (CPU fetch, IPC,
// service-call, MMU fault, GPU command).
type ring struct {
	entries []string
	cap     int
}

func newRing(cap int) *ring {
	return &ring{cap: cap}
}

func (r *ring) add(s string) {
	r.entries = append(r.entries, s)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *ring) Entries() []string { return r.entries }

// diagnostics bundles the orchestrator's five named ring buffers.
type diagnostics struct {
	cpuFetch    *ring
	ipc         *ring
	serviceCall *ring
	mmuFault    *ring
	gpuCommand  *ring
}

func newDiagnostics(capacity int) *diagnostics {
	return &diagnostics{
		cpuFetch:    newRing(capacity),
		ipc:         newRing(capacity),
		serviceCall: newRing(capacity),
		mmuFault:    newRing(capacity),
		gpuCommand:  newRing(capacity),
	}
}

// checkpoints are reached in this fixed order during a normal boot; a
// divergence (a checkpoint reached out of order, or skipped in favour of
// a later one) indicates the boot sequence went wrong somewhere before
// the title's own code is to blame.
var bootCheckpoints = []string{
	"rom-installed",
	"first-fetch",
	"first-swi",
	"first-gpu-write",
	"first-present",
}

// checkpointProfiler records which boot checkpoints have been reached, in
// the order they were reached, and can report the first index at which
// that order diverges from bootCheckpoints.
type checkpointProfiler struct {
	reached []string
	seen    map[string]bool
}

func newCheckpointProfiler() *checkpointProfiler {
	return &checkpointProfiler{seen: make(map[string]bool)}
}

// Mark records name as reached, if it has not already been recorded.
func (c *checkpointProfiler) Mark(name string) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.reached = append(c.reached, name)
}

// Reached returns the checkpoints recorded so far, in recording order.
func (c *checkpointProfiler) Reached() []string { return c.reached }

// DivergenceIndex returns the first index at which c.reached disagrees
// with bootCheckpoints' expected order, or -1 if every recorded
// checkpoint so far matches the expected prefix.
func (c *checkpointProfiler) DivergenceIndex() int {
	for i, name := range c.reached {
		if i >= len(bootCheckpoints) || bootCheckpoints[i] != name {
			return i
		}
	}
	return -1
}

// SchedulerGraph renders a diagnostic graphviz snapshot of v (typically
// the scheduler's pending-event list or the kernel's process table) for
// offline inspection. The returned string is empty if v could not be
// rendered; that is a diagnostics-only failure and is never treated as a
// hard error.
func SchedulerGraph(v interface{}) string {
	var buf bytes.Buffer
	func() {
		defer func() { recover() }() // memviz panics on some unexported-field shapes; diagnostics never abort the emulation
		memviz.Map(&buf, v)
	}()
	return buf.String()
}
