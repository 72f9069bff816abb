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

package kernel

// ProcessID identifies a process table entry.
type ProcessID uint32

// process is one process table entry.
type process struct {
	handles *handleTable

	pendingRequests  []Message
	pendingResponses []Message

	lastResult Result
	blocked    bool
}

func newProcess() *process {
	return &process{handles: newHandleTable()}
}

// Request appends req to the process's pending-request queue.
func (p *process) Request(req Message) {
	p.pendingRequests = append(p.pendingRequests, req)
}

// TakeResponse pops and returns the oldest queued response, if any.
func (p *process) TakeResponse() (Message, bool) {
	if len(p.pendingResponses) == 0 {
		return Message{}, false
	}
	r := p.pendingResponses[0]
	p.pendingResponses = p.pendingResponses[1:]
	return r, true
}
