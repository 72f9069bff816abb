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

// serviceEntry is one name->(target-tag, max-sessions) registry row.
type serviceEntry struct {
	targetTag   string
	maxSessions int
}

// registerBootstrapServices installs the fixed set of services every
// kernel instance starts with.
func registerBootstrapServices(r map[string]serviceEntry) {
	r["srv:"] = serviceEntry{targetTag: "srv:", maxSessions: 1}
	r["fs:USER"] = serviceEntry{targetTag: "fs:USER", maxSessions: 4}
	r["apt:u"] = serviceEntry{targetTag: "apt:u", maxSessions: 1}
	r["gsp::Gpu"] = serviceEntry{targetTag: "gsp::Gpu", maxSessions: 1}
	r["hid:USER"] = serviceEntry{targetTag: "hid:USER", maxSessions: 1}
}

// VFS is the filesystem collaborator the "fs:USER" service dispatches
// into. Archive and file identities are opaque uint32s
// minted by the collaborator.
type VFS interface {
	OpenArchive(archiveID uint32) (ok bool)
	OpenFile(archiveID uint32, path string) (fileID uint32, ok bool)
	ReadFile(fileID uint32, offset uint32, buf []byte) (n int, ok bool)
}

// GPUHandoff is the collaborator the "gsp::Gpu" service enqueues packet
// sequences into, for the orchestrator to drain into the GPU's FIFO.
type GPUHandoff interface {
	EnqueueWords(words []uint32)
}

// Input is the collaborator the "hid:USER" service reads and writes.
type Input interface {
	Reset()
	Get() (buttons uint32, touchX, touchY int32)
	Set(buttons uint32, touchX, touchY int32)
}
