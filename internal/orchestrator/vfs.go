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
	"strings"

	"github.com/arclight3ds/core3ds/internal/loader"
)

// romArchiveID is the only archive number this implementation recognises:
// the title image's own optional filesystem side channel.
const romArchiveID = 0

// titleFS adapts a title's optional loader.Filesystem side channel to the
// kernel's VFS collaborator interface. With no side channel present,
// every operation reports not-found, which is what a title that never
// bundled extra assets should see from "fs:USER".
type titleFS struct {
	backing loader.Filesystem

	files    map[uint32][]byte
	nextFile uint32
}

func newTitleFS(backing loader.Filesystem) *titleFS {
	return &titleFS{backing: backing, files: make(map[uint32][]byte)}
}

func (v *titleFS) OpenArchive(archiveID uint32) bool {
	return archiveID == romArchiveID && v.backing != nil
}

func (v *titleFS) OpenFile(archiveID uint32, path string) (uint32, bool) {
	if archiveID != romArchiveID || v.backing == nil {
		return 0, false
	}

	data, err := v.backing.ReadFile(path)
	if err != nil {
		data, err = v.backing.ReadFile(strings.TrimPrefix(path, "/"))
	}
	if err != nil {
		return 0, false
	}

	v.nextFile++
	id := v.nextFile
	v.files[id] = data
	return id, true
}

func (v *titleFS) ReadFile(fileID uint32, offset uint32, buf []byte) (int, bool) {
	data, ok := v.files[fileID]
	if !ok {
		return 0, false
	}
	if int(offset) >= len(data) {
		return 0, true
	}
	n := copy(buf, data[offset:])
	return n, true
}
