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

// Package loader parses a title image into the segment layout, entry
// point and service-access list the orchestrator needs to install a
// title into physical memory and create its process.
package loader

import (
	"encoding/binary"

	"github.com/arclight3ds/core3ds/internal/coreerrors"
	"github.com/arclight3ds/core3ds/internal/curated"
)

// magic identifies a title image, matching the homebrew-executable
// convention of a four-byte ASCII tag at offset zero.
var magic = [4]byte{'3', 'D', 'S', 'X'}

const (
	headerSize   = 32
	exheaderFlag = 0x1

	// maxImageSize bounds a title image to something that comfortably
	// fits the emulated address space; real titles are far smaller.
	maxImageSize = 32 << 20
)

// Segment is one of a title's three memory segments: a virtual load
// address and a byte size. The segment's bytes are the next Size bytes of
// the image file following the header (and any preceding segments), in
// text/read-only/data order.
type Segment struct {
	VirtualAddress uint32
	Size           uint32
}

// Filesystem is the optional side channel a title image may carry for
// the kernel's "fs:USER" service to read additional files (e.g. a
// bundled asset archive) from. A title with no such channel leaves this
// nil.
type Filesystem interface {
	ReadFile(name string) ([]byte, error)
}

// Image is a fully parsed title: its three segments, BSS length, optional
// stack/heap size hints, service-access list, entry point, and the raw
// segment bytes ready to be copied into physical memory at each
// segment's virtual address.
type Image struct {
	Text     Segment
	ReadOnly Segment
	Data     Segment

	BSSLength uint32

	// StackSize and HeapSize are zero when the image carries no extended
	// header hint; the orchestrator then falls back to its own defaults.
	StackSize uint32
	HeapSize  uint32

	EntryPoint uint32
	Services   []string

	TextBytes     []byte
	ReadOnlyBytes []byte
	DataBytes     []byte

	Filesystem Filesystem
}

// Parse decodes a title image from data. It returns a curated error
// (see internal/coreerrors) for every malformed-input case; a non-nil
// Image is only ever returned alongside a nil error.
func Parse(data []byte) (*Image, error) {
	if len(data) > maxImageSize {
		return nil, curated.Errorf(coreerrors.ImageTooLarge)
	}
	if len(data) < headerSize {
		return nil, curated.Errorf(coreerrors.ImageTooSmall)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, curated.Errorf(coreerrors.ImageInvalidMagic)
	}

	le := binary.LittleEndian

	headerLen := le.Uint32(data[4:8])
	flags := le.Uint32(data[16:20])
	codeSize := le.Uint32(data[20:24])
	rodataSize := le.Uint32(data[24:28])
	dataSize := le.Uint32(data[28:32])

	if int(headerLen) < headerSize || int(headerLen) > len(data) {
		return nil, curated.Errorf(coreerrors.ImageInvalidLayout)
	}

	cursor := int(headerLen)
	img := &Image{}

	var exheaderServiceCount uint32
	if flags&exheaderFlag != 0 {
		const exheaderSize = 4 + 4 + 4 + 4 + 4 // entry, stack, heap, bss, serviceCount
		if cursor+exheaderSize > len(data) {
			return nil, curated.Errorf(coreerrors.ImageInvalidExheader)
		}
		img.EntryPoint = le.Uint32(data[cursor : cursor+4])
		img.StackSize = le.Uint32(data[cursor+4 : cursor+8])
		img.HeapSize = le.Uint32(data[cursor+8 : cursor+12])
		img.BSSLength = le.Uint32(data[cursor+12 : cursor+16])
		exheaderServiceCount = le.Uint32(data[cursor+16 : cursor+20])
		cursor += exheaderSize

		const serviceNameLen = 8
		need := int(exheaderServiceCount) * serviceNameLen
		if exheaderServiceCount > 64 || cursor+need > len(data) {
			return nil, curated.Errorf(coreerrors.ImageInvalidExheader)
		}
		for i := uint32(0); i < exheaderServiceCount; i++ {
			raw := data[cursor : cursor+serviceNameLen]
			cursor += serviceNameLen
			img.Services = append(img.Services, trimServiceName(raw))
		}
	}

	segments := []struct {
		seg   *Segment
		bytes *[]byte
		size  uint32
	}{
		{&img.Text, &img.TextBytes, codeSize},
		{&img.ReadOnly, &img.ReadOnlyBytes, rodataSize},
		{&img.Data, &img.DataBytes, dataSize},
	}

	// Segment virtual addresses are assigned contiguously starting at a
	// fixed base; real title images carry their own base address, which
	// is out of scope for a minimal loader.
	const virtualBase = 0x00100000
	va := uint32(virtualBase)

	for _, s := range segments {
		if cursor+int(s.size) > len(data) {
			return nil, curated.Errorf(coreerrors.ImageInvalidLayout)
		}
		*s.bytes = data[cursor : cursor+int(s.size)]
		s.seg.VirtualAddress = va
		s.seg.Size = s.size
		cursor += int(s.size)
		va += s.size
	}

	if img.EntryPoint == 0 {
		img.EntryPoint = img.Text.VirtualAddress
	}

	return img, nil
}

func trimServiceName(raw []byte) string {
	n := len(raw)
	for i, b := range raw {
		if b == 0 {
			n = i
			break
		}
	}
	return string(raw[:n])
}
