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

import (
	"reflect"
	"testing"
)

func TestHandleIsolationAcrossProcesses(t *testing.T) {
	k := New(nil, nil, nil, nil)
	k.CreateProcess(1)
	k.CreateProcess(2)

	result, _ := k.Dispatch(1, SWICreateEvent, nil)
	if result != ResultOK {
		t.Fatalf("Dispatch(SWICreateEvent) for pid 1 = %v, want ResultOK", result)
	}

	// the handle counter is global, but the table it lands in is not: the
	// same numeric handle must not resolve in pid 2's table.
	h := Handle(k.nextHandle)
	if _, ok := k.HandleKind(1, h); !ok {
		t.Fatalf("HandleKind(1, %d) not found, want the event just created", h)
	}
	if _, ok := k.HandleKind(2, h); ok {
		t.Fatalf("HandleKind(2, %d) found a handle that was only ever inserted into pid 1's table", h)
	}
}

func TestDuplicateHandleDoesNotCrossProcesses(t *testing.T) {
	k := New(nil, nil, nil, nil)
	k.CreateProcess(1)
	k.CreateProcess(2)

	k.Dispatch(1, SWICreateEvent, nil)
	h := Handle(k.nextHandle)

	// duplicating a handle that does not exist in pid 2's table must fail,
	// even though it exists in pid 1's.
	result, _ := k.Dispatch(2, SWIDuplicateHandle, []uint32{uint32(h)})
	if result != ResultInvalidHandle {
		t.Fatalf("Dispatch(SWIDuplicateHandle) for an other-process handle = %v, want ResultInvalidHandle", result)
	}

	result, _ = k.Dispatch(1, SWIDuplicateHandle, []uint32{uint32(h)})
	if result != ResultOK {
		t.Fatalf("Dispatch(SWIDuplicateHandle) within the owning process = %v, want ResultOK", result)
	}
}

func TestCloseHandleIsPerProcess(t *testing.T) {
	k := New(nil, nil, nil, nil)
	k.CreateProcess(1)
	k.CreateProcess(2)

	k.Dispatch(1, SWICreateEvent, nil)
	h := Handle(k.nextHandle)

	if result, _ := k.Dispatch(2, SWICloseHandle, []uint32{uint32(h)}); result != ResultOK {
		t.Fatalf("closing an unknown handle in pid 2 = %v, want ResultOK (close is a no-op on a miss)", result)
	}
	if _, ok := k.HandleKind(1, h); !ok {
		t.Fatalf("pid 2 closing handle %d must not affect pid 1's table", h)
	}
}

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		{CommandID: 0x0001, Normal: []uint32{1, 2, 3}},
		{CommandID: 0x0005, Normal: nil, Translate: []TranslateDescriptor{
			{Kind: TranslateCopyHandle, Handle: 7},
		}},
		{CommandID: 0x0002, Normal: []uint32{0xDEAD}, Translate: []TranslateDescriptor{
			{Kind: TranslateMoveHandle, Handle: 42},
		}},
		{CommandID: 0x0003, Normal: []uint32{1}, Translate: []TranslateDescriptor{
			{Kind: TranslateStaticBuffer, Index: 3, Size: 0x1000, Address: 0x0800_0000},
		}},
		{CommandID: 0x0009, Normal: []uint32{1, 2}, Translate: []TranslateDescriptor{
			{Kind: TranslateCopyHandle, Handle: 5},
			{Kind: TranslateStaticBuffer, Index: 0, Size: 0x40, Address: 0x1000_0000},
		}},
	}

	for _, m := range cases {
		words := Encode(m)
		got, ok := Decode(words)
		if !ok {
			t.Fatalf("Decode(Encode(%+v)) failed to decode", m)
		}
		if !reflect.DeepEqual(got, m) {
			t.Fatalf("Decode(Encode(m)) = %+v, want %+v", got, m)
		}
	}
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	m := Message{CommandID: 1, Normal: []uint32{1, 2}}
	words := Encode(m)
	if _, ok := Decode(words[:len(words)-1]); ok {
		t.Fatalf("Decode() of a truncated stream succeeded, want failure")
	}
}

func TestEncodeHeaderDecodeHeaderRoundTrip(t *testing.T) {
	word := EncodeHeader(0x1234, 5, 2)
	cmd, normal, translate := DecodeHeader(word)
	if cmd != 0x1234 || normal != 5 || translate != 2 {
		t.Fatalf("DecodeHeader(EncodeHeader(...)) = (%#x, %d, %d), want (0x1234, 5, 2)", cmd, normal, translate)
	}
}
