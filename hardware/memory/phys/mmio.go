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

package phys

// mmioReadByte synthesises a byte read as a read-modify of the containing
// 32-bit-aligned word. If no device is registered for the
// address's page, the read behaves like an unmapped read: zero.
func (b *Bus) mmioReadByte(addr uint32) uint8 {
	dev, _, ok := b.deviceFor(addr)
	if !ok {
		return 0
	}
	wordBase := addr &^ 3
	word := dev.ReadU32(wordBase)
	lane := addr % 4
	return uint8(word >> (8 * lane))
}

// mmioWriteByte synthesises a byte write as read-modify-write of the
// containing word, masking in only the addressed byte lane. Writes to a
// page with no registered device are discarded.
func (b *Bus) mmioWriteByte(addr uint32, v uint8) {
	dev, _, ok := b.deviceFor(addr)
	if !ok {
		return
	}
	wordBase := addr &^ 3
	lane := addr % 4
	word := dev.ReadU32(wordBase)
	mask := uint32(0xFF) << (8 * lane)
	word = (word &^ mask) | (uint32(v) << (8 * lane))
	dev.WriteU32(wordBase, word)
}
