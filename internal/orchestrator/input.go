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

// padState is the orchestrator's implementation of kernel.Input: the
// button mask and touch-screen coordinates the host sets, and the
// "hid:USER" service reads back on the title's behalf.
type padState struct {
	buttons uint32
	touchX  int32
	touchY  int32
}

func (p *padState) Reset() {
	p.buttons = 0
	p.touchX = 0
	p.touchY = 0
}

func (p *padState) Get() (buttons uint32, touchX, touchY int32) {
	return p.buttons, p.touchX, p.touchY
}

func (p *padState) Set(buttons uint32, touchX, touchY int32) {
	p.buttons = buttons
	p.touchX = touchX
	p.touchY = touchY
}
