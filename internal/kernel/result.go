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

// Result is a service-call result code.
type Result uint32

const (
	ResultOK             Result = 0
	ResultNotFound       Result = 0xD8A183F8
	ResultInvalidHandle  Result = 0xD8A183FA
	ResultInvalidCommand Result = 0xD8A18404
)

func (r Result) OK() bool { return r == ResultOK }

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultNotFound:
		return "not-found"
	case ResultInvalidHandle:
		return "invalid-handle"
	case ResultInvalidCommand:
		return "invalid-command"
	default:
		return "service-defined"
	}
}
