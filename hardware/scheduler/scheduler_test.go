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

package scheduler

import "testing"

func TestScheduleInIsEquivalentToScheduleAt(t *testing.T) {
	s := New()
	s.Tick(10)

	var firedAt uint64
	s.ScheduleIn(5, PriorityTimer, func(at uint64) { firedAt = at })

	s.Advance(5)
	if firedAt != 15 {
		t.Fatalf("firedAt = %d, want 15 (now=10 + delta=5)", firedAt)
	}
}

func TestDrainDueOrdersByFireAtThenPriorityThenInsertion(t *testing.T) {
	s := New()
	var order []string

	s.ScheduleAt(10, PriorityVBlank, func(uint64) { order = append(order, "vblank@10") })
	s.ScheduleAt(5, PriorityTimer, func(uint64) { order = append(order, "timer@5") })
	s.ScheduleAt(10, PriorityTimer, func(uint64) { order = append(order, "timer@10") })
	s.ScheduleAt(10, PriorityDMA, func(uint64) { order = append(order, "dma@10") })

	s.Advance(10)

	want := []string{"timer@5", "timer@10", "vblank@10", "dma@10"}
	if len(order) != len(want) {
		t.Fatalf("fired %d events, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("fire order = %v, want %v", order, want)
		}
	}
}

func TestDrainDueBreaksTiesByInsertionOrder(t *testing.T) {
	s := New()
	var order []int

	s.ScheduleAt(1, PriorityTimer, func(uint64) { order = append(order, 1) })
	s.ScheduleAt(1, PriorityTimer, func(uint64) { order = append(order, 2) })
	s.ScheduleAt(1, PriorityTimer, func(uint64) { order = append(order, 3) })

	s.Advance(1)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("fire order = %v, want [1 2 3] (insertion order preserved)", order)
	}
}

func TestDrainDueLeavesFutureEventsPending(t *testing.T) {
	s := New()
	fired := false
	s.ScheduleAt(100, PriorityTimer, func(uint64) { fired = true })

	s.Advance(1)
	if fired {
		t.Fatalf("event fired at cycle 1, want it to wait until cycle 100")
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", s.Pending())
	}

	s.Advance(99)
	if !fired {
		t.Fatalf("event did not fire after advancing to its fire-at cycle")
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0 after the event fired", s.Pending())
	}
}

func TestNowTracksCumulativeTicks(t *testing.T) {
	s := New()
	s.Tick(3)
	s.Tick(4)
	if s.Now() != 7 {
		t.Fatalf("Now() = %d, want 7", s.Now())
	}
}
