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

// Package instance carries the small bundle of shared, per-emulator state
// that needs to reach deep constructors without becoming package globals:
// preferences and a deterministic pseudo-random source.
package instance

import (
	"math/rand"

	"github.com/arclight3ds/core3ds/internal/prefs"
)

// Instance is passed by pointer to every subsystem constructor that needs
// access to shared preferences or deterministic randomness.
type Instance struct {
	Prefs  *prefs.Prefs
	Random *rand.Rand
}

// New creates an Instance seeded deterministically from seed, so that two
// instances created with the same seed and the same Prefs behave
// identically, important for reproducible GPU trace replay.
func New(p *prefs.Prefs, seed int64) *Instance {
	if p == nil {
		p = prefs.Default()
	}
	return &Instance{
		Prefs:  p,
		Random: rand.New(rand.NewSource(seed)),
	}
}
