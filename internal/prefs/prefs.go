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

// Package prefs holds the tunable knobs threaded through the core via
// instance.Instance: a small preferences struct reached through a shared
// instance rather than package globals.
package prefs

// DriftPolicy bounds how far the emulated wall-clock may drift from the
// host's before the orchestrator scales the next run budget. See
// timing.RecommendedBudget.
type DriftPolicy struct {
	// MaxLeadMicro is the maximum microseconds the emulation may run ahead
	// of the host before the next budget is halved.
	MaxLeadMicro int64

	// MaxLagMicro is the maximum microseconds the emulation may fall
	// behind the host before the next budget is increased by 50%.
	MaxLagMicro int64
}

// DefaultDriftPolicy returns a permissive default: 2ms lead, 8ms lag.
func DefaultDriftPolicy() DriftPolicy {
	return DriftPolicy{
		MaxLeadMicro: 2000,
		MaxLagMicro:  8000,
	}
}

// Prefs is the full set of runtime-tunable knobs for one emulator instance.
type Prefs struct {
	// AbortOnIllegalMem holds an abort-on-unmapped-access toggle. No code
	// in the core reads it, so setting it changes nothing: the core always
	// honours its own checked-vs-tolerant accessor distinction regardless
	// of this value.
	AbortOnIllegalMem bool

	// RandomiseOnReset, when true, fills CPU registers with
	// pseudo-random values on Reset() rather than zeroing them, matching
	// real silicon's undefined power-on state.
	RandomiseOnReset bool

	// TraceCapacity bounds the CPU instruction trace ring.
	TraceCapacity int

	// Drift is the drift-correction policy used by timing.RecommendedBudget.
	Drift DriftPolicy
}

// Default returns a Prefs populated with sensible defaults for running
// without any host-provided configuration.
func Default() *Prefs {
	return &Prefs{
		AbortOnIllegalMem: false,
		RandomiseOnReset:  false,
		TraceCapacity:     256,
		Drift:             DefaultDriftPolicy(),
	}
}
