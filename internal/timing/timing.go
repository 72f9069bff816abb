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

// Package timing derives audio samples, video frames and scanline
// position from the CPU's cycle counter, and recommends how large the
// orchestrator's next run budget should be to keep emulated time tracking
// the host's wall clock.
package timing

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/sys/unix"

	"github.com/arclight3ds/core3ds/internal/prefs"
)

// Clock rates. CPUHz divides evenly by 1,000,000, which keeps the
// cycles-to-microseconds conversion used by drift correction exact.
const (
	CPUHz   = 268_000_000
	AudioHz = 48_000
	VideoHz = 60
)

const (
	TotalScanlines  = 262
	ActiveScanlines = 240
	// BottomOffsetLines is how far behind the top screen's scanline
	// position the bottom screen's scanout runs.
	BottomOffsetLines = 2
)

var (
	frameCycles = uint64(CPUHz / VideoHz)
	lineCycles  = frameCycles / TotalScanlines
)

// phaseAccumulator tracks how many whole units of a sub-CPUHz-rate event
// have been produced over a run of CPU cycles, using exact integer
// arithmetic so that rounding never accumulates across many short ticks.
type phaseAccumulator struct {
	rate  uint64
	phase uint64
}

// advance folds delta CPU cycles into the accumulator and returns how
// many whole events were produced.
func (p *phaseAccumulator) advance(delta uint64) uint64 {
	p.phase += delta * p.rate
	produced := p.phase / CPUHz
	p.phase %= CPUHz
	return produced
}

// Clock is the timing model shared by one emulator instance: cycle
// counter, audio/video phase accumulators, per-screen V-blank counters,
// and the wall-clock anchor used for drift correction.
type Clock struct {
	prefs *prefs.Prefs

	cpuCycles uint64

	audio phaseAccumulator
	video phaseAccumulator

	topVBlanks    uint64
	bottomVBlanks uint64

	samples *audio.IntBuffer

	// anchorWallUs is the host wall-clock time at which this Clock was
	// created; cpuCycles is always zero at that point, so the emulated
	// time elapsed since the anchor is just cpuCycles converted to
	// microseconds, with no separate emulated-side anchor to track.
	anchorWallUs int64
}

// New returns a Clock anchored to the current wall-clock time.
func New(p *prefs.Prefs) *Clock {
	if p == nil {
		p = prefs.Default()
	}
	c := &Clock{
		prefs: p,
		audio: phaseAccumulator{rate: AudioHz},
		video: phaseAccumulator{rate: VideoHz},
		samples: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: 2, SampleRate: AudioHz},
			SourceBitDepth: 16,
		},
	}
	c.anchorWallUs = wallClockMicros()
	return c
}

// wallClockMicros reads the host's monotonic clock in microseconds. It
// never fails in practice on a supported platform; a failed read anchors
// to zero instead of panicking, which only affects drift correction's
// accuracy, not correctness of emulation.
func wallClockMicros() int64 {
	ts, err := unix.ClockGettime(unix.CLOCK_MONOTONIC)
	if err != nil {
		return 0
	}
	sec, nsec := ts.Unix()
	return sec*1_000_000 + nsec/1_000
}

// Advance folds delta emulated CPU cycles into the clock: it produces
// zero or more audio sample frames (appended, currently silent, to the
// retained buffer, actual waveform synthesis happens on the emulated
// audio output FIFO, which this package does not model), and zero or
// more completed video frames, each of which increments both screens'
// V-blank counters.
func (c *Clock) Advance(delta uint64) {
	c.cpuCycles += delta

	if frames := c.audio.advance(delta); frames > 0 {
		for i := uint64(0); i < frames; i++ {
			c.samples.Data = append(c.samples.Data, 0, 0) // stereo silence frame
		}
	}

	if frames := c.video.advance(delta); frames > 0 {
		c.topVBlanks += frames
		c.bottomVBlanks += frames
	}
}

// Samples returns the accumulated audio buffer by reference.
func (c *Clock) Samples() *audio.IntBuffer { return c.samples }

// ClearSamples empties the accumulated audio buffer, typically called
// once the host has consumed it.
func (c *Clock) ClearSamples() { c.samples.Data = nil }

// DumpWAV encodes the accumulated audio buffer to w as a 16-bit stereo
// PCM WAV file and clears it. Intended for offline inspection of a run's
// audio cadence rather than for real playback, since the buffer itself
// holds silence.
func (c *Clock) DumpWAV(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, AudioHz, 16, 2, 1)
	if err := enc.Write(c.samples); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	c.ClearSamples()
	return nil
}

// TopVBlanks returns the top screen's V-blank edge count.
func (c *Clock) TopVBlanks() uint64 { return c.topVBlanks }

// BottomVBlanks returns the bottom screen's V-blank edge count.
func (c *Clock) BottomVBlanks() uint64 { return c.bottomVBlanks }

// TopScanline returns the top screen's current scanline, derived directly
// from the cycle counter rather than tracked incrementally, so that it is
// always consistent with cpuCycles regardless of how large the last
// Advance delta was.
func (c *Clock) TopScanline() int {
	return int((c.cpuCycles % frameCycles) / lineCycles)
}

// BottomScanline returns the bottom screen's current scanline, offset
// behind the top screen's by BottomOffsetLines.
func (c *Clock) BottomScanline() int {
	return (c.TopScanline() + TotalScanlines - BottomOffsetLines) % TotalScanlines
}

// InVBlank reports whether scanline lies in the blanking region.
func InVBlank(scanline int) bool { return scanline >= ActiveScanlines }

// RecommendedBudget scales requested (a CPU-cycle budget the orchestrator
// is about to run) up or down depending on how far the emulation has
// drifted from the host's wall clock: if emulation is running ahead by
// more than the drift policy's lead allowance, the next budget is halved
// (never below 1); if it has fallen behind by more than the lag
// allowance, the next budget is increased by 50%; otherwise it passes
// through unchanged.
func (c *Clock) RecommendedBudget(nowUs int64, requested uint64) uint64 {
	policy := c.prefs.Drift

	emulatedUs := int64(c.cpuCycles) / (CPUHz / 1_000_000)
	elapsedHostUs := nowUs - c.anchorWallUs
	drift := emulatedUs - elapsedHostUs

	switch {
	case drift > policy.MaxLeadMicro:
		half := requested / 2
		if half < 1 {
			half = 1
		}
		return half
	case drift < -policy.MaxLagMicro:
		return requested + requested/2
	default:
		return requested
	}
}

// Now returns the current wall-clock time in microseconds, for callers
// that drive RecommendedBudget from outside this package's own anchor.
func Now() int64 { return wallClockMicros() }
