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

package timing

import (
	"os"
	"testing"

	"github.com/arclight3ds/core3ds/internal/prefs"
)

func TestAudioSampleProductionIsExact(t *testing.T) {
	c := New(prefs.Default())

	// one full second of CPU cycles should yield exactly AudioHz sample
	// frames, with zero leftover phase.
	c.Advance(CPUHz)

	got := len(c.Samples().Data) / 2 // stereo frames
	if got != AudioHz {
		t.Fatalf("sample frames = %d, want %d", got, AudioHz)
	}
	if c.audio.phase != 0 {
		t.Fatalf("leftover audio phase = %d, want 0 after an exact second", c.audio.phase)
	}
}

func TestVideoFrameProductionIsExact(t *testing.T) {
	c := New(prefs.Default())
	c.Advance(CPUHz)

	if c.TopVBlanks() != VideoHz {
		t.Fatalf("top vblanks = %d, want %d", c.TopVBlanks(), VideoHz)
	}
	if c.BottomVBlanks() != VideoHz {
		t.Fatalf("bottom vblanks = %d, want %d", c.BottomVBlanks(), VideoHz)
	}
}

func TestScanlineAdvancesAndWrapsPerFrame(t *testing.T) {
	c := New(prefs.Default())

	if c.TopScanline() != 0 {
		t.Fatalf("initial scanline = %d, want 0", c.TopScanline())
	}

	c.Advance(frameCycles) // exactly one frame
	if c.TopScanline() != 0 {
		t.Fatalf("scanline after one full frame = %d, want wrap to 0", c.TopScanline())
	}

	c.Advance(lineCycles * 10)
	if got := c.TopScanline(); got != 10 {
		t.Fatalf("scanline after 10 lines = %d, want 10", got)
	}
}

func TestBottomScanlineTrailsTop(t *testing.T) {
	c := New(prefs.Default())
	c.Advance(lineCycles * 10)

	want := (10 - BottomOffsetLines + TotalScanlines) % TotalScanlines
	if got := c.BottomScanline(); got != want {
		t.Fatalf("bottom scanline = %d, want %d", got, want)
	}
}

func TestInVBlank(t *testing.T) {
	if InVBlank(ActiveScanlines - 1) {
		t.Fatalf("last active scanline reported as vblank")
	}
	if !InVBlank(ActiveScanlines) {
		t.Fatalf("first blanking scanline not reported as vblank")
	}
}

func TestRecommendedBudgetPassesThroughWithinPolicy(t *testing.T) {
	c := New(prefs.Default())
	c.anchorWallUs = 0
	c.cpuCycles = 0 // emulatedUs = 0

	got := c.RecommendedBudget(0, 1000)
	if got != 1000 {
		t.Fatalf("RecommendedBudget = %d, want unchanged 1000", got)
	}
}

func TestRecommendedBudgetHalvesWhenAheadOfPolicy(t *testing.T) {
	c := New(prefs.Default())
	c.anchorWallUs = 0
	c.cpuCycles = uint64(10_000 * (CPUHz / 1_000_000)) // emulatedUs = 10,000us, far ahead

	got := c.RecommendedBudget(0, 1000)
	if got != 500 {
		t.Fatalf("RecommendedBudget = %d, want halved to 500", got)
	}
}

func TestRecommendedBudgetGrowsWhenBehindPolicy(t *testing.T) {
	c := New(prefs.Default())
	c.anchorWallUs = 0
	c.cpuCycles = 0 // emulatedUs = 0, far behind a host that has moved on 10ms

	got := c.RecommendedBudget(10_000, 1000)
	if got != 1500 {
		t.Fatalf("RecommendedBudget = %d, want +50%% to 1500", got)
	}
}

func TestDumpWAVWritesAndClearsSamples(t *testing.T) {
	c := New(prefs.Default())
	c.Advance(CPUHz) // exactly AudioHz sample frames

	f, err := os.CreateTemp(t.TempDir(), "dump-*.wav")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer f.Close()

	if err := c.DumpWAV(f); err != nil {
		t.Fatalf("DumpWAV() error = %v", err)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("DumpWAV() wrote an empty file")
	}

	if len(c.Samples().Data) != 0 {
		t.Fatalf("Samples() after DumpWAV = %d entries, want 0", len(c.Samples().Data))
	}
}

func TestRecommendedBudgetNeverDropsBelowOne(t *testing.T) {
	c := New(prefs.Default())
	c.anchorWallUs = 0
	c.cpuCycles = uint64(10_000 * (CPUHz / 1_000_000))

	got := c.RecommendedBudget(0, 1)
	if got != 1 {
		t.Fatalf("RecommendedBudget = %d, want floor of 1", got)
	}
}
