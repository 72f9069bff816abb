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

// This is a thin headless runner over internal/hostapi: load a title
// image, run it for a cycle budget (or until interrupted), and report
// where it got to. It is not the host façade itself, embedding
// applications are expected to use internal/hostapi directly; this is
// only a minimal example of driving it from the command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/arclight3ds/core3ds/internal/hostapi"
	"github.com/arclight3ds/core3ds/internal/logger"
	"github.com/arclight3ds/core3ds/internal/prefs"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("core3ds", flag.ContinueOnError)
	cycles := fs.Uint64("cycles", 1_000_000, "cycle budget to run before stopping")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: core3ds [-cycles N] <title-image>")
		return 1
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	e := hostapi.New(prefs.Default(), 1)
	if err := e.LoadTitle(data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	stopped := make(chan error, 1)
	go func() { stopped <- e.Run(*cycles) }()

	select {
	case <-interrupt:
		logger.Log(logger.Allow, "main", "interrupted, reporting state so far")
	case err := <-stopped:
		if err != nil {
			logger.Logf(logger.Allow, "main", "run stopped: %v", err)
		}
	}

	snap := e.State()
	diag := e.DiagnosticsSnapshot()
	fmt.Printf("pc=%#08x sp=%#08x halted=%t present=%d top-scanline=%d bottom-scanline=%d\n",
		snap.PC, snap.SP, snap.Halted, snap.PresentCount, snap.TopScanline, snap.BottomScanline)
	fmt.Printf("checkpoints=%v divergence=%d\n", diag.CheckpointsReached, diag.DivergenceIndex)

	logger.Write(os.Stdout)
	return 0
}
