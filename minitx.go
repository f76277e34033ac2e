// This file is part of MiniTX.
//
// MiniTX is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniTX is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniTX.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/jetsetilly/minitx/console"
	"github.com/jetsetilly/minitx/curated"
	"github.com/jetsetilly/minitx/disassembly"
	"github.com/jetsetilly/minitx/hardware"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
	"github.com/jetsetilly/minitx/modalflag"
	"github.com/jetsetilly/minitx/performance"
	"github.com/jetsetilly/minitx/statsview"
	"github.com/jetsetilly/minitx/version"
)

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.AddSubModes("RUN", "DISASM", "VERSION")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		os.Exit(0)
	case modalflag.ParseError:
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "RUN":
		err = emulate(md)
	case "DISASM":
		err = disasm(md)
	case "VERSION":
		ver, rev := version.Version()
		fmt.Printf("%s %s (%s)\n", version.ApplicationName, ver, rev)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		os.Exit(10)
	}
}

func emulate(md *modalflag.Modes) error {
	md.NewMode()

	rom := md.AddString("rom", "", "boot ROM image (512K)")
	fda := md.AddString("fda", "", "floppy image for drive A")
	fdb := md.AddString("fdb", "", "floppy image for drive B")
	sd := md.AddString("sd", "", "SD card image (SPI select 0)")
	cf := md.AddString("ide", "", "CF card image on the IDE adapter")
	trc := md.AddString("trace", "0x0", "trace level bitmask")
	fast := md.AddBool("fast", false, "run as fast as the host allows")
	leds := md.AddBool("leds", false, "render the diagnostic LED port")
	stats := md.AddBool("statsview", false, fmt.Sprintf("run stats server (%s)", statsview.Address))
	state := md.AddString("dumpstate", "", "write machine state graph (dot format) to file on exit")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		return nil
	case modalflag.ParseError:
		return err
	}

	if *rom == "" {
		return curated.Errorf("run: no ROM image specified")
	}

	level, err := strconv.ParseInt(*trc, 0, 32)
	if err != nil {
		return curated.Errorf("run: bad trace level: %v", err)
	}
	tracer := trace.NewTracer(int(level))

	if *stats {
		if statsview.Available() {
			statsview.Launch(os.Stderr)
		} else {
			fmt.Println("* stats server not available in this build")
		}
	}

	term, err := console.NewConsole()
	if err != nil {
		return curated.Errorf("run: %v", err)
	}
	defer term.CleanUp()

	// trace output goes to stderr, interleaving with the emulated serial
	// console only if the user redirects neither
	logger.SetEcho(os.Stderr)

	m, err := hardware.NewMachine(term, tracer)
	if err != nil {
		return curated.Errorf("run: %v", err)
	}
	defer m.Release()

	// without a boot ROM there is nothing to emulate
	if err := m.LoadROM(*rom); err != nil {
		return err
	}

	// a missing storage image is not fatal. the machine runs with the
	// device absent, as the real board would
	if *fda != "" {
		if err := m.AttachFloppy(0, *fda); err != nil {
			logger.Logf(logger.Allow, "minitx", "%v", err)
		}
	}
	if *fdb != "" {
		if err := m.AttachFloppy(1, *fdb); err != nil {
			logger.Logf(logger.Allow, "minitx", "%v", err)
		}
	}
	if *sd != "" {
		if err := m.AttachSD(*sd); err != nil {
			logger.Logf(logger.Allow, "minitx", "%v", err)
		}
	}
	if *cf != "" {
		if err := m.AttachIDE(*cf); err != nil {
			logger.Logf(logger.Allow, "minitx", "%v", err)
		}
	}

	if *leds {
		m.ShowLEDs(os.Stdout)
	}
	m.SetFast(*fast)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		m.Quit()
	}()

	m.Run()

	if *state != "" {
		if err := performance.DumpState(*state, m); err != nil {
			return err
		}
	}

	return nil
}

// romImage satisfies the disassembly package's Memory interface for a raw
// file image of any size.
type romImage []uint8

func (rom romImage) Peek(addr uint16) uint8 {
	if int(addr) >= len(rom) {
		return 0
	}
	return rom[addr]
}

func disasm(md *modalflag.Modes) error {
	md.NewMode()

	origin := md.AddString("origin", "0x0000", "address to disassemble from")
	count := md.AddInt("count", 32, "number of instructions")

	r, err := md.Parse()
	switch r {
	case modalflag.ParseHelp:
		return nil
	case modalflag.ParseError:
		return err
	}

	if len(md.RemainingArgs()) != 1 {
		return curated.Errorf("disasm: 1 ROM file required")
	}

	addr, err := strconv.ParseUint(*origin, 0, 16)
	if err != nil {
		return curated.Errorf("disasm: bad origin: %v", err)
	}

	d, err := os.ReadFile(md.GetArg(0))
	if err != nil {
		return curated.Errorf("disasm: %v", err)
	}

	disassembly.Dump(os.Stdout, romImage(d), uint16(addr), *count)

	return nil
}
