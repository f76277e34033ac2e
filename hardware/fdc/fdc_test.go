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

package fdc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/minitx/hardware/fdc"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/test"
)

// makeImage creates a raw image with the given sectors-per-track geometry.
// Every byte of a sector holds the low byte of that sector's index so reads
// can be checked for position as well as success.
func makeImage(t *testing.T, name string, sectorsPerTrack int) string {
	t.Helper()

	img := make([]byte, 80*2*sectorsPerTrack*fdc.SectorSize)
	for i := range img {
		img[i] = byte(i / fdc.SectorSize)
	}

	filename := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filename, img, 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

// command clocks a command frame into the data register.
func command(f *fdc.FDC, cmd ...uint8) {
	for _, b := range cmd {
		f.Write(1, b)
	}
}

// readResult drains the result phase.
func readResult(t *testing.T, f *fdc.FDC) []uint8 {
	t.Helper()

	var r []uint8
	for f.Read(0)&0x70 == 0x50 { // dio and busy, not executing: result byte waiting
		r = append(r, f.Read(1))
	}
	return r
}

func TestReadData(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	// idle controller is ready for a command
	test.Equate(t, f.Read(0), 0x80)

	// read cylinder 2, head 1, sector 3, end of track 3
	command(f, 0x46, 0x00, 2, 1, 3, 2, 3, 0x2a, 0xff)

	// execution phase, data flowing to the host
	test.Equate(t, f.Read(0), 0xf0)

	// sector index ((2*2)+1)*9 + 2 = 47
	for i := 0; i < fdc.SectorSize; i++ {
		test.Equate(t, f.Read(1), 47)
	}

	r := readResult(t, f)
	test.Equate(t, len(r), 7)
	test.Equate(t, r[0], 0x04) // head 1, drive 0, normal termination
	test.Equate(t, r[1], 0x00)
	test.Equate(t, r[3], 2)
	test.Equate(t, r[4], 1)
	test.Equate(t, r[5], 3)

	test.Equate(t, f.Read(0), 0x80)
}

func TestTerminalCountEndsRead(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	// a whole-track read, but stop after one sector
	command(f, 0x46, 0x00, 0, 0, 1, 2, 9, 0x2a, 0xff)
	for i := 0; i < fdc.SectorSize; i++ {
		f.Read(1)
	}
	test.Equate(t, f.Read(0), 0xf0)

	f.Write(4, 0)
	r := readResult(t, f)
	test.Equate(t, len(r), 7)
	test.Equate(t, r[0], 0x00)
}

func TestWriteData(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	// write one sector of 0x5a to cylinder 0, head 0, sector 2
	command(f, 0x45, 0x00, 0, 0, 2, 2, 2, 0x2a, 0xff)
	test.Equate(t, f.Read(0), 0xb0)

	for i := 0; i < fdc.SectorSize; i++ {
		f.Write(1, 0x5a)
	}
	r := readResult(t, f)
	test.Equate(t, r[0], 0x00)

	// read it back
	command(f, 0x46, 0x00, 0, 0, 2, 2, 2, 0x2a, 0xff)
	for i := 0; i < fdc.SectorSize; i++ {
		test.Equate(t, f.Read(1), 0x5a)
	}
	readResult(t, f)
}

func TestSeekAndSenseInterrupt(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	command(f, 0x0f, 0x00, 5)

	// the drive busy bit shows while the head moves
	test.Equate(t, f.Read(0)&0x01, 0x01)

	for i := 0; i < 5; i++ {
		f.Tick()
	}
	test.Equate(t, f.Read(0)&0x01, 0x00)

	// seek end, drive 0, present cylinder 5
	command(f, 0x08)
	r := readResult(t, f)
	test.Equate(t, len(r), 2)
	test.Equate(t, r[0], 0x20)
	test.Equate(t, r[1], 5)

	// nothing pending the second time round
	command(f, 0x08)
	r = readResult(t, f)
	test.Equate(t, len(r), 1)
	test.Equate(t, r[0], 0x80)
}

// the two drives carry independent geometry. a sector address valid on the
// high density drive must not resolve on the double density one.
func TestIndependentDriveGeometry(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	if err := f.Drive(1).Attach(makeImage(t, "b.img", 18)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	// sector 10 exists on drive 1
	command(f, 0x46, 0x01, 0, 0, 10, 2, 10, 0x2a, 0xff)
	test.Equate(t, f.Read(0), 0xf0)

	// sector index 9 with drive 1's geometry
	test.Equate(t, f.Read(1), 9)
	for i := 1; i < fdc.SectorSize; i++ {
		f.Read(1)
	}
	r := readResult(t, f)
	test.Equate(t, r[0]&0x40, 0x00)

	// but not on drive 0
	command(f, 0x46, 0x00, 0, 0, 10, 2, 10, 0x2a, 0xff)
	r = readResult(t, f)
	test.Equate(t, r[0]&0x40, 0x40)
}

func TestInvalidCommand(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))

	command(f, 0x1f)
	r := readResult(t, f)
	test.Equate(t, len(r), 1)
	test.Equate(t, r[0], 0x80)
}

func TestSenseDriveStatus(t *testing.T) {
	f := fdc.NewFDC(trace.NewTracer(0))
	if err := f.Drive(0).Attach(makeImage(t, "a.img", 9)); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Release)

	// drive 0: ready, two-sided, at track zero
	command(f, 0x04, 0x00)
	r := readResult(t, f)
	test.Equate(t, len(r), 1)
	test.Equate(t, r[0], 0x38)

	// drive 1 has no image and is not ready
	command(f, 0x04, 0x01)
	r = readResult(t, f)
	test.Equate(t, r[0]&0x20, 0x00)
}
