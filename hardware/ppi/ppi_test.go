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

package ppi_test

import (
	"testing"

	"github.com/jetsetilly/minitx/hardware/ppi"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/test"
)

type mockSelectBus struct {
	recalcs int
	last    uint8
}

func (b *mockSelectBus) RecalcChipSelect(cs uint8) {
	b.recalcs++
	b.last = cs
}

func TestResetValues(t *testing.T) {
	p := ppi.NewPPI(&mockSelectBus{}, trace.NewTracer(0))

	// outputs from the 82C55 start high
	test.Equate(t, p.PortA, 0xff)
	test.Equate(t, p.PortB, 0xff)
	test.Equate(t, p.PortC, 0xff)
	test.Equate(t, p.Control, 0x9b)

	// the reset control value has every port configured as input
	test.Equate(t, p.Read(0), 0xff)
	test.Equate(t, p.Read(1), 0xff)
	test.Equate(t, p.Read(2), 0xff)
	test.Equate(t, p.Read(3), 0x9b)
}

func TestBankRegister(t *testing.T) {
	p := ppi.NewPPI(&mockSelectBus{}, trace.NewTracer(0))

	// port A starts high so both bank bits begin enabled
	test.Equate(t, p.ROMEnabled(), true)
	test.Equate(t, p.ExtMemEnabled(), true)

	p.Write(0, 0x04)
	test.Equate(t, p.ROMEnabled(), false)
	test.Equate(t, p.ExtMemEnabled(), true)

	p.Write(0, 0x08)
	test.Equate(t, p.ROMEnabled(), true)
	test.Equate(t, p.ExtMemEnabled(), false)
}

func TestControlBitSetReset(t *testing.T) {
	p := ppi.NewPPI(&mockSelectBus{}, trace.NewTracer(0))

	// configure every port as output
	p.Write(3, 0x80)
	p.Write(2, 0x00)

	// value 0x09: bit 7 clear so this is a set/reset command. bit index 4,
	// value 1. only bit 4 of port C changes
	p.Write(3, 0x09)
	test.Equate(t, p.PortC, 0x10)
	test.Equate(t, p.Read(2), 0x10)

	// and reset it again: bit index 4, value 0
	p.Write(3, 0x08)
	test.Equate(t, p.PortC, 0x00)

	// the set/reset encoding never touches the control register
	test.Equate(t, p.Read(3), 0x80)
}

func TestPortCNibbleDirections(t *testing.T) {
	p := ppi.NewPPI(&mockSelectBus{}, trace.NewTracer(0))

	p.Write(2, 0x25)

	// lower nibble input, upper nibble output
	p.Write(3, 0x81)
	test.Equate(t, p.Read(2), 0x2f)

	// lower nibble output, upper nibble input
	p.Write(3, 0x88)
	test.Equate(t, p.Read(2), 0xf5)

	// both output
	p.Write(3, 0x80)
	test.Equate(t, p.Read(2), 0x25)
}

func TestEveryWriteRecalculatesChipSelect(t *testing.T) {
	sel := &mockSelectBus{}
	p := ppi.NewPPI(sel, trace.NewTracer(0))

	// a write to any of the four registers may change the select value in
	// port C's low bits, so all of them trigger recalculation
	p.Write(0, 0x00)
	p.Write(1, 0x00)
	p.Write(2, 0x03)
	p.Write(3, 0x80)
	test.Equate(t, sel.recalcs, 4)
	test.Equate(t, sel.last, 3)

	// set/reset command changing bit 0 changes the select value too
	p.Write(3, 0x00)
	test.Equate(t, sel.recalcs, 5)
	test.Equate(t, sel.last, 2)
}

func TestInvalidOffset(t *testing.T) {
	p := ppi.NewPPI(&mockSelectBus{}, trace.NewTracer(0))

	// out of range sub-addresses report a diagnostic and return all-ones.
	// never fatal
	test.Equate(t, p.Read(4), 0xff)
}
