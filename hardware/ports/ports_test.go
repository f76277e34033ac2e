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

package ports_test

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/minitx/hardware/ports"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/test"
)

// claims a 64 byte window at 0xc0, like the controller with a relocated
// register block.
type testClaimer struct {
	reads  []uint16
	writes []uint16
}

func (c *testClaimer) Claims(addr uint16) bool {
	return addr&0xffc0 == 0x00c0
}

func (c *testClaimer) Read(addr uint16) uint8 {
	c.reads = append(c.reads, addr)
	return 0x42
}

func (c *testClaimer) Write(addr uint16, v uint8) {
	c.writes = append(c.writes, addr)
}

// records the sub-addresses offered to it.
type testDevice struct {
	reads  []uint8
	writes []uint8
}

func (d *testDevice) Read(sub uint8) uint8 {
	d.reads = append(d.reads, sub)
	return 0x24
}

func (d *testDevice) Write(sub uint8, v uint8) {
	d.writes = append(d.writes, sub)
}

func TestClaimerHasPriority(t *testing.T) {
	cl := &testClaimer{}
	fd := &testDevice{}
	pp := &testDevice{}
	p := ports.NewPorts(cl, fd, pp, nil, trace.NewTracer(0))

	// 0xfd would be the trace port but the claimer covers 0xc0 to 0xff
	p.Write(0x00fd, 0x01)
	test.Equate(t, len(cl.writes), 1)

	test.Equate(t, p.Read(0x00c4), 0x42)
	test.Equate(t, len(cl.reads), 1)
}

func TestBaseStripping(t *testing.T) {
	fd := &testDevice{}
	pp := &testDevice{}
	id := &testDevice{}
	p := ports.NewPorts(&testClaimer{}, fd, pp, id, trace.NewTracer(0))

	p.Read(0x73)
	test.Equate(t, fd.reads[0], 3)

	p.Write(0x70, 0)
	test.Equate(t, fd.writes[0], 0)

	// the ppi repeats through its window on the low two bits
	p.Read(0x7b)
	p.Read(0x7f)
	test.Equate(t, pp.reads[0], 3)
	test.Equate(t, pp.reads[1], 3)

	p.Read(0x15)
	test.Equate(t, id.reads[0], 5)
}

func TestIDEWindowGated(t *testing.T) {
	fd := &testDevice{}
	pp := &testDevice{}
	p := ports.NewPorts(&testClaimer{}, fd, pp, nil, trace.NewTracer(0))

	// no ide device configured: the window reads as unmapped
	test.Equate(t, p.Read(0x10), 0xff)
	p.Write(0x10, 0x5a)
	test.Equate(t, len(fd.writes), 0)
	test.Equate(t, len(pp.writes), 0)
}

func TestUnknownPort(t *testing.T) {
	p := ports.NewPorts(&testClaimer{}, &testDevice{}, &testDevice{}, nil, trace.NewTracer(0))

	test.Equate(t, p.Read(0x0042), 0xff)
	p.Write(0x0042, 0x00) // silently ignored
}

func TestTracePortsLiveUpdate(t *testing.T) {
	trc := trace.NewTracer(0)
	p := ports.NewPorts(&testClaimer{}, &testDevice{}, &testDevice{}, nil, trc)

	p.Write(0x00fd, 0x21)
	test.Equate(t, trc.Level(), 0x21)

	p.Write(0x00fe, 0x01)
	test.Equate(t, trc.Level(), 0x121)

	// the low byte rewrites without disturbing the high byte
	p.Write(0x00fd, 0x02)
	test.Equate(t, trc.Level(), 0x102)
}

func TestDiagnosticLEDs(t *testing.T) {
	p := ports.NewPorts(&testClaimer{}, &testDevice{}, &testDevice{}, nil, trace.NewTracer(0))

	// rendering is off by default
	p.Write(0x000d, 0xff)

	var b bytes.Buffer
	p.ShowLEDs(&b)

	p.Write(0x000d, 0x81)
	test.Equate(t, b.String(), "\n[@------@]\n")
}
