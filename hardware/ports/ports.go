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

// Package ports decodes the I/O address space. Every access is first
// offered to the on-chip controller's own address predicate; what it does
// not claim is masked to eight bits and matched against the board's decode,
// in fixed priority: the IDE window (only when a device is configured), the
// floppy controller, the PPI, the diagnostic LED latch and the two trace
// configuration ports. Anything left over reads as 0xff and ignores writes.
//
// Matched ranges strip the range base so each device sees a small zero
// based sub-address.
package ports

import (
	"io"

	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// board port assignments.
const (
	ideBase  = 0x10
	ideEnd   = 0x17
	fdcBase  = 0x70
	fdcEnd   = 0x77
	ppiBase  = 0x78
	ppiEnd   = 0x7f
	ledPort  = 0x0d
	traceLow = 0xfd
	traceHi  = 0xfe
)

// Claimer is the on-chip controller's relocatable register window. It gets
// first refusal on every I/O address.
type Claimer interface {
	Claims(addr uint16) bool
	Read(addr uint16) uint8
	Write(addr uint16, v uint8)
}

// Device is a peripheral decoded at a base-stripped sub-address.
type Device interface {
	Read(sub uint8) uint8
	Write(sub uint8, v uint8)
}

// Ports is the I/O dispatcher.
type Ports struct {
	claimer Claimer
	fdc     Device
	ppi     Device

	// ide is only decoded when a device was configured at startup
	ide Device

	// diagnostic LED latch. rendering is off unless requested
	leds   bool
	ledOut io.Writer

	trc *trace.Tracer
}

// NewPorts is the preferred method of initialisation for the Ports type.
// The ide device may be nil, in which case its window is not decoded.
func NewPorts(claimer Claimer, fdc Device, ppi Device, ide Device, trc *trace.Tracer) *Ports {
	return &Ports{
		claimer: claimer,
		fdc:     fdc,
		ppi:     ppi,
		ide:     ide,
		trc:     trc,
	}
}

// ShowLEDs turns on rendering of the diagnostic LED latch to the writer.
func (p *Ports) ShowLEDs(w io.Writer) {
	p.leds = true
	p.ledOut = w
}

// Read an I/O port.
func (p *Ports) Read(addr uint16) uint8 {
	logger.Logf(p.trc.Perm(trace.IO), "io", "read %02x", addr)

	if p.claimer.Claims(addr) {
		return p.claimer.Read(addr)
	}

	port := uint8(addr)

	switch {
	case port >= ideBase && port <= ideEnd:
		if p.ide != nil {
			return p.ide.Read(port - ideBase)
		}
	case port >= fdcBase && port <= fdcEnd:
		return p.fdc.Read(port - fdcBase)
	case port >= ppiBase && port <= ppiEnd:
		return p.ppi.Read(port & 0x03)
	}

	logger.Logf(p.trc.Perm(trace.Unknown), "io", "unknown read from port %02x", port)
	return 0xff
}

// Write an I/O port.
func (p *Ports) Write(addr uint16, v uint8) {
	logger.Logf(p.trc.Perm(trace.IO), "io", "write %02x = %02x", addr, v)

	if p.claimer.Claims(addr) {
		p.claimer.Write(addr, v)
		return
	}

	port := uint8(addr)

	switch {
	case port >= ideBase && port <= ideEnd:
		if p.ide != nil {
			p.ide.Write(port-ideBase, v)
			return
		}
	case port >= fdcBase && port <= fdcEnd:
		p.fdc.Write(port-fdcBase, v)
		return
	case port >= ppiBase && port <= ppiEnd:
		p.ppi.Write(port&0x03, v)
		return
	case port == ledPort:
		p.diag(v)
		return
	case port == traceLow:
		p.trc.SetLow(v)
		logger.Logf(logger.Allow, "trace", "level set to %04x", p.trc.Level())
		return
	case port == traceHi:
		p.trc.SetHigh(v)
		logger.Logf(logger.Allow, "trace", "level set to %04x", p.trc.Level())
		return
	}

	logger.Logf(p.trc.Perm(trace.Unknown), "io", "unknown write to port %02x of %02x", port, v)
}

// diag renders the eight diagnostic LEDs.
func (p *Ports) diag(v uint8) {
	if !p.leds {
		return
	}

	row := []byte("\n[--------]\n")
	for i := 0; i < 8; i++ {
		if v&(1<<i) != 0 {
			row[i+2] = '@'
		}
	}
	p.ledOut.Write(row)
}
