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

// Package trace defines the machine's diagnostic trace level. The level is a
// bitmask with one bit per subsystem. It can be set on the command line and
// rewritten at runtime by the firmware through the two trace-config ports.
//
// The Perm() function adapts a trace bit to the logger package's Permission
// interface, so a log request is allowed exactly when its subsystem's bit is
// set at the moment of the request.
package trace

import (
	"github.com/jetsetilly/minitx/logger"
)

// List of trace bits. One per subsystem.
const (
	Mem     = 0x0001
	IO      = 0x0002
	Unknown = 0x0004
	CPU     = 0x0008
	CPUIO   = 0x0010
	IRQ     = 0x0020
	SD      = 0x0040
	FDC     = 0x0080
	SPI     = 0x0100
	IDE     = 0x0200
)

// Tracer holds the live trace level. A single instance is shared by every
// component of one machine.
type Tracer struct {
	level int
}

// NewTracer is the preferred method of initialisation for the Tracer type.
func NewTracer(level int) *Tracer {
	return &Tracer{level: level}
}

// Level returns the current trace level.
func (trc *Tracer) Level() int {
	return trc.level
}

// Set replaces the trace level wholesale.
func (trc *Tracer) Set(level int) {
	trc.level = level
}

// SetLow replaces the low byte of the trace level. Wired to port 0xfd.
func (trc *Tracer) SetLow(v uint8) {
	trc.level = (trc.level &^ 0xff) | int(v)
}

// SetHigh replaces the high byte of the trace level. Wired to port 0xfe.
func (trc *Tracer) SetHigh(v uint8) {
	trc.level = (trc.level &^ 0xff00) | int(v)<<8
}

// Allowed returns true if the trace bit is currently set.
func (trc *Tracer) Allowed(bit int) bool {
	return trc.level&bit == bit
}

type perm struct {
	trc *Tracer
	bit int
}

func (p perm) AllowLogging() bool {
	return p.trc.Allowed(p.bit)
}

// Perm adapts a trace bit to a logger.Permission. The returned value is
// sensitive to later changes of the trace level.
func (trc *Tracer) Perm(bit int) logger.Permission {
	return perm{trc: trc, bit: bit}
}
