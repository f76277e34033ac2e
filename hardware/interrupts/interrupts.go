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

// Package interrupts mediates between the peripherals that raise interrupts
// and the CPU that services them.
//
// The interesting part is spotting the end of an interrupt service routine.
// The RETI instruction is the two byte sequence 0xed 0x4d and the mediator
// watches for it in the instruction fetch stream, one byte of lookahead at
// most. When the sequence completes, the live-interrupt flag is cleared and
// the interrupt controller is re-polled immediately so that a pending lower
// priority interrupt can be raised on the next instruction boundary.
//
// The other multi-byte prefixes (0xdd, 0xfd, 0xcb) are a different class of
// instruction and suppress detection for the instruction they start.
package interrupts

import (
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// Z80 instruction prefixes and the second byte of the RETI instruction.
const (
	prefixIX  = 0xdd
	prefixIY  = 0xfd
	prefixBit = 0xcb
	prefixExt = 0xed
	opRETI    = 0x4d
)

// detector states.
type fetchState int

const (
	idle fetchState = iota

	// the previous fetch was one of the ix/iy/bit prefixes. whatever follows
	// is part of that instruction and must not arm the detector
	suppressed

	// the previous fetch was the extended prefix
	sawPrefixED
)

// Mediation is the machine's interrupt state.
type Mediation struct {
	// an interrupt is currently being serviced. set when the controller
	// delivers a vector to the CPU. cleared by the RETI sequence
	LiveIRQ bool

	// a peripheral event may have changed pending-interrupt status and a
	// re-poll is owed. serviced by the scheduler at the major-tick boundary
	Recalc bool

	state fetchState

	// re-polls the interrupt controller. supplied by the machine
	poll func()

	trc *trace.Tracer
}

// NewMediation is the preferred method of initialisation for the Mediation
// type. The poll function re-polls the interrupt controller; it is called
// whenever a RETI sequence completes.
func NewMediation(trc *trace.Tracer, poll func()) *Mediation {
	return &Mediation{
		trc:  trc,
		poll: poll,
	}
}

// RequestRecalc notes that pending-interrupt status may have changed.
func (med *Mediation) RequestRecalc() {
	med.Recalc = true
}

// Fetch observes one byte of the instruction fetch stream. It must be called
// only for genuine opcode-fetch (M1) reads; operand reads do not take part
// in RETI detection.
func (med *Mediation) Fetch(b uint8) {
	if b == prefixIX || b == prefixIY || b == prefixBit {
		med.state = suppressed
		return
	}

	if b == prefixExt && med.state == idle {
		med.state = sawPrefixED
		return
	}

	if b == opRETI && med.state == sawPrefixED {
		med.reti()
	}

	// the detector only ever looks one byte ahead
	med.state = idle
}

// reti fires when the fetch stream completes a RETI instruction.
func (med *Mediation) reti() {
	if med.LiveIRQ {
		logger.Log(med.trc.Perm(trace.IRQ), "irq", "RETI")
	}
	med.LiveIRQ = false
	med.poll()
}
