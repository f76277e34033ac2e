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

package hardware

import (
	"sync/atomic"

	"github.com/jetsetilly/minitx/disassembly"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// The scheduler works at three scales. The quantum is the number of CPU
// clock states executed before on-chip timers are notified. Every ten
// quanta the floppy controller ticks. Every fifty floppy ticks is a major
// tick, when the wall clock catches up and deferred interrupt
// recalculation is serviced.
//
// 737 states per quantum at 500 quanta per major tick and 50 major ticks
// per second approximates the 18.432MHz part.
const (
	tstatesPerQuantum   = 737
	quantaPerFDCTick    = 10
	fdcTicksPerMajor    = 50
	majorTicksPerSecond = 50
)

// Run drives the machine until Quit() is called. The function owns the
// calling goroutine for its duration.
func (m *Machine) Run() {
	m.CPU.Reset()
	m.FDC.Reset()
	if m.IDE != nil {
		m.IDE.Reset()
	}

	for atomic.LoadInt32(&m.done) == 0 {
		// states not consumed by the previous quantum carry over
		states := m.carry
		m.carry = 0

		for i := 0; i < fdcTicksPerMajor; i++ {
			for j := 0; j < quantaPerFDCTick; j++ {
				states = m.quantum(states)
			}
			m.FDC.Tick()
		}

		if !m.fast {
			m.lmtr.Wait()
		}

		m.serviceRecalc()
	}
}

// quantum executes CPU instructions (and DMA transfers, which have
// priority over the CPU) until the state budget is spent, then notifies
// the on-chip timers. Returns the surplus states.
func (m *Machine) quantum(states int) int {
	for states < tstatesPerQuantum {
		used := m.Z180.DMA()
		if used == 0 {
			used = m.step()
			used += m.servicePoll()
		}
		states += used
	}

	m.Z180.Tick(states)
	return states - tstatesPerQuantum
}

// step executes one CPU instruction.
func (m *Machine) step() int {
	if m.Trace.Allowed(trace.CPU) {
		mn, _ := disassembly.Disassemble(m, m.CPU.PC())
		logger.Logf(m.Trace.Perm(trace.CPU), "cpu", "%s  %s", m.CPU.String(), mn)
	}
	return m.CPU.Step()
}

// serviceRecalc re-polls the interrupt sources when a peripheral has
// signalled a change of status. Runs at the major tick. The flag stays
// raised while interrupts are disabled so that delivery is retried as
// soon as the CPU allows it.
func (m *Machine) serviceRecalc() {
	if !m.Mediation.Recalc {
		return
	}

	if !m.Mediation.LiveIRQ {
		m.pollPending = true
		m.carry += m.servicePoll()
	}

	iff1, iff2 := m.CPU.IFF()
	if !iff1 && !iff2 {
		m.Mediation.Recalc = false
	}
}
