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

// Package hardware assembles the emulated machine: CPU, on-chip
// peripherals, memory, PPI, SPI bridge, floppy controller and the optional
// IDE and SD devices, joined by the port dispatcher and the interrupt
// mediator. The Machine type is the nexus; the scheduler in run.go drives
// it.
package hardware

import (
	"io"
	"sync/atomic"

	"github.com/jetsetilly/minitx/hardware/cpu"
	"github.com/jetsetilly/minitx/hardware/fdc"
	"github.com/jetsetilly/minitx/hardware/ide"
	"github.com/jetsetilly/minitx/hardware/interrupts"
	"github.com/jetsetilly/minitx/hardware/memory"
	"github.com/jetsetilly/minitx/hardware/ports"
	"github.com/jetsetilly/minitx/hardware/ppi"
	"github.com/jetsetilly/minitx/hardware/sdcard"
	"github.com/jetsetilly/minitx/hardware/spi"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/hardware/z180"
	"github.com/jetsetilly/minitx/performance/limiter"
)

// Machine is the complete emulated computer.
type Machine struct {
	Trace *trace.Tracer

	CPU  *cpu.CPU
	Z180 *z180.Controller
	Mem  *memory.Memory
	PPI  *ppi.PPI
	SPI  *spi.Bridge
	FDC  *fdc.FDC

	// nil unless configured on the command line
	IDE *ide.Controller
	SD  *sdcard.Card

	Ports     *ports.Ports
	Mediation *interrupts.Mediation

	lmtr *limiter.RateLimiter
	fast bool

	// termination request. set asynchronously, consulted only at the major
	// tick boundary
	done int32

	// a peripheral or the RETI detector has asked for an interrupt poll.
	// delivery must wait for the instruction boundary
	pollPending bool

	// interrupt acknowledge cycles incurred outside a quantum, owed to the
	// next one
	carry int
}

// NewMachine is the preferred method of initialisation for the Machine
// type. The terminal may be nil, leaving the serial channel unattached.
func NewMachine(term z180.Serial, trc *trace.Tracer) (*Machine, error) {
	m := &Machine{
		Trace: trc,
	}

	var err error
	m.lmtr, err = limiter.NewRateLimiter(majorTicksPerSecond)
	if err != nil {
		return nil, err
	}

	m.SPI = spi.NewBridge(trc)
	m.PPI = ppi.NewPPI(m.SPI, trc)
	m.Mem = memory.NewMemory(m.PPI, trc)
	m.Z180 = z180.NewController(m.Mem, term, m.SPI, trc)
	m.Mem.SetTranslator(m.Z180)
	m.CPU = cpu.NewCPU(m)
	m.FDC = fdc.NewFDC(trc)

	m.Mediation = interrupts.NewMediation(trc, func() { m.pollPending = true })
	m.Z180.Connect(m.CPU, m.Mediation.RequestRecalc)

	m.buildPorts()

	return m, nil
}

// buildPorts assembles the port dispatcher. Rerun when the IDE device
// appears so that its window is decoded.
func (m *Machine) buildPorts() {
	var ideDev ports.Device
	if m.IDE != nil {
		ideDev = m.IDE
	}
	m.Ports = ports.NewPorts(m.Z180, m.FDC, m.PPI, ideDev, m.Trace)
}

// LoadROM loads the boot image into ROM.
func (m *Machine) LoadROM(filename string) error {
	return m.Mem.LoadROM(filename)
}

// AttachFloppy attaches an image to the numbered drive.
func (m *Machine) AttachFloppy(drive int, filename string) error {
	return m.FDC.Drive(drive).Attach(filename)
}

// AttachIDE configures the IDE adapter with an image. Until this is called
// the IDE port window is not decoded at all.
func (m *Machine) AttachIDE(filename string) error {
	ctl := ide.NewController("ide0", m.Trace)
	if err := ctl.Attach(filename); err != nil {
		return err
	}
	m.IDE = ctl
	m.buildPorts()
	return nil
}

// AttachSD places an SD card image on SPI chip select 0.
func (m *Machine) AttachSD(filename string) error {
	crd := sdcard.NewCard("sd0", m.Trace)
	if err := crd.Attach(filename); err != nil {
		return err
	}
	m.SD = crd
	m.SPI.Attach(crd)
	return nil
}

// ShowLEDs turns on rendering of the diagnostic LED port.
func (m *Machine) ShowLEDs(w io.Writer) {
	m.Ports.ShowLEDs(w)
}

// SetFast disables wall-clock pacing.
func (m *Machine) SetFast(fast bool) {
	m.fast = fast
}

// Quit asks the running machine to stop. Safe to call from any goroutine;
// the scheduler notices at the next major tick.
func (m *Machine) Quit() {
	atomic.StoreInt32(&m.done, 1)
}

// Release closes every attached image file.
func (m *Machine) Release() {
	m.FDC.Release()
	if m.IDE != nil {
		m.IDE.Release()
	}
	if m.SD != nil {
		m.SD.Release()
	}
}

// CPURead implements the cpu package's Bus interface. Opcode fetches feed
// the RETI detector.
func (m *Machine) CPURead(addr uint16, m1 bool) uint8 {
	b := m.Mem.Read(addr, false)
	if m1 {
		m.Mediation.Fetch(b)
	}
	return b
}

// CPUWrite implements the cpu package's Bus interface.
func (m *Machine) CPUWrite(addr uint16, v uint8) {
	m.Mem.Write(addr, v)
}

// PortRead implements the cpu package's Bus interface.
func (m *Machine) PortRead(port uint8) uint8 {
	return m.Ports.Read(uint16(port))
}

// PortWrite implements the cpu package's Bus interface.
func (m *Machine) PortWrite(port uint8, v uint8) {
	m.Ports.Write(uint16(port), v)
}

// Peek implements the cpu package's Bus interface and the disassembly
// package's Memory interface. No tracing, no device side effects.
func (m *Machine) Peek(addr uint16) uint8 {
	return m.Mem.Read(addr, true)
}

// servicePoll delivers a requested interrupt poll. Called only between
// instructions. Returns the interrupt acknowledge cycles, if any.
func (m *Machine) servicePoll() int {
	if !m.pollPending {
		return 0
	}
	m.pollPending = false

	cycles := m.Z180.Poll()
	if cycles > 0 {
		m.Mediation.LiveIRQ = true
	}
	return cycles
}
