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

// Package cpu wraps the koron-go/z80 execution core with the things the rest
// of the machine needs and the core does not provide: per-instruction cycle
// counts, classification of memory reads as opcode fetches, and vectored
// interrupt delivery through the I register.
//
// The Z180's extra instructions are not emulated. The firmware this machine
// runs restricts itself to the Z80 subset everywhere it matters and the
// on-chip peripherals are emulated at the machine level rather than through
// the extended opcodes.
package cpu

import (
	"fmt"

	"github.com/koron-go/z80"
)

// Bus is the view the CPU has of the rest of the machine. CPURead is told
// whether the read is an opcode fetch. Peek reads memory with no side
// effects at all, not even tracing.
type Bus interface {
	CPURead(addr uint16, m1 bool) uint8
	CPUWrite(addr uint16, v uint8)
	PortRead(port uint8) uint8
	PortWrite(port uint8, v uint8)
	Peek(addr uint16) uint8
}

// multi-byte instruction prefixes.
const (
	prefixBit = 0xcb
	prefixIX  = 0xdd
	prefixExt = 0xed
	prefixIY  = 0xfd
)

// CPU executes Z80 instructions against a Bus.
type CPU struct {
	core *z80.CPU
	bus  Bus

	// interrupts are not accepted until the instruction after EI has run
	afterEI bool

	// the fetch window covers the opcode bytes of the executing instruction.
	// reads inside the window are classified as opcode fetches. windowLen is
	// zero outside of Step
	windowPC  uint16
	windowLen uint16
}

// the execution core addresses memory and io through these adapters. they
// exist so that the z80 package's method set doesn't leak into the CPU type.
type memory struct {
	cpu *CPU
}

func (m memory) Get(addr uint16) uint8 {
	m1 := addr-m.cpu.windowPC < m.cpu.windowLen
	return m.cpu.bus.CPURead(addr, m1)
}

func (m memory) Set(addr uint16, v uint8) {
	m.cpu.bus.CPUWrite(addr, v)
}

type ports struct {
	cpu *CPU
}

func (p ports) In(port uint8) uint8 {
	return p.cpu.bus.PortRead(port)
}

func (p ports) Out(port uint8, v uint8) {
	p.cpu.bus.PortWrite(port, v)
}

// NewCPU is the preferred method of initialisation for the CPU type.
func NewCPU(bus Bus) *CPU {
	cpu := &CPU{bus: bus}
	cpu.core = &z80.CPU{
		Memory: memory{cpu: cpu},
		IO:     ports{cpu: cpu},
	}
	return cpu
}

// Reset the CPU to its power-on state. Registers other than those listed in
// the datasheet as defined on reset are left alone.
func (cpu *CPU) Reset() {
	cpu.core.PC = 0
	cpu.core.IM = 0
	cpu.core.IFF1 = false
	cpu.core.IFF2 = false
	cpu.core.HALT = false
	cpu.core.IR.Hi = 0
	cpu.afterEI = false
}

// PC returns the current program counter.
func (cpu *CPU) PC() uint16 {
	return cpu.core.PC
}

// IFF returns the two interrupt flip-flops.
func (cpu *CPU) IFF() (bool, bool) {
	return cpu.core.IFF1, cpu.core.IFF2
}

// Halted returns true while the CPU is stopped on a HALT instruction.
func (cpu *CPU) Halted() bool {
	return cpu.core.HALT
}

// String returns the register file on one line.
func (cpu *CPU) String() string {
	return fmt.Sprintf("PC=%04x SP=%04x AF=%02x%02x BC=%02x%02x DE=%02x%02x HL=%02x%02x",
		cpu.core.PC, cpu.core.SP,
		cpu.core.AF.Hi, cpu.core.AF.Lo,
		cpu.core.BC.Hi, cpu.core.BC.Lo,
		cpu.core.DE.Hi, cpu.core.DE.Lo,
		cpu.core.HL.Hi, cpu.core.HL.Lo)
}

// Step executes one instruction and returns the number of clock cycles it
// consumed.
//
// The execution core does not count cycles so the opcode is inspected, with
// Peek, before the core runs and the count looked up in the timing tables.
// Conditional instructions are then adjusted by observing how far the
// program counter actually moved.
func (cpu *CPU) Step() int {
	cpu.afterEI = false

	// a halted CPU burns cycles until an interrupt wakes it
	if cpu.core.HALT {
		return 4
	}

	pc := cpu.core.PC
	opcode := cpu.bus.Peek(pc)

	var cycles int

	switch opcode {
	case prefixBit:
		cycles = cbCycles[cpu.bus.Peek(pc+1)]
	case prefixIX, prefixIY:
		op2 := cpu.bus.Peek(pc + 1)
		if op2 == prefixBit {
			// dd cb d op. bit tests are shorter than set/reset
			op4 := cpu.bus.Peek(pc + 3)
			if op4 >= 0x40 && op4 <= 0x7f {
				cycles = 20
			} else {
				cycles = 23
			}
		} else {
			cycles = indexCycles[op2]
		}
	case prefixExt:
		cycles = extCycles[cpu.bus.Peek(pc+1)]
	default:
		cycles = baseCycles[opcode]
	}

	// the fetch window is the prefix byte plus the opcode proper. the
	// displacement and opcode of dd cb instructions are operands as far as
	// fetch classification is concerned
	cpu.windowPC = pc
	cpu.windowLen = 1
	switch opcode {
	case prefixBit, prefixIX, prefixIY, prefixExt:
		cpu.windowLen = 2
	}

	cpu.core.Step()
	cpu.windowLen = 0

	// the instruction after EI runs before any interrupt is accepted
	if opcode == 0xfb {
		cpu.afterEI = true
	}

	return cpu.adjustConditional(opcode, pc, cycles)
}

// adjustConditional corrects the table cycle count for instructions whose
// timing depends on whether their condition was taken. The program counter
// after execution tells us which way the instruction went.
func (cpu *CPU) adjustConditional(opcode uint8, pcBefore uint16, cycles int) int {
	pcAfter := cpu.core.PC

	switch opcode {
	case 0x20, 0x28, 0x30, 0x38: // jr cc,d
		if pcAfter == pcBefore+2 {
			return 7
		}
		return 12

	case 0xc0, 0xc8, 0xd0, 0xd8, 0xe0, 0xe8, 0xf0, 0xf8: // ret cc
		if pcAfter == pcBefore+1 {
			return 5
		}
		return 11

	case 0xc4, 0xcc, 0xd4, 0xdc, 0xe4, 0xec, 0xf4, 0xfc: // call cc,nn
		if pcAfter == pcBefore+3 {
			return 10
		}
		return 17

	case 0x10: // djnz
		if pcAfter == pcBefore+2 {
			return 8
		}
		return 13

	case prefixExt:
		// repeating block instructions leave the program counter where it
		// was until the repeat completes
		switch cpu.bus.Peek(pcBefore + 1) {
		case 0xb0, 0xb1, 0xb2, 0xb3, 0xb8, 0xb9, 0xba, 0xbb:
			if pcAfter == pcBefore {
				return 21
			}
			return 16
		}
	}

	return cycles
}

// Vector delivers a vectored interrupt to the CPU, the way every interrupt
// on this machine arrives: the handler address is read from the table
// addressed by the I register and the supplied vector.
//
// Returns the cycles consumed by the acknowledge sequence, or zero if the
// CPU is not currently accepting interrupts.
func (cpu *CPU) Vector(vector uint8) int {
	if cpu.afterEI || !cpu.core.IFF1 {
		return 0
	}

	if cpu.core.HALT {
		cpu.core.HALT = false
		cpu.core.PC++
	}

	cpu.core.IFF1 = false
	cpu.core.IFF2 = false

	cpu.core.SP--
	cpu.bus.CPUWrite(cpu.core.SP, uint8(cpu.core.PC>>8))
	cpu.core.SP--
	cpu.bus.CPUWrite(cpu.core.SP, uint8(cpu.core.PC))

	table := uint16(cpu.core.IR.Hi)<<8 | uint16(vector)
	cpu.core.PC = uint16(cpu.bus.CPURead(table, false)) | uint16(cpu.bus.CPURead(table+1, false))<<8

	return 19
}
