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

// Package ppi emulates the board's 82C55 parallel interface: three byte-wide
// ports and one control register. Only mode 0 (direct I/O) is modelled, plus
// the single-bit set/reset command against port C.
//
// The PPI output latches carry most of the board's glue signals. Port A is
// the bank control register (ROM enable, extended memory enable, keyboard
// and mouse clocks, I2C bit lines). Port C's low three bits form the chip
// select for the serial expansion bus.
package ppi

import (
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// control register direction bits (mode 0)
const (
	ctrlPortAInput = 0x10
	ctrlPortBInput = 0x02
	ctrlPortCLower = 0x01
	ctrlPortCUpper = 0x08
	ctrlModeSet    = 0x80
)

// bank register bits carried in port A.
const (
	bankROMEnable = 0x08
	bankExtEnable = 0x04
)

// SelectBus is notified after every PPI write. Any port write may change the
// chip-select value embedded in port C's low bits, so recalculation happens
// unconditionally.
type SelectBus interface {
	RecalcChipSelect(cs uint8)
}

// PPI is the 82C55 state: three data latches and the control register.
type PPI struct {
	PortA   uint8
	PortB   uint8
	PortC   uint8
	Control uint8

	sel SelectBus
	trc *trace.Tracer
}

// NewPPI is the preferred method of initialisation for the PPI type. Outputs
// from the 82C55 start high; the control register resets to 0x9b.
func NewPPI(sel SelectBus, trc *trace.Tracer) *PPI {
	return &PPI{
		PortA:   0xff,
		PortB:   0xff,
		PortC:   0xff,
		Control: 0x9b,
		sel:     sel,
		trc:     trc,
	}
}

// ROMEnabled implements the memory package's BankSelect interface. Port A
// bit 3 maps ROM into the base half of the physical map.
func (p *PPI) ROMEnabled() bool {
	return p.PortA&bankROMEnable == bankROMEnable
}

// ExtMemEnabled implements the memory package's BankSelect interface. Port A
// bit 2 enables RAM in the extended half of the physical map.
func (p *PPI) ExtMemEnabled() bool {
	return p.PortA&bankExtEnable == bankExtEnable
}

// Read a PPI register. The sub-address is the port address with the range
// base already stripped (0 to 3).
func (p *PPI) Read(sub uint8) uint8 {
	switch sub {
	case 0:
		if p.Control&ctrlPortAInput == ctrlPortAInput {
			// no input sources are modelled on port A
			return 0xff
		}
		return p.PortA
	case 1:
		if p.Control&ctrlPortBInput == ctrlPortBInput {
			// joystick and I2C inputs not modelled
			return 0xff
		}
		return p.PortB
	case 2:
		// port C has nibble sized direction control
		var r uint8
		if p.Control&ctrlPortCLower == ctrlPortCLower {
			r = 0x0f
		} else {
			r = p.PortC & 0x0f
		}
		if p.Control&ctrlPortCUpper == ctrlPortCUpper {
			r |= 0xf0
		} else {
			r |= p.PortC & 0xf0
		}
		return r
	case 3:
		return p.Control
	}

	// unreachable given the 4-port decode but never fatal
	logger.Logf(logger.Allow, "ppi", "invalid read offset (%d)", sub)
	return 0xff
}

// Write a PPI register. A write to the control address with bit 7 set
// replaces the whole control register; with bit 7 clear it is a single-bit
// set/reset command against port C (bits 3:1 index, bit 0 value).
func (p *PPI) Write(sub uint8, v uint8) {
	switch sub {
	case 0:
		p.PortA = v
	case 1:
		p.PortB = v
	case 2:
		p.PortC = v
	case 3:
		if v&ctrlModeSet == ctrlModeSet {
			p.Control = v
		} else {
			bit := v & 0x01
			idx := (v >> 1) & 0x07
			p.PortC &= ^(uint8(1) << idx)
			if bit == 0x01 {
				p.PortC |= uint8(1) << idx
			}
		}
	default:
		logger.Logf(logger.Allow, "ppi", "invalid write offset (%d)", sub)
	}

	p.sel.RecalcChipSelect(p.PortC & 0x07)
}
