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

// Package spi bridges the Z180's bit-serial CSIO port to an SPI device. The
// CSIO shifts bits in the opposite order to the SPI convention, so every
// byte is mirror-imaged on the way out and again on the way in.
//
// The bridge also owns the chip-select cache. The PPI notifies it of the
// 3-bit select value in port C after every port write; the bridge raises or
// lowers the device's chip-select line only on genuine transitions to or
// from select 0, the one select with a device attached in this design.
package spi

import (
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// Device is a bit-serial peripheral on the far side of the bridge.
type Device interface {
	Exchange(b uint8) uint8
	LowerCS()
	RaiseCS()
}

// bit order reversal table. reverse(reverse(b)) == b for all byte values
var bitrev [256]uint8

func init() {
	for i := 0; i < 256; i++ {
		v := uint8(0)
		for b := 0; b < 8; b++ {
			if i&(1<<b) != 0 {
				v |= 1 << (7 - b)
			}
		}
		bitrev[i] = v
	}
}

// Reverse returns the bit-reversed value of b.
func Reverse(b uint8) uint8 {
	return bitrev[b]
}

// Bridge adapts the CSIO byte stream to the attached SPI device.
type Bridge struct {
	dev Device

	// the last chip select value seen. the reset value of 7 means the first
	// recalculation always sees a transition
	cs uint8

	trc *trace.Tracer
}

// NewBridge is the preferred method of initialisation for the Bridge type.
func NewBridge(trc *trace.Tracer) *Bridge {
	return &Bridge{
		cs:  7,
		trc: trc,
	}
}

// Attach connects an SPI device to chip select 0. A nil device leaves the
// select slot empty.
func (brd *Bridge) Attach(dev Device) {
	brd.dev = dev
}

// Exchange a byte with the attached device, correcting for bit order in both
// directions. Returns 0xff when no device is attached.
func (brd *Bridge) Exchange(b uint8) uint8 {
	if brd.dev == nil {
		return 0xff
	}

	r := brd.dev.Exchange(bitrev[b])
	logger.Logf(brd.trc.Perm(trace.SPI), "spi", "%02x:%02x", bitrev[b], r)
	return bitrev[r]
}

// RecalcChipSelect is called by the PPI after every port write. The lower
// event fires exactly once when the select value changes from non-zero to
// zero and the raise event exactly once on the reverse transition. A change
// between two non-zero selects fires nothing; those are reserved slots with
// no device attached.
func (brd *Bridge) RecalcChipSelect(cs uint8) {
	if cs == brd.cs {
		return
	}

	if brd.dev != nil {
		if brd.cs == 0 {
			brd.dev.RaiseCS()
		} else if cs == 0 {
			brd.dev.LowerCS()
		}
	}

	brd.cs = cs
}
