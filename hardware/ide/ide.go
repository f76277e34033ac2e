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

// Package ide emulates a CF card in true IDE mode: the eight-register ATA
// task file over a raw image file. Transfers are byte-wide, which is how the
// board wires the adapter. Only LBA addressing is supported; the commands
// implemented (IDENTIFY, READ SECTORS, WRITE SECTORS, SET FEATURES) are the
// ones the machine's firmware issues.
package ide

import (
	"os"

	"github.com/jetsetilly/minitx/curated"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// SectorSize in bytes.
const SectorSize = 512

// task file register offsets.
const (
	regData  = iota
	regError // feature register on write
	regCount
	regLBA0
	regLBA1
	regLBA2
	regDevice
	regStatus // command register on write
)

// status register bits.
const (
	statusBusy  = 0x80
	statusReady = 0x40
	statusDRQ   = 0x08
	statusError = 0x01
)

// error register bits.
const errorAbort = 0x04

// device register bit selecting LBA addressing.
const deviceLBA = 0x40

// transfer directions.
type transfer int

const (
	transferNone transfer = iota
	transferRead
	transferWrite
)

// Controller is the CF adapter and its single attached device.
type Controller struct {
	label string
	file  *os.File

	// total addressable sectors in the image
	sectors uint32

	feature uint8
	count   uint8
	lba0    uint8
	lba1    uint8
	lba2    uint8
	device  uint8
	status  uint8
	errreg  uint8

	// sector buffer for the data register
	buf    [SectorSize]uint8
	bufIdx int

	// sectors remaining in the current multi-sector transfer
	remaining int
	dir       transfer

	trc *trace.Tracer
}

// NewController is the preferred method of initialisation for the Controller
// type.
func NewController(label string, trc *trace.Tracer) *Controller {
	return &Controller{
		label:  label,
		status: statusReady,
		trc:    trc,
	}
}

// Attach the named image file to the controller.
func (ctl *Controller) Attach(filename string) error {
	f, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return curated.Errorf("ide: %v", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return curated.Errorf("ide: %v", err)
	}
	ctl.file = f
	ctl.sectors = uint32(fi.Size() / SectorSize)
	return nil
}

// Release the image file.
func (ctl *Controller) Release() {
	if ctl.file != nil {
		ctl.file.Close()
		ctl.file = nil
	}
}

// Reset places the device in its power-on state.
func (ctl *Controller) Reset() {
	ctl.status = statusReady
	ctl.errreg = 0
	ctl.dir = transferNone
}

// lba composes the 28 bit block address from the task file.
func (ctl *Controller) lba() uint32 {
	return uint32(ctl.device&0x0f)<<24 | uint32(ctl.lba2)<<16 | uint32(ctl.lba1)<<8 | uint32(ctl.lba0)
}

// advance increments the block address registers after each sector.
func (ctl *Controller) advance() {
	lba := ctl.lba() + 1
	ctl.lba0 = uint8(lba)
	ctl.lba1 = uint8(lba >> 8)
	ctl.lba2 = uint8(lba >> 16)
	ctl.device = (ctl.device &^ 0x0f) | uint8(lba>>24)&0x0f
}

// abort fails the current command.
func (ctl *Controller) abort() {
	ctl.status = statusReady | statusError
	ctl.errreg = errorAbort
	ctl.dir = transferNone
}

// Read a task file register. The sub-address is the port address with the
// range base already stripped (0 to 7).
func (ctl *Controller) Read(sub uint8) uint8 {
	var r uint8

	switch sub {
	case regData:
		r = ctl.readData()
	case regError:
		r = ctl.errreg
	case regCount:
		r = ctl.count
	case regLBA0:
		r = ctl.lba0
	case regLBA1:
		r = ctl.lba1
	case regLBA2:
		r = ctl.lba2
	case regDevice:
		r = ctl.device
	case regStatus:
		r = ctl.status
	}

	logger.Logf(ctl.trc.Perm(trace.IDE), ctl.label, "read %d = %02x", sub, r)
	return r
}

// Write a task file register.
func (ctl *Controller) Write(sub uint8, v uint8) {
	logger.Logf(ctl.trc.Perm(trace.IDE), ctl.label, "write %d = %02x", sub, v)

	switch sub {
	case regData:
		ctl.writeData(v)
	case regError:
		ctl.feature = v
	case regCount:
		ctl.count = v
	case regLBA0:
		ctl.lba0 = v
	case regLBA1:
		ctl.lba1 = v
	case regLBA2:
		ctl.lba2 = v
	case regDevice:
		ctl.device = v
	case regStatus:
		ctl.command(v)
	}
}

func (ctl *Controller) command(cmd uint8) {
	ctl.errreg = 0

	switch cmd {
	case 0xec: // IDENTIFY DEVICE
		ctl.identify()
		ctl.dir = transferRead
		ctl.remaining = 1
		ctl.bufIdx = 0
		ctl.status = statusReady | statusDRQ

	case 0x20, 0x21: // READ SECTORS
		if ctl.device&deviceLBA != deviceLBA || !ctl.loadSector() {
			ctl.abort()
			return
		}
		ctl.remaining = int(ctl.count)
		if ctl.remaining == 0 {
			ctl.remaining = 256
		}
		ctl.bufIdx = 0
		ctl.dir = transferRead
		ctl.status = statusReady | statusDRQ

	case 0x30, 0x31: // WRITE SECTORS
		if ctl.device&deviceLBA != deviceLBA || ctl.lba() >= ctl.sectors {
			ctl.abort()
			return
		}
		ctl.remaining = int(ctl.count)
		if ctl.remaining == 0 {
			ctl.remaining = 256
		}
		ctl.bufIdx = 0
		ctl.dir = transferWrite
		ctl.status = statusReady | statusDRQ

	case 0xef: // SET FEATURES. accepted and ignored
		ctl.status = statusReady

	case 0x91: // INITIALIZE DEVICE PARAMETERS
		ctl.status = statusReady

	default:
		logger.Logf(ctl.trc.Perm(trace.IDE), ctl.label, "unknown command %02x", cmd)
		ctl.abort()
	}
}

// loadSector fills the buffer from the current block address.
func (ctl *Controller) loadSector() bool {
	lba := ctl.lba()
	if lba >= ctl.sectors {
		return false
	}
	if _, err := ctl.file.ReadAt(ctl.buf[:], int64(lba)*SectorSize); err != nil {
		logger.Logf(ctl.trc.Perm(trace.IDE), ctl.label, "read error at lba %d: %v", lba, err)
		return false
	}
	return true
}

func (ctl *Controller) readData() uint8 {
	if ctl.dir != transferRead {
		return 0xff
	}

	r := ctl.buf[ctl.bufIdx]
	ctl.bufIdx++

	if ctl.bufIdx == SectorSize {
		ctl.bufIdx = 0
		ctl.remaining--
		if ctl.remaining > 0 {
			ctl.advance()
			if !ctl.loadSector() {
				ctl.abort()
				return r
			}
		} else {
			ctl.dir = transferNone
			ctl.status = statusReady
		}
	}

	return r
}

func (ctl *Controller) writeData(v uint8) {
	if ctl.dir != transferWrite {
		return
	}

	ctl.buf[ctl.bufIdx] = v
	ctl.bufIdx++

	if ctl.bufIdx == SectorSize {
		ctl.bufIdx = 0

		lba := ctl.lba()
		if _, err := ctl.file.WriteAt(ctl.buf[:], int64(lba)*SectorSize); err != nil {
			logger.Logf(ctl.trc.Perm(trace.IDE), ctl.label, "write error at lba %d: %v", lba, err)
			ctl.abort()
			return
		}

		ctl.remaining--
		if ctl.remaining > 0 {
			ctl.advance()
			if ctl.lba() >= ctl.sectors {
				ctl.abort()
				return
			}
		} else {
			ctl.dir = transferNone
			ctl.status = statusReady
		}
	}
}

// identify fills the buffer with IDENTIFY DEVICE data: byte-wide CF in LBA
// mode with the image's sector count.
func (ctl *Controller) identify() {
	for i := range ctl.buf {
		ctl.buf[i] = 0
	}

	setWord := func(word int, v uint16) {
		ctl.buf[word*2] = uint8(v)
		ctl.buf[word*2+1] = uint8(v >> 8)
	}
	setString := func(word int, length int, s string) {
		// ata strings are packed two characters per word, high byte first
		for i := 0; i < length*2; i++ {
			c := uint8(' ')
			if i < len(s) {
				c = s[i]
			}
			ctl.buf[word*2+(i^1)] = c
		}
	}

	setWord(0, 0x848a) // CF signature
	setWord(47, 0x0001)
	setWord(49, 0x0200) // LBA supported
	setWord(60, uint16(ctl.sectors))
	setWord(61, uint16(ctl.sectors>>16))
	setString(10, 10, "MTX0001")
	setString(23, 4, "1.0")
	setString(27, 20, "MINITX CF CARD")
}
