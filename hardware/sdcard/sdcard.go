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

// Package sdcard emulates a standard-capacity SD card in SPI mode, backed by
// a raw image file. The protocol subset is what small machine firmware
// actually uses: reset and initialisation (CMD0, CMD8, CMD55/ACMD41, CMD58),
// register reads (CMD9, CMD13, CMD16) and single block transfer (CMD17,
// CMD24). Addresses are byte addresses, as for all standard-capacity cards.
//
// The card implements the spi package's Device interface. It only responds
// while its chip select is low.
package sdcard

import (
	"os"

	"github.com/jetsetilly/minitx/curated"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// BlockSize is the only block length the card accepts.
const BlockSize = 512

// r1 response bits.
const (
	r1Idle       = 0x01
	r1IllegalCmd = 0x04
	r1ParamError = 0x40
)

// data tokens.
const (
	tokenStart    = 0xfe
	tokenAccepted = 0x05
	tokenReadErr  = 0x08
)

// write phases.
type writePhase int

const (
	writeNone writePhase = iota
	writeToken
	writeData
)

// Card is an SD card in SPI mode.
type Card struct {
	label string
	file  *os.File
	size  int64

	// low chip select means the card is listening
	selected bool

	// the card starts in the idle state and leaves it on ACMD41
	idle bool

	// the next command is application-specific (preceded by CMD55)
	acmd bool

	// command frame accumulator. commands are 6 bytes
	cmd    [6]uint8
	cmdLen int

	// queued response bytes, returned one per exchange
	resp []uint8

	// single block write state
	write     writePhase
	writeAddr int64
	writeBuf  []uint8

	trc *trace.Tracer
}

// NewCard is the preferred method of initialisation for the Card type. The
// label appears in log entries.
func NewCard(label string, trc *trace.Tracer) *Card {
	return &Card{
		label: label,
		idle:  true,
		trc:   trc,
	}
}

// Attach the named image file to the card. The file is opened read/write and
// must be seekable.
func (crd *Card) Attach(filename string) error {
	f, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return curated.Errorf("sdcard: %v", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return curated.Errorf("sdcard: %v", err)
	}
	crd.file = f
	crd.size = fi.Size()
	return nil
}

// Release the image file.
func (crd *Card) Release() {
	if crd.file != nil {
		crd.file.Close()
		crd.file = nil
	}
}

// LowerCS implements the spi package's Device interface.
func (crd *Card) LowerCS() {
	logger.Log(crd.trc.Perm(trace.SD), crd.label, "select")
	crd.selected = true
	crd.cmdLen = 0
	crd.write = writeNone
}

// RaiseCS implements the spi package's Device interface.
func (crd *Card) RaiseCS() {
	logger.Log(crd.trc.Perm(trace.SD), crd.label, "deselect")
	crd.selected = false
}

// Exchange implements the spi package's Device interface. Every byte clocked
// out of the host clocks one byte back in.
func (crd *Card) Exchange(b uint8) uint8 {
	if !crd.selected {
		return 0xff
	}

	// block write data takes priority over everything. the host is clocking
	// raw data, not commands
	if crd.write != writeNone {
		return crd.writeByte(b)
	}

	// drain any queued response
	if len(crd.resp) > 0 {
		r := crd.resp[0]
		crd.resp = crd.resp[1:]
		return r
	}

	// accumulate a command frame. the first byte of a frame has the 0x40
	// marker bits; anything else between frames is just clocking
	if crd.cmdLen == 0 && b&0xc0 != 0x40 {
		return 0xff
	}

	crd.cmd[crd.cmdLen] = b
	crd.cmdLen++
	if crd.cmdLen == 6 {
		crd.cmdLen = 0
		crd.execute()
	}

	return 0xff
}

// respond queues response bytes preceded by the customary one byte delay.
func (crd *Card) respond(b ...uint8) {
	crd.resp = append(crd.resp, 0xff)
	crd.resp = append(crd.resp, b...)
}

// r1 composes the leading response byte.
func (crd *Card) r1(bits uint8) uint8 {
	if crd.idle {
		bits |= r1Idle
	}
	return bits
}

func (crd *Card) execute() {
	cmd := crd.cmd[0] & 0x3f
	arg := int64(crd.cmd[1])<<24 | int64(crd.cmd[2])<<16 | int64(crd.cmd[3])<<8 | int64(crd.cmd[4])

	logger.Logf(crd.trc.Perm(trace.SD), crd.label, "CMD%d %08x", cmd, arg)

	app := crd.acmd
	crd.acmd = false

	if app {
		switch cmd {
		case 41: // SEND_OP_COND. initialisation is instantaneous
			crd.idle = false
			crd.respond(crd.r1(0))
		default:
			crd.respond(crd.r1(r1IllegalCmd))
		}
		return
	}

	switch cmd {
	case 0: // GO_IDLE_STATE
		crd.idle = true
		crd.respond(crd.r1(0))
	case 8: // SEND_IF_COND. R7: echo the check pattern back
		crd.respond(crd.r1(0), 0x00, 0x00, crd.cmd[3], crd.cmd[4])
	case 9: // SEND_CSD
		crd.respond(crd.r1(0), tokenStart)
		crd.resp = append(crd.resp, crd.csd()...)
		crd.resp = append(crd.resp, 0xff, 0xff) // crc
	case 13: // SEND_STATUS. R2
		crd.respond(crd.r1(0), 0x00)
	case 16: // SET_BLOCKLEN
		if arg == BlockSize {
			crd.respond(crd.r1(0))
		} else {
			crd.respond(crd.r1(r1ParamError))
		}
	case 17: // READ_SINGLE_BLOCK
		crd.readBlock(arg)
	case 24: // WRITE_BLOCK
		crd.respond(crd.r1(0))
		crd.write = writeToken
		crd.writeAddr = arg
		crd.writeBuf = crd.writeBuf[:0]
	case 55: // APP_CMD
		crd.acmd = true
		crd.respond(crd.r1(0))
	case 58: // READ_OCR. not a high capacity card
		crd.respond(crd.r1(0), 0x00, 0xff, 0x80, 0x00)
	default:
		crd.respond(crd.r1(r1IllegalCmd))
	}
}

func (crd *Card) readBlock(addr int64) {
	buf := make([]uint8, BlockSize)
	if _, err := crd.file.ReadAt(buf, addr); err != nil {
		logger.Logf(crd.trc.Perm(trace.SD), crd.label, "read error at %08x: %v", addr, err)
		crd.respond(crd.r1(0), tokenReadErr)
		return
	}
	crd.respond(crd.r1(0), tokenStart)
	crd.resp = append(crd.resp, buf...)
	crd.resp = append(crd.resp, 0xff, 0xff) // crc
}

func (crd *Card) writeByte(b uint8) uint8 {
	switch crd.write {
	case writeToken:
		if b == tokenStart {
			crd.write = writeData
		}
	case writeData:
		crd.writeBuf = append(crd.writeBuf, b)
		if len(crd.writeBuf) == BlockSize+2 { // data plus crc
			crd.write = writeNone
			if _, err := crd.file.WriteAt(crd.writeBuf[:BlockSize], crd.writeAddr); err != nil {
				logger.Logf(crd.trc.Perm(trace.SD), crd.label, "write error at %08x: %v", crd.writeAddr, err)
			}
			crd.respond(tokenAccepted, 0x00)
		}
	}
	return 0xff
}

// csd composes a version 1 CSD register describing the attached image. The
// geometry is expressed as (C_SIZE+1) * 2^(C_SIZE_MULT+2) blocks of
// 2^READ_BL_LEN bytes, with READ_BL_LEN fixed at 9 and C_SIZE_MULT at 7.
func (crd *Card) csd() []uint8 {
	csize := crd.size / (256 * 1024)
	if csize > 0 {
		csize--
	}
	if csize > 0xfff {
		csize = 0xfff
	}

	csd := make([]uint8, 16)
	csd[0] = 0x00                    // CSD structure v1
	csd[3] = 0x32                    // transfer speed 25MHz
	csd[4] = 0x5b                    // command classes
	csd[5] = 0x59                    // read block length 2^9
	csd[6] = 0x80 | uint8(csize>>10) // c_size high bits
	csd[7] = uint8(csize >> 2)
	csd[8] = uint8(csize<<6) | 0x3f // c_size low bits
	csd[9] = 0xfb                   // c_size_mult high
	csd[10] = 0x80                  // c_size_mult low
	csd[13] = 0x40                  // write block length 2^9
	return csd
}
