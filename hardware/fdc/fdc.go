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

// Package fdc emulates the uPD765 floppy controller and its two drives, in
// non-DMA mode: the host reads and writes the data register byte by byte
// during the execution phase and ends a transfer with the terminal count
// port.
//
// The command subset is what disk firmware actually issues: SPECIFY,
// RECALIBRATE, SEEK, SENSE INTERRUPT STATUS, SENSE DRIVE STATUS, READ DATA,
// WRITE DATA and READ ID. Anything else takes the documented invalid-command
// path (ST0 = 0x80).
//
// Drives hold raw sector images. Each drive carries its own geometry, taken
// from the image size at attach time.
package fdc

import (
	"os"

	"github.com/jetsetilly/minitx/curated"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// SectorSize in bytes. Fixed for the 3.5 inch media this board uses.
const SectorSize = 512

// drive geometry, also fixed by the media type.
const (
	numCylinders = 80
	numHeads     = 2
)

// register sub-addresses.
const (
	subStatus = iota
	subData
	subDOR
	subDCR
	subTC
	subReset
)

// main status register bits.
const (
	msrRQM = 0x80 // ready to move a byte
	msrDIO = 0x40 // set when the byte moves controller to host
	msrEXM = 0x20 // execution phase, non-DMA
	msrCB  = 0x10 // command in progress
)

// status register 0 bits.
const (
	st0SeekEnd  = 0x20
	st0Abnormal = 0x40
	st0Invalid  = 0x80
)

// status register 1 bits.
const st1NoData = 0x04

// controller phases.
type phase int

const (
	phaseIdle phase = iota
	phaseCommand
	phaseExecRead
	phaseExecWrite
	phaseResult
)

// Drive is one floppy drive, possibly with an image attached.
type Drive struct {
	label string
	file  *os.File

	// sectors per track, derived from the image size
	sectors int

	// current cylinder
	track int

	motor bool
}

// NewDrive is the preferred method of initialisation for the Drive type.
func NewDrive(label string) *Drive {
	return &Drive{label: label}
}

// Attach the named image file to the drive. The sectors-per-track count
// comes from the image size and the fixed cylinder and head counts.
func (drv *Drive) Attach(filename string) error {
	f, err := os.OpenFile(filename, os.O_RDWR, 0)
	if err != nil {
		return curated.Errorf("fdc: %v", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return curated.Errorf("fdc: %v", err)
	}

	sectors := int(fi.Size()) / (numCylinders * numHeads * SectorSize)
	if sectors == 0 {
		f.Close()
		return curated.Errorf("fdc: %v: image too small for media type", filename)
	}

	drv.file = f
	drv.sectors = sectors
	return nil
}

// Release the image file.
func (drv *Drive) Release() {
	if drv.file != nil {
		drv.file.Close()
		drv.file = nil
	}
}

// Attached returns true when the drive holds an image.
func (drv *Drive) Attached() bool {
	return drv.file != nil
}

// offset of a sector in the image.
func (drv *Drive) offset(cylinder int, head int, sector int) int64 {
	return int64(((cylinder*numHeads)+head)*drv.sectors+(sector-1)) * SectorSize
}

// valid returns true when the address names a sector inside the image.
func (drv *Drive) valid(cylinder int, head int, sector int) bool {
	return drv.file != nil &&
		cylinder >= 0 && cylinder < numCylinders &&
		head >= 0 && head < numHeads &&
		sector >= 1 && sector <= drv.sectors
}

// FDC is the floppy controller and its two drives.
type FDC struct {
	drives [2]*Drive

	dor uint8
	dcr uint8

	phase phase

	// command accumulator. the longest command is nine bytes
	cmd    [9]uint8
	cmdLen int

	// execution phase buffer
	exec    []uint8
	execIdx int

	// write-back position for the execution buffer
	writeDrive *Drive
	writeAddr  int64

	// result bytes, drained through the data register
	result []uint8

	// a seek or recalibrate in flight, per drive. the value is the target
	// cylinder plus one; zero means no seek
	seeking [2]int

	// interrupt status awaiting a SENSE INTERRUPT, per drive
	intPending [2]bool
	intST0     [2]uint8

	trc *trace.Tracer
}

// NewFDC is the preferred method of initialisation for the FDC type.
func NewFDC(trc *trace.Tracer) *FDC {
	return &FDC{
		drives: [2]*Drive{NewDrive("fd0"), NewDrive("fd1")},
		trc:    trc,
	}
}

// Drive returns the numbered drive so that images can be attached.
func (fdc *FDC) Drive(n int) *Drive {
	return fdc.drives[n&1]
}

// Release all attached images.
func (fdc *FDC) Release() {
	fdc.drives[0].Release()
	fdc.drives[1].Release()
}

// Reset returns the controller to the idle phase. Drive state survives.
func (fdc *FDC) Reset() {
	fdc.phase = phaseIdle
	fdc.cmdLen = 0
	fdc.exec = nil
	fdc.result = nil
	fdc.seeking = [2]int{}
	fdc.intPending = [2]bool{}
}

// Tick advances drive mechanics. Seeks move one cylinder per tick and raise
// the seek-end interrupt condition on arrival.
func (fdc *FDC) Tick() {
	for n := range fdc.drives {
		if fdc.seeking[n] == 0 {
			continue
		}

		drv := fdc.drives[n]
		target := fdc.seeking[n] - 1

		if drv.track < target {
			drv.track++
		} else if drv.track > target {
			drv.track--
		}

		if drv.track == target {
			fdc.seeking[n] = 0
			fdc.intPending[n] = true
			fdc.intST0[n] = st0SeekEnd | uint8(n)
			logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "drive %d seek complete at cylinder %d", n, target)
		}
	}
}

// Read a controller register. The sub-address is the port address with the
// range base already stripped.
func (fdc *FDC) Read(sub uint8) uint8 {
	var r uint8 = 0x78

	switch sub {
	case subStatus:
		r = fdc.msr()
	case subData:
		r = fdc.readData()
	case subTC, subReset:
		// readable but meaningless
	default:
		logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "bogus read of %d", sub)
	}

	logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "read %d = %02x", sub, r)
	return r
}

// Write a controller register.
func (fdc *FDC) Write(sub uint8, v uint8) {
	logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "write %d = %02x", sub, v)

	switch sub {
	case subData:
		fdc.writeData(v)
	case subDOR:
		fdc.writeDOR(v)
	case subDCR:
		fdc.dcr = v
	case subTC:
		fdc.terminalCount()
	case subReset:
		fdc.Reset()
	default:
		logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "bogus write of %02x to %d", v, sub)
	}
}

// msr composes the main status register for the current phase.
func (fdc *FDC) msr() uint8 {
	var r uint8

	switch fdc.phase {
	case phaseIdle:
		r = msrRQM
	case phaseCommand:
		r = msrRQM | msrCB
	case phaseExecRead:
		r = msrRQM | msrDIO | msrEXM | msrCB
	case phaseExecWrite:
		r = msrRQM | msrEXM | msrCB
	case phaseResult:
		r = msrRQM | msrDIO | msrCB
	}

	// drives with a seek in flight show in the low bits
	for n := range fdc.seeking {
		if fdc.seeking[n] != 0 {
			r |= 1 << n
		}
	}

	return r
}

// writeDOR handles the digital output register: software reset and the two
// motor enables.
func (fdc *FDC) writeDOR(v uint8) {
	if fdc.dor&0x04 == 0x04 && v&0x04 == 0 {
		fdc.Reset()
	}
	fdc.dor = v
	fdc.drives[0].motor = v&0x10 == 0x10
	fdc.drives[1].motor = v&0x20 == 0x20
}

// command byte counts, by the low five bits of the first command byte.
func commandLength(op uint8) int {
	switch op {
	case 0x03: // specify
		return 3
	case 0x04: // sense drive status
		return 2
	case 0x05, 0x06: // write data, read data
		return 9
	case 0x07: // recalibrate
		return 2
	case 0x08: // sense interrupt status
		return 1
	case 0x0a: // read id
		return 2
	case 0x0f: // seek
		return 3
	}
	return 1
}

func (fdc *FDC) writeData(v uint8) {
	switch fdc.phase {
	case phaseIdle, phaseCommand:
		fdc.cmd[fdc.cmdLen] = v
		fdc.cmdLen++
		fdc.phase = phaseCommand
		if fdc.cmdLen == commandLength(fdc.cmd[0]&0x1f) {
			fdc.cmdLen = 0
			fdc.execute()
		}

	case phaseExecWrite:
		fdc.exec[fdc.execIdx] = v
		fdc.execIdx++
		if fdc.execIdx == len(fdc.exec) {
			fdc.flushWrite()
		}
	}
}

func (fdc *FDC) readData() uint8 {
	switch fdc.phase {
	case phaseExecRead:
		r := fdc.exec[fdc.execIdx]
		fdc.execIdx++
		if fdc.execIdx == len(fdc.exec) {
			fdc.endTransfer()
		}
		return r

	case phaseResult:
		r := fdc.result[0]
		fdc.result = fdc.result[1:]
		if len(fdc.result) == 0 {
			fdc.phase = phaseIdle
		}
		return r
	}

	return 0xff
}

// terminalCount ends the execution phase early.
func (fdc *FDC) terminalCount() {
	switch fdc.phase {
	case phaseExecRead:
		fdc.endTransfer()
	case phaseExecWrite:
		fdc.flushWrite()
	}
}

// endTransfer closes a read execution phase with a success result.
func (fdc *FDC) endTransfer() {
	fdc.transferResult(0, 0)
}

// flushWrite writes back whatever the host supplied and closes the write
// execution phase.
func (fdc *FDC) flushWrite() {
	if fdc.execIdx > 0 {
		if _, err := fdc.writeDrive.file.WriteAt(fdc.exec[:fdc.execIdx], fdc.writeAddr); err != nil {
			logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "write error: %v", err)
			fdc.transferResult(st0Abnormal, st1NoData)
			return
		}
	}
	fdc.transferResult(0, 0)
}

// transferResult enters the result phase for a read or write command.
func (fdc *FDC) transferResult(st0 uint8, st1 uint8) {
	drive := fdc.cmd[1] & 0x01
	head := fdc.cmd[1] >> 2 & 0x01

	fdc.exec = nil
	fdc.execIdx = 0
	fdc.result = []uint8{
		st0 | head<<2 | drive,
		st1,
		0x00,
		fdc.cmd[2], // cylinder
		fdc.cmd[3], // head
		fdc.cmd[4], // sector
		fdc.cmd[5], // size code
	}
	fdc.phase = phaseResult
}

// abnormalResult enters the result phase when a transfer could not start.
func (fdc *FDC) abnormalResult() {
	fdc.transferResult(st0Abnormal, st1NoData)
}

func (fdc *FDC) execute() {
	op := fdc.cmd[0] & 0x1f

	logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "command %02x", op)

	switch op {
	case 0x03: // specify. step and load times don't matter here
		fdc.phase = phaseIdle

	case 0x04: // sense drive status
		fdc.senseDriveStatus()

	case 0x05: // write data
		fdc.beginTransfer(true)

	case 0x06: // read data
		fdc.beginTransfer(false)

	case 0x07: // recalibrate
		n := fdc.cmd[1] & 0x01
		fdc.seeking[n] = 1
		fdc.phase = phaseIdle

	case 0x08: // sense interrupt status
		fdc.senseInterrupt()

	case 0x0a: // read id
		fdc.readID()

	case 0x0f: // seek
		n := fdc.cmd[1] & 0x01
		fdc.seeking[n] = int(fdc.cmd[2]) + 1
		fdc.phase = phaseIdle

	default:
		fdc.result = []uint8{st0Invalid}
		fdc.phase = phaseResult
	}
}

func (fdc *FDC) senseDriveStatus() {
	n := fdc.cmd[1] & 0x01
	drv := fdc.drives[n]

	// two-sided media, drive ready when an image is attached
	var st3 uint8 = fdc.cmd[1]&0x07 | 0x08
	if drv.Attached() {
		st3 |= 0x20
	}
	if drv.track == 0 {
		st3 |= 0x10
	}

	fdc.result = []uint8{st3}
	fdc.phase = phaseResult
}

func (fdc *FDC) senseInterrupt() {
	for n := range fdc.intPending {
		if fdc.intPending[n] {
			fdc.intPending[n] = false
			fdc.result = []uint8{fdc.intST0[n], uint8(fdc.drives[n].track)}
			fdc.phase = phaseResult
			return
		}
	}

	// nothing pending: the documented invalid response
	fdc.result = []uint8{st0Invalid}
	fdc.phase = phaseResult
}

func (fdc *FDC) readID() {
	n := fdc.cmd[1] & 0x01
	head := fdc.cmd[1] >> 2 & 0x01
	drv := fdc.drives[n]

	if !drv.Attached() {
		fdc.abnormalResult()
		return
	}

	// the first sector of the current track
	fdc.result = []uint8{
		head<<2 | n,
		0x00,
		0x00,
		uint8(drv.track),
		head,
		0x01,
		0x02,
	}
	fdc.phase = phaseResult
}

// beginTransfer starts a read or write execution phase covering the
// requested sector through the end-of-track sector.
func (fdc *FDC) beginTransfer(write bool) {
	n := fdc.cmd[1] & 0x01
	drv := fdc.drives[n]

	cylinder := int(fdc.cmd[2])
	head := int(fdc.cmd[3])
	sector := int(fdc.cmd[4])
	eot := int(fdc.cmd[6])

	if !drv.valid(cylinder, head, sector) || eot < sector {
		fdc.abnormalResult()
		return
	}
	if eot > drv.sectors {
		eot = drv.sectors
	}

	count := eot - sector + 1
	addr := drv.offset(cylinder, head, sector)
	fdc.exec = make([]uint8, count*SectorSize)
	fdc.execIdx = 0

	if write {
		fdc.writeDrive = drv
		fdc.writeAddr = addr
		fdc.phase = phaseExecWrite
		return
	}

	if _, err := drv.file.ReadAt(fdc.exec, addr); err != nil {
		logger.Logf(fdc.trc.Perm(trace.FDC), "fdc", "read error: %v", err)
		fdc.abnormalResult()
		return
	}
	fdc.phase = phaseExecRead
}
