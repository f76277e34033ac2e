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

// Package z180 emulates the on-chip peripherals of the Z180: the MMU, the
// relocatable internal I/O window, ASCI serial channel 0, the two PRT
// timers, DMA channel 0 and the CSIO clocked serial port. The CPU core
// itself lives in the cpu package; this package is everything inside the
// chip that isn't the execution unit.
//
// The internal register window is 64 bytes, placed in the I/O map by the
// top two bits of the ICR. The port dispatcher offers every I/O address to
// Claims before any external decode.
//
// Interrupts from the on-chip peripherals are delivered through the vector
// table addressed by the I register and the IL register, in the fixed
// priority order of the datasheet. The two external interrupt lines INT1
// and INT2 sit above all internal sources; nothing on this board drives
// them but the plumbing is present.
package z180

import (
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// Serial is the terminal attached to ASCI channel 0.
type Serial interface {
	InputReady() bool
	Input() uint8
	Output(b uint8)
}

// PhysicalBus is the memory system as seen by the DMA engine: 20 bit
// physical addresses, no MMU translation.
type PhysicalBus interface {
	PhysRead(addr uint32) uint8
	PhysWrite(addr uint32, v uint8)
}

// SPI is the serial bridge driven by the CSIO port.
type SPI interface {
	Exchange(b uint8) uint8
}

// InterruptCPU receives vectored interrupts.
type InterruptCPU interface {
	Vector(vector uint8) int
	IFF() (bool, bool)
}

// internal register addresses, relative to the window base.
const (
	regCNTLA0 = 0x00
	regCNTLA1 = 0x01
	regCNTLB0 = 0x02
	regCNTLB1 = 0x03
	regSTAT0  = 0x04
	regSTAT1  = 0x05
	regTDR0   = 0x06
	regTDR1   = 0x07
	regRDR0   = 0x08
	regRDR1   = 0x09
	regCNTR   = 0x0a
	regTRDR   = 0x0b
	regTMDR0L = 0x0c
	regTMDR0H = 0x0d
	regRLDR0L = 0x0e
	regRLDR0H = 0x0f
	regTCR    = 0x10
	regTMDR1L = 0x14
	regTMDR1H = 0x15
	regRLDR1L = 0x16
	regRLDR1H = 0x17
	regFRC    = 0x18
	regSAR0L  = 0x20
	regSAR0H  = 0x21
	regSAR0B  = 0x22
	regDAR0L  = 0x23
	regDAR0H  = 0x24
	regDAR0B  = 0x25
	regBCR0L  = 0x26
	regBCR0H  = 0x27
	regMAR1L  = 0x28
	regMAR1H  = 0x29
	regMAR1B  = 0x2a
	regIAR1L  = 0x2b
	regIAR1H  = 0x2c
	regBCR1L  = 0x2d
	regDSTAT  = 0x2e
	regDMODE  = 0x2f
	regDCNTL  = 0x30
	regIL     = 0x31
	regITC    = 0x32
	regRCR    = 0x34
	regCBR    = 0x38
	regBBR    = 0x39
	regCBAR   = 0x3a
	regOMCR   = 0x3e
	regICR    = 0x3f
)

// ASCI status bits.
const (
	statRDRF = 0x80
	statRIE  = 0x08
	statTDRE = 0x02
	statTIE  = 0x01
)

// CSIO control bits.
const (
	cntrEF  = 0x80
	cntrEIE = 0x40
	cntrRE  = 0x20
	cntrTE  = 0x10
)

// PRT control bits, channel 0 and channel 1.
const (
	tcrTIF1 = 0x80
	tcrTIF0 = 0x40
	tcrTIE1 = 0x20
	tcrTIE0 = 0x10
	tcrTDE1 = 0x02
	tcrTDE0 = 0x01
)

// DMA status bits.
const (
	dstatDE1  = 0x80
	dstatDE0  = 0x40
	dstatDWE1 = 0x20
	dstatDWE0 = 0x10
	dstatDIE1 = 0x08
	dstatDIE0 = 0x04
	dstatDME  = 0x01
)

// ITC enable bits for the external lines.
const (
	itcITE2 = 0x04
	itcITE1 = 0x02
)

// vector table offsets in priority order.
const (
	vecINT1  = 0x00
	vecINT2  = 0x02
	vecPRT0  = 0x04
	vecPRT1  = 0x06
	vecDMA0  = 0x08
	vecCSIO  = 0x0c
	vecASCI0 = 0x0e
)

// the PRT counts at the system clock divided by twenty.
const prtPrescale = 20

// physical addresses are 20 bits.
const physMask = 0xfffff

// number of clock cycles per DMA byte transferred.
const dmaByteCycles = 6

// Controller is the collection of on-chip peripherals.
type Controller struct {
	bus    PhysicalBus
	serial Serial
	spi    SPI
	cpu    InterruptCPU

	// notifies the machine that pending-interrupt status may have changed
	recalc func()

	// asci channel 0. channel 1 registers exist but nothing is attached
	cntla0 uint8
	cntlb0 uint8
	stat0  uint8
	cntla1 uint8
	cntlb1 uint8

	// csio
	cntr uint8
	trdr uint8

	// prt. tmdr and rldr are the 16 bit down counter and reload values
	tmdr     [2]uint16
	rldr     [2]uint16
	tcr      uint8
	prtAccum int

	// free running counter. decrements every ten cycles
	frc      uint8
	frcAccum int

	// dma channel 0. channel 1 registers are storage only
	sar0  uint32
	dar0  uint32
	bcr0  uint16
	mar1  uint32
	iar1  uint32
	bcr1  uint16
	dstat uint8
	dmode uint8
	dcntl uint8

	// set when channel 0 completes with its interrupt enabled. cleared on
	// delivery
	dma0Int bool

	// interrupts
	il  uint8
	itc uint8

	// external interrupt lines. unconnected on this board
	int1 bool
	int2 bool

	// mmu
	cbr  uint8
	bbr  uint8
	cbar uint8

	icr  uint8
	rcr  uint8
	omcr uint8

	trc *trace.Tracer
}

// NewController is the preferred method of initialisation for the Controller
// type. Register values are those the datasheet defines for reset.
func NewController(bus PhysicalBus, serial Serial, spi SPI, trc *trace.Tracer) *Controller {
	return &Controller{
		bus:    bus,
		serial: serial,
		spi:    spi,
		stat0:  statTDRE,
		cntr:   0x07,
		cbar:   0xf0,
		itc:    0x01,
		omcr:   0xff,
		recalc: func() {},
		trc:    trc,
	}
}

// Connect the interrupt consumer and the recalculation hook. Called by the
// machine once everything is built.
func (ctl *Controller) Connect(cpu InterruptCPU, recalc func()) {
	ctl.cpu = cpu
	ctl.recalc = recalc
}

// Claims returns true if the I/O address falls inside the internal register
// window. The window is 64 bytes, placed by the top two bits of the ICR,
// and only decoded when the high address byte is zero.
func (ctl *Controller) Claims(addr uint16) bool {
	return addr&0xffc0 == uint16(ctl.icr&0xc0)
}

// Translate a 16 bit program address to a 20 bit physical address through
// the MMU. The address space splits into common area 0, the bank area and
// common area 1 at the 4K boundaries held in the CBAR.
func (ctl *Controller) Translate(addr uint16) uint32 {
	n := uint8(addr >> 12)

	var base uint32
	if n >= ctl.cbar>>4 {
		base = uint32(ctl.cbr) << 12
	} else if n >= ctl.cbar&0x0f {
		base = uint32(ctl.bbr) << 12
	}

	return (uint32(addr) + base) & physMask
}

// Read an internal register.
func (ctl *Controller) Read(addr uint16) uint8 {
	sub := uint8(addr) & 0x3f
	var r uint8 = 0xff

	switch sub {
	case regCNTLA0:
		r = ctl.cntla0
	case regCNTLA1:
		r = ctl.cntla1
	case regCNTLB0:
		r = ctl.cntlb0
	case regCNTLB1:
		r = ctl.cntlb1
	case regSTAT0:
		r = ctl.stat0 | statTDRE
		if ctl.serial != nil && ctl.serial.InputReady() {
			r |= statRDRF
		}
	case regSTAT1:
		// nothing attached to channel 1. transmitter always empty
		r = statTDRE
	case regRDR0:
		r = 0xff
		if ctl.serial != nil {
			r = ctl.serial.Input()
		}
	case regRDR1:
		r = 0xff
	case regCNTR:
		r = ctl.cntr
	case regTRDR:
		r = ctl.trdr
		ctl.cntr &^= cntrEF
	case regTMDR0L:
		r = uint8(ctl.tmdr[0])
		ctl.tcr &^= tcrTIF0
	case regTMDR0H:
		r = uint8(ctl.tmdr[0] >> 8)
		ctl.tcr &^= tcrTIF0
	case regRLDR0L:
		r = uint8(ctl.rldr[0])
	case regRLDR0H:
		r = uint8(ctl.rldr[0] >> 8)
	case regTCR:
		r = ctl.tcr
	case regTMDR1L:
		r = uint8(ctl.tmdr[1])
		ctl.tcr &^= tcrTIF1
	case regTMDR1H:
		r = uint8(ctl.tmdr[1] >> 8)
		ctl.tcr &^= tcrTIF1
	case regRLDR1L:
		r = uint8(ctl.rldr[1])
	case regRLDR1H:
		r = uint8(ctl.rldr[1] >> 8)
	case regFRC:
		r = ctl.frc
	case regSAR0L:
		r = uint8(ctl.sar0)
	case regSAR0H:
		r = uint8(ctl.sar0 >> 8)
	case regSAR0B:
		r = uint8(ctl.sar0 >> 16)
	case regDAR0L:
		r = uint8(ctl.dar0)
	case regDAR0H:
		r = uint8(ctl.dar0 >> 8)
	case regDAR0B:
		r = uint8(ctl.dar0 >> 16)
	case regBCR0L:
		r = uint8(ctl.bcr0)
	case regBCR0H:
		r = uint8(ctl.bcr0 >> 8)
	case regDSTAT:
		// the write-enable bits read back as ones
		r = ctl.dstat | dstatDWE1 | dstatDWE0
	case regDMODE:
		r = ctl.dmode
	case regDCNTL:
		r = ctl.dcntl
	case regIL:
		r = ctl.il
	case regITC:
		r = ctl.itc
	case regRCR:
		r = ctl.rcr
	case regCBR:
		r = ctl.cbr
	case regBBR:
		r = ctl.bbr
	case regCBAR:
		r = ctl.cbar
	case regOMCR:
		r = ctl.omcr
	case regICR:
		r = ctl.icr
	}

	logger.Logf(ctl.trc.Perm(trace.CPUIO), "z180", "read %02x = %02x", sub, r)
	return r
}

// Write an internal register.
func (ctl *Controller) Write(addr uint16, v uint8) {
	sub := uint8(addr) & 0x3f

	logger.Logf(ctl.trc.Perm(trace.CPUIO), "z180", "write %02x = %02x", sub, v)

	switch sub {
	case regCNTLA0:
		ctl.cntla0 = v
	case regCNTLA1:
		ctl.cntla1 = v
	case regCNTLB0:
		ctl.cntlb0 = v
	case regCNTLB1:
		ctl.cntlb1 = v
	case regSTAT0:
		// only the interrupt enables are writable
		ctl.stat0 = v & (statRIE | statTIE)
		ctl.recalc()
	case regTDR0:
		if ctl.serial != nil {
			ctl.serial.Output(v)
		}
	case regCNTR:
		ctl.cntr = (ctl.cntr & cntrEF) | v&^cntrEF
		ctl.csio()
	case regTRDR:
		ctl.trdr = v
		ctl.cntr &^= cntrEF
	case regTMDR0L:
		ctl.tmdr[0] = ctl.tmdr[0]&0xff00 | uint16(v)
	case regTMDR0H:
		ctl.tmdr[0] = ctl.tmdr[0]&0x00ff | uint16(v)<<8
	case regRLDR0L:
		ctl.rldr[0] = ctl.rldr[0]&0xff00 | uint16(v)
	case regRLDR0H:
		ctl.rldr[0] = ctl.rldr[0]&0x00ff | uint16(v)<<8
	case regTCR:
		// the interrupt flags are not writable
		ctl.tcr = (ctl.tcr & (tcrTIF1 | tcrTIF0)) | v&^(tcrTIF1|tcrTIF0)
		ctl.recalc()
	case regTMDR1L:
		ctl.tmdr[1] = ctl.tmdr[1]&0xff00 | uint16(v)
	case regTMDR1H:
		ctl.tmdr[1] = ctl.tmdr[1]&0x00ff | uint16(v)<<8
	case regRLDR1L:
		ctl.rldr[1] = ctl.rldr[1]&0xff00 | uint16(v)
	case regRLDR1H:
		ctl.rldr[1] = ctl.rldr[1]&0x00ff | uint16(v)<<8
	case regSAR0L:
		ctl.sar0 = ctl.sar0&0xfff00 | uint32(v)
	case regSAR0H:
		ctl.sar0 = ctl.sar0&0xf00ff | uint32(v)<<8
	case regSAR0B:
		ctl.sar0 = ctl.sar0&0x0ffff | uint32(v&0x0f)<<16
	case regDAR0L:
		ctl.dar0 = ctl.dar0&0xfff00 | uint32(v)
	case regDAR0H:
		ctl.dar0 = ctl.dar0&0xf00ff | uint32(v)<<8
	case regDAR0B:
		ctl.dar0 = ctl.dar0&0x0ffff | uint32(v&0x0f)<<16
	case regBCR0L:
		ctl.bcr0 = ctl.bcr0&0xff00 | uint16(v)
	case regBCR0H:
		ctl.bcr0 = ctl.bcr0&0x00ff | uint16(v)<<8
	case regMAR1L:
		ctl.mar1 = ctl.mar1&0xfff00 | uint32(v)
	case regMAR1H:
		ctl.mar1 = ctl.mar1&0xf00ff | uint32(v)<<8
	case regMAR1B:
		ctl.mar1 = ctl.mar1&0x0ffff | uint32(v&0x0f)<<16
	case regIAR1L:
		ctl.iar1 = ctl.iar1&0xfff00 | uint32(v)
	case regIAR1H:
		ctl.iar1 = ctl.iar1&0xf00ff | uint32(v)<<8
	case regBCR1L:
		ctl.bcr1 = ctl.bcr1&0xff00 | uint16(v)
	case regDSTAT:
		ctl.writeDSTAT(v)
	case regDMODE:
		ctl.dmode = v
	case regDCNTL:
		ctl.dcntl = v
	case regIL:
		ctl.il = v & 0xe0
	case regITC:
		ctl.itc = v
		ctl.recalc()
	case regRCR:
		ctl.rcr = v
	case regCBR:
		ctl.cbr = v
	case regBBR:
		ctl.bbr = v
	case regCBAR:
		ctl.cbar = v
	case regOMCR:
		ctl.omcr = v
	case regICR:
		ctl.icr = v
	default:
		logger.Logf(ctl.trc.Perm(trace.CPUIO), "z180", "write to unimplemented register %02x", sub)
	}
}

// writeDSTAT applies the guarded enable-bit encoding: a DE bit only changes
// when its write-enable bit is written as zero.
func (ctl *Controller) writeDSTAT(v uint8) {
	if v&dstatDWE0 == 0 {
		ctl.dstat = (ctl.dstat &^ dstatDE0) | v&dstatDE0
	}
	if v&dstatDWE1 == 0 {
		ctl.dstat = (ctl.dstat &^ dstatDE1) | v&dstatDE1
	}
	ctl.dstat = (ctl.dstat &^ (dstatDIE1 | dstatDIE0)) | v&(dstatDIE1|dstatDIE0)

	if ctl.dstat&(dstatDE1|dstatDE0) != 0 {
		ctl.dstat |= dstatDME
	} else {
		ctl.dstat &^= dstatDME
	}

	ctl.dma0Int = false
}

// csio runs a transfer if the transmitter or receiver has been enabled. The
// bridge is synchronous so the transfer completes immediately: the enables
// clear and the end flag sets.
func (ctl *Controller) csio() {
	if ctl.cntr&(cntrTE|cntrRE) == 0 {
		return
	}

	if ctl.spi != nil {
		ctl.trdr = ctl.spi.Exchange(ctl.trdr)
	} else {
		ctl.trdr = 0xff
	}

	ctl.cntr &^= cntrTE | cntrRE
	ctl.cntr |= cntrEF

	if ctl.cntr&cntrEIE == cntrEIE {
		ctl.recalc()
	}
}

// addrStep moves a DMA address on by one transfer, according to the two
// mode bits: increment, decrement or fixed.
func addrStep(addr uint32, mode uint8) uint32 {
	switch mode {
	case 0:
		return (addr + 1) & physMask
	case 1:
		return (addr - 1) & physMask
	}
	return addr
}

// DMA offers cycles to the DMA engine. Returns the number of cycles
// consumed; zero means the engine is idle and the CPU may run.
//
// In burst mode the whole remaining transfer happens at once and the
// scheduler's cycle accumulator absorbs the cost over the following
// quanta. In cycle-steal mode one byte moves per offer, interleaving with
// CPU instructions.
func (ctl *Controller) DMA() int {
	if ctl.dstat&dstatDME != dstatDME || ctl.dstat&dstatDE0 != dstatDE0 {
		return 0
	}

	if ctl.bcr0 == 0 {
		ctl.complete()
		return 0
	}

	srcMode := ctl.dmode >> 2 & 0x03
	dstMode := ctl.dmode >> 4 & 0x03
	burst := ctl.dmode&0x02 == 0x02

	cycles := 0
	for {
		ctl.bus.PhysWrite(ctl.dar0, ctl.bus.PhysRead(ctl.sar0))
		ctl.sar0 = addrStep(ctl.sar0, srcMode)
		ctl.dar0 = addrStep(ctl.dar0, dstMode)
		ctl.bcr0--
		cycles += dmaByteCycles

		if ctl.bcr0 == 0 {
			ctl.complete()
			break
		}
		if !burst {
			break
		}
	}

	return cycles
}

// complete ends the channel 0 transfer.
func (ctl *Controller) complete() {
	ctl.dstat &^= dstatDE0
	if ctl.dstat&dstatDE1 != dstatDE1 {
		ctl.dstat &^= dstatDME
	}

	logger.Log(ctl.trc.Perm(trace.CPUIO), "z180", "dma channel 0 complete")

	if ctl.dstat&dstatDIE0 == dstatDIE0 {
		ctl.dma0Int = true
		ctl.recalc()
	}
}

// Tick advances the clocked peripherals by the given number of cycles: the
// PRT down-counters at the fixed prescale, the free running counter, and
// the ASCI receive poll.
func (ctl *Controller) Tick(cycles int) {
	ctl.prtAccum += cycles
	ticks := ctl.prtAccum / prtPrescale
	ctl.prtAccum %= prtPrescale

	if ticks > 0 {
		ctl.prt(0, tcrTDE0, tcrTIF0, tcrTIE0, ticks)
		ctl.prt(1, tcrTDE1, tcrTIF1, tcrTIE1, ticks)
	}

	ctl.frcAccum += cycles
	ctl.frc -= uint8(ctl.frcAccum / 10)
	ctl.frcAccum %= 10

	if ctl.stat0&statRIE == statRIE && ctl.serial != nil && ctl.serial.InputReady() {
		ctl.recalc()
	}
}

// prt advances one timer channel.
func (ctl *Controller) prt(ch int, tde uint8, tif uint8, tie uint8, ticks int) {
	if ctl.tcr&tde != tde {
		return
	}

	if int(ctl.tmdr[ch]) > ticks {
		ctl.tmdr[ch] -= uint16(ticks)
		return
	}

	ctl.tmdr[ch] = ctl.rldr[ch]
	ctl.tcr |= tif

	if ctl.tcr&tie == tie {
		ctl.recalc()
	}
}

// Poll finds the highest priority pending interrupt and, if the CPU will
// take it, delivers the vector. Returns the cycles consumed by the
// acknowledge, or zero.
func (ctl *Controller) Poll() int {
	if ctl.cpu == nil {
		return 0
	}

	offset, ok := ctl.pending()
	if !ok {
		return 0
	}

	vector := ctl.il | offset
	cycles := ctl.cpu.Vector(vector)
	if cycles == 0 {
		return 0
	}

	logger.Logf(ctl.trc.Perm(trace.IRQ), "z180", "interrupt vector %02x", vector)

	if offset == vecDMA0 {
		ctl.dma0Int = false
	}

	return cycles
}

// pending returns the vector offset of the highest priority source with an
// interrupt condition, in the datasheet's order.
func (ctl *Controller) pending() (uint8, bool) {
	if ctl.int1 && ctl.itc&itcITE1 == itcITE1 {
		return vecINT1, true
	}
	if ctl.int2 && ctl.itc&itcITE2 == itcITE2 {
		return vecINT2, true
	}
	if ctl.tcr&tcrTIF0 == tcrTIF0 && ctl.tcr&tcrTIE0 == tcrTIE0 {
		return vecPRT0, true
	}
	if ctl.tcr&tcrTIF1 == tcrTIF1 && ctl.tcr&tcrTIE1 == tcrTIE1 {
		return vecPRT1, true
	}
	if ctl.dma0Int {
		return vecDMA0, true
	}
	if ctl.cntr&cntrEF == cntrEF && ctl.cntr&cntrEIE == cntrEIE {
		return vecCSIO, true
	}
	if ctl.stat0&statRIE == statRIE && ctl.serial != nil && ctl.serial.InputReady() {
		return vecASCI0, true
	}
	if ctl.stat0&statTIE == statTIE {
		// the transmitter is always empty
		return vecASCI0, true
	}
	return 0, false
}

// SetINT1 drives the external INT1 line.
func (ctl *Controller) SetINT1(asserted bool) {
	ctl.int1 = asserted
	ctl.recalc()
}

// SetINT2 drives the external INT2 line.
func (ctl *Controller) SetINT2(asserted bool) {
	ctl.int2 = asserted
	ctl.recalc()
}
