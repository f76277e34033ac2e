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

// Package memory implements the physical bus of the mini-ITX board: 1MB of
// RAM, 512KB of ROM and the bank decode that selects between them.
//
// Physical addresses are 20 bits wide. Addresses with bit 19 set reference
// the extended half of the map, which is RAM when the bank register's
// extended-memory bit is enabled and open bus otherwise. The base half is
// ROM while the bank register's ROM bit is enabled and RAM otherwise.
//
// The bank decode is evaluated fresh on every access. There is no caching of
// the previous page, so a bank register write takes effect on the very next
// access.
package memory

import (
	"math/rand"
	"os"

	"github.com/jetsetilly/minitx/curated"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/logger"
)

// RAMSize and ROMSize are fixed properties of the board.
const (
	RAMSize = 1024 * 1024
	ROMSize = 512 * 1024
)

// physMask limits physical addresses to 20 bits. extendedBit selects the
// upper half of the physical map.
const (
	physMask    = 0xfffff
	extendedBit = 0x80000
)

// BankSelect is the bank register as seen by the address decoder. It is
// implemented by the PPI, whose port A output latch carries the bank bits.
type BankSelect interface {
	ROMEnabled() bool
	ExtMemEnabled() bool
}

// Translator maps a 16 bit program address onto the 20 bit physical bus. It
// is implemented by the Z180's on-chip MMU.
type Translator interface {
	Translate(addr uint16) uint32
}

// Memory is the physical memory of the machine.
type Memory struct {
	RAM []uint8
	ROM []uint8

	bank BankSelect
	mmu  Translator

	trc *trace.Tracer
}

// NewMemory is the preferred method of initialisation for the Memory type.
// RAM is filled with pseudo-random bytes, as on real hardware where the
// power-on content is unpredictable. The Translator is attached later with
// SetTranslator() because the MMU is itself created after the memory.
func NewMemory(bank BankSelect, trc *trace.Tracer) *Memory {
	mem := &Memory{
		RAM:  make([]uint8, RAMSize),
		ROM:  make([]uint8, ROMSize),
		bank: bank,
		trc:  trc,
	}

	for i := range mem.RAM {
		mem.RAM[i] = uint8(rand.Intn(256))
	}

	return mem
}

// SetTranslator attaches the MMU used for virtual accesses.
func (mem *Memory) SetTranslator(mmu Translator) {
	mem.mmu = mmu
}

// LoadROM fills the ROM from the named file. The image must be exactly
// ROMSize bytes long. Failure to load the ROM is fatal to the emulation.
func (mem *Memory) LoadROM(filename string) error {
	d, err := os.ReadFile(filename)
	if err != nil {
		return curated.Errorf("memory: %v", err)
	}
	if len(d) != ROMSize {
		return curated.Errorf("memory: ROM image should be 512K (is %d bytes)", len(d))
	}
	copy(mem.ROM, d)
	return nil
}

// PhysRead reads a byte from the 20 bit physical bus. Used directly by the
// DMA engines as well as by the virtual accessors.
func (mem *Memory) PhysRead(addr uint32) uint8 {
	addr &= physMask
	if addr&extendedBit == extendedBit {
		if mem.bank.ExtMemEnabled() {
			return mem.RAM[addr]
		}
		return 0xff
	}
	if mem.bank.ROMEnabled() {
		return mem.ROM[addr]
	}
	return mem.RAM[addr]
}

// PhysWrite writes a byte to the 20 bit physical bus. Writes to enabled ROM
// and to disabled extended memory are discarded.
func (mem *Memory) PhysWrite(addr uint32, v uint8) {
	addr &= physMask
	if addr&extendedBit == extendedBit {
		if mem.bank.ExtMemEnabled() {
			mem.RAM[addr] = v
		} else {
			logger.Logf(mem.trc.Perm(trace.Mem), "memory", "%05x: write to disabled extended memory", addr)
		}
		return
	}
	if mem.bank.ROMEnabled() {
		logger.Logf(mem.trc.Perm(trace.Mem), "memory", "%05x: write to ROM", addr)
		return
	}
	mem.RAM[addr] = v
}

// Read a byte from a virtual address. The address is translated by the MMU
// on every call. The quiet argument suppresses the memory trace and is used
// for accesses made by introspection tools rather than genuine execution.
func (mem *Memory) Read(addr uint16, quiet bool) uint8 {
	pa := mem.mmu.Translate(addr) & physMask
	v := mem.PhysRead(pa)
	if !quiet {
		logger.Logf(mem.trc.Perm(trace.Mem), "memory", "R %04x[%05x] -> %02x", addr, pa, v)
	}
	return v
}

// Write a byte to a virtual address. The address is translated by the MMU on
// every call.
func (mem *Memory) Write(addr uint16, v uint8) {
	pa := mem.mmu.Translate(addr) & physMask
	logger.Logf(mem.trc.Perm(trace.Mem), "memory", "W %04x[%05x] <- %02x", addr, pa, v)
	mem.PhysWrite(pa, v)
}
