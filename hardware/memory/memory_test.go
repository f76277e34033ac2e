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

package memory_test

import (
	"testing"

	"github.com/jetsetilly/minitx/hardware/memory"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/test"
)

// mockBank stands in for the PPI's bank register.
type mockBank struct {
	rom bool
	ext bool
}

func (b *mockBank) ROMEnabled() bool {
	return b.rom
}

func (b *mockBank) ExtMemEnabled() bool {
	return b.ext
}

// identity stands in for the MMU.
type identity struct{}

func (_ identity) Translate(addr uint16) uint32 {
	return uint32(addr)
}

func TestDisabledExtendedMemory(t *testing.T) {
	bank := &mockBank{rom: true, ext: false}
	mem := memory.NewMemory(bank, trace.NewTracer(0))
	mem.SetTranslator(identity{})

	// reads from the extended half return open bus while the enable bit is
	// clear. a write attempt is a no-op
	test.Equate(t, mem.PhysRead(0x80000), 0xff)
	mem.PhysWrite(0x80000, 0x55)
	test.Equate(t, mem.PhysRead(0x80000), 0xff)

	// enabling extended memory exposes the underlying RAM
	bank.ext = true
	mem.PhysWrite(0x80000, 0x55)
	test.Equate(t, mem.PhysRead(0x80000), 0x55)

	// and disabling it again hides the written value without destroying it
	bank.ext = false
	test.Equate(t, mem.PhysRead(0x80000), 0xff)
	bank.ext = true
	test.Equate(t, mem.PhysRead(0x80000), 0x55)
}

func TestBankToggle(t *testing.T) {
	bank := &mockBank{rom: true, ext: false}
	mem := memory.NewMemory(bank, trace.NewTracer(0))
	mem.SetTranslator(identity{})

	mem.ROM[0x1000] = 0xaa
	mem.RAM[0x1000] = 0xbb

	// no caching lag. the bank decode is evaluated fresh on every access
	test.Equate(t, mem.PhysRead(0x1000), 0xaa)
	bank.rom = false
	test.Equate(t, mem.PhysRead(0x1000), 0xbb)
	bank.rom = true
	test.Equate(t, mem.PhysRead(0x1000), 0xaa)
}

func TestROMWriteDiscarded(t *testing.T) {
	bank := &mockBank{rom: true, ext: false}
	mem := memory.NewMemory(bank, trace.NewTracer(0))
	mem.SetTranslator(identity{})

	mem.ROM[0x2000] = 0x12
	prev := mem.RAM[0x2000]

	// a write targeting enabled ROM is discarded. neither ROM nor the RAM
	// behind it changes
	mem.PhysWrite(0x2000, 0x34)
	test.Equate(t, mem.PhysRead(0x2000), 0x12)
	bank.rom = false
	test.Equate(t, mem.PhysRead(0x2000), prev)
}

func TestAddressMasking(t *testing.T) {
	bank := &mockBank{rom: false, ext: true}
	mem := memory.NewMemory(bank, trace.NewTracer(0))
	mem.SetTranslator(identity{})

	// addresses are masked to 20 bits before indexing
	mem.PhysWrite(0x100123, 0x77)
	test.Equate(t, mem.PhysRead(0x00123), 0x77)
}

func TestVirtualAccess(t *testing.T) {
	bank := &mockBank{rom: false, ext: false}
	mem := memory.NewMemory(bank, trace.NewTracer(0))
	mem.SetTranslator(identity{})

	mem.Write(0x8000, 0x42)
	test.Equate(t, mem.Read(0x8000, false), 0x42)
	test.Equate(t, mem.Read(0x8000, true), 0x42)
}
