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

package cpu_test

import (
	"testing"

	"github.com/jetsetilly/minitx/hardware/cpu"
	"github.com/jetsetilly/minitx/test"
)

// testBus is a flat 64k of memory that records which bytes were read as
// opcode fetches.
type testBus struct {
	mem     [0x10000]uint8
	fetched []uint8
}

func (b *testBus) CPURead(addr uint16, m1 bool) uint8 {
	if m1 {
		b.fetched = append(b.fetched, b.mem[addr])
	}
	return b.mem[addr]
}

func (b *testBus) CPUWrite(addr uint16, v uint8) {
	b.mem[addr] = v
}

func (b *testBus) PortRead(port uint8) uint8 {
	return 0xff
}

func (b *testBus) PortWrite(port uint8, v uint8) {
}

func (b *testBus) Peek(addr uint16) uint8 {
	return b.mem[addr]
}

func (b *testBus) load(addr uint16, program ...uint8) {
	copy(b.mem[addr:], program)
}

func TestCycleCounting(t *testing.T) {
	bus := &testBus{}
	bus.load(0,
		0x00,             //             nop
		0x01, 0x02, 0x00, // ld bc,2
		0xaf,       //             xor a
		0x28, 0x01, //       jr z,+1 (taken)
		0x00,       //             (skipped)
		0x20, 0x01, //       jr nz,+1 (not taken)
		0x21, 0x00, 0x20, // ld hl,2000h
		0x11, 0x00, 0x30, // ld de,3000h
		0xcb, 0x27, //       sla a
		0xdd, 0x21, 0x00, 0x40, // ld ix,4000h
		0xed, 0xb0, //       ldir
		0x76, //             halt
	)

	mc := cpu.NewCPU(bus)
	mc.Reset()

	// the two ldir entries are the repeating and completing iterations. the
	// two trailing entries show a halted CPU burning cycles
	for _, expected := range []int{4, 10, 4, 12, 7, 10, 10, 8, 14, 21, 16, 4, 4} {
		test.Equate(t, mc.Step(), expected)
	}

	test.Equate(t, mc.Halted(), true)
}

func TestFetchClassification(t *testing.T) {
	bus := &testBus{}
	bus.load(0,
		0x3e, 0x4d, //             ld a,4dh
		0xdd, 0x21, 0x00, 0x40, // ld ix,4000h
		0xed, 0x44, //             neg
	)

	mc := cpu.NewCPU(bus)
	mc.Reset()

	mc.Step()
	mc.Step()
	mc.Step()

	// prefix and opcode bytes are fetches. operands, including the 0x4d that
	// shadows the second byte of RETI, are not
	expected := []uint8{0x3e, 0xdd, 0x21, 0xed, 0x44}
	test.Equate(t, len(bus.fetched), len(expected))
	for i := range expected {
		test.Equate(t, bus.fetched[i], expected[i])
	}
}

func TestVectorDelivery(t *testing.T) {
	bus := &testBus{}
	bus.load(0,
		0x31, 0x00, 0x80, // ld sp,8000h
		0x3e, 0x40, //       ld a,40h
		0xed, 0x47, //       ld i,a
		0xfb, //             ei
		0x00, //             nop
	)

	// handler address in the vector table at 4010h
	bus.load(0x4010, 0x00, 0x50)

	mc := cpu.NewCPU(bus)
	mc.Reset()

	mc.Step() // ld sp
	mc.Step() // ld a
	mc.Step() // ld i,a

	// interrupts are still disabled
	test.Equate(t, mc.Vector(0x10), 0)

	// and not accepted immediately after ei either
	mc.Step()
	test.Equate(t, mc.Vector(0x10), 0)

	// the instruction after ei has run. acceptance pushes the return address
	// and takes the handler from the table
	mc.Step()
	test.Equate(t, mc.Vector(0x10), 19)
	test.Equate(t, mc.PC(), 0x5000)
	test.Equate(t, bus.mem[0x7fff], 0x00)
	test.Equate(t, bus.mem[0x7ffe], 0x09)

	iff1, iff2 := mc.IFF()
	test.Equate(t, iff1, false)
	test.Equate(t, iff2, false)
}

func TestVectorWakesHalt(t *testing.T) {
	bus := &testBus{}
	bus.load(0,
		0x31, 0x00, 0x80, // ld sp,8000h
		0x3e, 0x40, //       ld a,40h
		0xed, 0x47, //       ld i,a
		0xfb, //             ei
		0x00, //             nop
		0x76, //             halt
	)
	bus.load(0x4000, 0x00, 0x60)

	mc := cpu.NewCPU(bus)
	mc.Reset()

	for i := 0; i < 6; i++ {
		mc.Step()
	}
	test.Equate(t, mc.Halted(), true)

	// waking pushes the address of the instruction after the halt
	test.Equate(t, mc.Vector(0x00), 19)
	test.Equate(t, mc.Halted(), false)
	test.Equate(t, mc.PC(), 0x6000)
	test.Equate(t, bus.mem[0x7fff], 0x00)
	test.Equate(t, bus.mem[0x7ffe], 0x0a)
}
