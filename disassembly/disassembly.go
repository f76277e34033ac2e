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

// Package disassembly produces compact one-line Z80/Z180 disassembly. It is
// used by the CPU trace and by the disassemble mode of the command line.
//
// Reads go through the Memory interface so that disassembling never disturbs
// device state.
package disassembly

import (
	"fmt"
	"io"
	"strings"
)

// Memory provides side-effect free reads.
type Memory interface {
	Peek(addr uint16) uint8
}

// Disassemble the instruction at addr. Returns the mnemonic and the number
// of bytes the instruction occupies.
func Disassemble(mem Memory, addr uint16) (string, uint16) {
	op := mem.Peek(addr)

	switch op {
	case 0xcb:
		return cbTable[mem.Peek(addr+1)], 2
	case 0xed:
		return extended(mem, addr)
	case 0xdd:
		return indexed(mem, addr, "ix")
	case 0xfd:
		return indexed(mem, addr, "iy")
	}

	return format(mem, addr+1, 1, baseTable[op])
}

// Dump disassembles count instructions to the writer, one per line with the
// address and raw bytes alongside.
func Dump(w io.Writer, mem Memory, addr uint16, count int) {
	for i := 0; i < count; i++ {
		mn, length := Disassemble(mem, addr)

		raw := strings.Builder{}
		for b := uint16(0); b < length; b++ {
			fmt.Fprintf(&raw, "%02x ", mem.Peek(addr+b))
		}

		fmt.Fprintf(w, "%04x  %-13s %s\n", addr, raw.String(), mn)
		addr += length
	}
}

// format expands the operand placeholders in a mnemonic: "**" is a 16 bit
// immediate, "*" an 8 bit immediate and "%" a relative jump target. Operand
// bytes are read in order starting at opAddr. Returns the final mnemonic
// and the instruction length, which is baseLen plus the operand bytes.
func format(mem Memory, opAddr uint16, baseLen uint16, mnemonic string) (string, uint16) {
	s := strings.Builder{}
	length := baseLen

	for i := 0; i < len(mnemonic); i++ {
		switch mnemonic[i] {
		case '*':
			if i+1 < len(mnemonic) && mnemonic[i+1] == '*' {
				lo := uint16(mem.Peek(opAddr))
				hi := uint16(mem.Peek(opAddr + 1))
				fmt.Fprintf(&s, "$%04x", hi<<8|lo)
				opAddr += 2
				length += 2
				i++
			} else {
				fmt.Fprintf(&s, "$%02x", mem.Peek(opAddr))
				opAddr++
				length++
			}
		case '%':
			// relative displacements only occur in two byte instructions
			d := int8(mem.Peek(opAddr))
			fmt.Fprintf(&s, "$%04x", opAddr+1+uint16(int16(d)))
			opAddr++
			length++
		default:
			s.WriteByte(mnemonic[i])
		}
	}

	return s.String(), length
}

// extended handles the 0xed prefix.
func extended(mem Memory, addr uint16) (string, uint16) {
	mn, ok := extTable[mem.Peek(addr+1)]
	if !ok {
		// the undefined extended opcodes execute as two byte no-ops
		return "nop*", 2
	}
	return format(mem, addr+2, 2, mn)
}

// indexed handles the 0xdd and 0xfd prefixes by rewriting the unprefixed
// mnemonic: hl becomes the index register and (hl) becomes an indexed
// reference with its displacement byte.
func indexed(mem Memory, addr uint16, reg string) (string, uint16) {
	op := mem.Peek(addr + 1)

	if op == 0xcb {
		d := int8(mem.Peek(addr + 2))
		inner := cbTable[mem.Peek(addr+3)]
		if !strings.Contains(inner, "(hl)") {
			return "nop*", 2
		}
		return strings.Replace(inner, "(hl)", fmt.Sprintf("(%s%+d)", reg, d), 1), 4
	}

	switch op {
	case 0xcb, 0xdd, 0xed, 0xfd:
		// a second prefix abandons this one
		return "nop*", 1
	}

	base := baseTable[op]

	// jp (hl) takes no displacement even under a prefix
	if strings.Contains(base, "(hl)") && op != 0xe9 {
		d := int8(mem.Peek(addr + 2))
		mn := strings.Replace(base, "(hl)", fmt.Sprintf("(%s%+d)", reg, d), 1)
		return format(mem, addr+3, 3, mn)
	}

	return format(mem, addr+2, 2, strings.Replace(base, "hl", reg, 1))
}

var baseTable = [256]string{
	0x00: "nop", 0x01: "ld bc,**", 0x02: "ld (bc),a", 0x03: "inc bc",
	0x04: "inc b", 0x05: "dec b", 0x06: "ld b,*", 0x07: "rlca",
	0x08: "ex af,af'", 0x09: "add hl,bc", 0x0a: "ld a,(bc)", 0x0b: "dec bc",
	0x0c: "inc c", 0x0d: "dec c", 0x0e: "ld c,*", 0x0f: "rrca",
	0x10: "djnz %", 0x11: "ld de,**", 0x12: "ld (de),a", 0x13: "inc de",
	0x14: "inc d", 0x15: "dec d", 0x16: "ld d,*", 0x17: "rla",
	0x18: "jr %", 0x19: "add hl,de", 0x1a: "ld a,(de)", 0x1b: "dec de",
	0x1c: "inc e", 0x1d: "dec e", 0x1e: "ld e,*", 0x1f: "rra",
	0x20: "jr nz,%", 0x21: "ld hl,**", 0x22: "ld (**),hl", 0x23: "inc hl",
	0x24: "inc h", 0x25: "dec h", 0x26: "ld h,*", 0x27: "daa",
	0x28: "jr z,%", 0x29: "add hl,hl", 0x2a: "ld hl,(**)", 0x2b: "dec hl",
	0x2c: "inc l", 0x2d: "dec l", 0x2e: "ld l,*", 0x2f: "cpl",
	0x30: "jr nc,%", 0x31: "ld sp,**", 0x32: "ld (**),a", 0x33: "inc sp",
	0x34: "inc (hl)", 0x35: "dec (hl)", 0x36: "ld (hl),*", 0x37: "scf",
	0x38: "jr c,%", 0x39: "add hl,sp", 0x3a: "ld a,(**)", 0x3b: "dec sp",
	0x3c: "inc a", 0x3d: "dec a", 0x3e: "ld a,*", 0x3f: "ccf",
	0x76: "halt",
	0xc0: "ret nz", 0xc1: "pop bc", 0xc2: "jp nz,**", 0xc3: "jp **",
	0xc4: "call nz,**", 0xc5: "push bc", 0xc6: "add a,*", 0xc7: "rst $00",
	0xc8: "ret z", 0xc9: "ret", 0xca: "jp z,**",
	0xcc: "call z,**", 0xcd: "call **", 0xce: "adc a,*", 0xcf: "rst $08",
	0xd0: "ret nc", 0xd1: "pop de", 0xd2: "jp nc,**", 0xd3: "out (*),a",
	0xd4: "call nc,**", 0xd5: "push de", 0xd6: "sub *", 0xd7: "rst $10",
	0xd8: "ret c", 0xd9: "exx", 0xda: "jp c,**", 0xdb: "in a,(*)",
	0xdc: "call c,**", 0xde: "sbc a,*", 0xdf: "rst $18",
	0xe0: "ret po", 0xe1: "pop hl", 0xe2: "jp po,**", 0xe3: "ex (sp),hl",
	0xe4: "call po,**", 0xe5: "push hl", 0xe6: "and *", 0xe7: "rst $20",
	0xe8: "ret pe", 0xe9: "jp (hl)", 0xea: "jp pe,**", 0xeb: "ex de,hl",
	0xec: "call pe,**", 0xee: "xor *", 0xef: "rst $28",
	0xf0: "ret p", 0xf1: "pop af", 0xf2: "jp p,**", 0xf3: "di",
	0xf4: "call p,**", 0xf5: "push af", 0xf6: "or *", 0xf7: "rst $30",
	0xf8: "ret m", 0xf9: "ld sp,hl", 0xfa: "jp m,**", 0xfb: "ei",
	0xfc: "call m,**", 0xfe: "cp *", 0xff: "rst $38",
}

var cbTable [256]string

// the regular blocks of the base and cb tables are generated rather than
// typed out.
func init() {
	reg := []string{"b", "c", "d", "e", "h", "l", "(hl)", "a"}
	alu := []string{"add a,", "adc a,", "sub ", "sbc a,", "and ", "xor ", "or ", "cp "}
	rot := []string{"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl"}

	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue // halt
		}
		baseTable[op] = fmt.Sprintf("ld %s,%s", reg[op>>3&0x07], reg[op&0x07])
	}
	for op := 0x80; op < 0xc0; op++ {
		baseTable[op] = alu[op>>3&0x07] + reg[op&0x07]
	}

	for op := 0; op < 0x40; op++ {
		cbTable[op] = fmt.Sprintf("%s %s", rot[op>>3], reg[op&0x07])
	}
	for op := 0x40; op < 0x100; op++ {
		verb := []string{"bit", "res", "set"}[op>>6-1]
		cbTable[op] = fmt.Sprintf("%s %d,%s", verb, op>>3&0x07, reg[op&0x07])
	}

	for y := 0; y < 8; y++ {
		r := reg[y]

		// z180 forms
		if y != 6 {
			extTable[uint8(y<<3)] = fmt.Sprintf("in0 %s,(*)", r)
			extTable[uint8(y<<3|0x01)] = fmt.Sprintf("out0 (*),%s", r)
			extTable[uint8(y<<3|0x04)] = "tst " + r
		}

		if y == 6 {
			extTable[uint8(0x40|y<<3)] = "in (c)"
			extTable[uint8(0x41|y<<3)] = "out (c),0"
		} else {
			extTable[uint8(0x40|y<<3)] = fmt.Sprintf("in %s,(c)", r)
			extTable[uint8(0x41|y<<3)] = fmt.Sprintf("out (c),%s", r)
		}
	}

	for i, rp := range []string{"bc", "de", "hl", "sp"} {
		extTable[uint8(0x42|i<<4)] = "sbc hl," + rp
		extTable[uint8(0x4a|i<<4)] = "adc hl," + rp
		extTable[uint8(0x43|i<<4)] = "ld (**)," + rp
		extTable[uint8(0x4b|i<<4)] = fmt.Sprintf("ld %s,(**)", rp)
		extTable[uint8(0x4c|i<<4)] = "mlt " + rp
	}
}

var extTable = map[uint8]string{
	0x44: "neg", 0x45: "retn", 0x46: "im 0", 0x47: "ld i,a",
	0x4d: "reti", 0x4f: "ld r,a",
	0x56: "im 1", 0x57: "ld a,i", 0x5e: "im 2", 0x5f: "ld a,r",
	0x64: "tst *", 0x67: "rrd", 0x6f: "rld",
	0x74: "tstio *", 0x76: "slp",
	0x83: "otim", 0x8b: "otdm", 0x93: "otimr", 0x9b: "otdmr",
	0xa0: "ldi", 0xa1: "cpi", 0xa2: "ini", 0xa3: "outi",
	0xa8: "ldd", 0xa9: "cpd", 0xaa: "ind", 0xab: "outd",
	0xb0: "ldir", 0xb1: "cpir", 0xb2: "inir", 0xb3: "otir",
	0xb8: "lddr", 0xb9: "cpdr", 0xba: "indr", 0xbb: "otdr",
}
