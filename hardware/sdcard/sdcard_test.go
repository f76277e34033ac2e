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

package sdcard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/minitx/hardware/sdcard"
	"github.com/jetsetilly/minitx/hardware/trace"
	"github.com/jetsetilly/minitx/test"
)

// create a small card image and return an attached, selected card.
func testCard(t *testing.T, blocks int) *sdcard.Card {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "sd.img")
	img := make([]byte, blocks*sdcard.BlockSize)
	for i := range img {
		img[i] = byte(i)
	}
	if err := os.WriteFile(filename, img, 0644); err != nil {
		t.Fatal(err)
	}

	crd := sdcard.NewCard("sd0", trace.NewTracer(0))
	if err := crd.Attach(filename); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(crd.Release)

	crd.LowerCS()
	return crd
}

// clock a 6 byte command frame and return the r1 response.
func command(crd *sdcard.Card, cmd uint8, arg uint32) uint8 {
	crd.Exchange(0x40 | cmd)
	crd.Exchange(uint8(arg >> 24))
	crd.Exchange(uint8(arg >> 16))
	crd.Exchange(uint8(arg >> 8))
	crd.Exchange(uint8(arg))
	crd.Exchange(0xff) // crc

	// responses begin within a few clocks
	for i := 0; i < 8; i++ {
		if r := crd.Exchange(0xff); r != 0xff {
			return r
		}
	}
	return 0xff
}

func TestInitialisation(t *testing.T) {
	crd := testCard(t, 4)

	// the card powers up idle
	test.Equate(t, command(crd, 0, 0), 0x01)

	// interface condition echoes the check pattern
	test.Equate(t, command(crd, 8, 0x1aa), 0x01)
	test.Equate(t, crd.Exchange(0xff), 0x00)
	test.Equate(t, crd.Exchange(0xff), 0x00)
	test.Equate(t, crd.Exchange(0xff), 0x01)
	test.Equate(t, crd.Exchange(0xff), 0xaa)

	// CMD55 + ACMD41 leaves the idle state
	test.Equate(t, command(crd, 55, 0), 0x01)
	test.Equate(t, command(crd, 41, 0), 0x00)

	// once initialised, r1 no longer reports idle
	test.Equate(t, command(crd, 16, sdcard.BlockSize), 0x00)
}

func TestReadBlock(t *testing.T) {
	crd := testCard(t, 4)
	command(crd, 0, 0)
	command(crd, 55, 0)
	command(crd, 41, 0)

	// read the second block
	test.Equate(t, command(crd, 17, sdcard.BlockSize), 0x00)

	// wait for the start token
	var tok uint8 = 0xff
	for i := 0; i < 8 && tok == 0xff; i++ {
		tok = crd.Exchange(0xff)
	}
	test.Equate(t, tok, 0xfe)

	for i := 0; i < sdcard.BlockSize; i++ {
		test.Equate(t, crd.Exchange(0xff), uint8(sdcard.BlockSize+i))
	}
}

func TestWriteBlock(t *testing.T) {
	crd := testCard(t, 4)
	command(crd, 0, 0)
	command(crd, 55, 0)
	command(crd, 41, 0)

	test.Equate(t, command(crd, 24, 0), 0x00)

	// start token, data, crc
	crd.Exchange(0xfe)
	for i := 0; i < sdcard.BlockSize; i++ {
		crd.Exchange(0x5a)
	}
	crd.Exchange(0xff)
	crd.Exchange(0xff)

	// data response token
	var r uint8 = 0xff
	for i := 0; i < 4 && r == 0xff; i++ {
		r = crd.Exchange(0xff)
	}
	test.Equate(t, r, 0x05)

	// read it back
	command(crd, 17, 0)
	var tok uint8 = 0xff
	for i := 0; i < 8 && tok == 0xff; i++ {
		tok = crd.Exchange(0xff)
	}
	test.Equate(t, tok, 0xfe)
	for i := 0; i < sdcard.BlockSize; i++ {
		test.Equate(t, crd.Exchange(0xff), 0x5a)
	}
}

func TestDeselectedCardIsSilent(t *testing.T) {
	crd := testCard(t, 4)
	crd.RaiseCS()

	test.Equate(t, crd.Exchange(0x40), 0xff)
	test.Equate(t, command(crd, 0, 0), 0xff)
}
