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

package modalflag_test

import (
	"testing"

	"github.com/jetsetilly/minitx/modalflag"
	"github.com/jetsetilly/minitx/test"
)

func TestDefaultMode(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{})
	md.AddSubModes("RUN", "DISASM")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, md.Mode(), "RUN")
}

func TestExplicitMode(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"disasm", "image.rom"})
	md.AddSubModes("RUN", "DISASM")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, md.Mode(), "DISASM")

	// the mode name has been consumed; its argument remains
	md.NewMode()
	r, err = md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, md.GetArg(0), "image.rom")
}

func TestModeFlags(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"run", "-fast", "-rom", "boot.rom"})
	md.AddSubModes("RUN", "DISASM")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, md.Mode(), "RUN")

	md.NewMode()
	fast := md.AddBool("fast", false, "")
	rom := md.AddString("rom", "", "")

	r, err = md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, *fast, true)
	test.Equate(t, *rom, "boot.rom")
}

// flags belonging to the default mode appear before any mode name. the
// first parse cannot recognise them and should fall through to the default.
func TestImplicitDefaultWithFlags(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"-fast"})
	md.AddSubModes("RUN", "DISASM")

	r, err := md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, md.Mode(), "RUN")

	md.NewMode()
	fast := md.AddBool("fast", false, "")
	r, err = md.Parse()
	test.ExpectedSuccess(t, err)
	test.Equate(t, r == modalflag.ParseContinue, true)
	test.Equate(t, *fast, true)
}

func TestPath(t *testing.T) {
	md := modalflag.Modes{}
	md.NewArgs([]string{"run"})
	md.AddSubModes("RUN", "DISASM")
	md.Parse()

	test.Equate(t, md.Path(), "RUN")
	test.Equate(t, md.String(), "RUN")
}
