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

package console

import (
	"os"
	"testing"

	"github.com/jetsetilly/minitx/test"
)

// input redirected from a file runs dry mid-session. the reader must end
// rather than retry, or it spins at full speed on the immediate EOF.
func TestReaderEndsWhenInputRunsDry(t *testing.T) {
	r, w, err := os.Pipe()
	test.ExpectedSuccess(t, err)
	defer r.Close()

	con := &Console{
		input: r,
		in:    make(chan uint8, inputBuffer),
		done:  make(chan bool),
	}

	finished := make(chan bool)
	go func() {
		con.read()
		finished <- true
	}()

	_, err = w.Write([]byte("a"))
	test.ExpectedSuccess(t, err)
	w.Close()

	// the goroutine returns of its own accord once the pipe is exhausted
	<-finished

	// bytes read before the EOF are still available
	test.Equate(t, con.InputReady(), true)
	test.Equate(t, con.Input(), uint8('a'))
	test.Equate(t, con.InputReady(), false)
	test.Equate(t, con.Input(), uint8(0xff))
}

func TestReaderEndsOnCleanUp(t *testing.T) {
	r, w, err := os.Pipe()
	test.ExpectedSuccess(t, err)
	defer r.Close()

	con := &Console{
		input: r,
		in:    make(chan uint8, inputBuffer),
		done:  make(chan bool),
	}

	finished := make(chan bool)
	go func() {
		con.read()
		finished <- true
	}()

	// closing the write end unblocks any in-flight read with EOF; closing
	// the done channel covers the not-yet-reading case
	close(con.done)
	w.Close()

	<-finished
}

func TestNewlineFolding(t *testing.T) {
	con := &Console{in: make(chan uint8, inputBuffer)}
	con.in <- 0x0a
	test.Equate(t, con.Input(), uint8('\r'))
}
