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

// Package console attaches the emulated machine's serial channel to the host
// terminal. Input is placed into character-at-a-time mode (no line buffering,
// no echo) for the duration of the session and restored on CleanUp().
//
// Input bytes are gathered by a goroutine and buffered in a channel. The
// emulation thread itself never blocks on the terminal; the ASCI polls with
// InputReady() and takes bytes with Input().
package console

import (
	"os"
	"syscall"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// depth of the input buffer. the ASCI drains it far faster than a human can
// type so it only needs to absorb paste bursts.
const inputBuffer = 1024

// Console is the host-terminal end of the machine's serial channel.
type Console struct {
	input  *os.File
	output *os.File

	// terminal attributes on entry, for restoration on CleanUp()
	canAttr unix.Termios

	// the attributes used while the emulation is running
	runAttr unix.Termios

	// whether the input file is a terminal whose attributes we changed
	restore bool

	in chan uint8

	// closed on CleanUp() to stop the reader goroutine
	done chan bool
}

// NewConsole is the preferred method of initialisation for the Console type.
// Input and output default to stdin and stdout.
func NewConsole() (*Console, error) {
	con := &Console{
		input:  os.Stdin,
		output: os.Stdout,
		in:     make(chan uint8, inputBuffer),
		done:   make(chan bool),
	}

	// put terminal into character mode. if stdin is not a terminal (input
	// piped from a file for instance) run with whatever we've been given
	if err := termios.Tcgetattr(con.input.Fd(), &con.canAttr); err == nil {
		con.runAttr = con.canAttr
		con.runAttr.Lflag &^= syscall.ICANON | syscall.ECHO
		con.runAttr.Cc[syscall.VMIN] = 0
		con.runAttr.Cc[syscall.VTIME] = 1

		if err := termios.Tcsetattr(con.input.Fd(), termios.TCSADRAIN, &con.runAttr); err != nil {
			return nil, err
		}
		con.restore = true
	}

	go con.read()

	return con, nil
}

// read gathers input bytes until CleanUp() or until the input file reports
// an error. With VMIN=0/VTIME=1 a terminal read times out every 100ms and
// returns zero bytes with no error, so the goroutine notices the done
// channel reasonably promptly. A read error is persistent (EOF on
// redirected input, or a closed file) and ends the goroutine; retrying
// would spin because nothing in the path blocks.
func (con *Console) read() {
	b := make([]byte, 1)
	for {
		select {
		case <-con.done:
			return
		default:
		}

		n, err := con.input.Read(b)
		if err != nil {
			return
		}
		if n != 1 {
			continue
		}
		select {
		case con.in <- b[0]:
		default:
			// buffer full. drop the byte like a real UART would
		}
	}
}

// CleanUp restores the terminal attributes found at initialisation.
func (con *Console) CleanUp() {
	close(con.done)
	if con.restore {
		_ = termios.Tcsetattr(con.input.Fd(), termios.TCSADRAIN, &con.canAttr)
	}
}

// InputReady returns true if a byte is waiting to be read.
func (con *Console) InputReady() bool {
	return len(con.in) > 0
}

// Input returns the next waiting byte. Returns 0xff if no byte is waiting.
// Newlines are folded to carriage returns, which is what the firmware's
// serial console expects.
func (con *Console) Input() uint8 {
	select {
	case b := <-con.in:
		if b == 0x0a {
			b = '\r'
		}
		return b
	default:
		return 0xff
	}
}

// Output writes a byte to the terminal.
func (con *Console) Output(b uint8) {
	_, _ = con.output.Write([]byte{b})
}
