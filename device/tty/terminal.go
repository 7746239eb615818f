// Package tty implements the kernel's virtual terminals: a VT renderer plus a
// keyboard line discipline per terminal.
package tty

import (
	"io"

	"lwos/device/video/console"
	"lwos/kernel"
	"lwos/kernel/kfmt"
)

// LineBufferSize is the capacity of a terminal's line buffer including the
// terminating line feed.
const LineBufferSize = 128

// Terminal is one virtual terminal session. Keystrokes delivered to the
// foreground terminal are echoed and collected in a line buffer; a completed
// line becomes available to ReadLine once Enter is pressed.
type Terminal struct {
	id   int
	vt   *VT
	cons *console.VgaTextConsole

	// Echo is an optional writer that receives a copy of everything
	// rendered while the terminal is in the foreground.
	Echo io.Writer

	foreground bool

	line    [LineBufferSize]byte
	lineLen int

	// ready holds a completed line (including the line feed) that has not
	// been read yet.
	ready    [LineBufferSize]byte
	readyLen int
	enter    bool
}

// NewTerminal returns terminal id rendering to fb.
func NewTerminal(id int, fb []byte) *Terminal {
	t := &Terminal{
		id:   id,
		vt:   NewVT(DefaultTabWidth),
		cons: console.NewVgaTextConsole(console.DefaultColumns, console.DefaultRows, fb),
	}
	t.vt.AttachTo(t.cons)

	return t
}

// ID returns the terminal number.
func (t *Terminal) ID() int {
	return t.id
}

// Console returns the console the terminal renders to.
func (t *Terminal) Console() *console.VgaTextConsole {
	return t.cons
}

// VT returns the terminal's renderer.
func (t *Terminal) VT() *VT {
	return t.vt
}

// Bind redirects rendering to fb. The foreground flag records whether fb is
// the live display.
func (t *Terminal) Bind(fb []byte, foreground bool) {
	t.cons.SetFramebuffer(fb)
	t.foreground = foreground
}

// Foreground returns true if the terminal renders to the live display.
func (t *Terminal) Foreground() bool {
	return t.foreground
}

// Write renders p on the terminal.
func (t *Terminal) Write(p []byte) (int, error) {
	if t.foreground && t.Echo != nil {
		t.Echo.Write(p)
	}

	return t.vt.Write(p)
}

// Type handles a printable keystroke. Keystrokes that do not fit in the line
// buffer (one byte is always reserved for the line feed) are dropped.
func (t *Terminal) Type(ch byte) {
	if t.lineLen >= LineBufferSize-1 {
		return
	}

	if ch == '\t' {
		ch = ' '
	}

	t.line[t.lineLen] = ch
	t.lineLen++
	t.Write([]byte{ch})
}

// Backspace removes the last character from the line buffer and erases it.
func (t *Terminal) Backspace() {
	if t.lineLen == 0 {
		return
	}

	t.lineLen--
	t.Write([]byte{'\b'})
}

// Enter completes the current line. If the previous line has not been read
// yet the keystroke is dropped.
func (t *Terminal) Enter() {
	if t.enter {
		return
	}

	t.line[t.lineLen] = '\n'
	t.lineLen++
	t.readyLen = copy(t.ready[:], t.line[:t.lineLen])
	t.lineLen = 0
	t.enter = true

	t.Write([]byte{'\n'})
}

// ClearScreen blanks the terminal and redraws the line being edited.
func (t *Terminal) ClearScreen() {
	t.vt.Clear()
	t.vt.Write(t.line[:t.lineLen])
}

// LineReady returns true if a completed line is waiting to be read.
func (t *Terminal) LineReady() bool {
	return t.enter
}

// ReadLine copies the completed line into buf and consumes it. Bytes that do
// not fit in buf are discarded. The second result is false if no line is
// ready.
func (t *Terminal) ReadLine(buf []byte) (int, bool) {
	if !t.enter {
		return 0, false
	}

	n := copy(buf, t.ready[:t.readyLen])
	t.readyLen = 0
	t.enter = false

	return n, true
}

// Pending returns the contents of the line being edited.
func (t *Terminal) Pending() string {
	return string(t.line[:t.lineLen])
}

// DriverName returns the name of this driver.
func (t *Terminal) DriverName() string {
	return "tty"
}

// DriverVersion returns the version of this driver.
func (t *Terminal) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit clears the terminal.
func (t *Terminal) DriverInit(w io.Writer) *kernel.Error {
	t.vt.Clear()
	kfmt.Fprintf(w, "terminal %d ready\n", t.id)
	return nil
}
