package tty

import (
	"io"

	"lwos/device/video/console"
)

// DefaultTabWidth defines the number of spaces that tabs expand to.
const DefaultTabWidth = 4

// VT implements a terminal that renders directly to an attached console. The
// console framebuffer is the terminal's only backing store, which lets the
// kernel move a terminal between the live display and an off-screen page by
// copying the page and rebinding the console. The terminal interprets the
// following special characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \b (backspace; moves back across a wrapped line)
//   - \t (tab; expanded to tabWidth spaces)
type VT struct {
	cons console.Device

	// Terminal dimensions
	viewportWidth  uint32
	viewportHeight uint32

	// Terminal state.
	tabWidth         uint8
	defaultFg, curFg uint8
	defaultBg, curBg uint8
	cursorX          uint32
	cursorY          uint32
}

// NewVT creates a new virtual terminal device. The tabWidth parameter controls
// tab expansion.
func NewVT(tabWidth uint8) *VT {
	return &VT{
		tabWidth: tabWidth,
		cursorX:  1,
		cursorY:  1,
	}
}

// AttachTo connects a TTY to a console instance.
func (t *VT) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	t.cons = cons
	t.viewportWidth, t.viewportHeight = cons.Dimensions()
	t.defaultFg, t.defaultBg = cons.DefaultColors()
	t.curFg, t.curBg = t.defaultFg, t.defaultBg
	t.cursorX, t.cursorY = 1, 1
}

// CursorPosition returns the current cursor position.
func (t *VT) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition sets the current cursor position to (x,y).
func (t *VT) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	if x < 1 {
		x = 1
	} else if x > t.viewportWidth {
		x = t.viewportWidth
	}

	if y < 1 {
		y = 1
	} else if y > t.viewportHeight {
		y = t.viewportHeight
	}

	t.cursorX, t.cursorY = x, y
}

// Clear blanks the terminal and moves the cursor to the top-left corner.
func (t *VT) Clear() {
	if t.cons == nil {
		return
	}

	t.cons.Fill(1, 1, t.viewportWidth, t.viewportHeight, t.defaultFg, t.defaultBg)
	t.cursorX, t.cursorY = 1, 1
}

// Write implements io.Writer.
func (t *VT) Write(data []byte) (int, error) {
	for count, b := range data {
		err := t.WriteByte(b)
		if err != nil {
			return count, err
		}
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *VT) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\r':
		t.cursorX = 1
	case '\n':
		t.lf()
	case '\b':
		switch {
		case t.cursorX > 1:
			t.cursorX--
		case t.cursorY > 1:
			t.cursorX, t.cursorY = t.viewportWidth, t.cursorY-1
		default:
			return nil
		}
		t.cons.Write(' ', t.curFg, t.curBg, t.cursorX, t.cursorY)
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.doWrite(' ')
		}
	default:
		t.doWrite(b)
	}

	return nil
}

// doWrite writes the specified character together with the current fg/bg
// attributes at the cursor position and advances the cursor.
func (t *VT) doWrite(b byte) {
	t.cons.Write(b, t.curFg, t.curBg, t.cursorX, t.cursorY)

	// Advance x position and handle wrapping when the cursor reaches the
	// end of the current line
	t.cursorX++
	if t.cursorX > t.viewportWidth {
		t.lf()
	}
}

// lf moves the cursor to the start of the next line scrolling the terminal
// contents if the cursor is already at the last line.
func (t *VT) lf() {
	t.cursorX = 1

	if t.cursorY+1 <= t.viewportHeight {
		t.cursorY++
		return
	}

	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(1, t.cursorY, t.viewportWidth, 1, t.defaultFg, t.defaultBg)
}
