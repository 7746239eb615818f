// Package console implements text consoles that render into a framebuffer
// page in physical memory.
package console

import (
	"io"

	"lwos/kernel"
	"lwos/kernel/kfmt"
)

const (
	// DefaultColumns is the width of the VGA text mode.
	DefaultColumns = 80

	// DefaultRows is the height of the VGA text mode.
	DefaultRows = 25

	numColors = 16
)

var errFramebufferTooSmall = &kernel.Error{Module: "vga_text_console", Message: "framebuffer too small for console dimensions"}

// VgaTextConsole implements an EGA-compatible 80x25 text console using VGA
// mode 0x3.
//
// Each character in the console framebuffer is represented using two bytes,
// a byte for the character ASCII code and a byte that encodes the foreground
// and background colors (4 bits for each).
//
// The default settings for the console are:
//   - light gray text (color 7) on black background (color 0).
//   - space as the clear character
//
// The framebuffer can be swapped at any time with SetFramebuffer; terminals
// use this to render either to the live display or to an off-screen page.
type VgaTextConsole struct {
	width  uint32
	height uint32

	fb []byte

	defaultFg uint8
	defaultBg uint8
	clearChar byte
}

// NewVgaTextConsole creates a new vga text console that renders to fb.
func NewVgaTextConsole(columns, rows uint32, fb []byte) *VgaTextConsole {
	return &VgaTextConsole{
		width:     columns,
		height:    rows,
		fb:        fb,
		clearChar: ' ',
		// light gray text on black background
		defaultFg: 7,
		defaultBg: 0,
	}
}

// SetFramebuffer redirects all further output to fb. The contents of fb are
// left untouched.
func (cons *VgaTextConsole) SetFramebuffer(fb []byte) {
	cons.fb = fb
}

// Framebuffer returns the framebuffer the console currently renders to.
func (cons *VgaTextConsole) Framebuffer() []byte {
	return cons.fb
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *VgaTextConsole) DefaultColors() (fg uint8, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// Fill sets the contents of the specified rectangular region to the requested
// color. Both x and y coordinates are 1-based.
func (cons *VgaTextConsole) Fill(x, y, width, height uint32, fg, bg uint8) {
	var (
		attr                 = (bg << 4) | (fg & 0xf)
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x == 0 {
		x = 1
	} else if x >= cons.width {
		x = cons.width
	}

	if y == 0 {
		y = 1
	} else if y >= cons.height {
		y = cons.height
	}

	if x+width-1 > cons.width {
		width = cons.width - x + 1
	}

	if y+height-1 > cons.height {
		height = cons.height - y + 1
	}

	rowOffset = ((y - 1) * cons.width) + (x - 1)
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset*2] = cons.clearChar
			cons.fb[colOffset*2+1] = attr
		}
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	var (
		offset = int(lines * cons.width * 2)
		size   = int(cons.height * cons.width * 2)
	)

	switch dir {
	case ScrollDirUp:
		copy(cons.fb[:size-offset], cons.fb[offset:size])
	case ScrollDirDown:
		copy(cons.fb[offset:size], cons.fb[:size-offset])
	}
}

// Write a char to the specified location. If fg or bg exceed the supported
// colors for this console, they will be set to their default value. Both x and
// y coordinates are 1-based
func (cons *VgaTextConsole) Write(ch byte, fg, bg uint8, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	if fg >= numColors {
		fg = cons.defaultFg
	}
	if bg >= numColors {
		bg = cons.defaultBg
	}

	offset := (((y - 1) * cons.width) + (x - 1)) * 2
	cons.fb[offset] = ch
	cons.fb[offset+1] = (bg << 4) | fg
}

// Char returns the character and attribute byte at the specified location.
func (cons *VgaTextConsole) Char(x, y uint32) (ch byte, attr uint8) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return 0, 0
	}

	offset := (((y - 1) * cons.width) + (x - 1)) * 2
	return cons.fb[offset], cons.fb[offset+1]
}

// Line returns the text of row y with trailing blanks removed.
func (cons *VgaTextConsole) Line(y uint32) string {
	if y < 1 || y > cons.height {
		return ""
	}

	line := make([]byte, 0, cons.width)
	for x := uint32(1); x <= cons.width; x++ {
		ch, _ := cons.Char(x, y)
		if ch == 0 {
			ch = ' '
		}
		line = append(line, ch)
	}

	end := len(line)
	for end > 0 && line[end-1] == ' ' {
		end--
	}

	return string(line[:end])
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	if uint32(len(cons.fb)) < cons.width*cons.height*2 {
		return errFramebufferTooSmall
	}

	kfmt.Fprintf(w, "%dx%d text mode\n", cons.width, cons.height)
	return nil
}
