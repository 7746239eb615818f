// Package irq models the cascaded 8259 programmable interrupt controllers that
// route device interrupt requests to the kernel.
package irq

import (
	"math/bits"
	"sync/atomic"
)

// Line identifies an interrupt request line.
type Line uint8

const (
	// LineTimer is wired to the programmable interval timer.
	LineTimer = Line(0)

	// LineKeyboard is wired to the PS/2 keyboard controller.
	LineKeyboard = Line(1)

	// LineCascade connects the slave controller to the master.
	LineCascade = Line(2)

	// LineRTC is wired to the real time clock.
	LineRTC = Line(8)

	// NumLines is the number of lines across both controllers.
	NumLines = 16

	slaveOffset = Line(8)
)

// Handler services an interrupt. Handlers run on the context that currently
// owns the CPU and must acknowledge their line with EOI before doing anything
// that may not return promptly (such as switching to another context).
type Handler func()

// Controller routes raised lines to their registered handlers. Devices call
// Raise from any goroutine; everything else must be invoked by the code that
// currently owns the CPU.
type Controller struct {
	pending atomic.Uint32

	// mask has a bit set for every line that is disabled.
	mask      uint16
	inService uint16

	handlers [NumLines]Handler
	acks     [NumLines]uint64

	// wakeFn is invoked after a line is raised so a halted CPU can
	// service it.
	wakeFn func()
}

// NewController returns a controller with all lines masked. The wake callback
// is invoked every time a line is raised.
func NewController(wake func()) *Controller {
	if wake == nil {
		wake = func() {}
	}

	return &Controller{
		mask:   0xffff,
		wakeFn: wake,
	}
}

// HandleIRQ registers the handler for line.
func (c *Controller) HandleIRQ(line Line, handler Handler) {
	if line >= NumLines {
		return
	}

	c.handlers[line] = handler
}

// Enable unmasks line. Unmasking a slave line also unmasks the cascade line.
func (c *Controller) Enable(line Line) {
	if line >= NumLines {
		return
	}

	c.mask &^= 1 << line
	if line >= slaveOffset {
		c.mask &^= 1 << LineCascade
	}
}

// Disable masks line.
func (c *Controller) Disable(line Line) {
	if line >= NumLines {
		return
	}

	c.mask |= 1 << line
}

// Enabled returns true if line is unmasked.
func (c *Controller) Enabled(line Line) bool {
	return line < NumLines && c.mask&(1<<line) == 0
}

// Raise asserts line. The request stays pending until it is serviced.
func (c *Controller) Raise(line Line) {
	if line >= NumLines {
		return
	}

	for {
		old := c.pending.Load()
		if c.pending.CompareAndSwap(old, old|1<<line) {
			break
		}
	}

	c.wakeFn()
}

// Pending returns true if line has been raised but not yet serviced.
func (c *Controller) Pending(line Line) bool {
	return line < NumLines && c.pending.Load()&(1<<line) != 0
}

// EOI acknowledges the interrupt currently in service on line.
func (c *Controller) EOI(line Line) {
	if line >= NumLines {
		return
	}

	c.inService &^= 1 << line
	c.acks[line]++
}

// Acks returns the number of EOIs sent for line.
func (c *Controller) Acks(line Line) uint64 {
	if line >= NumLines {
		return 0
	}

	return c.acks[line]
}

// Service dispatches every pending, unmasked line that is not already in
// service, lowest line number (highest priority) first. It returns the number
// of handlers invoked.
func (c *Controller) Service() int {
	var serviced int

	for {
		line, ok := c.nextLine()
		if !ok {
			return serviced
		}

		c.inService |= 1 << line
		serviced++

		if handler := c.handlers[line]; handler != nil {
			handler()
			continue
		}

		// Spurious or unhandled request
		c.EOI(line)
	}
}

// nextLine claims the highest priority line that can be dispatched.
func (c *Controller) nextLine() (Line, bool) {
	for {
		pending := c.pending.Load()
		eligible := pending &^ uint32(c.mask) &^ uint32(c.inService)
		if eligible == 0 {
			return 0, false
		}

		line := Line(bits.TrailingZeros32(eligible))
		if c.pending.CompareAndSwap(pending, pending&^(1<<line)) {
			return line, true
		}
	}
}
