package irq

import (
	"bytes"
	"testing"
)

func TestControllerMasking(t *testing.T) {
	var wakes int
	c := NewController(func() { wakes++ })

	var calls []Line
	for _, line := range []Line{LineTimer, LineKeyboard, LineRTC} {
		l := line
		c.HandleIRQ(l, func() {
			calls = append(calls, l)
			c.EOI(l)
		})
	}

	c.Raise(LineKeyboard)
	if wakes != 1 {
		t.Fatalf("expected Raise to wake the CPU once; got %d", wakes)
	}

	if got := c.Service(); got != 0 {
		t.Fatalf("expected masked line not to be serviced; serviced %d", got)
	}
	if !c.Pending(LineKeyboard) {
		t.Fatal("expected masked line to remain pending")
	}

	c.Enable(LineKeyboard)
	c.Enable(LineRTC)
	if !c.Enabled(LineCascade) {
		t.Fatal("expected enabling a slave line to unmask the cascade line")
	}

	c.Raise(LineRTC)
	if got := c.Service(); got != 2 {
		t.Fatalf("expected 2 lines to be serviced; got %d", got)
	}

	if len(calls) != 2 || calls[0] != LineKeyboard || calls[1] != LineRTC {
		t.Fatalf("expected lines to be serviced in priority order; got %v", calls)
	}

	if c.Pending(LineKeyboard) || c.Pending(LineRTC) {
		t.Fatal("expected serviced lines to be cleared")
	}

	if got := c.Acks(LineRTC); got != 1 {
		t.Fatalf("expected 1 EOI for the RTC line; got %d", got)
	}

	c.Disable(LineKeyboard)
	if c.Enabled(LineKeyboard) {
		t.Fatal("expected keyboard line to be masked")
	}
}

func TestControllerInService(t *testing.T) {
	c := NewController(nil)
	c.Enable(LineTimer)

	var calls int
	c.HandleIRQ(LineTimer, func() {
		calls++
		// raising the line again before EOI must not re-enter the
		// handler
		c.Raise(LineTimer)
		c.Service()
	})

	c.Raise(LineTimer)
	c.Service()

	if calls != 1 {
		t.Fatalf("expected handler to run once while in service; ran %d times", calls)
	}

	if !c.Pending(LineTimer) {
		t.Fatal("expected the nested request to stay pending")
	}

	c.EOI(LineTimer)
	c.HandleIRQ(LineTimer, func() { calls++; c.EOI(LineTimer) })
	c.Service()
	if calls != 2 {
		t.Fatalf("expected pending request to be serviced after EOI; handler calls %d", calls)
	}
}

func TestControllerSpurious(t *testing.T) {
	c := NewController(nil)
	c.Enable(LineKeyboard)
	c.Raise(LineKeyboard)

	if got := c.Service(); got != 1 {
		t.Fatalf("expected unhandled line to be serviced; got %d", got)
	}

	if got := c.Acks(LineKeyboard); got != 1 {
		t.Fatalf("expected unhandled line to be acknowledged; got %d acks", got)
	}

	// out of range lines are ignored
	c.Raise(Line(NumLines))
	c.Enable(Line(NumLines))
	if c.Pending(Line(NumLines)) || c.Enabled(Line(NumLines)) {
		t.Fatal("expected out of range line to be ignored")
	}
}

func TestFaultDump(t *testing.T) {
	var buf bytes.Buffer
	f := &Fault{Num: PageFaultException, Code: FaultUser | FaultWrite, Addr: 0x08500000, EIP: 0x08048100}
	f.DumpTo(&buf)

	exp := "page fault (vector 14)\nEIP = 08048100 ERR = 00000006\nCR2 = 08500000\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}

	if got := f.Error(); got != "page fault" {
		t.Fatalf("expected Error() to return %q; got %q", "page fault", got)
	}

	if got := ExceptionNum(99).String(); got != "exception" {
		t.Fatalf("expected unknown exception name to be %q; got %q", "exception", got)
	}
}
