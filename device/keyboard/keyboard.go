// Package keyboard delivers decoded keystrokes to the kernel. Scancode
// translation happens before events reach the queue; the kernel drains the
// queue from its IRQ1 handler.
package keyboard

import (
	"io"
	"sync"

	"lwos/kernel"
	"lwos/kernel/kfmt"
)

// QueueSize is the number of events buffered by the controller. Events that
// arrive while the queue is full are dropped.
const QueueSize = 256

// Escape prefixes a terminal switch in TypeString input: ESC followed by
// '1', '2' or '3' is delivered as Alt+F1, Alt+F2 or Alt+F3.
const Escape = 0x1b

// ctrlL is the form feed produced by Ctrl+L.
const ctrlL = 0x0c

// Kind identifies the type of a keyboard event.
type Kind uint8

const (
	// KindChar is a printable character.
	KindChar Kind = iota

	// KindEnter completes the current input line.
	KindEnter

	// KindBackspace erases the last typed character.
	KindBackspace

	// KindClear clears the screen (Ctrl+L).
	KindClear

	// KindSwitch requests a foreground terminal switch (Alt+Fn).
	KindSwitch
)

// Event is a decoded keystroke.
type Event struct {
	Kind Kind

	// Ch is the character for KindChar events.
	Ch byte

	// Terminal is the zero-based target terminal for KindSwitch events.
	Terminal int
}

// Char returns the event for a printable character.
func Char(ch byte) Event { return Event{Kind: KindChar, Ch: ch} }

// AltF returns the event generated by pressing Alt+F(term+1).
func AltF(term int) Event { return Event{Kind: KindSwitch, Terminal: term} }

// Keyboard is the keyboard controller. Press may be called from any
// goroutine; Next is called by the kernel from its interrupt handler.
type Keyboard struct {
	mu      sync.Mutex
	queue   []Event
	dropped uint64

	// raiseFn asserts the keyboard interrupt line.
	raiseFn func()
}

// New returns a keyboard that calls raise whenever events are queued.
func New(raise func()) *Keyboard {
	if raise == nil {
		raise = func() {}
	}

	return &Keyboard{raiseFn: raise}
}

// Press queues events and raises the keyboard interrupt.
func (kb *Keyboard) Press(events ...Event) {
	kb.mu.Lock()
	for _, ev := range events {
		if len(kb.queue) >= QueueSize {
			kb.dropped++
			continue
		}
		kb.queue = append(kb.queue, ev)
	}
	kb.mu.Unlock()

	kb.raiseFn()
}

// TypeString decodes s into keystrokes and queues them. Line feeds become
// Enter, '\b' and DEL become Backspace, Ctrl+L clears the screen and an ESC
// followed by a digit 1-3 switches terminals.
func (kb *Keyboard) TypeString(s string) {
	kb.Press(Decode([]byte(s))...)
}

// Decode translates raw input bytes into keyboard events.
func Decode(input []byte) []Event {
	events := make([]Event, 0, len(input))
	for i := 0; i < len(input); i++ {
		switch ch := input[i]; {
		case ch == '\n':
			events = append(events, Event{Kind: KindEnter})
		case ch == '\r':
		case ch == '\b' || ch == 0x7f:
			events = append(events, Event{Kind: KindBackspace})
		case ch == ctrlL:
			events = append(events, Event{Kind: KindClear})
		case ch == Escape && i+1 < len(input) && input[i+1] >= '1' && input[i+1] <= '3':
			events = append(events, AltF(int(input[i+1]-'1')))
			i++
		case ch >= ' ' || ch == '\t':
			events = append(events, Char(ch))
		}
	}

	return events
}

// Next dequeues the oldest event.
func (kb *Keyboard) Next() (Event, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if len(kb.queue) == 0 {
		return Event{}, false
	}

	ev := kb.queue[0]
	kb.queue = kb.queue[1:]
	return ev, true
}

// Buffered returns the number of queued events.
func (kb *Keyboard) Buffered() int {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	return len(kb.queue)
}

// Dropped returns the number of events discarded because the queue was full.
func (kb *Keyboard) Dropped() uint64 {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	return kb.dropped
}

// DriverName returns the name of this driver.
func (kb *Keyboard) DriverName() string {
	return "ps2_keyboard"
}

// DriverVersion returns the version of this driver.
func (kb *Keyboard) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver.
func (kb *Keyboard) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "event queue size %d\n", QueueSize)
	return nil
}
