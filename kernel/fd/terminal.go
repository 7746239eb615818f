package fd

import (
	"lwos/device/tty"
	"lwos/kernel"
)

// StdinOps reads completed lines from the terminal selected by the descriptor
// handle.
type StdinOps struct {
	Terminals []*tty.Terminal
	Wait      WaitFunc
}

// Open is a no-op.
func (StdinOps) Open(*Descriptor) *kernel.Error { return nil }

// Read blocks until Enter is pressed on the descriptor's terminal and copies
// up to len(buf) bytes of the line, including its line feed.
func (ops StdinOps) Read(d *Descriptor, buf []byte) (int, *kernel.Error) {
	term, err := terminal(ops.Terminals, d)
	if err != nil {
		return -1, err
	}

	ops.Wait(term.LineReady)
	n, _ := term.ReadLine(buf)
	return n, nil
}

// Write always fails.
func (StdinOps) Write(*Descriptor, []byte) (int, *kernel.Error) {
	return -1, ErrNotSupported
}

// Close is a no-op.
func (StdinOps) Close(*Descriptor) *kernel.Error { return nil }

// StdoutOps renders output on the terminal selected by the descriptor handle.
type StdoutOps struct {
	Terminals []*tty.Terminal
}

// Open is a no-op.
func (StdoutOps) Open(*Descriptor) *kernel.Error { return nil }

// Read always fails.
func (StdoutOps) Read(*Descriptor, []byte) (int, *kernel.Error) {
	return -1, ErrNotSupported
}

// Write renders buf and returns its length.
func (ops StdoutOps) Write(d *Descriptor, buf []byte) (int, *kernel.Error) {
	term, err := terminal(ops.Terminals, d)
	if err != nil {
		return -1, err
	}

	n, _ := term.Write(buf)
	return n, nil
}

// Close is a no-op.
func (StdoutOps) Close(*Descriptor) *kernel.Error { return nil }

func terminal(terms []*tty.Terminal, d *Descriptor) (*tty.Terminal, *kernel.Error) {
	if int(d.Handle) >= len(terms) {
		return nil, ErrBadDescriptor
	}

	return terms[d.Handle], nil
}
