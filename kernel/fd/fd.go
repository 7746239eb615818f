// Package fd implements per-process file descriptor tables and the operation
// tables that back each descriptor.
package fd

import "lwos/kernel"

const (
	// MaxFiles is the number of descriptors per process.
	MaxFiles = 8

	// Stdin is bound to terminal input when a process is created.
	Stdin = 0

	// Stdout is bound to terminal output when a process is created.
	Stdout = 1

	// firstFree is the lowest descriptor that Open may hand out.
	firstFree = 2
)

var (
	// ErrBadDescriptor is returned for descriptor numbers that are out of
	// range, not open, or used in the wrong direction.
	ErrBadDescriptor = &kernel.Error{Module: "fd", Message: "bad file descriptor"}

	// ErrTableFull is returned by Open when every descriptor is in use.
	ErrTableFull = &kernel.Error{Module: "fd", Message: "too many open files"}

	// ErrNotSupported is returned by operations a backend does not
	// implement, such as writing to a read-only file.
	ErrNotSupported = &kernel.Error{Module: "fd", Message: "operation not supported"}
)

// Ops is the operation table of a descriptor backend.
type Ops interface {
	// Open prepares d, whose Handle has already been set, for use.
	Open(d *Descriptor) *kernel.Error

	// Read fills buf and returns the number of bytes read; 0 means end
	// of file.
	Read(d *Descriptor, buf []byte) (int, *kernel.Error)

	// Write consumes buf and returns the number of bytes written.
	Write(d *Descriptor, buf []byte) (int, *kernel.Error)

	// Close releases backend resources held by d.
	Close(d *Descriptor) *kernel.Error
}

// Descriptor is one slot of a process descriptor table.
type Descriptor struct {
	ops Ops

	// Handle identifies the backend object: an inode number for files
	// or a terminal number for stdin/stdout.
	Handle uint32

	// Position is the read offset for files and the entry index for the
	// directory.
	Position uint32

	inUse bool
}

// Ops returns the operation table bound to the descriptor.
func (d *Descriptor) Ops() Ops {
	return d.ops
}

// Table is a process descriptor table.
type Table struct {
	files [MaxFiles]Descriptor
}

// Bind installs ops at descriptor num without calling Open. It is used to set
// up stdin and stdout when a process is created.
func (t *Table) Bind(num int, ops Ops, handle uint32) {
	if num < 0 || num >= MaxFiles {
		return
	}

	t.files[num] = Descriptor{ops: ops, Handle: handle, inUse: true}
}

// Open binds ops to the lowest free descriptor and returns its number.
func (t *Table) Open(ops Ops, handle uint32) (int, *kernel.Error) {
	for num := firstFree; num < MaxFiles; num++ {
		if t.files[num].inUse {
			continue
		}

		d := &t.files[num]
		*d = Descriptor{ops: ops, Handle: handle}
		if err := ops.Open(d); err != nil {
			*d = Descriptor{}
			return -1, err
		}

		d.inUse = true
		return num, nil
	}

	return -1, ErrTableFull
}

// Read dispatches a read on descriptor num.
func (t *Table) Read(num int, buf []byte) (int, *kernel.Error) {
	d, err := t.lookup(num)
	if err != nil || num == Stdout {
		return -1, ErrBadDescriptor
	}

	return d.ops.Read(d, buf)
}

// Write dispatches a write on descriptor num.
func (t *Table) Write(num int, buf []byte) (int, *kernel.Error) {
	d, err := t.lookup(num)
	if err != nil || num == Stdin {
		return -1, ErrBadDescriptor
	}

	return d.ops.Write(d, buf)
}

// Close releases descriptor num. Stdin and stdout cannot be closed by user
// programs.
func (t *Table) Close(num int) *kernel.Error {
	d, err := t.lookup(num)
	if err != nil || num < firstFree {
		return ErrBadDescriptor
	}

	err = d.ops.Close(d)
	*d = Descriptor{}
	return err
}

// CloseAll releases every descriptor, including stdin and stdout.
func (t *Table) CloseAll() {
	for num := range t.files {
		d := &t.files[num]
		if !d.inUse {
			continue
		}

		d.ops.Close(d)
		*d = Descriptor{}
	}
}

// InUse returns true if descriptor num is open.
func (t *Table) InUse(num int) bool {
	return num >= 0 && num < MaxFiles && t.files[num].inUse
}

// Get returns descriptor num if it is open.
func (t *Table) Get(num int) (*Descriptor, bool) {
	d, err := t.lookup(num)
	return d, err == nil
}

func (t *Table) lookup(num int) (*Descriptor, *kernel.Error) {
	if num < 0 || num >= MaxFiles || !t.files[num].inUse {
		return nil, ErrBadDescriptor
	}

	return &t.files[num], nil
}
