package fd

import (
	"lwos/kernel"
	"lwos/kernel/fs"
)

// FileOps implements regular file descriptors.
type FileOps struct {
	FS *fs.FS
}

// Open resets the read position.
func (FileOps) Open(d *Descriptor) *kernel.Error {
	d.Position = 0
	return nil
}

// Read continues reading from the descriptor position and returns 0 at the
// end of the file.
func (ops FileOps) Read(d *Descriptor, buf []byte) (int, *kernel.Error) {
	n, err := ops.FS.ReadData(d.Handle, d.Position, buf)
	if err != nil {
		return -1, err
	}

	d.Position += uint32(n)
	return n, nil
}

// Write always fails; the filesystem is read-only.
func (FileOps) Write(*Descriptor, []byte) (int, *kernel.Error) {
	return -1, ErrNotSupported
}

// Close is a no-op.
func (FileOps) Close(*Descriptor) *kernel.Error {
	return nil
}

// DirOps implements descriptors for the directory. Each read returns the
// name of the next directory entry.
type DirOps struct {
	FS *fs.FS
}

// Open rewinds the directory.
func (DirOps) Open(d *Descriptor) *kernel.Error {
	d.Position = 0
	return nil
}

// Read copies the name of the next directory entry into buf, truncated to
// len(buf), and returns its length. It returns 0 once every entry was read.
func (ops DirOps) Read(d *Descriptor, buf []byte) (int, *kernel.Error) {
	if d.Position >= ops.FS.Entries() {
		return 0, nil
	}

	dentry, err := ops.FS.DentryByIndex(d.Position)
	if err != nil {
		return -1, err
	}

	d.Position++
	return copy(buf, dentry.Name), nil
}

// Write always fails; the filesystem is read-only.
func (DirOps) Write(*Descriptor, []byte) (int, *kernel.Error) {
	return -1, ErrNotSupported
}

// Close is a no-op.
func (DirOps) Close(*Descriptor) *kernel.Error {
	return nil
}
