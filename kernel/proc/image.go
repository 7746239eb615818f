package proc

import (
	"bytes"
	"encoding/binary"

	"lwos/kernel"
	"lwos/kernel/fs"
	"lwos/kernel/mm/vmm"
)

const (
	// EntryOffset is the offset of the little-endian entry point in an
	// executable image.
	EntryOffset = 24

	// HeaderSize is the smallest valid executable image.
	HeaderSize = EntryOffset + 4

	// MaxImageSize is the largest image that fits between the load
	// address and the end of the user window.
	MaxImageSize = uint32(vmm.UserEnd - vmm.UserLoadAddr)
)

// ImageMagic identifies executable images.
var ImageMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// Program is the code of a user program. It runs in user mode and reaches
// the kernel only through sys.
type Program func(sys Syscalls)

// BuildImage returns an executable image that starts at entry. The payload is
// stored after the header.
func BuildImage(entry uint32, payload []byte) []byte {
	image := make([]byte, HeaderSize, HeaderSize+len(payload))
	copy(image, ImageMagic[:])
	binary.LittleEndian.PutUint32(image[EntryOffset:], entry)

	return append(image, payload...)
}

// loadImage reads the executable called name from the filesystem and returns
// its contents and entry point.
func (k *Kernel) loadImage(name string) ([]byte, uint32, *kernel.Error) {
	dentry, err := k.fs.LookupByName(name)
	if err != nil {
		return nil, 0, ErrNotFound
	}

	if dentry.Type != fs.TypeFile {
		return nil, 0, ErrBadFormat
	}

	size, err := k.fs.Size(dentry.Inode)
	if err != nil || size < HeaderSize || size > MaxImageSize {
		return nil, 0, ErrBadFormat
	}

	image := make([]byte, size)
	if _, err = k.fs.ReadData(dentry.Inode, 0, image); err != nil {
		return nil, 0, ErrBadFormat
	}

	if !bytes.Equal(image[:len(ImageMagic)], ImageMagic[:]) {
		return nil, 0, ErrBadFormat
	}

	return image, binary.LittleEndian.Uint32(image[EntryOffset:]), nil
}
