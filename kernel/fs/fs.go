// Package fs implements the read-only boot block filesystem loaded as a boot
// module. The image is a sequence of 4 KiB blocks: a boot block holding the
// directory, followed by one block per inode and then the data blocks.
package fs

import (
	"encoding/binary"

	"lwos/kernel"
)

const (
	// BlockSize is the size of every block in the image.
	BlockSize = 4096

	// MaxNameLen is the length of the name field in a directory entry.
	// Names of exactly MaxNameLen bytes are not NUL-terminated.
	MaxNameLen = 32

	// MaxEntries is the number of directory entries the boot block can
	// hold.
	MaxEntries = 63

	// MaxFileSize is the largest file an inode can describe.
	MaxFileSize = inodeBlockSlots * BlockSize

	dentrySize        = 64
	bootHeaderSize    = 64
	inodeBlockSlots   = BlockSize/4 - 1
	dentryTypeOffset  = MaxNameLen
	dentryInodeOffset = MaxNameLen + 4
)

// FileType identifies the kind of object a directory entry refers to.
type FileType uint32

const (
	// TypeRTC marks the real time clock device entry.
	TypeRTC FileType = iota

	// TypeDir marks the directory itself.
	TypeDir

	// TypeFile marks a regular file backed by an inode.
	TypeFile
)

var (
	// ErrNotFound is returned when no directory entry matches a name or
	// index.
	ErrNotFound = &kernel.Error{Module: "fs", Message: "no such file or directory"}

	// ErrInvalidInode is returned for out of range inode numbers.
	ErrInvalidInode = &kernel.Error{Module: "fs", Message: "invalid inode"}

	// ErrCorruptImage is returned when an image is truncated or refers to
	// blocks it does not contain.
	ErrCorruptImage = &kernel.Error{Module: "fs", Message: "corrupt filesystem image"}
)

// Dentry is a directory entry.
type Dentry struct {
	Name  string
	Type  FileType
	Inode uint32
}

// FS is a mounted filesystem image.
type FS struct {
	image []byte

	dirEntries uint32
	inodes     uint32
	dataBlocks uint32
}

// Mount validates the boot block of image and returns the filesystem it
// describes. The image is not copied.
func Mount(image []byte) (*FS, *kernel.Error) {
	if len(image) < BlockSize {
		return nil, ErrCorruptImage
	}

	fs := &FS{
		image:      image,
		dirEntries: binary.LittleEndian.Uint32(image[0:]),
		inodes:     binary.LittleEndian.Uint32(image[4:]),
		dataBlocks: binary.LittleEndian.Uint32(image[8:]),
	}

	if fs.dirEntries > MaxEntries || uint64(len(image)) < uint64(1+fs.inodes+fs.dataBlocks)*BlockSize {
		return nil, ErrCorruptImage
	}

	return fs, nil
}

// Entries returns the number of directory entries.
func (fs *FS) Entries() uint32 {
	return fs.dirEntries
}

// LookupByName returns the directory entry called name.
func (fs *FS) LookupByName(name string) (Dentry, *kernel.Error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return Dentry{}, ErrNotFound
	}

	for index := uint32(0); index < fs.dirEntries; index++ {
		if fs.entryName(index) == name {
			return fs.DentryByIndex(index)
		}
	}

	return Dentry{}, ErrNotFound
}

// DentryByIndex returns the directory entry at position index in the boot
// block.
func (fs *FS) DentryByIndex(index uint32) (Dentry, *kernel.Error) {
	if index >= fs.dirEntries {
		return Dentry{}, ErrNotFound
	}

	entry := fs.entry(index)
	return Dentry{
		Name:  fs.entryName(index),
		Type:  FileType(binary.LittleEndian.Uint32(entry[dentryTypeOffset:])),
		Inode: binary.LittleEndian.Uint32(entry[dentryInodeOffset:]),
	}, nil
}

// Size returns the length in bytes of the file described by inode.
func (fs *FS) Size(inode uint32) (uint32, *kernel.Error) {
	if inode >= fs.inodes {
		return 0, ErrInvalidInode
	}

	return binary.LittleEndian.Uint32(fs.inodeBlock(inode)), nil
}

// ReadData copies up to len(buf) bytes of the file described by inode,
// starting at offset, into buf. It returns the number of bytes copied, which
// is 0 once offset reaches the end of the file.
func (fs *FS) ReadData(inode, offset uint32, buf []byte) (int, *kernel.Error) {
	size, err := fs.Size(inode)
	if err != nil {
		return 0, err
	}

	if offset >= size {
		return 0, nil
	}

	remaining := size - offset
	if uint64(len(buf)) > uint64(remaining) {
		buf = buf[:remaining]
	}

	var (
		inodeBlock = fs.inodeBlock(inode)
		read       int
	)

	for read < len(buf) {
		pos := offset + uint32(read)
		slot := pos / BlockSize
		if slot >= inodeBlockSlots {
			return read, ErrCorruptImage
		}

		block := binary.LittleEndian.Uint32(inodeBlock[4+slot*4:])
		if block >= fs.dataBlocks {
			return read, ErrCorruptImage
		}

		data := fs.block(1 + fs.inodes + block)
		read += copy(buf[read:], data[pos%BlockSize:])
	}

	return read, nil
}

func (fs *FS) block(index uint32) []byte {
	start := uint64(index) * BlockSize
	return fs.image[start : start+BlockSize]
}

func (fs *FS) inodeBlock(inode uint32) []byte {
	return fs.block(1 + inode)
}

func (fs *FS) entry(index uint32) []byte {
	start := bootHeaderSize + index*dentrySize
	return fs.image[start : start+dentrySize]
}

func (fs *FS) entryName(index uint32) string {
	name := fs.entry(index)[:MaxNameLen]
	for i, ch := range name {
		if ch == 0 {
			return string(name[:i])
		}
	}

	return string(name)
}
