package fs

import (
	"encoding/binary"

	"lwos/kernel"
)

var (
	errNameTooLong = &kernel.Error{Module: "fs", Message: "file name too long"}
	errTooManyFile = &kernel.Error{Module: "fs", Message: "too many directory entries"}
	errFileTooBig  = &kernel.Error{Module: "fs", Message: "file too large"}
)

type builderEntry struct {
	name  string
	typ   FileType
	inode uint32
	data  []byte
}

// Builder assembles filesystem images. The directory entry "." is always
// present.
type Builder struct {
	entries []builderEntry
	inodes  uint32
}

// NewBuilder returns a builder for an image that contains the "." directory
// entry and nothing else.
func NewBuilder() *Builder {
	return &Builder{
		entries: []builderEntry{{name: ".", typ: TypeDir}},
	}
}

// AddFile adds a regular file with the supplied contents.
func (b *Builder) AddFile(name string, data []byte) *kernel.Error {
	if len(data) > MaxFileSize {
		return errFileTooBig
	}

	if err := b.add(builderEntry{name: name, typ: TypeFile, inode: b.inodes, data: data}); err != nil {
		return err
	}

	b.inodes++
	return nil
}

// AddDevice adds an entry of type TypeRTC.
func (b *Builder) AddDevice(name string) *kernel.Error {
	return b.add(builderEntry{name: name, typ: TypeRTC})
}

func (b *Builder) add(entry builderEntry) *kernel.Error {
	switch {
	case len(entry.name) == 0 || len(entry.name) > MaxNameLen:
		return errNameTooLong
	case len(b.entries) >= MaxEntries:
		return errTooManyFile
	}

	b.entries = append(b.entries, entry)
	return nil
}

// Bytes returns the encoded image.
func (b *Builder) Bytes() []byte {
	var dataBlocks uint32
	for _, entry := range b.entries {
		if entry.typ == TypeFile {
			dataBlocks += uint32((len(entry.data) + BlockSize - 1) / BlockSize)
		}
	}

	image := make([]byte, (1+b.inodes+dataBlocks)*BlockSize)
	binary.LittleEndian.PutUint32(image[0:], uint32(len(b.entries)))
	binary.LittleEndian.PutUint32(image[4:], b.inodes)
	binary.LittleEndian.PutUint32(image[8:], dataBlocks)

	var nextBlock uint32
	for index, entry := range b.entries {
		dentry := image[bootHeaderSize+index*dentrySize:]
		copy(dentry[:MaxNameLen], entry.name)
		binary.LittleEndian.PutUint32(dentry[dentryTypeOffset:], uint32(entry.typ))
		binary.LittleEndian.PutUint32(dentry[dentryInodeOffset:], entry.inode)

		if entry.typ != TypeFile {
			continue
		}

		inode := image[(1+entry.inode)*BlockSize:]
		binary.LittleEndian.PutUint32(inode, uint32(len(entry.data)))
		for slot, data := 0, entry.data; len(data) > 0; slot++ {
			binary.LittleEndian.PutUint32(inode[4+slot*4:], nextBlock)
			n := copy(image[(1+b.inodes+nextBlock)*BlockSize:], data[:min(len(data), BlockSize)])
			data = data[n:]
			nextBlock++
		}
	}

	return image
}
