package mm

import (
	"encoding/binary"

	"lwos/kernel"
)

// MaxPhysAddr is the first physical address past the end of the modelled
// physical address space (32-bit).
const MaxPhysAddr = uint64(1) << 32

var errOutOfRange = &kernel.Error{Module: "mm", Message: "physical address out of range"}

// Memory models the machine's physical address space. Frames are backed
// lazily the first time they are touched so that only the regions in use
// (kernel tables, video pages, process slots) consume host memory. Reads from
// frames that were never written return zeroes.
type Memory struct {
	frames map[Frame]*[PageSize]byte
}

// NewMemory returns an empty physical address space.
func NewMemory() *Memory {
	return &Memory{frames: make(map[Frame]*[PageSize]byte)}
}

// Page returns the contents of the frame containing physAddr. Writes to the
// returned slice modify physical memory.
func (m *Memory) Page(physAddr uintptr) []byte {
	frame := FrameFromAddress(physAddr)
	data, ok := m.frames[frame]
	if !ok {
		data = new([PageSize]byte)
		m.frames[frame] = data
	}

	return data[:]
}

// ReadAt copies len(p) bytes starting at physAddr into p.
func (m *Memory) ReadAt(p []byte, physAddr uintptr) *kernel.Error {
	return m.copy(p, physAddr, false)
}

// WriteAt copies p into physical memory starting at physAddr.
func (m *Memory) WriteAt(p []byte, physAddr uintptr) *kernel.Error {
	return m.copy(p, physAddr, true)
}

func (m *Memory) copy(p []byte, physAddr uintptr, write bool) *kernel.Error {
	if uint64(physAddr)+uint64(len(p)) > MaxPhysAddr {
		return errOutOfRange
	}

	for len(p) > 0 {
		offset := physAddr & (PageSize - 1)

		var n int
		if write {
			n = copy(m.Page(physAddr)[offset:], p)
		} else if data, ok := m.frames[FrameFromAddress(physAddr)]; ok {
			n = copy(p, data[offset:])
		} else {
			n = int(PageSize - offset)
			if n > len(p) {
				n = len(p)
			}
			for i := 0; i < n; i++ {
				p[i] = 0
			}
		}

		p = p[n:]
		physAddr += uintptr(n)
	}

	return nil
}

// Uint32 reads a little-endian 32-bit value at physAddr.
func (m *Memory) Uint32(physAddr uintptr) uint32 {
	var buf [4]byte
	m.ReadAt(buf[:], physAddr)
	return binary.LittleEndian.Uint32(buf[:])
}

// PutUint32 stores v at physAddr using little-endian byte order.
func (m *Memory) PutUint32(physAddr uintptr, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	m.WriteAt(buf[:], physAddr)
}

// Zero clears size bytes starting at physAddr.
func (m *Memory) Zero(physAddr, size uintptr) {
	for end := physAddr + size; physAddr < end; {
		page := m.Page(physAddr)
		offset := physAddr & (PageSize - 1)
		n := PageSize - offset
		if n > end-physAddr {
			n = end - physAddr
		}

		for i := offset; i < offset+n; i++ {
			page[i] = 0
		}
		physAddr += n
	}
}

// FramesInUse returns the number of frames that have been backed so far.
func (m *Memory) FramesInUse() int {
	return len(m.frames)
}
