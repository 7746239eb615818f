// Package pmm manages the pool of physical process slots. Each slot is a
// large page sized region of physical memory that backs the user window of
// exactly one process.
package pmm

import (
	"lwos/kernel"
	"lwos/kernel/mm"
)

// MaxSlots is the largest pool size supported by the allocator bitmap.
const MaxSlots = 64

var (
	// ErrNoFreeSlot is returned when every slot in the pool is reserved.
	ErrNoFreeSlot = &kernel.Error{Module: "pmm", Message: "no free process slot", Code: -2}

	errInvalidSlot = &kernel.Error{Module: "pmm", Message: "slot does not belong to this pool"}
	errSlotNotUsed = &kernel.Error{Module: "pmm", Message: "slot is not reserved"}
)

// SlotAllocator tracks reservations for a contiguous range of process slots
// using a bitmap. Slot numbers double as process IDs: slot n is backed by the
// physical region starting at (n+1) * 4 MiB.
type SlotAllocator struct {
	// firstSlot is the slot number tracked by bit 0 of the bitmap.
	firstSlot uint32

	// slotCount is the number of slots in the pool.
	slotCount uint32

	// freeCount tracks the available slots so full pools can be detected
	// without scanning the bitmap.
	freeCount uint32

	// usedBitmap has a bit set for every reserved slot.
	usedBitmap uint64
}

// NewSlotAllocator returns an allocator for count slots starting at
// firstSlot. Counts above MaxSlots are clipped.
func NewSlotAllocator(firstSlot, count uint32) *SlotAllocator {
	if count > MaxSlots {
		count = MaxSlots
	}

	return &SlotAllocator{
		firstSlot: firstSlot,
		slotCount: count,
		freeCount: count,
	}
}

// Alloc reserves the lowest numbered free slot.
func (alloc *SlotAllocator) Alloc() (uint32, *kernel.Error) {
	if alloc.freeCount == 0 {
		return 0, ErrNoFreeSlot
	}

	for bit := uint32(0); bit < alloc.slotCount; bit++ {
		mask := uint64(1) << bit
		if alloc.usedBitmap&mask != 0 {
			continue
		}

		alloc.usedBitmap |= mask
		alloc.freeCount--
		return alloc.firstSlot + bit, nil
	}

	return 0, ErrNoFreeSlot
}

// Free releases a slot previously returned by Alloc.
func (alloc *SlotAllocator) Free(slot uint32) *kernel.Error {
	if slot < alloc.firstSlot || slot >= alloc.firstSlot+alloc.slotCount {
		return errInvalidSlot
	}

	mask := uint64(1) << (slot - alloc.firstSlot)
	if alloc.usedBitmap&mask == 0 {
		return errSlotNotUsed
	}

	alloc.usedBitmap &^= mask
	alloc.freeCount++
	return nil
}

// Used returns the number of reserved slots.
func (alloc *SlotAllocator) Used() uint32 {
	return alloc.slotCount - alloc.freeCount
}

// Capacity returns the number of slots in the pool.
func (alloc *SlotAllocator) Capacity() uint32 {
	return alloc.slotCount
}

// SlotAddress returns the physical address of the region backing slot.
func SlotAddress(slot uint32) uintptr {
	return uintptr(slot+1) << mm.LargePageShift
}
