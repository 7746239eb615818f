package vmm

import "lwos/kernel/mm"

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uint32

// pageTableEntry describes a page table entry. These entries encode
// a physical frame address and a set of flags.
type pageTableEntry uint32

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) != 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) | uint32(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame(uintptr(uint32(pte)&ptePhysPageMask) >> mm.PageShift)
}

// SetFrame updates the page table entry to point the the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uint32(*pte) &^ ptePhysPageMask) | uint32(frame.Address()))
}

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level, the physical address of the
// entry and its contents. If the function returns false, then the page walk
// is aborted.
type pageTableWalker func(pteLevel uint8, entryAddr uintptr, pte pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the page directory. It calls the supplied walkFn with the page table entry
// that corresponds to each page table level. The walk stops at the first
// entry that is not present or that maps a large page.
func (as *AddressSpace) walk(virtAddr uintptr, walkFn pageTableWalker) {
	tableAddr := as.pdt
	for level := uint8(0); level < pageLevels; level++ {
		entryIndex := (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		entryAddr := tableAddr + entryIndex*entrySize
		pte := as.readEntry(entryAddr)

		if !walkFn(level, entryAddr, pte) {
			return
		}

		if !pte.HasFlags(FlagPresent) || (level == 0 && pte.HasFlags(FlagLargePage)) {
			return
		}

		tableAddr = pte.Frame().Address()
	}
}

func (as *AddressSpace) readEntry(entryAddr uintptr) pageTableEntry {
	return pageTableEntry(as.mem.Uint32(entryAddr))
}

func (as *AddressSpace) writeEntry(entryAddr uintptr, pte pageTableEntry) {
	as.mem.PutUint32(entryAddr, uint32(pte))
}

// directoryEntryAddr returns the physical address of the page directory
// entry that covers virtAddr.
func (as *AddressSpace) directoryEntryAddr(virtAddr uintptr) uintptr {
	return as.pdt + (virtAddr>>pageLevelShifts[0])*entrySize
}
