package vmm

const (
	// pageLevels indicates the number of page levels supported by 32-bit
	// (non-PAE) x86 paging.
	pageLevels = 2

	// entriesPerTable is the number of 32-bit entries in a page table.
	entriesPerTable = 1024

	// entrySize is the size of a page table entry in bytes.
	entrySize = 4

	// ptePhysPageMask extracts the frame address from a page table entry.
	ptePhysPageMask = uint32(0xfffff000)

	// pteLargePageMask extracts the region address from a directory
	// entry that maps a large page.
	pteLargePageMask = uint32(0xffc00000)
)

var (
	// pageLevelBits defines the number of virtual address bits that
	// correspond to each page level.
	pageLevelBits = [pageLevels]uint8{10, 10}

	// pageLevelShifts defines the shift required to access each page table
	// component of a virtual address.
	pageLevelShifts = [pageLevels]uint8{22, 12}
)

const (
	// FlagPresent is set when the page is available in memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode processes can access this page. If
	// not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and write-back
	// caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagLargePage is set on a page directory entry that maps a 4 MiB
	// region directly instead of pointing to a page table.
	FlagLargePage
)

// Physical memory layout.
const (
	// KernelBase is the physical (and identity mapped virtual) address of
	// the kernel large page.
	KernelBase = uintptr(0x400000)

	// KernelStackBase is the top of the kernel stack region. Process n
	// owns the 8 KiB stack that ends at KernelStackBase - n*KernelStackSize.
	KernelStackBase = uintptr(0x800000)

	// KernelStackSize is the size of each per-process kernel stack.
	KernelStackSize = uintptr(0x2000)

	// VideoMemAddr is the physical address of the VGA text framebuffer.
	VideoMemAddr = uintptr(0xb8000)

	// terminalVideoBase is the physical address of the off-screen video
	// page of terminal 0; terminal n uses the following n-th page.
	terminalVideoBase = uintptr(0xb9000)

	pdtPhysAddr         = uintptr(0x410000)
	lowTablePhysAddr    = uintptr(0x411000)
	vidmapTablePhysAddr = uintptr(0x412000)
)

// User address space layout.
const (
	// UserBase is the start of the 4 MiB window that maps the current
	// process slot.
	UserBase = uintptr(0x8000000)

	// UserEnd is the first address past the user window.
	UserEnd = UserBase + 0x400000

	// UserLoadAddr is where executable images are copied to.
	UserLoadAddr = uintptr(0x8048000)

	// UserStackTop is the initial user stack pointer.
	UserStackTop = UserEnd - 4

	// VidmapAddr is the user virtual address of the video page handed out
	// by vidmap.
	VidmapAddr = UserEnd
)

// TerminalVideoAddr returns the physical address of the off-screen video page
// for terminal term.
func TerminalVideoAddr(term int) uintptr {
	return terminalVideoBase + uintptr(term)<<12
}

// KernelStackTop returns the initial kernel stack pointer for process pid.
func KernelStackTop(pid uint32) uintptr {
	return KernelStackBase - uintptr(pid)*KernelStackSize
}

// PCBAddr returns the address of the process control block that sits at the
// bottom of process pid's kernel stack.
func PCBAddr(pid uint32) uintptr {
	return KernelStackBase - uintptr(pid+1)*KernelStackSize
}
