// Package vmm maintains the kernel's single page directory. Every process
// shares the kernel mappings; the 4 MiB user window and the vidmap page are
// repointed whenever a different process takes over the CPU.
package vmm

import (
	"lwos/kernel"
	"lwos/kernel/irq"
	"lwos/kernel/mm"
	"lwos/kernel/mm/pmm"
)

var (
	errNoUserMapping = &kernel.Error{Module: "vmm", Message: "no process slot is mapped"}
)

// MMU is implemented by the processor whose paging state is programmed by an
// AddressSpace.
type MMU interface {
	// SwitchPDT loads the page directory at the supplied physical address
	// and flushes the TLB.
	SwitchPDT(uintptr)

	// FlushTLB invalidates all cached translations.
	FlushTLB()
}

// AddressSpace owns the page directory and page tables stored in physical
// memory. Callers must disable interrupts around any method that changes a
// mapping so the scheduler never observes a half-updated address space.
type AddressSpace struct {
	mem *mm.Memory
	mmu MMU
	pdt uintptr
}

// New builds the kernel page directory in mem and activates it.
//
// The first 4 MiB are mapped with 4 KiB granularity so that only the VGA
// framebuffer and the off-screen terminal pages are present. The kernel
// image is covered by a supervisor-only large page at 4 MiB.
func New(mem *mm.Memory, mmu MMU, terminals int) *AddressSpace {
	as := &AddressSpace{mem: mem, mmu: mmu, pdt: pdtPhysAddr}

	mem.Zero(pdtPhysAddr, mm.PageSize)
	mem.Zero(lowTablePhysAddr, mm.PageSize)
	mem.Zero(vidmapTablePhysAddr, mm.PageSize)

	var pte pageTableEntry
	pte.SetFrame(mm.FrameFromAddress(lowTablePhysAddr))
	pte.SetFlags(FlagPresent | FlagRW)
	as.writeEntry(as.directoryEntryAddr(0), pte)

	videoPages := []uintptr{VideoMemAddr}
	for term := 0; term < terminals; term++ {
		videoPages = append(videoPages, TerminalVideoAddr(term))
	}
	for _, addr := range videoPages {
		pte = 0
		pte.SetFrame(mm.FrameFromAddress(addr))
		pte.SetFlags(FlagPresent | FlagRW)
		as.writeEntry(lowTablePhysAddr+(addr>>mm.PageShift)*entrySize, pte)
	}

	pte = pageTableEntry(uint32(KernelBase))
	pte.SetFlags(FlagPresent | FlagRW | FlagLargePage)
	as.writeEntry(as.directoryEntryAddr(KernelBase), pte)

	mmu.SwitchPDT(pdtPhysAddr)
	return as
}

// PDT returns the physical address of the page directory.
func (as *AddressSpace) PDT() uintptr {
	return as.pdt
}

// MapProcess points the user window at the physical region of slot and
// flushes the TLB.
func (as *AddressSpace) MapProcess(slot uint32) {
	pte := pageTableEntry(uint32(pmm.SlotAddress(slot)) & pteLargePageMask)
	pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible | FlagLargePage)
	as.writeEntry(as.directoryEntryAddr(UserBase), pte)
	as.mmu.FlushTLB()
}

// MappedSlot returns the slot currently backing the user window.
func (as *AddressSpace) MappedSlot() (uint32, *kernel.Error) {
	pte := as.readEntry(as.directoryEntryAddr(UserBase))
	if !pte.HasFlags(FlagPresent | FlagLargePage) {
		return 0, errNoUserMapping
	}

	return uint32(uintptr(uint32(pte)&pteLargePageMask)>>mm.LargePageShift) - 1, nil
}

// MapTerminalVideo points the vidmap page at the live framebuffer when term
// is the foreground terminal, or at term's off-screen page otherwise.
func (as *AddressSpace) MapTerminalVideo(term int, foreground bool) {
	target := TerminalVideoAddr(term)
	if foreground {
		target = VideoMemAddr
	}

	var pte pageTableEntry
	pte.SetFrame(mm.FrameFromAddress(target))
	pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)
	as.writeEntry(vidmapTablePhysAddr, pte)
	as.mmu.FlushTLB()
}

// VideoTarget returns the physical page that the vidmap page points to.
func (as *AddressSpace) VideoTarget() uintptr {
	return as.readEntry(vidmapTablePhysAddr).Frame().Address()
}

// MapVidmap makes the vidmap page accessible to user code at VidmapAddr.
func (as *AddressSpace) MapVidmap() {
	var pte pageTableEntry
	pte.SetFrame(mm.FrameFromAddress(vidmapTablePhysAddr))
	pte.SetFlags(FlagPresent | FlagRW | FlagUserAccessible)
	as.writeEntry(as.directoryEntryAddr(VidmapAddr), pte)
	as.mmu.FlushTLB()
}

// UnmapVidmap removes the user mapping at VidmapAddr.
func (as *AddressSpace) UnmapVidmap() {
	as.writeEntry(as.directoryEntryAddr(VidmapAddr), 0)
	as.mmu.FlushTLB()
}

// VidmapMapped returns true if the vidmap page is accessible to user code.
func (as *AddressSpace) VidmapMapped() bool {
	return as.readEntry(as.directoryEntryAddr(VidmapAddr)).HasFlags(FlagPresent)
}

// Translate returns the physical address for virtAddr. It applies the same
// presence and protection checks as the MMU and reports violations as a
// page fault.
func (as *AddressSpace) Translate(virtAddr uintptr, user, write bool) (uintptr, *irq.Fault) {
	var (
		physAddr uintptr
		fault    *irq.Fault
	)

	as.walk(virtAddr, func(pteLevel uint8, _ uintptr, pte pageTableEntry) bool {
		switch {
		case !pte.HasFlags(FlagPresent):
			fault = pageFault(virtAddr, 0, user, write)
			return false
		case user && !pte.HasFlags(FlagUserAccessible), write && !pte.HasFlags(FlagRW):
			fault = pageFault(virtAddr, irq.FaultPresent, user, write)
			return false
		case pteLevel == 0 && pte.HasFlags(FlagLargePage):
			physAddr = uintptr(uint32(pte)&pteLargePageMask) | (virtAddr & (mm.LargePageSize - 1))
			return false
		case pteLevel == pageLevels-1:
			physAddr = pte.Frame().Address() | (virtAddr & (mm.PageSize - 1))
		}

		return true
	})

	return physAddr, fault
}

func pageFault(virtAddr uintptr, code uint32, user, write bool) *irq.Fault {
	if user {
		code |= irq.FaultUser
	}
	if write {
		code |= irq.FaultWrite
	}

	return &irq.Fault{Num: irq.PageFaultException, Code: code, Addr: uint32(virtAddr)}
}

// CopyToUser writes data to the user virtual address virtAddr, one page at a
// time, with user privilege checks.
func (as *AddressSpace) CopyToUser(virtAddr uintptr, data []byte) *irq.Fault {
	return as.copyUser(virtAddr, data, true)
}

// CopyFromUser fills buf from the user virtual address virtAddr, one page at
// a time, with user privilege checks.
func (as *AddressSpace) CopyFromUser(virtAddr uintptr, buf []byte) *irq.Fault {
	return as.copyUser(virtAddr, buf, false)
}

func (as *AddressSpace) copyUser(virtAddr uintptr, p []byte, write bool) *irq.Fault {
	for len(p) > 0 {
		physAddr, fault := as.Translate(virtAddr, true, write)
		if fault != nil {
			return fault
		}

		n := int(mm.PageSize - (virtAddr & (mm.PageSize - 1)))
		if n > len(p) {
			n = len(p)
		}

		page := as.mem.Page(physAddr)[physAddr&(mm.PageSize-1):]
		if write {
			copy(page, p[:n])
		} else {
			copy(p[:n], page)
		}

		p = p[n:]
		virtAddr += uintptr(n)
	}

	return nil
}
