package vmm

import (
	"bytes"
	"testing"

	"lwos/kernel/irq"
	"lwos/kernel/mm"
)

type fakeMMU struct {
	pdt     uintptr
	flushes int
}

func (m *fakeMMU) SwitchPDT(addr uintptr) { m.pdt = addr; m.flushes++ }
func (m *fakeMMU) FlushTLB()              { m.flushes++ }

func newTestAddressSpace() (*AddressSpace, *mm.Memory, *fakeMMU) {
	mem := mm.NewMemory()
	mmu := &fakeMMU{}
	return New(mem, mmu, 3), mem, mmu
}

func TestNewActivatesPDT(t *testing.T) {
	as, _, mmu := newTestAddressSpace()

	if mmu.pdt != as.PDT() {
		t.Fatalf("expected PDT at 0x%x to be activated; got 0x%x", as.PDT(), mmu.pdt)
	}

	if _, err := as.MappedSlot(); err != errNoUserMapping {
		t.Fatalf("expected no user mapping after boot; got %v", err)
	}

	specs := []struct {
		virt    uintptr
		expPhys uintptr
	}{
		{VideoMemAddr + 12, VideoMemAddr + 12},
		{TerminalVideoAddr(2), TerminalVideoAddr(2)},
		{KernelBase + 0x1234, KernelBase + 0x1234},
	}

	for specIndex, spec := range specs {
		phys, fault := as.Translate(spec.virt, false, true)
		if fault != nil {
			t.Errorf("[spec %d] unexpected fault: %v", specIndex, fault)
			continue
		}
		if phys != spec.expPhys {
			t.Errorf("[spec %d] expected 0x%x to translate to 0x%x; got 0x%x", specIndex, spec.virt, spec.expPhys, phys)
		}
	}
}

func TestMapProcess(t *testing.T) {
	as, _, mmu := newTestAddressSpace()

	for _, slot := range []uint32{1, 4, 2} {
		flushes := mmu.flushes
		as.MapProcess(slot)

		if mmu.flushes != flushes+1 {
			t.Errorf("expected MapProcess(%d) to flush the TLB", slot)
		}

		got, err := as.MappedSlot()
		if err != nil {
			t.Fatal(err)
		}
		if got != slot {
			t.Errorf("expected mapped slot %d; got %d", slot, got)
		}

		phys, fault := as.Translate(UserLoadAddr, true, true)
		if fault != nil {
			t.Fatal(fault)
		}
		if exp := uintptr(slot+1)<<22 + 0x48000; phys != exp {
			t.Errorf("expected load address to translate to 0x%x; got 0x%x", exp, phys)
		}
	}
}

func TestProcessIsolation(t *testing.T) {
	as, mem, _ := newTestAddressSpace()

	as.MapProcess(1)
	if fault := as.CopyToUser(UserLoadAddr, []byte("first")); fault != nil {
		t.Fatal(fault)
	}

	as.MapProcess(2)
	if fault := as.CopyToUser(UserLoadAddr, []byte("second")); fault != nil {
		t.Fatal(fault)
	}

	as.MapProcess(1)
	buf := make([]byte, 5)
	if fault := as.CopyFromUser(UserLoadAddr, buf); fault != nil {
		t.Fatal(fault)
	}
	if string(buf) != "first" {
		t.Fatalf("expected slot 1 contents to be preserved; got %q", buf)
	}

	raw := make([]byte, 6)
	mem.ReadAt(raw, 3<<22+0x48000)
	if string(raw) != "second" {
		t.Fatalf("expected slot 2 to back its own copy; got %q", raw)
	}
}

func TestTranslateFaults(t *testing.T) {
	as, _, _ := newTestAddressSpace()
	as.MapProcess(1)

	specs := []struct {
		virt    uintptr
		user    bool
		write   bool
		expCode uint32
	}{
		// not present
		{0x9000000, true, false, irq.FaultUser},
		{0x9000000, true, true, irq.FaultUser | irq.FaultWrite},
		{VidmapAddr, true, false, irq.FaultUser},
		// supervisor pages
		{KernelBase, true, false, irq.FaultPresent | irq.FaultUser},
		{VideoMemAddr, true, true, irq.FaultPresent | irq.FaultUser | irq.FaultWrite},
		// unmapped low memory
		{0x1000, false, false, 0},
	}

	for specIndex, spec := range specs {
		_, fault := as.Translate(spec.virt, spec.user, spec.write)
		if fault == nil {
			t.Errorf("[spec %d] expected a fault", specIndex)
			continue
		}

		if fault.Num != irq.PageFaultException {
			t.Errorf("[spec %d] expected a page fault; got %s", specIndex, fault.Num)
		}
		if fault.Code != spec.expCode {
			t.Errorf("[spec %d] expected error code %x; got %x", specIndex, spec.expCode, fault.Code)
		}
		if fault.Addr != uint32(spec.virt) {
			t.Errorf("[spec %d] expected fault address %x; got %x", specIndex, spec.virt, fault.Addr)
		}
	}
}

func TestVidmap(t *testing.T) {
	as, mem, _ := newTestAddressSpace()

	if as.VidmapMapped() {
		t.Fatal("expected vidmap page to be unmapped after boot")
	}

	as.MapTerminalVideo(1, false)
	as.MapVidmap()
	if !as.VidmapMapped() {
		t.Fatal("expected vidmap page to be mapped")
	}

	if exp, got := TerminalVideoAddr(1), as.VideoTarget(); got != exp {
		t.Fatalf("expected background terminal to target 0x%x; got 0x%x", exp, got)
	}

	if fault := as.CopyToUser(VidmapAddr, []byte{'X', 0x07}); fault != nil {
		t.Fatal(fault)
	}
	if got := mem.Page(TerminalVideoAddr(1))[0]; got != 'X' {
		t.Fatalf("expected write to land in the off-screen page; got %q", got)
	}

	as.MapTerminalVideo(1, true)
	if exp, got := VideoMemAddr, as.VideoTarget(); got != exp {
		t.Fatalf("expected foreground terminal to target 0x%x; got 0x%x", exp, got)
	}

	if fault := as.CopyToUser(VidmapAddr+2, []byte{'Y'}); fault != nil {
		t.Fatal(fault)
	}
	if got := mem.Page(VideoMemAddr)[2]; got != 'Y' {
		t.Fatalf("expected write to land in the framebuffer; got %q", got)
	}

	as.UnmapVidmap()
	if fault := as.CopyToUser(VidmapAddr, []byte{'Z'}); fault == nil {
		t.Fatal("expected access to an unmapped vidmap page to fault")
	}
}

func TestCopyAcrossPages(t *testing.T) {
	as, _, _ := newTestAddressSpace()
	as.MapProcess(3)

	data := bytes.Repeat([]byte("0123456789"), 1000)
	addr := UserBase + mm.PageSize - 7
	if fault := as.CopyToUser(addr, data); fault != nil {
		t.Fatal(fault)
	}

	buf := make([]byte, len(data))
	if fault := as.CopyFromUser(addr, buf); fault != nil {
		t.Fatal(fault)
	}
	if !bytes.Equal(buf, data) {
		t.Fatal("expected multi-page copy to round trip")
	}

	// A copy that runs off the end of the user window faults on the
	// first unmapped byte.
	fault := as.CopyToUser(UserEnd-2, []byte{1, 2, 3, 4})
	if fault == nil {
		t.Fatal("expected copy past the user window to fault")
	}
	if fault.Addr != uint32(UserEnd) {
		t.Fatalf("expected fault at 0x%x; got 0x%x", UserEnd, fault.Addr)
	}
}

func TestStackLayout(t *testing.T) {
	specs := []struct {
		pid      uint32
		expTop   uintptr
		expPCB   uintptr
		expVideo uintptr
	}{
		{1, 0x7fe000, 0x7fc000, 0xba000},
		{6, 0x7f4000, 0x7f2000, 0xbf000},
	}

	for specIndex, spec := range specs {
		if got := KernelStackTop(spec.pid); got != spec.expTop {
			t.Errorf("[spec %d] expected stack top 0x%x; got 0x%x", specIndex, spec.expTop, got)
		}
		if got := PCBAddr(spec.pid); got != spec.expPCB {
			t.Errorf("[spec %d] expected PCB at 0x%x; got 0x%x", specIndex, spec.expPCB, got)
		}
		if got := TerminalVideoAddr(int(spec.pid)); got != spec.expVideo {
			t.Errorf("[spec %d] expected video page 0x%x; got 0x%x", specIndex, spec.expVideo, got)
		}
	}
}
