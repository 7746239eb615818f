package mm

import (
	"bytes"
	"testing"
)

func TestMemoryReadWrite(t *testing.T) {
	mem := NewMemory()

	// A write that straddles a page boundary
	data := []byte("straddles a page boundary")
	addr := uintptr(2*PageSize - 5)
	if err := mem.WriteAt(data, addr); err != nil {
		t.Fatal(err)
	}

	if exp, got := 2, mem.FramesInUse(); got != exp {
		t.Fatalf("expected %d frames to be backed; got %d", exp, got)
	}

	got := make([]byte, len(data))
	if err := mem.ReadAt(got, addr); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("expected to read back %q; got %q", data, got)
	}

	if exp, got := byte('s'), mem.Page(addr)[PageSize-5]; got != exp {
		t.Fatalf("expected Page() to expose the written data; got %q", got)
	}
}

func TestMemoryUntouchedFramesReadAsZero(t *testing.T) {
	mem := NewMemory()

	buf := []byte{1, 2, 3, 4}
	if err := mem.ReadAt(buf, 0x800000); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0, 0, 0, 0}) {
		t.Fatalf("expected zeroes; got %v", buf)
	}

	if got := mem.FramesInUse(); got != 0 {
		t.Fatalf("expected reads not to back any frames; got %d", got)
	}
}

func TestMemoryUint32AndZero(t *testing.T) {
	mem := NewMemory()

	mem.PutUint32(0x1000, 0xdeadbeef)
	if exp, got := uint32(0xdeadbeef), mem.Uint32(0x1000); got != exp {
		t.Fatalf("expected %x; got %x", exp, got)
	}
	if exp, got := byte(0xef), mem.Page(0x1000)[0]; got != exp {
		t.Fatalf("expected little-endian layout; first byte was %x", got)
	}

	mem.Zero(0x1000, 2)
	if exp, got := uint32(0xdead0000), mem.Uint32(0x1000); got != exp {
		t.Fatalf("expected %x after Zero; got %x", exp, got)
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	mem := NewMemory()

	if err := mem.WriteAt([]byte{1, 2}, uintptr(MaxPhysAddr-1)); err != errOutOfRange {
		t.Fatalf("expected errOutOfRange; got %v", err)
	}
}
