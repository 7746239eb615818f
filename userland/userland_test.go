package userland

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"lwos/device/video/console"
	"lwos/kernel/fs"
	"lwos/kernel/irq"
	"lwos/kernel/proc"
)

// session drives a kernel booted from the bundled image. The CPU parks in
// the halt hook each time it runs out of work so the test can inspect it.
type session struct {
	t    *testing.T
	k    *proc.Kernel
	idle chan struct{}
	cont chan struct{}
}

func newSession(t *testing.T) *session {
	t.Helper()

	image, err := Image(nil)
	if err != nil {
		t.Fatal(err)
	}

	mounted, err := fs.Mount(image)
	if err != nil {
		t.Fatal(err)
	}

	k, err := proc.New(proc.Config{FS: mounted, Programs: Entries(), ChildSlots: proc.MaxChildSlots})
	if err != nil {
		t.Fatal(err)
	}

	s := &session{t: t, k: k, idle: make(chan struct{}), cont: make(chan struct{})}
	k.CPU().SetHaltHook(func() {
		s.idle <- struct{}{}
		<-s.cont
	})

	if err := k.Boot(); err != nil {
		t.Fatal(err)
	}
	s.waitIdle()

	return s
}

func (s *session) waitIdle() {
	s.t.Helper()

	select {
	case <-s.idle:
	case <-time.After(5 * time.Second):
		s.t.Fatal("timed out waiting for the CPU to become idle")
	}
}

func (s *session) run(fn func()) {
	s.t.Helper()

	fn()
	s.cont <- struct{}{}
	s.waitIdle()
}

func (s *session) typeString(str string) {
	s.t.Helper()
	s.run(func() { s.k.Keyboard().TypeString(str) })
}

func (s *session) rtcTick() {
	s.t.Helper()
	s.run(func() { s.k.PIC().Raise(irq.LineRTC) })
}

func (s *session) screen() string {
	cons := s.k.Terminal(s.k.Foreground()).Console()

	var lines []string
	for y := uint32(1); y <= console.DefaultRows; y++ {
		lines = append(lines, cons.Line(y))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (s *session) expectSuffix(exp string) {
	s.t.Helper()

	if got := s.screen(); !strings.HasSuffix(got, exp) {
		s.t.Fatalf("expected screen to end with:\n%s\ngot:\n%s", exp, got)
	}
}

func TestImage(t *testing.T) {
	image, err := Image(map[string][]byte{"extra.txt": []byte("extra\n")})
	if err != nil {
		t.Fatal(err)
	}

	mounted, err := fs.Mount(image)
	if err != nil {
		t.Fatal(err)
	}

	entries := Entries()
	if len(entries) != len(Names()) {
		t.Fatalf("expected %d entry points; got %d", len(Names()), len(entries))
	}

	for _, name := range Names() {
		dentry, err := mounted.LookupByName(name)
		if err != nil {
			t.Errorf("expected %q in the image; got %v", name, err)
			continue
		}

		header := make([]byte, proc.HeaderSize)
		if _, err := mounted.ReadData(dentry.Inode, 0, header); err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(header[:4], proc.ImageMagic[:]) {
			t.Errorf("expected %q to carry the executable magic", name)
		}
		if entry := binary.LittleEndian.Uint32(header[proc.EntryOffset:]); entries[entry] == nil {
			t.Errorf("expected the entry point %x of %q to be registered", entry, name)
		}
	}

	specs := []struct {
		name    string
		expType fs.FileType
	}{
		{".", fs.TypeDir},
		{"rtc", fs.TypeRTC},
		{"frame0.txt", fs.TypeFile},
		{"frame1.txt", fs.TypeFile},
		{"verylargetextwithverylongname.tx", fs.TypeFile},
		{"extra.txt", fs.TypeFile},
	}

	for specIndex, spec := range specs {
		dentry, err := mounted.LookupByName(spec.name)
		if err != nil || dentry.Type != spec.expType {
			t.Errorf("[spec %d] expected %q to have type %d; got %d, %v", specIndex, spec.name, spec.expType, dentry.Type, err)
		}
	}
}

func TestShellAndHello(t *testing.T) {
	s := newSession(t)
	s.expectSuffix("391OS>")

	s.typeString("hello\n")
	s.expectSuffix("391OS> hello\nHi, what's your name?")

	s.typeString("gopher\n")
	s.expectSuffix("Hi, what's your name? gopher\nHello, gopher\n391OS>")

	s.typeString("nosuch\n")
	s.expectSuffix("nosuch\nno such command\n391OS>")

	s.typeString("exit\n")
	s.expectSuffix("391OS> exit\n391OS>")
}

func TestLs(t *testing.T) {
	s := newSession(t)
	s.typeString("ls\n")

	screen := s.screen()
	for _, name := range append(Names(), ".", "rtc", "frame0.txt", "verylargetextwithverylongname.tx") {
		if !strings.Contains(screen, "\n"+name+"\n") {
			t.Errorf("expected ls to list %q; got:\n%s", name, screen)
		}
	}
}

func TestCat(t *testing.T) {
	s := newSession(t)

	s.typeString("cat frame0.txt\n")
	if !strings.Contains(s.screen(), strings.TrimRight(frame0, "\n")) {
		t.Errorf("expected cat to print frame0.txt; got:\n%s", s.screen())
	}
	s.expectSuffix("391OS>")

	s.typeString("cat\n")
	s.expectSuffix("cat\nusage: cat <file>\nprogram terminated abnormally\n391OS>")

	s.typeString("cat nosuch\n")
	s.expectSuffix("cat nosuch\nfile not found\nprogram terminated abnormally\n391OS>")
}

func TestGrep(t *testing.T) {
	s := newSession(t)
	s.typeString("grep ><_>\n")

	screen := s.screen()
	matched := false
	for _, line := range strings.Split(screen, "\n") {
		matched = matched || strings.HasPrefix(line, "frame0.txt:") && strings.HasSuffix(line, "o        ><_>")
	}
	if !matched {
		t.Errorf("expected grep to match frame0.txt; got:\n%s", screen)
	}
	if strings.Contains(screen, "frame1.txt:") {
		t.Errorf("expected grep not to match frame1.txt; got:\n%s", screen)
	}
	s.expectSuffix("391OS>")
}

func TestSyserr(t *testing.T) {
	s := newSession(t)
	s.typeString("syserr\n")

	screen := s.screen()
	if strings.Contains(screen, "FAIL") || !strings.Contains(screen, "PASS descriptor limit") {
		t.Errorf("expected every check to pass; got:\n%s", screen)
	}
	s.expectSuffix("PASS descriptor limit\n391OS>")
}

func TestCounter(t *testing.T) {
	s := newSession(t)
	s.typeString("counter 3\n")

	if got := s.k.RTC().Frequency(); got != counterHz {
		t.Errorf("expected counter to program %d Hz; got %d", counterHz, got)
	}

	for i := 0; i < 3; i++ {
		s.rtcTick()
	}
	s.expectSuffix("counter 3\n0\n1\n2\n391OS>")
}

func TestPingpong(t *testing.T) {
	s := newSession(t)
	s.typeString("pingpong 2\n")

	cons := s.k.Terminal(0).Console()
	if ch, _ := cons.Char(1, screenRows); ch != ballChar {
		t.Fatalf("expected the ball in the first column; got %q", ch)
	}

	s.rtcTick()
	s.rtcTick()

	for col, exp := range map[uint32]byte{1: ' ', 2: ' ', 3: ballChar} {
		if ch, _ := cons.Char(col, screenRows); ch != exp {
			t.Errorf("expected %q in column %d; got %q", exp, col, ch)
		}
	}

	if !strings.Contains(s.screen(), "pingpong 2\n391OS>") {
		t.Errorf("expected pingpong to halt; got:\n%s", s.screen())
	}
}
