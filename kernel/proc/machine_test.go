package proc

import (
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"lwos/device/video/console"
	"lwos/kernel/fs"
	"lwos/kernel/irq"
	"lwos/kernel/mm/vmm"
)

const frame0 = "/\\/\\/\\ fish\n"

// machine runs a kernel under test control. Every time the CPU halts it
// parks in the halt hook until the test lets it continue, so kernel state can
// be inspected while nothing is running.
type machine struct {
	t    *testing.T
	k    *Kernel
	idle chan struct{}
	cont chan struct{}
}

func newMachine(t *testing.T, childSlots int, programs map[string]Program) *machine {
	t.Helper()

	programs[ShellName] = testShell

	var (
		b       = fs.NewBuilder()
		entries = make(map[uint32]Program)
		names   []string
	)

	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		entry := uint32(vmm.UserLoadAddr) + uint32(i+1)*0x100
		entries[entry] = programs[name]
		if err := b.AddFile(name, BuildImage(entry, []byte(name))); err != nil {
			t.Fatal(err)
		}
	}

	b.AddDevice("rtc")
	for name, data := range map[string]string{
		"frame0.txt": frame0,
		"notexe":     "this file has no executable header at all",
		"ghost":      string(BuildImage(0xdeadbeef, nil)),
	} {
		if err := b.AddFile(name, []byte(data)); err != nil {
			t.Fatal(err)
		}
	}

	image, err := fs.Mount(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	k, err := New(Config{FS: image, Programs: entries, ChildSlots: childSlots})
	if err != nil {
		t.Fatal(err)
	}

	m := &machine{
		t:    t,
		k:    k,
		idle: make(chan struct{}),
		cont: make(chan struct{}),
	}
	k.CPU().SetHaltHook(func() {
		m.idle <- struct{}{}
		<-m.cont
	})

	return m
}

// testShell prints a prompt, executes every line it reads and prints the
// returned status in brackets. The command "exit" halts the shell.
func testShell(sys Syscalls) {
	buf := make([]byte, 128)
	for {
		sys.Write(1, []byte("> "))

		n := sys.Read(0, buf)
		if n <= 0 {
			continue
		}

		cmd := strings.TrimSuffix(string(buf[:n]), "\n")
		switch cmd {
		case "":
			continue
		case "exit":
			sys.Halt(0)
		}

		status := sys.Execute(cmd)
		sys.Write(1, []byte("["+strconv.Itoa(int(status))+"]\n"))
	}
}

func (m *machine) boot() {
	m.t.Helper()

	if err := m.k.Boot(); err != nil {
		m.t.Fatal(err)
	}
	m.waitIdle()
}

func (m *machine) waitIdle() {
	m.t.Helper()

	select {
	case <-m.idle:
	case <-time.After(5 * time.Second):
		m.t.Fatal("timed out waiting for the CPU to become idle")
	}
}

// run invokes fn while the CPU is parked, resumes the CPU and waits until it
// becomes idle again. fn must raise at least one interrupt.
func (m *machine) run(fn func()) {
	m.t.Helper()

	fn()
	m.cont <- struct{}{}
	m.waitIdle()
}

func (m *machine) typeString(s string) {
	m.t.Helper()
	m.run(func() { m.k.Keyboard().TypeString(s) })
}

func (m *machine) tick() {
	m.t.Helper()
	m.run(func() { m.k.PIC().Raise(irq.LineTimer) })
}

// screen returns the text rendered on terminal term.
func (m *machine) screen(term int) string {
	cons := m.k.Terminal(term).Console()

	var lines []string
	for y := uint32(1); y <= console.DefaultRows; y++ {
		lines = append(lines, cons.Line(y))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (m *machine) expectScreen(term int, exp string) {
	m.t.Helper()

	if got := m.screen(term); got != exp {
		m.t.Fatalf("expected terminal %d to show:\n%s\ngot:\n%s", term, exp, got)
	}
}

func (m *machine) mappedSlot() uint32 {
	m.t.Helper()

	slot, err := m.k.as.MappedSlot()
	if err != nil {
		m.t.Fatal(err)
	}

	return slot
}
