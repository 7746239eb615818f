// Package proc implements the process manager: process control blocks,
// program loading, the system call layer, the round-robin scheduler that
// multiplexes the CPU across the virtual terminals and the foreground
// terminal switch.
package proc

import (
	"io"

	"lwos/device"
	"lwos/device/keyboard"
	"lwos/device/pit"
	"lwos/device/rtc"
	"lwos/device/tty"
	"lwos/kernel"
	"lwos/kernel/cpu"
	"lwos/kernel/fd"
	"lwos/kernel/fs"
	"lwos/kernel/irq"
	"lwos/kernel/kfmt"
	"lwos/kernel/mm"
	"lwos/kernel/mm/pmm"
	"lwos/kernel/mm/vmm"
)

const (
	// NumTerminals is the number of virtual terminals. Terminal t is
	// served by the root shell with pid t+1.
	NumTerminals = 3

	// MaxChildSlots is the largest supported child process pool.
	MaxChildSlots = 3

	// MaxPID is the largest process ID.
	MaxPID = NumTerminals + MaxChildSlots

	// ShellName is the program started on every terminal.
	ShellName = "shell"
)

var (
	errInvalidConfig = &kernel.Error{Module: "proc", Message: "invalid kernel configuration"}
	errAlreadyBooted = &kernel.Error{Module: "proc", Message: "kernel already booted"}
)

// Config holds the settings used to build a Kernel.
type Config struct {
	// FS is the mounted boot filesystem.
	FS *fs.FS

	// Programs maps the entry point stored in an executable image to the
	// code that runs when the image is executed.
	Programs map[uint32]Program

	// ChildSlots is the size of the child process pool (0-3).
	ChildSlots int

	// TimerHz is the scheduler tick rate. Zero selects the PIT default.
	TimerHz uint32

	// SchedDebug enables logging of every context switch.
	SchedDebug bool

	// Echo, if set, receives a copy of the output rendered on the
	// foreground terminal.
	Echo io.Writer
}

// Kernel is the state of the machine: processor, interrupt controller,
// physical memory, page tables, devices and the process table. Apart from the
// device accessors used to inject input, its methods must only be invoked
// by the code that currently owns the CPU.
type Kernel struct {
	cpu *cpu.CPU
	pic *irq.Controller
	mem *mm.Memory
	as  *vmm.AddressSpace

	fs       *fs.FS
	programs map[uint32]Program

	keyboard *keyboard.Keyboard
	rtc      *rtc.RTC
	pit      *pit.PIT
	terms    [NumTerminals]*tty.Terminal

	fileOps   fd.FileOps
	dirOps    fd.DirOps
	rtcOps    fd.RTCOps
	stdinOps  fd.StdinOps
	stdoutOps fd.StdoutOps

	slots   *pmm.SlotAllocator
	pcbs    [MaxPID + 1]*PCB
	current *PCB

	// booted and live have bit t set once terminal t started its first
	// shell and while its root shell is running.
	booted uint8
	live   uint8

	// sched is the terminal whose process owns the CPU; foreground is
	// the terminal shown on the display.
	sched      int
	foreground int

	schedDebug bool
	log        *kfmt.PrefixWriter
	schedLog   *kfmt.PrefixWriter
}

// New builds a kernel from cfg. The kernel does not run any code until Boot
// is called.
func New(cfg Config) (*Kernel, *kernel.Error) {
	if cfg.FS == nil || cfg.ChildSlots < 0 || cfg.ChildSlots > MaxChildSlots {
		return nil, errInvalidConfig
	}

	if cfg.TimerHz == 0 {
		cfg.TimerHz = pit.DefaultFrequency
	}

	k := &Kernel{
		cpu:        cpu.New(),
		mem:        mm.NewMemory(),
		fs:         cfg.FS,
		programs:   cfg.Programs,
		slots:      pmm.NewSlotAllocator(NumTerminals+1, uint32(cfg.ChildSlots)),
		schedDebug: cfg.SchedDebug,
		log:        kfmt.NewPrefixWriter(nil, "proc"),
		schedLog:   kfmt.NewPrefixWriter(nil, "sched"),
	}

	k.pic = irq.NewController(k.cpu.Wake)
	k.as = vmm.New(k.mem, k.cpu, NumTerminals)
	k.keyboard = keyboard.New(func() { k.pic.Raise(irq.LineKeyboard) })
	k.rtc = rtc.New(func() { k.pic.Raise(irq.LineRTC) })
	k.pit = pit.New(cfg.TimerHz, func() { k.pic.Raise(irq.LineTimer) })

	for t := range k.terms {
		k.terms[t] = tty.NewTerminal(t, k.mem.Page(vmm.TerminalVideoAddr(t)))
		k.terms[t].Echo = cfg.Echo
	}

	k.fileOps = fd.FileOps{FS: k.fs}
	k.dirOps = fd.DirOps{FS: k.fs}
	k.rtcOps = fd.RTCOps{RTC: k.rtc, Wait: k.waitFor}
	k.stdinOps = fd.StdinOps{Terminals: k.terms[:], Wait: k.waitFor}
	k.stdoutOps = fd.StdoutOps{Terminals: k.terms[:]}

	k.pic.HandleIRQ(irq.LineTimer, k.handleTimer)
	k.pic.HandleIRQ(irq.LineKeyboard, k.handleKeyboard)
	k.pic.HandleIRQ(irq.LineRTC, k.handleRTC)

	return k, nil
}

// Boot shows terminal 0, starts its shell and hands the CPU over to it. The
// caller does not own the CPU once Boot returns.
func (k *Kernel) Boot() *kernel.Error {
	if k.booted != 0 {
		return errAlreadyBooted
	}

	k.cpu.DisableInterrupts()
	k.pic.Enable(irq.LineTimer)
	k.pic.Enable(irq.LineKeyboard)
	k.pic.Enable(irq.LineRTC)

	display := k.mem.Page(vmm.VideoMemAddr)
	for t, term := range k.terms {
		if t == k.foreground {
			term.Bind(display, true)
			continue
		}
		term.Bind(k.mem.Page(vmm.TerminalVideoAddr(t)), false)
	}

	shell, err := k.spawn(ShellName, nil, k.foreground)
	if err != nil {
		return err
	}

	k.sched = k.foreground
	k.current = shell
	shell.ctx.Resume(0)
	return nil
}

// Drivers returns the device drivers owned by the kernel in initialization
// order.
func (k *Kernel) Drivers() []device.Driver {
	drivers := []device.Driver{k.pit, k.rtc, k.keyboard}
	for _, term := range k.terms {
		drivers = append(drivers, term)
	}

	return drivers
}

// CPU returns the processor.
func (k *Kernel) CPU() *cpu.CPU { return k.cpu }

// PIC returns the interrupt controller.
func (k *Kernel) PIC() *irq.Controller { return k.pic }

// Keyboard returns the keyboard used to inject keystrokes.
func (k *Kernel) Keyboard() *keyboard.Keyboard { return k.keyboard }

// RTC returns the real time clock.
func (k *Kernel) RTC() *rtc.RTC { return k.rtc }

// PIT returns the scheduler timer.
func (k *Kernel) PIT() *pit.PIT { return k.pit }

// Terminal returns virtual terminal t.
func (k *Kernel) Terminal(t int) *tty.Terminal { return k.terms[t] }

// Display returns the live VGA text framebuffer.
func (k *Kernel) Display() []byte { return k.mem.Page(vmm.VideoMemAddr) }

// Foreground returns the terminal shown on the display.
func (k *Kernel) Foreground() int { return k.foreground }

// Current returns the process that owns the CPU.
func (k *Kernel) Current() *PCB { return k.current }

// Process returns the live process with the supplied pid, or nil.
func (k *Kernel) Process(pid uint32) *PCB {
	if pid == 0 || pid > MaxPID {
		return nil
	}

	return k.pcbs[pid]
}

// Children returns the number of processes occupying child slots.
func (k *Kernel) Children() int {
	return int(k.slots.Used())
}

// serviceInterrupts dispatches pending interrupts if the interrupt flag is
// set. Handlers may switch to another process; serviceInterrupts returns
// once the caller has been scheduled again.
func (k *Kernel) serviceInterrupts() {
	if !k.cpu.InterruptsEnabled() {
		return
	}

	flags := k.cpu.SaveAndDisableInterrupts()
	k.pic.Service()
	k.cpu.RestoreInterrupts(flags)
}

// waitFor keeps servicing interrupts with the interrupt flag set until ready
// returns true, halting the CPU while nothing is pending.
func (k *Kernel) waitFor(ready func() bool) {
	flags := k.cpu.InterruptsEnabled()
	k.cpu.EnableInterrupts()

	for {
		k.serviceInterrupts()
		if ready() {
			break
		}
		k.cpu.Halt()
	}

	k.cpu.RestoreInterrupts(flags)
}

func (k *Kernel) handleRTC() {
	k.rtc.HandleInterrupt()
	k.pic.EOI(irq.LineRTC)
}

func (k *Kernel) isBooted(term int) bool { return k.booted&(1<<term) != 0 }
func (k *Kernel) isLive(term int) bool   { return k.live&(1<<term) != 0 }
