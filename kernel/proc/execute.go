package proc

import (
	"runtime"
	"strings"

	"lwos/kernel"
	"lwos/kernel/cpu"
	"lwos/kernel/fd"
	"lwos/kernel/irq"
	"lwos/kernel/kfmt"
	"lwos/kernel/mm/pmm"
	"lwos/kernel/mm/vmm"
)

const (
	// MaxCommandLen is the longest command line accepted by execute.
	// Longer commands are truncated.
	MaxCommandLen = 128

	// MaxArgsLen is the size of the argument buffer of a process.
	MaxArgsLen = 128
)

var (
	// ErrNotFound is returned by execute when the program does not exist.
	ErrNotFound = &kernel.Error{Module: "proc", Message: "command not found", Code: -1}

	// ErrBadFormat is returned by execute when the file is not an
	// executable image.
	ErrBadFormat = &kernel.Error{Module: "proc", Message: "exec format error", Code: -1}

	// ErrNoProcessSlot is returned by execute when every child slot is
	// occupied.
	ErrNoProcessSlot = pmm.ErrNoFreeSlot
)

// parseCommand splits a command line into the program name and its argument
// string. Spaces between the name and the arguments are dropped.
func parseCommand(cmd string) (string, string) {
	if len(cmd) > MaxCommandLen {
		cmd = cmd[:MaxCommandLen]
	}
	if end := strings.IndexByte(cmd, 0); end >= 0 {
		cmd = cmd[:end]
	}

	name, args, _ := strings.Cut(cmd, " ")
	args = strings.TrimLeft(args, " ")
	if len(args) > MaxArgsLen-1 {
		args = args[:MaxArgsLen-1]
	}

	return name, args
}

// execute loads cmd as a child of parent and transfers the CPU to it. It
// returns the child's halt status once the child exits, or a negative status
// if the program could not be started.
func (k *Kernel) execute(parent *PCB, cmd string) int32 {
	flags := k.cpu.SaveAndDisableInterrupts()
	defer k.cpu.RestoreInterrupts(flags)

	child, err := k.spawn(cmd, parent, parent.terminal)
	if err != nil {
		kfmt.Fprintf(k.log, "execute \"%s\" failed: %s\n", cmd, err.Message)
		return err.Status()
	}

	k.current = child
	return cpu.Switch(parent.ctx, child.ctx, 0)
}

// spawn creates a process for cmd on terminal term and prepares its user
// mode entry. The new process is parked until some context resumes it. On
// failure no process state is modified. Interrupts must be disabled.
//
// A shell started on a terminal without a running root shell becomes that
// terminal's root process; everything else is placed in a child slot.
func (k *Kernel) spawn(cmd string, parent *PCB, term int) (*PCB, *kernel.Error) {
	name, args := parseCommand(cmd)

	image, entry, err := k.loadImage(name)
	if err != nil {
		return nil, err
	}

	var (
		pid  uint32
		root = name == ShellName && !k.isLive(term)
	)

	if root {
		pid = uint32(term) + 1
		parent = nil
	} else if pid, err = k.slots.Alloc(); err != nil {
		return nil, err
	}

	p := &PCB{
		pid:      pid,
		name:     name,
		args:     args,
		terminal: term,
		entry:    entry,
		parent:   parent,
		ctx:      cpu.NewContext(),
	}
	p.files.Bind(fd.Stdin, k.stdinOps, uint32(term))
	p.files.Bind(fd.Stdout, k.stdoutOps, uint32(term))

	k.activate(p)
	if fault := k.as.CopyToUser(vmm.UserLoadAddr, image); fault != nil {
		kfmt.Panic(fault)
	}

	if parent != nil {
		parent.child = p
	}
	if root {
		k.booted |= 1 << term
		k.live |= 1 << term
	}
	k.pcbs[pid] = p
	k.syncToStack(p)

	kfmt.Fprintf(k.log, "pid %d: %s on terminal %d\n", pid, name, term)

	cpu.Iret(p.ctx, cpu.NewUserFrame(entry, uint32(vmm.UserStackTop)), func(frame cpu.IretFrame) {
		k.runUser(p, frame)
	})

	return p, nil
}

// runUser executes the program at frame.EIP on behalf of p. Faults raised by
// the program terminate it with HaltException.
func (k *Kernel) runUser(p *PCB, frame cpu.IretFrame) {
	defer func() {
		if r := recover(); r != nil {
			k.kill(p, toFault(r, frame.EIP))
		}
	}()

	k.cpu.RestoreInterrupts(frame.EFlags&cpu.FlagIF != 0)

	prog, ok := k.programs[frame.EIP]
	if !ok {
		panic(&irq.Fault{Num: irq.InvalidOpcode, EIP: frame.EIP})
	}

	prog(&syscalls{k: k, pcb: p})
	k.exit(p, 0)
}

// toFault converts a value recovered from a user program into the exception
// the CPU would have raised.
func toFault(r interface{}, eip uint32) *irq.Fault {
	switch v := r.(type) {
	case *irq.Fault:
		return v
	case runtime.Error:
		if strings.Contains(v.Error(), "divide by zero") {
			return &irq.Fault{Num: irq.DivideByZero, EIP: eip}
		}
	}

	return &irq.Fault{Num: irq.GPFException, EIP: eip}
}

// kill reports fault on the process terminal and terminates p.
func (k *Kernel) kill(p *PCB, fault *irq.Fault) {
	kfmt.Fprintf(k.log, "pid %d (%s) killed by ", p.pid, p.name)
	fault.DumpTo(k.log)
	kfmt.Fprintf(k.terms[p.terminal], "%s\n", fault.Error())

	k.exit(p, HaltException)
}
