package proc

import (
	"lwos/kernel/cpu"
	"lwos/kernel/fd"
	"lwos/kernel/mm/vmm"
)

// Offsets of the fields mirrored into the PCB area at the bottom of each
// process's kernel stack.
const (
	pcbPIDOffset      = 0
	pcbParentOffset   = 4
	pcbStatusOffset   = 8
	pcbTerminalOffset = 12
)

// PCB is a process control block. The root shell of each terminal has no
// parent; every other process is the only child of the process that executed
// it, so each terminal runs a single chain of processes and only the deepest
// one is runnable.
type PCB struct {
	pid      uint32
	name     string
	args     string
	terminal int
	entry    uint32

	exitStatus int32

	parent *PCB
	child  *PCB

	files fd.Table

	// ctx is the anchor that halt or the scheduler resumes.
	ctx *cpu.Context

	// vidmapped is set once the process called vidmap.
	vidmapped bool
}

// PID returns the process ID.
func (p *PCB) PID() uint32 { return p.pid }

// Name returns the name of the executed program.
func (p *PCB) Name() string { return p.name }

// Args returns the argument string passed to the program.
func (p *PCB) Args() string { return p.args }

// Terminal returns the terminal the process belongs to.
func (p *PCB) Terminal() int { return p.terminal }

// Parent returns the process that executed p, or nil for a root shell.
func (p *PCB) Parent() *PCB { return p.parent }

// Child returns the process p is waiting for, or nil.
func (p *PCB) Child() *PCB { return p.child }

// ExitStatus returns the status recorded by halt.
func (p *PCB) ExitStatus() int32 { return p.exitStatus }

// Files returns the descriptor table of the process.
func (p *PCB) Files() *fd.Table { return &p.files }

// IsRoot returns true for the root shell of a terminal.
func (p *PCB) IsRoot() bool { return p.parent == nil }

// deepest returns the last process in the chain that starts at p.
func (p *PCB) deepest() *PCB {
	for p.child != nil {
		p = p.child
	}

	return p
}

// syncToStack mirrors the PCB identity into the reserved area at the bottom
// of the process's kernel stack.
func (k *Kernel) syncToStack(p *PCB) {
	var (
		addr      = vmm.PCBAddr(p.pid)
		parentPID uint32
	)

	if p.parent != nil {
		parentPID = p.parent.pid
	}

	k.mem.PutUint32(addr+pcbPIDOffset, p.pid)
	k.mem.PutUint32(addr+pcbParentOffset, parentPID)
	k.mem.PutUint32(addr+pcbStatusOffset, uint32(p.exitStatus))
	k.mem.PutUint32(addr+pcbTerminalOffset, uint32(p.terminal))
}

// activate points the address space and TSS at p: its slot in the user
// window, its terminal's video page and its kernel stack. Interrupts must be
// disabled.
func (k *Kernel) activate(p *PCB) {
	k.as.MapProcess(p.pid)
	k.as.MapTerminalVideo(p.terminal, p.terminal == k.foreground)
	if p.vidmapped {
		k.as.MapVidmap()
	} else {
		k.as.UnmapVidmap()
	}

	k.cpu.SetKernelStack(cpu.KernelDS, vmm.KernelStackTop(p.pid))
}
