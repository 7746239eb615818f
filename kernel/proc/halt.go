package proc

import (
	"lwos/kernel/cpu"
	"lwos/kernel/kfmt"
)

// HaltException is the status reported for a process that was terminated by
// an exception. Regular halt statuses are limited to 0-255.
const HaltException = 256

// exit terminates p, which must be the current process, and never returns.
//
// The descriptors of p are closed and its vidmap mapping removed. A child
// hands the CPU back to its parent, whose execute call returns status. A root
// shell is replaced by a fresh shell in the same slot so every booted
// terminal always has a live shell.
func (k *Kernel) exit(p *PCB, status int32) {
	k.cpu.DisableInterrupts()

	p.files.CloseAll()
	k.as.UnmapVidmap()
	p.vidmapped = false
	p.exitStatus = status
	k.syncToStack(p)

	kfmt.Fprintf(k.log, "pid %d (%s) halted with status %d\n", p.pid, p.name, status)

	if p.parent == nil {
		k.respawn(p)
	} else {
		k.returnToParent(p, status)
	}

	cpu.Exit()
}

func (k *Kernel) respawn(p *PCB) {
	term := p.terminal
	k.live &^= 1 << term
	k.pcbs[p.pid] = nil

	shell, err := k.spawn(ShellName, nil, term)
	if err != nil {
		kfmt.Panic(err)
		return
	}

	k.current = shell
	shell.ctx.Resume(0)
}

func (k *Kernel) returnToParent(p *PCB, status int32) {
	parent := p.parent

	parent.child = nil
	k.pcbs[p.pid] = nil
	k.slots.Free(p.pid)

	k.current = parent
	k.activate(parent)
	parent.ctx.Resume(status)
}
