package proc

import (
	"lwos/kernel/cpu"
	"lwos/kernel/irq"
	"lwos/kernel/kfmt"
)

// handleTimer runs the round-robin scheduler. Each tick moves the CPU to the
// next booted terminal and resumes the deepest process of its chain; the
// interrupted process continues from here when its terminal's turn comes
// again.
func (k *Kernel) handleTimer() {
	next := k.nextTerminal()
	if next == k.sched {
		k.pic.EOI(irq.LineTimer)
		return
	}

	var (
		out = k.current
		in  = k.pcbs[next+1].deepest()
	)

	if k.schedDebug {
		kfmt.Fprintf(k.schedLog, "terminal %d -> %d (pid %d -> %d)\n", k.sched, next, out.pid, in.pid)
	}

	k.activate(in)
	k.sched = next
	k.current = in
	k.pic.EOI(irq.LineTimer)

	cpu.Switch(out.ctx, in.ctx, 0)
}

// nextTerminal returns the booted terminal that follows the scheduled one.
func (k *Kernel) nextTerminal() int {
	for i := 1; i <= NumTerminals; i++ {
		if term := (k.sched + i) % NumTerminals; k.isBooted(term) {
			return term
		}
	}

	return k.sched
}
