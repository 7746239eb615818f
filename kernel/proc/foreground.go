package proc

import (
	"lwos/device/keyboard"
	"lwos/kernel/cpu"
	"lwos/kernel/irq"
	"lwos/kernel/kfmt"
	"lwos/kernel/mm/vmm"
)

// handleKeyboard delivers queued keystrokes to the foreground terminal.
func (k *Kernel) handleKeyboard() {
	k.pic.EOI(irq.LineKeyboard)

	for {
		ev, ok := k.keyboard.Next()
		if !ok {
			return
		}

		term := k.terms[k.foreground]
		switch ev.Kind {
		case keyboard.KindChar:
			term.Type(ev.Ch)
		case keyboard.KindBackspace:
			term.Backspace()
		case keyboard.KindEnter:
			term.Enter()
		case keyboard.KindClear:
			term.ClearScreen()
		case keyboard.KindSwitch:
			if k.switchForeground(ev.Terminal) {
				// The remaining keystrokes were handed to the
				// new shell.
				return
			}
		}
	}
}

// switchForeground shows terminal term on the display. The first time a
// terminal is shown its root shell is started and takes over the CPU; in
// that case switchForeground returns true once the interrupted process is
// scheduled again.
func (k *Kernel) switchForeground(term int) bool {
	if term < 0 || term >= NumTerminals || term == k.foreground {
		return false
	}

	var (
		prev    = k.foreground
		display = k.mem.Page(vmm.VideoMemAddr)
		saved   = k.mem.Page(vmm.TerminalVideoAddr(prev))
		shown   = k.mem.Page(vmm.TerminalVideoAddr(term))
	)

	copy(saved, display)
	copy(display, shown)
	k.terms[prev].Bind(saved, false)
	k.terms[term].Bind(display, true)

	k.foreground = term
	k.as.MapTerminalVideo(k.current.terminal, k.current.terminal == term)

	if k.isBooted(term) {
		return false
	}

	if k.keyboard.Buffered() > 0 {
		k.pic.Raise(irq.LineKeyboard)
	}

	shell, err := k.spawn(ShellName, nil, term)
	if err != nil {
		kfmt.Fprintf(k.log, "cannot start shell on terminal %d: %s\n", term, err.Message)
		return false
	}

	out := k.current
	k.sched = term
	k.current = shell
	cpu.Switch(out.ctx, shell.ctx, 0)

	return true
}
