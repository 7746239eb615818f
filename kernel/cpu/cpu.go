// Package cpu models the privileged state of the single x86 processor that the
// kernel runs on: the interrupt flag, the wait-for-interrupt instruction, the
// TLB, the active page directory and the TSS kernel stack fields.
package cpu

import "sync/atomic"

// Segment selectors installed in the GDT.
const (
	KernelCS = uint16(0x10)
	KernelDS = uint16(0x18)
	UserCS   = uint16(0x23)
	UserDS   = uint16(0x2B)
)

const (
	// FlagIF is the EFLAGS interrupt-enable bit.
	FlagIF = uint32(1 << 9)

	// flagReserved is the always-set EFLAGS bit 1.
	flagReserved = uint32(1 << 1)

	// UserEFlags is the EFLAGS value loaded when entering user mode:
	// interrupts enabled.
	UserEFlags = FlagIF | flagReserved
)

// CPU holds the processor state manipulated by the kernel. Apart from Wake,
// which may be invoked by any device, CPU methods must only be called by the
// code that currently owns the processor.
type CPU struct {
	interruptsEnabled bool

	// wake is signalled whenever an interrupt line is raised so that a
	// halted CPU can resume.
	wake chan struct{}

	activePDT  uintptr
	tlbFlushes uint64

	// Task state segment fields used on privilege transitions.
	ss0  uint16
	esp0 uintptr

	halts uint64

	// haltHook, if set, is invoked every time the CPU is about to halt.
	haltHook func()
}

// New returns a CPU with interrupts disabled, as it is after boot.
func New() *CPU {
	return &CPU{
		wake: make(chan struct{}, 1),
		ss0:  KernelDS,
	}
}

// EnableInterrupts enables interrupt handling (sti).
func (c *CPU) EnableInterrupts() {
	c.interruptsEnabled = true
}

// DisableInterrupts disables interrupt handling (cli).
func (c *CPU) DisableInterrupts() {
	c.interruptsEnabled = false
}

// InterruptsEnabled returns true if the interrupt flag is set.
func (c *CPU) InterruptsEnabled() bool {
	return c.interruptsEnabled
}

// SaveAndDisableInterrupts disables interrupts and returns the previous
// state of the interrupt flag so it can be passed to RestoreInterrupts.
func (c *CPU) SaveAndDisableInterrupts() bool {
	prev := c.interruptsEnabled
	c.interruptsEnabled = false
	return prev
}

// RestoreInterrupts restores an interrupt flag value previously returned by
// SaveAndDisableInterrupts.
func (c *CPU) RestoreInterrupts(enabled bool) {
	c.interruptsEnabled = enabled
}

// Halt stops instruction execution until the next interrupt is raised. If an
// interrupt was raised since the last call to Halt, Halt returns immediately.
func (c *CPU) Halt() {
	atomic.AddUint64(&c.halts, 1)
	if c.haltHook != nil {
		c.haltHook()
	}
	<-c.wake
}

// Halts returns the number of times the CPU has been halted.
func (c *CPU) Halts() uint64 {
	return atomic.LoadUint64(&c.halts)
}

// SetHaltHook registers fn to be called each time the CPU halts, before it
// starts waiting for an interrupt. It is used to observe an idle machine.
func (c *CPU) SetHaltHook(fn func()) {
	c.haltHook = fn
}

// Wake resumes a halted CPU. It never blocks and is safe to call from any
// goroutine.
func (c *CPU) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// FlushTLB invalidates all cached address translations.
func (c *CPU) FlushTLB() {
	c.tlbFlushes++
}

// TLBFlushes returns the number of TLB flushes performed so far.
func (c *CPU) TLBFlushes() uint64 {
	return c.tlbFlushes
}

// SwitchPDT sets the root page directory to the specified physical address
// and flushes the TLB.
func (c *CPU) SwitchPDT(pdtPhysAddr uintptr) {
	c.activePDT = pdtPhysAddr
	c.FlushTLB()
}

// ActivePDT returns the physical address of the currently active page
// directory.
func (c *CPU) ActivePDT() uintptr {
	return c.activePDT
}

// SetKernelStack updates the TSS so the next user to kernel transition
// switches to the supplied stack.
func (c *CPU) SetKernelStack(ss0 uint16, esp0 uintptr) {
	c.ss0, c.esp0 = ss0, esp0
}

// KernelStack returns the TSS ss0/esp0 pair.
func (c *CPU) KernelStack() (uint16, uintptr) {
	return c.ss0, c.esp0
}
