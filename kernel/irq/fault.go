package irq

import (
	"io"

	"lwos/kernel/kfmt"
)

// ExceptionNum describes an x86 exception slot.
type ExceptionNum uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = ExceptionNum(0)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = ExceptionNum(6)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = ExceptionNum(8)

	// GPFException occurs when a general protection fault occurs.
	GPFException = ExceptionNum(13)

	// PageFaultException occurs when a page directory or table entry is
	// not present or when a privilege and/or RW protection check fails.
	PageFaultException = ExceptionNum(14)
)

var exceptionNames = map[ExceptionNum]string{
	DivideByZero:       "divide error",
	InvalidOpcode:      "invalid opcode",
	DoubleFault:        "double fault",
	GPFException:       "general protection fault",
	PageFaultException: "page fault",
}

// String returns the exception name.
func (n ExceptionNum) String() string {
	if name, ok := exceptionNames[n]; ok {
		return name
	}

	return "exception"
}

// Page fault error code bits.
const (
	FaultPresent = uint32(1 << 0)
	FaultWrite   = uint32(1 << 1)
	FaultUser    = uint32(1 << 2)
)

// Fault describes a CPU exception raised while executing user code. It is
// delivered by panicking with a *Fault value; the process manager recovers it
// and terminates the faulting process.
type Fault struct {
	Num ExceptionNum

	// Code is the error code pushed by the CPU (0 for exceptions that
	// do not push one).
	Code uint32

	// Addr is the faulting linear address (CR2) for page faults.
	Addr uint32

	// EIP is the instruction pointer at the time of the fault.
	EIP uint32
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return f.Num.String()
}

// DumpTo outputs the fault details to w.
func (f *Fault) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "%s (vector %d)\n", f.Num.String(), uint8(f.Num))
	kfmt.Fprintf(w, "EIP = %8x ERR = %8x\n", f.EIP, f.Code)
	if f.Num == PageFaultException {
		kfmt.Fprintf(w, "CR2 = %8x\n", f.Addr)
	}
}
