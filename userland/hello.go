package userland

import (
	"lwos/device/tty"
	"lwos/kernel/proc"
)

// Hello asks for a name and greets it.
func Hello(sys proc.Syscalls) {
	buf := make([]byte, tty.LineBufferSize)

	puts(sys, "Hi, what's your name? ")
	name := readLine(sys, buf)
	puts(sys, "Hello, "+name+"\n")

	sys.Halt(0)
}
