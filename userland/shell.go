package userland

import (
	"lwos/device/tty"
	"lwos/kernel/proc"
)

const prompt = "391OS> "

// Shell reads commands from the terminal and executes them. It reports
// failed commands and halts on "exit".
func Shell(sys proc.Syscalls) {
	buf := make([]byte, tty.LineBufferSize)

	for {
		puts(sys, prompt)

		cmd := readLine(sys, buf)
		switch cmd {
		case "":
			continue
		case "exit":
			sys.Halt(0)
		}

		switch status := sys.Execute(cmd); status {
		case 0:
		case -1:
			puts(sys, "no such command\n")
		case -2:
			puts(sys, "too many processes\n")
		case proc.HaltException:
			puts(sys, "program terminated by exception\n")
		default:
			puts(sys, "program terminated abnormally\n")
		}
	}
}
