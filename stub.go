package main

import (
	"os"
	"strings"

	"lwos/kernel/kfmt"
	"lwos/kernel/kmain"
)

// cmdLineEnv names the environment variable holding the boot command line
// when no arguments are given.
const cmdLineEnv = "LWOS_CMDLINE"

// main hands the boot command line and the host console to the kernel.
// Kernel log output goes to stderr so it does not mix with the terminal.
func main() {
	cmdLine := os.Getenv(cmdLineEnv)
	if len(os.Args) > 1 {
		cmdLine = strings.Join(os.Args[1:], " ")
	}

	kfmt.SetOutputSink(os.Stderr)
	kmain.Kmain(cmdLine, os.Stdin, os.Stdout)
}
