package userland

import (
	"lwos/kernel/mm/vmm"
	"lwos/kernel/proc"
)

// Syserr calls the kernel with invalid arguments and reports whether every
// call was rejected. It halts with the number of failed checks.
func Syserr(sys proc.Syscalls) {
	buf := make([]byte, 8)

	checks := []struct {
		name   string
		status func() int32
	}{
		{"write to stdin", func() int32 { return sys.Write(0, buf) }},
		{"read from stdout", func() int32 { return sys.Read(1, buf) }},
		{"close stdin", func() int32 { return sys.Close(0) }},
		{"close stdout", func() int32 { return sys.Close(1) }},
		{"close unused descriptor", func() int32 { return sys.Close(5) }},
		{"descriptor out of range", func() int32 { return sys.Read(8, buf) }},
		{"negative descriptor", func() int32 { return sys.Write(-1, buf) }},
		{"open missing file", func() int32 { return sys.Open("nonexistent") }},
		{"execute missing program", func() int32 { return sys.Execute("nonexistent") }},
		{"execute non-executable", func() int32 { return sys.Execute("frame0.txt") }},
		{"getargs without arguments", func() int32 { return sys.Getargs(buf) }},
		{"vidmap in kernel memory", func() int32 { return sys.Vidmap(uint32(vmm.KernelBase)) }},
		{"vidmap past user window", func() int32 { return sys.Vidmap(uint32(vmm.UserEnd)) }},
	}

	var failed int32
	for _, check := range checks {
		if status := check.status(); status != -1 {
			puts(sys, "FAIL "+check.name+"\n")
			failed++
			continue
		}
		puts(sys, "PASS "+check.name+"\n")
	}

	// Seven opens fill every free descriptor; the seventh must fail.
	opened := 0
	for i := 0; i < 7; i++ {
		if sys.Open(".") >= 0 {
			opened++
		}
	}
	if opened != 6 {
		puts(sys, "FAIL descriptor limit\n")
		failed++
	} else {
		puts(sys, "PASS descriptor limit\n")
	}

	sys.Halt(failed)
}
