package userland

import (
	"encoding/binary"
	"strconv"

	"lwos/kernel/proc"
)

const (
	counterHz    = 32
	pingpongHz   = 64
	defaultCount = 10
)

// openRTC opens the clock and programs it to hz interrupts per second.
func openRTC(sys proc.Syscalls, hz uint32) int32 {
	clock := sys.Open("rtc")
	if clock < 0 {
		return clock
	}

	var freq [4]byte
	binary.LittleEndian.PutUint32(freq[:], hz)
	if sys.Write(clock, freq[:]) != int32(len(freq)) {
		sys.Close(clock)
		return -1
	}

	return clock
}

// count returns the count passed as the program argument or defaultCount.
func count(sys proc.Syscalls) (int, bool) {
	arg, ok := args(sys)
	if !ok {
		return defaultCount, true
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// Counter prints an increasing number on every clock interrupt. The number
// of lines is given by its argument.
func Counter(sys proc.Syscalls) {
	n, ok := count(sys)
	if !ok {
		puts(sys, "usage: counter [lines]\n")
		sys.Halt(1)
	}

	clock := openRTC(sys, counterHz)
	if clock < 0 {
		puts(sys, "cannot open rtc\n")
		sys.Halt(2)
	}

	for i := 0; i < n; i++ {
		sys.Read(clock, nil)
		puts(sys, strconv.Itoa(i)+"\n")
	}

	sys.Close(clock)
	sys.Halt(0)
}
