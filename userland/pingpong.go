package userland

import (
	"encoding/binary"

	"lwos/kernel/mm/vmm"
	"lwos/kernel/proc"
)

const (
	screenColumns = 80
	screenRows    = 25

	// pingpongRow is the screen row the ball bounces on.
	pingpongRow = screenRows - 1

	ballChar = 'O'
	ballAttr = 0x0e
)

// screenPtr is where vidmap stores the address of the video page; it sits at
// the top of the user stack.
var screenPtr = uint32(vmm.UserStackTop)

// Pingpong maps the video page and bounces a ball along the bottom row,
// moving one cell per clock interrupt. Its argument is the number of frames.
func Pingpong(sys proc.Syscalls) {
	frames, ok := count(sys)
	if !ok {
		puts(sys, "usage: pingpong [frames]\n")
		sys.Halt(1)
	}

	if sys.Vidmap(screenPtr) != 0 {
		puts(sys, "vidmap failed\n")
		sys.Halt(2)
	}

	var ptr [4]byte
	sys.Load(screenPtr, ptr[:])
	screen := binary.LittleEndian.Uint32(ptr[:])

	clock := openRTC(sys, pingpongHz)
	if clock < 0 {
		puts(sys, "cannot open rtc\n")
		sys.Halt(3)
	}

	var (
		x, dx = 0, 1
		cell  = func(col int) uint32 {
			return screen + uint32(pingpongRow*screenColumns+col)*2
		}
	)

	for frame := 0; frame < frames; frame++ {
		sys.Store(cell(x), []byte{ballChar, ballAttr})
		sys.Read(clock, nil)
		sys.Store(cell(x), []byte{' ', ballAttr})

		if x+dx < 0 || x+dx >= screenColumns {
			dx = -dx
		}
		x += dx
	}

	sys.Store(cell(x), []byte{ballChar, ballAttr})
	sys.Close(clock)
	sys.Halt(0)
}
