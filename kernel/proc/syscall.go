package proc

import (
	"encoding/binary"

	"lwos/kernel/fd"
	"lwos/kernel/fs"
	"lwos/kernel/mm/vmm"
)

// Syscalls is the system call interface seen by user programs. Pending
// interrupts are serviced on entry to and exit from every call, so a program
// may be preempted at any of them.
type Syscalls interface {
	// Halt terminates the calling program with the low 8 bits of status.
	// It never returns.
	Halt(status int32)

	// Execute runs command as a child and returns its halt status, -1 if
	// the program cannot be loaded or -2 if no process slot is free.
	Execute(command string) int32

	// Read reads from descriptor fd into buf.
	Read(fd int32, buf []byte) int32

	// Write writes buf to descriptor fd.
	Write(fd int32, buf []byte) int32

	// Open opens the named file, directory or device.
	Open(filename string) int32

	// Close releases descriptor fd.
	Close(fd int32) int32

	// Getargs copies the NUL-terminated argument string into buf.
	Getargs(buf []byte) int32

	// Vidmap maps the terminal's video page into user space and stores
	// its user address at screenStart.
	Vidmap(screenStart uint32) int32

	// SetHandler and Sigreturn are accepted and ignored.
	SetHandler(signum int32, handlerAddr uint32) int32
	Sigreturn() int32

	// Load and Store access user memory through the MMU. Accessing an
	// address that is not mapped for user mode raises a page fault.
	Load(addr uint32, buf []byte)
	Store(addr uint32, data []byte)
}

// syscalls implements Syscalls on behalf of a single process.
type syscalls struct {
	k   *Kernel
	pcb *PCB
}

func (s *syscalls) Halt(status int32) {
	s.k.serviceInterrupts()
	s.k.exit(s.pcb, status&0xff)
}

func (s *syscalls) Execute(command string) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	return s.k.execute(s.pcb, command)
}

func (s *syscalls) Read(num int32, buf []byte) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	n, err := s.pcb.files.Read(int(num), buf)
	if err != nil {
		return err.Status()
	}

	return int32(n)
}

func (s *syscalls) Write(num int32, buf []byte) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	n, err := s.pcb.files.Write(int(num), buf)
	if err != nil {
		return err.Status()
	}

	return int32(n)
}

func (s *syscalls) Open(filename string) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	dentry, err := s.k.fs.LookupByName(filename)
	if err != nil {
		return err.Status()
	}

	var ops fd.Ops
	switch dentry.Type {
	case fs.TypeRTC:
		ops = s.k.rtcOps
	case fs.TypeDir:
		ops = s.k.dirOps
	case fs.TypeFile:
		ops = s.k.fileOps
	default:
		return -1
	}

	num, err := s.pcb.files.Open(ops, dentry.Inode)
	if err != nil {
		return err.Status()
	}

	return int32(num)
}

func (s *syscalls) Close(num int32) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	return s.pcb.files.Close(int(num)).Status()
}

func (s *syscalls) Getargs(buf []byte) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	args := s.pcb.args
	if len(args) == 0 || len(buf) < len(args)+1 {
		return -1
	}

	buf[copy(buf, args)] = 0
	return 0
}

func (s *syscalls) Vidmap(screenStart uint32) int32 {
	defer s.k.serviceInterrupts()
	s.k.serviceInterrupts()

	if uintptr(screenStart) < vmm.UserBase || uintptr(screenStart) > vmm.UserEnd-4 {
		return -1
	}

	k := s.k
	flags := k.cpu.SaveAndDisableInterrupts()
	s.pcb.vidmapped = true
	k.activate(s.pcb)
	k.cpu.RestoreInterrupts(flags)

	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], uint32(vmm.VidmapAddr))
	if fault := k.as.CopyToUser(uintptr(screenStart), out[:]); fault != nil {
		return -1
	}

	return 0
}

func (s *syscalls) SetHandler(int32, uint32) int32 {
	return 0
}

func (s *syscalls) Sigreturn() int32 {
	return 0
}

func (s *syscalls) Load(addr uint32, buf []byte) {
	s.k.serviceInterrupts()

	if fault := s.k.as.CopyFromUser(uintptr(addr), buf); fault != nil {
		fault.EIP = s.pcb.entry
		panic(fault)
	}
}

func (s *syscalls) Store(addr uint32, data []byte) {
	s.k.serviceInterrupts()

	if fault := s.k.as.CopyToUser(uintptr(addr), data); fault != nil {
		fault.EIP = s.pcb.entry
		panic(fault)
	}
}
