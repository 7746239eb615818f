// Package userland contains the programs shipped on the boot filesystem and
// builds the filesystem image that holds them.
package userland

import (
	"bytes"
	"sort"
	"strconv"

	"lwos/kernel"
	"lwos/kernel/fs"
	"lwos/kernel/mm/vmm"
	"lwos/kernel/proc"
)

const (
	stdin  = 0
	stdout = 1

	// entryBase is the entry point of the first program; the others
	// follow at entryStride intervals in name order.
	entryBase   = uint32(vmm.UserLoadAddr) + 0x100
	entryStride = 0x40
)

// programs lists the bundled programs by name.
var programs = map[string]proc.Program{
	"cat":      Cat,
	"counter":  Counter,
	"grep":     Grep,
	"hello":    Hello,
	"ls":       Ls,
	"pingpong": Pingpong,
	"shell":    Shell,
	"syserr":   Syserr,
}

// Names returns the names of the bundled programs in sorted order.
func Names() []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Entries returns the table that maps program entry points to their code.
func Entries() map[uint32]proc.Program {
	entries := make(map[uint32]proc.Program, len(programs))
	for i, name := range Names() {
		entries[entryFor(i)] = programs[name]
	}

	return entries
}

func entryFor(index int) uint32 {
	return entryBase + uint32(index)*entryStride
}

// Image builds a filesystem image holding the executable of every bundled
// program, the rtc device, the default text files and the supplied extra
// files.
func Image(extra map[string][]byte) ([]byte, *kernel.Error) {
	b := fs.NewBuilder()

	for i, name := range Names() {
		if err := b.AddFile(name, proc.BuildImage(entryFor(i), []byte(name))); err != nil {
			return nil, err
		}
	}

	if err := b.AddDevice("rtc"); err != nil {
		return nil, err
	}

	files := defaultFiles()
	for name, data := range extra {
		files[name] = data
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := b.AddFile(name, files[name]); err != nil {
			return nil, err
		}
	}

	return b.Bytes(), nil
}

func defaultFiles() map[string][]byte {
	var large bytes.Buffer
	for line := 0; line < 200; line++ {
		large.WriteString("line ")
		large.WriteString(strconv.Itoa(line))
		large.WriteString(": the quick brown fox jumps over the lazy dog\n")
	}

	return map[string][]byte{
		"frame0.txt": []byte(frame0),
		"frame1.txt": []byte(frame1),
		"verylargetextwithverylongname.tx": large.Bytes(),
	}
}

const frame0 = `/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
      o
    o    o
          o        ><_>
             o   _ \\
                   \\ \\
`

const frame1 = `/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/\/
       o
   o        o
         o       <_><
           o    _  //
                  // //
`

// puts writes s to standard output.
func puts(sys proc.Syscalls, s string) {
	sys.Write(stdout, []byte(s))
}

// args returns the argument string of the calling program.
func args(sys proc.Syscalls) (string, bool) {
	buf := make([]byte, proc.MaxArgsLen)
	if sys.Getargs(buf) != 0 {
		return "", false
	}

	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}

	return string(buf), true
}

// readLine reads one line from standard input without its line feed.
func readLine(sys proc.Syscalls, buf []byte) string {
	n := sys.Read(stdin, buf)
	if n <= 0 {
		return ""
	}

	return string(bytes.TrimRight(buf[:n], "\n"))
}
