package userland

import (
	"bytes"

	"lwos/kernel/fs"
	"lwos/kernel/proc"
)

// Ls prints the name of every directory entry.
func Ls(sys proc.Syscalls) {
	dir := sys.Open(".")
	if dir < 0 {
		puts(sys, "cannot open directory\n")
		sys.Halt(1)
	}

	name := make([]byte, fs.MaxNameLen)
	for {
		n := sys.Read(dir, name)
		if n <= 0 {
			break
		}

		sys.Write(stdout, name[:n])
		puts(sys, "\n")
	}

	sys.Close(dir)
	sys.Halt(0)
}

// Cat prints the file named by its argument.
func Cat(sys proc.Syscalls) {
	name, ok := args(sys)
	if !ok {
		puts(sys, "usage: cat <file>\n")
		sys.Halt(1)
	}

	file := sys.Open(name)
	if file < 0 {
		puts(sys, "file not found\n")
		sys.Halt(2)
	}

	buf := make([]byte, 1024)
	for {
		n := sys.Read(file, buf)
		if n <= 0 {
			break
		}
		sys.Write(stdout, buf[:n])
	}

	sys.Close(file)
	sys.Halt(0)
}

// Grep prints every line of every regular file that contains the pattern
// passed as its argument, prefixed with the file name.
func Grep(sys proc.Syscalls) {
	pattern, ok := args(sys)
	if !ok {
		puts(sys, "usage: grep <pattern>\n")
		sys.Halt(1)
	}

	var names []string
	dir := sys.Open(".")
	name := make([]byte, fs.MaxNameLen)
	for {
		n := sys.Read(dir, name)
		if n <= 0 {
			break
		}
		names = append(names, string(name[:n]))
	}
	sys.Close(dir)

	buf := make([]byte, 1024)
	for _, name := range names {
		// Reading the directory or the clock does not produce text.
		if name == "." || name == "rtc" {
			continue
		}

		file := sys.Open(name)
		if file < 0 {
			continue
		}

		var data []byte
		for {
			n := sys.Read(file, buf)
			if n <= 0 {
				break
			}
			data = append(data, buf[:n]...)
		}
		sys.Close(file)

		for _, line := range bytes.Split(data, []byte("\n")) {
			if bytes.Contains(line, []byte(pattern)) {
				puts(sys, name+":"+string(line)+"\n")
			}
		}
	}

	sys.Halt(0)
}
