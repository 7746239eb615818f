package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lwos/kernel/fs"
	"lwos/userland"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[mkfs] error: %s\n", err.Error())
	os.Exit(1)
}

// collectFiles reads the regular files in dir. Each file is stored in the
// image under its base name.
func collectFiles(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files[entry.Name()] = data
	}

	return files, nil
}

// buildImage assembles a filesystem image holding the built-in programs, the
// default files and the contents of dir (if not empty).
func buildImage(dir string) ([]byte, error) {
	var extra map[string][]byte
	if dir != "" {
		var err error
		if extra, err = collectFiles(dir); err != nil {
			return nil, err
		}
	}

	image, kErr := userland.Image(extra)
	if kErr != nil {
		return nil, errors.New(kErr.Message)
	}

	return image, nil
}

// listImage prints the name and size of every entry in image. Entries that
// are not regular files have no size.
func listImage(w io.Writer, image []byte) error {
	bootFS, err := fs.Mount(image)
	if err != nil {
		return errors.New(err.Message)
	}

	for index := uint32(0); index < bootFS.Entries(); index++ {
		dentry, err := bootFS.DentryByIndex(index)
		if err != nil {
			return errors.New(err.Message)
		}

		if dentry.Type != fs.TypeFile {
			fmt.Fprintf(w, "%-32s -\n", dentry.Name)
			continue
		}

		size, _ := bootFS.Size(dentry.Inode)
		fmt.Fprintf(w, "%-32s %d\n", dentry.Name, size)
	}

	return nil
}

func runTool() error {
	output := flag.String("out", "-", "write the image to this file or to stdout if set to -")
	dir := flag.String("dir", "", "add the regular files found in this directory to the image")
	list := flag.Bool("list", false, "print the image contents instead of writing the image")
	flag.Parse()

	image, err := buildImage(*dir)
	if err != nil {
		return err
	}

	if *list {
		return listImage(os.Stdout, image)
	}

	switch *output {
	case "-":
		_, err = os.Stdout.Write(image)
	default:
		err = os.WriteFile(*output, image, 0644)
	}

	return err
}

func main() {
	if err := runTool(); err != nil {
		exit(err)
	}
}
