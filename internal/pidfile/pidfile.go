// Package pidfile reads and writes files containing process IDs.
//
// We read and write using lockedfile, so a reader never observes a
// partially written file.
package pidfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rogpeppe/go-internal/lockedfile"
)

// File is a PID file.
type File struct {
	path string
}

// osMkdirAll is the type of os.MkdirAll.
type osMkdirAll func(path string, perm fs.FileMode) error

// New creates a [*File] at the given path, creating the parent
// directory if needed.
func New(path string) (*File, error) {
	return newFile(path, os.MkdirAll)
}

// newFile is like New with a customizable osMkdirAll.
func newFile(path string, mkdir osMkdirAll) (*File, error) {
	if err := mkdir(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return &File{path: path}, nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Write replaces the file content with the given pids, one per line.
func (f *File) Write(pids ...int) error {
	buf := &bytes.Buffer{}
	for _, pid := range pids {
		fmt.Fprintf(buf, "%d\n", pid)
	}
	return lockedfile.Write(f.path, buf, 0600)
}

// ErrInvalid indicates that the file contains something other than pids.
var ErrInvalid = errors.New("pidfile: invalid content")

// Read returns the pids contained by the file.
func (f *File) Read() ([]int, error) {
	data, err := lockedfile.Read(f.path)
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalid, line)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Remove removes the file. Removing a nonexistent file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
