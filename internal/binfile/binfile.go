// Package binfile gives read-only byte access to an input executable.
//
// Large executables are memory-mapped where the platform allows it so a
// multi-gigabyte binary is not copied onto the heap; elsewhere the file is
// read in full.
package binfile

import (
	"errors"
	"fmt"
	"os"
)

var ErrEmpty = errors.New("binfile: empty file")

// File is an opened input executable.
type File struct {
	data   []byte
	size   int64
	mapped bool
}

// Open opens path and exposes its contents. The returned slice from Bytes
// is valid until Close.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("binfile: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("binfile: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("binfile: %s is not a regular file", path)
	}
	size := info.Size()
	if size == 0 {
		return nil, ErrEmpty
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("binfile: %s too large (%d bytes)", path, size)
	}

	if data, err := mapFile(f, int(size)); err == nil {
		return &File{data: data, size: size, mapped: true}, nil
	}

	// Mapping unavailable (platform, filesystem): read instead.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("binfile: read: %w", err)
	}
	return &File{data: data, size: int64(len(data))}, nil
}

// Bytes returns the file contents.
func (f *File) Bytes() []byte { return f.data }

// Size returns the size of the underlying file.
func (f *File) Size() int64 { return f.size }

// Mapped reports whether the contents are memory-mapped.
func (f *File) Mapped() bool { return f.mapped }

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	data := f.data
	f.data = nil
	if !f.mapped || data == nil {
		return nil
	}
	f.mapped = false
	if err := unmap(data); err != nil {
		return fmt.Errorf("binfile: unmap: %w", err)
	}
	return nil
}
