//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package binfile

import (
	"errors"
	"os"
)

var errNoMmap = errors.New("binfile: mmap not supported")

func mapFile(*os.File, int) ([]byte, error) { return nil, errNoMmap }

func unmap([]byte) error { return nil }
