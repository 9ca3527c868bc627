//go:build linux

package storage

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openFileDirectIO opens the file with O_DIRECT so page I/O bypasses the
// kernel page cache. The buffer pool is the only cache for page data: caching
// the same bytes twice wastes memory and hides when data actually hits disk.
func openFileDirectIO(filePath string, flags int, permissions os.FileMode) (*os.File, error) {
	fd, err := unix.Open(filePath, flags|syscall.O_DIRECT, uint32(permissions))
	if err != nil {
		return nil, err
	}

	return os.NewFile(uintptr(fd), filePath), nil
}
