//go:build !linux

package storage

import (
	"os"

	"github.com/ncw/directio"
)

// openFileDirectIO opens the file for direct I/O using the portable
// implementation (F_NOCACHE on darwin, FILE_FLAG_NO_BUFFERING on windows).
func openFileDirectIO(filePath string, flags int, permissions os.FileMode) (*os.File, error) {
	return directio.OpenFile(filePath, flags, permissions)
}
