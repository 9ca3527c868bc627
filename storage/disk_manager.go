package storage

import (
	"fmt"
	"os"
	"sync"
)

// DiskManager moves fixed-size page images between memory and stable storage.
// All calls are blocking; the buffer pool does not retry failed I/O.
type DiskManager interface {
	// ReadPage fills dst (exactly PageSize bytes) with the page image
	ReadPage(pageID PageID, dst []byte) error

	// WritePage persists src (exactly PageSize bytes) as the page image
	WritePage(pageID PageID, src []byte) error

	// Sync flushes any buffered writes to stable storage
	Sync() error

	// Close releases the underlying resources
	Close() error
}

// FileDiskManager stores pages in a single file, page i at offset i*PageSize.
type FileDiskManager struct {
	file  *os.File
	mutex sync.Mutex
}

// NewFileDiskManager opens (or creates) the backing file
func NewFileDiskManager(fileName string) (*FileDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	return &FileDiskManager{file: file}, nil
}

// ReadPage reads a page image from the file. Reading a page that was never
// written fills dst with zeroes, matching a freshly allocated page.
func (dm *FileDiskManager) ReadPage(pageID PageID, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(dst))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize

	info, err := dm.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat page file: %w", err)
	}
	if offset >= info.Size() {
		// Page allocated but never written
		clear(dst)
		return nil
	}

	if _, err := dm.file.ReadAt(dst, offset); err != nil {
		return fmt.Errorf("failed to read page %d: %w", pageID, err)
	}
	return nil
}

// WritePage writes a page image to the file and syncs it
func (dm *FileDiskManager) WritePage(pageID PageID, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(src))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(src, offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageID, err)
	}

	return dm.file.Sync()
}

// Sync flushes the backing file
func (dm *FileDiskManager) Sync() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	return dm.file.Sync()
}

// Close closes the backing file
func (dm *FileDiskManager) Close() error {
	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}

// MemDiskManager keeps page images in memory and counts every I/O. Tests use
// it to assert write-through behavior (e.g. a dirty eviction issues exactly
// one write) without touching the filesystem.
type MemDiskManager struct {
	pages      map[PageID][]byte
	readCount  map[PageID]int
	writeCount map[PageID]int
	mutex      sync.Mutex
}

// NewMemDiskManager creates an empty in-memory disk manager
func NewMemDiskManager() *MemDiskManager {
	return &MemDiskManager{
		pages:      make(map[PageID][]byte),
		readCount:  make(map[PageID]int),
		writeCount: make(map[PageID]int),
	}
}

// ReadPage copies the stored image into dst, or zeroes for unknown pages
func (dm *MemDiskManager) ReadPage(pageID PageID, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(dst))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.readCount[pageID]++
	if stored, ok := dm.pages[pageID]; ok {
		copy(dst, stored)
	} else {
		clear(dst)
	}
	return nil
}

// WritePage stores a copy of src as the page image
func (dm *MemDiskManager) WritePage(pageID PageID, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(src))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.writeCount[pageID]++
	stored := make([]byte, PageSize)
	copy(stored, src)
	dm.pages[pageID] = stored
	return nil
}

// Sync is a no-op for the in-memory manager
func (dm *MemDiskManager) Sync() error {
	return nil
}

// Close discards all stored pages
func (dm *MemDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.pages = nil
	return nil
}

// WritesTo returns how many times the page has been written
func (dm *MemDiskManager) WritesTo(pageID PageID) int {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	return dm.writeCount[pageID]
}

// ReadsFrom returns how many times the page has been read
func (dm *MemDiskManager) ReadsFrom(pageID PageID) int {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	return dm.readCount[pageID]
}

// TotalWrites returns the total number of page writes issued
func (dm *MemDiskManager) TotalWrites() int {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	total := 0
	for _, n := range dm.writeCount {
		total += n
	}
	return total
}

// PageImage returns a copy of the stored image for the page, if any
func (dm *MemDiskManager) PageImage(pageID PageID) ([]byte, bool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	stored, ok := dm.pages[pageID]
	if !ok {
		return nil, false
	}
	out := make([]byte, PageSize)
	copy(out, stored)
	return out, true
}
