package storage

import (
	"fmt"
)

// CompressedDiskManager wraps another DiskManager and compresses page images
// on the way to disk. Images that do not compress well are stored raw; reads
// detect the compression magic and restore transparently either way. The
// buffer pool above sees plain 4096-byte pages and never knows.
type CompressedDiskManager struct {
	inner     DiskManager
	algorithm CompressionType
}

// NewCompressedDiskManager decorates inner with page compression
func NewCompressedDiskManager(inner DiskManager, algorithm CompressionType) *CompressedDiskManager {
	return &CompressedDiskManager{
		inner:     inner,
		algorithm: algorithm,
	}
}

// ReadPage reads the stored image and decompresses it if needed
func (dm *CompressedDiskManager) ReadPage(pageID PageID, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(dst))
	}

	raw := make([]byte, PageSize)
	if err := dm.inner.ReadPage(pageID, raw); err != nil {
		return err
	}

	image, err := DecompressPageTransparent(raw)
	if err != nil {
		return ErrPageCorrupted("CompressedDiskManager.ReadPage", pageID, err)
	}

	copy(dst, image)
	return nil
}

// WritePage compresses the image and writes the serialized form. Images where
// compression does not pay are written raw: a header plus a full page would
// not fit back into PageSize.
func (dm *CompressedDiskManager) WritePage(pageID PageID, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(src))
	}

	if dm.algorithm == CompressionNone {
		return dm.inner.WritePage(pageID, src)
	}

	cp, err := CompressPage(src, dm.algorithm)
	if err != nil {
		return err
	}
	if cp.CompressionType == CompressionNone {
		return dm.inner.WritePage(pageID, src)
	}

	serialized, err := SerializeCompressedPage(cp)
	if err != nil {
		return err
	}
	return dm.inner.WritePage(pageID, serialized)
}

// Sync flushes the wrapped manager
func (dm *CompressedDiskManager) Sync() error {
	return dm.inner.Sync()
}

// Close closes the wrapped manager
func (dm *CompressedDiskManager) Close() error {
	return dm.inner.Close()
}
