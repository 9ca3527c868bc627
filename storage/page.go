package storage

import (
	"sync/atomic"
)

const (
	// PageSize is the fixed size of every page, in bytes
	PageSize = 4096
)

// PageID identifies a logical page on disk. IDs are allocated by the buffer
// pool through a monotonic counter starting at 0.
type PageID int32

// FrameID indexes a frame slot inside the buffer pool.
type FrameID int32

const (
	// InvalidPageID marks a frame that holds no resident page
	InvalidPageID PageID = -1
)

// Page is one frame slot of the buffer pool: a fixed-size payload plus the
// metadata the pool needs to manage residency. The payload is protected by a
// reader-writer latch; the metadata (pageID, pinCount, isDirty) is only
// mutated under the buffer pool latch. Pin count and dirty flag are atomics so
// callers holding only a page latch can still read them safely.
type Page struct {
	pageID   PageID
	pinCount atomic.Int32
	isDirty  atomic.Bool
	latch    *RWLatch
	data     [PageSize]byte
}

func newPage() *Page {
	return &Page{
		pageID: InvalidPageID,
		latch:  NewRWLatch(),
	}
}

// PageID returns the ID of the page currently resident in this frame, or
// InvalidPageID if the frame is empty.
func (p *Page) PageID() PageID {
	return p.pageID
}

// PinCount returns the current pin count
func (p *Page) PinCount() int32 {
	return p.pinCount.Load()
}

// IsDirty reports whether the in-memory payload differs from disk
func (p *Page) IsDirty() bool {
	return p.isDirty.Load()
}

// Data returns the page payload. The caller must hold at least a read latch,
// or be inside a buffer pool operation.
func (p *Page) Data() []byte {
	return p.data[:]
}

// RLatch acquires the shared payload latch
func (p *Page) RLatch() {
	p.latch.RLock()
}

// RUnlatch releases the shared payload latch
func (p *Page) RUnlatch() {
	p.latch.RUnlock()
}

// WLatch acquires the exclusive payload latch
func (p *Page) WLatch() {
	p.latch.Lock()
}

// WUnlatch releases the exclusive payload latch
func (p *Page) WUnlatch() {
	p.latch.Unlock()
}

// resetMemory zeroes the payload. Called under the buffer pool latch when the
// frame is recycled.
func (p *Page) resetMemory() {
	p.data = [PageSize]byte{}
}
