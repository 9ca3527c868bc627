package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BufferPoolManager caches a fixed number of pages in memory and moves them
// to and from disk on demand. A single coarse mutex serializes every public
// operation; correctness of the free-list/page-table partition, pin counts,
// and replacer state all depends on each transition being observed under it.
// Page payload latches are acquired outside that mutex, by the guards.
type BufferPoolManager struct {
	poolSize int
	pages    []*Page

	pageTable map[PageID]FrameID
	freeList  []FrameID
	replacer  Replacer

	diskManager DiskManager
	metrics     *Metrics

	nextPageID PageID

	latch sync.Mutex
}

// NewBufferPoolManager creates a buffer pool of poolSize frames backed by the
// given disk manager, using LRU-K replacement with the given K.
func NewBufferPoolManager(poolSize int, diskManager DiskManager, replacerK int) (*BufferPoolManager, error) {
	return NewBufferPoolManagerWithReplacer(poolSize, diskManager, "lruk", replacerK)
}

// NewBufferPoolManagerWithReplacer creates a buffer pool with a specific
// replacement policy ("lruk" or "lru").
func NewBufferPoolManagerWithReplacer(poolSize int, diskManager DiskManager, algorithm string, replacerK int) (*BufferPoolManager, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("pool size must be greater than 0")
	}
	if replacerK < 1 {
		return nil, fmt.Errorf("replacer K must be at least 1")
	}

	bpm := &BufferPoolManager{
		poolSize:    poolSize,
		pages:       make([]*Page, poolSize),
		pageTable:   make(map[PageID]FrameID),
		freeList:    make([]FrameID, 0, poolSize),
		replacer:    NewReplacer(algorithm, poolSize, replacerK),
		diskManager: diskManager,
		metrics:     NewMetrics(),
	}

	// Every frame starts on the free list
	for i := 0; i < poolSize; i++ {
		bpm.pages[i] = newPage()
		bpm.freeList = append(bpm.freeList, FrameID(i))
	}

	return bpm, nil
}

// PoolSize returns the number of frames in the pool
func (bpm *BufferPoolManager) PoolSize() int {
	return bpm.poolSize
}

// Metrics returns the pool's metrics tracker
func (bpm *BufferPoolManager) Metrics() *Metrics {
	return bpm.metrics
}

// NewPage allocates a fresh logical page, brings it into a frame with
// pin count 1, and returns it. Fails with ErrCodeNoFreeFrames when every
// frame is pinned.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, err := bpm.obtainFrame("BufferPoolManager.NewPage")
	if err != nil {
		return nil, err
	}

	pageID := bpm.allocatePageID()
	page := bpm.pages[frameID]

	bpm.pageTable[pageID] = frameID
	page.pageID = pageID
	page.resetMemory()
	page.isDirty.Store(false)
	page.pinCount.Store(1)

	bpm.replacer.RecordAccess(frameID)
	bpm.replacer.SetEvictable(frameID, false)

	return page, nil
}

// FetchPage returns the requested page pinned, reading it from disk if it is
// not resident. Fails with ErrCodeNoFreeFrames when a frame cannot be found
// for a miss.
func (bpm *BufferPoolManager) FetchPage(pageID PageID) (*Page, error) {
	start := time.Now()
	defer func() {
		bpm.metrics.RecordFetchLatency(float64(time.Since(start).Microseconds()))
	}()

	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	if frameID, ok := bpm.pageTable[pageID]; ok {
		bpm.metrics.RecordCacheHit()
		page := bpm.pages[frameID]
		page.pinCount.Add(1)
		bpm.replacer.RecordAccess(frameID)
		bpm.replacer.SetEvictable(frameID, false)
		return page, nil
	}

	bpm.metrics.RecordCacheMiss()

	frameID, err := bpm.obtainFrame("BufferPoolManager.FetchPage")
	if err != nil {
		return nil, err
	}

	page := bpm.pages[frameID]
	if err := bpm.diskManager.ReadPage(pageID, page.data[:]); err != nil {
		// Hand the frame back so the failed fetch leaves no trace
		bpm.freeList = append(bpm.freeList, frameID)
		return nil, ErrDiskRead("BufferPoolManager.FetchPage", pageID, err)
	}

	bpm.pageTable[pageID] = frameID
	page.pageID = pageID
	page.isDirty.Store(false)
	page.pinCount.Store(1)

	bpm.replacer.RecordAccess(frameID)
	bpm.replacer.SetEvictable(frameID, false)

	return page, nil
}

// UnpinPage drops one pin on the page. The dirty flag is sticky: any unpin
// with isDirty true keeps the page dirty until a flush or delete clears it.
// Returns false if the page is not resident or its pin count is already zero.
func (bpm *BufferPoolManager) UnpinPage(pageID PageID, isDirty bool) bool {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}

	page := bpm.pages[frameID]
	if page.pinCount.Load() == 0 {
		return false
	}

	if isDirty {
		page.isDirty.Store(true)
	}

	if page.pinCount.Add(-1) == 0 {
		bpm.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes the page to disk if dirty and clears the dirty bit.
// Flushing a clean page is a no-op that still reports success. Returns
// ok=false if the page is not resident.
func (bpm *BufferPoolManager) FlushPage(pageID PageID) (bool, error) {
	start := time.Now()
	defer func() {
		bpm.metrics.RecordFlushLatency(float64(time.Since(start).Microseconds()))
	}()

	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false, nil
	}

	page := bpm.pages[frameID]
	if !page.IsDirty() {
		return true, nil
	}

	if err := bpm.diskManager.WritePage(pageID, page.data[:]); err != nil {
		return false, ErrDiskWrite("BufferPoolManager.FlushPage", pageID, err)
	}
	page.isDirty.Store(false)
	bpm.metrics.RecordDirtyPageFlush()

	return true, nil
}

// FlushAllPages writes every resident dirty page to disk
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	for pageID, frameID := range bpm.pageTable {
		page := bpm.pages[frameID]
		if !page.IsDirty() {
			continue
		}
		if err := bpm.diskManager.WritePage(pageID, page.data[:]); err != nil {
			return ErrDiskWrite("BufferPoolManager.FlushAllPages", pageID, err)
		}
		page.isDirty.Store(false)
		bpm.metrics.RecordDirtyPageFlush()
	}
	return nil
}

// DeletePage evicts the page from its frame and frees the frame. Deleting a
// page that is not resident succeeds trivially; deleting a pinned page
// returns false.
func (bpm *BufferPoolManager) DeletePage(pageID PageID) (bool, error) {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return true, nil
	}

	page := bpm.pages[frameID]
	if page.pinCount.Load() != 0 {
		return false, nil
	}

	if err := bpm.replacer.Remove(frameID); err != nil {
		return false, err
	}

	if page.IsDirty() {
		if err := bpm.diskManager.WritePage(pageID, page.data[:]); err != nil {
			return false, ErrDiskWrite("BufferPoolManager.DeletePage", pageID, err)
		}
		page.isDirty.Store(false)
		bpm.metrics.RecordDirtyPageFlush()
	}

	page.pageID = InvalidPageID
	page.resetMemory()
	bpm.freeList = append(bpm.freeList, frameID)
	delete(bpm.pageTable, pageID)

	return true, nil
}

// DirtyPageCount returns the number of resident dirty pages
func (bpm *BufferPoolManager) DirtyPageCount() int {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	count := 0
	for _, frameID := range bpm.pageTable {
		if bpm.pages[frameID].IsDirty() {
			count++
		}
	}
	return count
}

// obtainFrame returns a frame ready to host a new page: from the free list if
// possible, otherwise by evicting a victim (writing it back first if dirty).
// Caller must hold the pool latch.
func (bpm *BufferPoolManager) obtainFrame(op string) (FrameID, error) {
	if len(bpm.freeList) > 0 {
		frameID := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		return frameID, nil
	}

	frameID, ok := bpm.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrames(op)
	}

	victim := bpm.pages[frameID]
	if victim.IsDirty() {
		if err := bpm.diskManager.WritePage(victim.pageID, victim.data[:]); err != nil {
			// Put the victim back under replacer control so the frame is not
			// orphaned; its access history restarts.
			bpm.replacer.RecordAccess(frameID)
			bpm.replacer.SetEvictable(frameID, true)
			return 0, ErrDiskWrite(op, victim.pageID, err)
		}
		victim.isDirty.Store(false)
		bpm.metrics.RecordDirtyPageFlush()
	}

	slog.Debug("evicting page", "pageID", victim.pageID, "frameID", frameID)
	delete(bpm.pageTable, victim.pageID)
	victim.pageID = InvalidPageID
	bpm.metrics.RecordPageEviction()

	return frameID, nil
}

// allocatePageID hands out the next logical page ID, skipping IDs that are
// already resident (brought in by FetchPage) so a page-table entry is never
// overwritten. Caller must hold the pool latch.
func (bpm *BufferPoolManager) allocatePageID() PageID {
	for {
		pageID := bpm.nextPageID
		bpm.nextPageID++
		if _, resident := bpm.pageTable[pageID]; !resident {
			return pageID
		}
	}
}
