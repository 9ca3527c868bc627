package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardTestPool(t *testing.T) *BufferPoolManager {
	t.Helper()

	bpm, err := NewBufferPoolManager(3, NewMemDiskManager(), 2)
	require.NoError(t, err)
	return bpm
}

func TestBasicGuardBalancesPin(t *testing.T) {
	bpm := newGuardTestPool(t)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	id := guard.PageID()

	frameID := bpm.pageTable[id]
	assert.Equal(t, int32(1), bpm.pages[frameID].PinCount())

	guard.Drop()
	assert.Equal(t, int32(0), bpm.pages[frameID].PinCount())

	// The frame is evictable again
	assert.Equal(t, 1, bpm.replacer.Size())

	// A second drop is a no-op
	guard.Drop()
	assert.Equal(t, int32(0), bpm.pages[frameID].PinCount())
}

func TestReadGuardBalancesPin(t *testing.T) {
	bpm := newGuardTestPool(t)

	page, err := bpm.NewPage()
	require.NoError(t, err)
	id := page.PageID()
	bpm.UnpinPage(id, false)

	guard, err := bpm.FetchPageRead(id)
	require.NoError(t, err)
	assert.Equal(t, int32(1), page.PinCount())
	assert.Equal(t, uint32(1), page.latch.ReaderCount())

	guard.Drop()
	assert.Equal(t, int32(0), page.PinCount())
	assert.Equal(t, uint32(0), page.latch.ReaderCount())
}

func TestWriteGuardMarksDirty(t *testing.T) {
	bpm := newGuardTestPool(t)

	page, err := bpm.NewPage()
	require.NoError(t, err)
	id := page.PageID()
	bpm.UnpinPage(id, false)

	guard, err := bpm.FetchPageWrite(id)
	require.NoError(t, err)
	copy(guard.DataMut(), []byte("mutated"))
	guard.Drop()

	assert.True(t, page.IsDirty(), "write through DataMut must leave the page dirty")
	assert.False(t, page.latch.IsWriterActive())
}

func TestGuardMoveEmptiesSource(t *testing.T) {
	bpm := newGuardTestPool(t)

	src, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	id := src.PageID()
	frameID := bpm.pageTable[id]

	var dst BasicPageGuard
	src.MoveTo(&dst)

	assert.Equal(t, InvalidPageID, src.PageID(), "moved-from guard must be empty")
	assert.Equal(t, id, dst.PageID())

	// Dropping the source must not release the pin
	src.Drop()
	assert.Equal(t, int32(1), bpm.pages[frameID].PinCount())

	dst.Drop()
	assert.Equal(t, int32(0), bpm.pages[frameID].PinCount())
}

func TestGuardMoveToSelf(t *testing.T) {
	bpm := newGuardTestPool(t)

	guard, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	id := guard.PageID()

	guard.MoveTo(guard)
	assert.Equal(t, id, guard.PageID(), "self-move must be a no-op")

	guard.Drop()
}

func TestGuardMoveReleasesDestination(t *testing.T) {
	bpm := newGuardTestPool(t)

	a, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	b, err := bpm.NewPageGuarded()
	require.NoError(t, err)

	idA := a.PageID()
	frameA := bpm.pageTable[idA]

	// Moving b over a must first release a's pin
	b.MoveTo(a)
	assert.Equal(t, int32(0), bpm.pages[frameA].PinCount())

	a.Drop()
}

func TestEmptyGuardIsSafe(t *testing.T) {
	var basic BasicPageGuard
	var read ReadPageGuard
	var write WritePageGuard

	basic.Drop()
	read.Drop()
	write.Drop()

	assert.Equal(t, InvalidPageID, basic.PageID())
	assert.Nil(t, basic.Data())
	assert.Nil(t, write.DataMut())
}

func TestUpgradeRead(t *testing.T) {
	bpm := newGuardTestPool(t)

	basic, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	id := basic.PageID()
	frameID := bpm.pageTable[id]
	page := bpm.pages[frameID]

	read := basic.UpgradeRead()
	assert.Equal(t, InvalidPageID, basic.PageID(), "upgrade must empty the basic guard")
	assert.Equal(t, id, read.PageID())
	assert.Equal(t, uint32(1), page.latch.ReaderCount())

	read.Drop()
	assert.Equal(t, int32(0), page.PinCount())
	assert.Equal(t, uint32(0), page.latch.ReaderCount())
}

// TestWriteGuardExcludesReaders verifies a held write guard blocks read
// guards on the same page until dropped.
func TestWriteGuardExcludesReaders(t *testing.T) {
	bpm := newGuardTestPool(t)

	page, err := bpm.NewPage()
	require.NoError(t, err)
	id := page.PageID()
	bpm.UnpinPage(id, false)

	writeGuard, err := bpm.FetchPageWrite(id)
	require.NoError(t, err)

	acquired := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		readGuard, err := bpm.FetchPageRead(id)
		if err != nil {
			return
		}
		close(acquired)
		readGuard.Drop()
	}()

	select {
	case <-acquired:
		t.Fatal("Read guard acquired while write guard held")
	case <-time.After(50 * time.Millisecond):
	}

	writeGuard.Drop()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Read guard never acquired after write guard dropped")
	}
	wg.Wait()
}
