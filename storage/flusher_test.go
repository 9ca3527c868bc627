package storage

import (
	"testing"
	"time"
)

func TestFlusherSweepWritesDirtyPages(t *testing.T) {
	bpm, disk := newTestPool(t, 4, 2)

	for i := 0; i < 3; i++ {
		page, err := bpm.NewPage()
		if err != nil {
			t.Fatalf("NewPage failed: %v", err)
		}
		bpm.UnpinPage(page.PageID(), true)
	}

	flusher := NewBackgroundFlusher(bpm, time.Hour, 0.5)

	// 3 of 4 frames dirty, above the 0.5 target: the sweep must flush
	flusher.maybeFlush()

	if disk.TotalWrites() != 3 {
		t.Errorf("Expected 3 writes, got %d", disk.TotalWrites())
	}
	if bpm.DirtyPageCount() != 0 {
		t.Errorf("Expected 0 dirty pages after sweep, got %d", bpm.DirtyPageCount())
	}
	if flusher.Sweeps() != 1 {
		t.Errorf("Expected 1 sweep, got %d", flusher.Sweeps())
	}
}

func TestFlusherRespectsDirtyRatioTarget(t *testing.T) {
	bpm, disk := newTestPool(t, 4, 2)

	page, _ := bpm.NewPage()
	bpm.UnpinPage(page.PageID(), true)

	flusher := NewBackgroundFlusher(bpm, time.Hour, 0.5)

	// 1 of 4 frames dirty, below the target: no flush
	flusher.maybeFlush()

	if disk.TotalWrites() != 0 {
		t.Errorf("Expected no writes below the target, got %d", disk.TotalWrites())
	}
	if bpm.DirtyPageCount() != 1 {
		t.Errorf("Dirty page should remain, got %d", bpm.DirtyPageCount())
	}
}

func TestFlusherStartStop(t *testing.T) {
	bpm, disk := newTestPool(t, 2, 2)

	page, _ := bpm.NewPage()
	bpm.UnpinPage(page.PageID(), true)

	flusher := NewBackgroundFlusher(bpm, time.Millisecond, 0)
	flusher.Start()
	flusher.Start() // second start is a no-op

	deadline := time.After(2 * time.Second)
	for disk.TotalWrites() == 0 {
		select {
		case <-deadline:
			t.Fatal("Flusher never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}

	flusher.Stop()
	flusher.Stop() // second stop is a no-op
}
