package storage

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// BackgroundFlusher periodically writes dirty pages back to disk so eviction
// rarely stalls on a write. It watches the pool's dirty ratio and only
// triggers a flush sweep once the ratio passes the configured target.
type BackgroundFlusher struct {
	pool *BufferPoolManager

	interval         time.Duration
	dirtyRatioTarget float64

	running      atomic.Bool
	sweeps       atomic.Uint64
	sweepsF      atomic.Uint64 // failed sweeps
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewBackgroundFlusher creates a flusher for the pool. A dirtyRatioTarget of
// 0 flushes on every tick.
func NewBackgroundFlusher(pool *BufferPoolManager, interval time.Duration, dirtyRatioTarget float64) *BackgroundFlusher {
	return &BackgroundFlusher{
		pool:             pool,
		interval:         interval,
		dirtyRatioTarget: dirtyRatioTarget,
	}
}

// Start launches the background goroutine. Starting a running flusher is a
// no-op.
func (f *BackgroundFlusher) Start() {
	if !f.running.CompareAndSwap(false, true) {
		return
	}

	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})

	go f.run()
}

// Stop shuts the flusher down and waits for the goroutine to exit.
// Stopping a stopped flusher is a no-op.
func (f *BackgroundFlusher) Stop() {
	if !f.running.CompareAndSwap(true, false) {
		return
	}

	close(f.stopCh)
	<-f.doneCh
}

// Sweeps returns how many flush sweeps have run
func (f *BackgroundFlusher) Sweeps() uint64 {
	return f.sweeps.Load()
}

func (f *BackgroundFlusher) run() {
	defer close(f.doneCh)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.maybeFlush()
		}
	}
}

func (f *BackgroundFlusher) maybeFlush() {
	dirty := f.pool.DirtyPageCount()
	if dirty == 0 {
		return
	}

	ratio := float64(dirty) / float64(f.pool.PoolSize())
	if ratio < f.dirtyRatioTarget {
		return
	}

	if err := f.pool.FlushAllPages(); err != nil {
		f.sweepsF.Add(1)
		slog.Warn("background flush sweep failed", "error", err)
		return
	}
	f.sweeps.Add(1)
}
