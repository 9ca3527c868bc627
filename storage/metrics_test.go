package storage

import (
	"testing"
)

func TestMetricsCountersAndRatio(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.RecordCacheHit()
	}
	m.RecordCacheMiss()
	m.RecordPageEviction()
	m.RecordDirtyPageFlush()

	s := m.Snapshot()
	if s.CacheHits != 3 {
		t.Errorf("Expected 3 hits, got %d", s.CacheHits)
	}
	if s.CacheMisses != 1 {
		t.Errorf("Expected 1 miss, got %d", s.CacheMisses)
	}
	if s.CacheHitRatio != 0.75 {
		t.Errorf("Expected hit ratio 0.75, got %f", s.CacheHitRatio)
	}
	if s.PageEvictions != 1 || s.DirtyPageFlushes != 1 {
		t.Error("Eviction/flush counters mismatch")
	}
}

func TestMetricsEmptyRatio(t *testing.T) {
	m := NewMetrics()
	if m.CacheHitRatio() != 0 {
		t.Error("Hit ratio with no traffic should be 0")
	}
}

func TestHistogramPercentiles(t *testing.T) {
	h := NewHistogram(100)

	for i := 1; i <= 100; i++ {
		h.Record(float64(i))
	}

	if h.Count() != 100 {
		t.Errorf("Expected 100 samples, got %d", h.Count())
	}
	if h.Min() != 1 {
		t.Errorf("Expected min 1, got %f", h.Min())
	}
	if h.Max() != 100 {
		t.Errorf("Expected max 100, got %f", h.Max())
	}
	if mean := h.Mean(); mean != 50.5 {
		t.Errorf("Expected mean 50.5, got %f", mean)
	}

	p50 := h.Percentile(50)
	if p50 < 50 || p50 > 51 {
		t.Errorf("Expected P50 near 50.5, got %f", p50)
	}
	p99 := h.Percentile(99)
	if p99 < 99 || p99 > 100 {
		t.Errorf("Expected P99 near 99, got %f", p99)
	}
}

func TestHistogramCapacityEvictsOldest(t *testing.T) {
	h := NewHistogram(10)

	for i := 1; i <= 20; i++ {
		h.Record(float64(i))
	}

	if h.Count() != 10 {
		t.Errorf("Expected 10 retained samples, got %d", h.Count())
	}
	// Oldest samples (1..10) dropped
	if h.Min() != 11 {
		t.Errorf("Expected min 11, got %f", h.Min())
	}
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogram(10)

	if h.Percentile(99) != 0 || h.Mean() != 0 || h.Min() != 0 || h.Max() != 0 {
		t.Error("Empty histogram should report zeroes")
	}
}
