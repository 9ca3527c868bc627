package storage

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram tracks a latency distribution with percentile support
type Histogram struct {
	samples []float64 // Latencies in microseconds
	mu      sync.Mutex
	maxSize int  // Maximum samples to retain
	sorted  bool // Track if samples are sorted
}

// NewHistogram creates a new histogram with a max sample size
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000 // Default: keep last 10k samples
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
		sorted:  true,
	}
}

// Record adds a latency sample (in microseconds)
func (h *Histogram) Record(latencyUs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// At capacity, drop the oldest sample
	if len(h.samples) >= h.maxSize {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}

	h.samples = append(h.samples, latencyUs)
	h.sorted = false
}

// Percentile calculates the given percentile (0-100)
func (h *Histogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	// Sort a copy: samples must stay in arrival order so Record drops the
	// oldest one at capacity.
	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation between the neighboring samples
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Mean calculates the average latency
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range h.samples {
		sum += v
	}
	return sum / float64(len(h.samples))
}

// Min returns the minimum latency
func (h *Histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	min := h.samples[0]
	for _, v := range h.samples {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the maximum latency
func (h *Histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}

	max := h.samples[0]
	for _, v := range h.samples {
		if v > max {
			max = v
		}
	}
	return max
}

// Count returns the number of retained samples
func (h *Histogram) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.samples)
}

// HistogramSnapshot holds point-in-time percentile statistics
type HistogramSnapshot struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	P50   float64 // Median
	P95   float64
	P99   float64
}

// Snapshot captures current histogram statistics
func (h *Histogram) Snapshot() HistogramSnapshot {
	return HistogramSnapshot{
		Count: h.Count(),
		Min:   h.Min(),
		Max:   h.Max(),
		Mean:  h.Mean(),
		P50:   h.Percentile(50),
		P95:   h.Percentile(95),
		P99:   h.Percentile(99),
	}
}

// Metrics tracks buffer pool performance counters and latencies
type Metrics struct {
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
	pageEvictions    atomic.Uint64
	dirtyPageFlushes atomic.Uint64

	fetchLatency *Histogram // FetchPage latency, microseconds
	flushLatency *Histogram // FlushPage latency, microseconds

	startTime time.Time
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		fetchLatency: NewHistogram(10000),
		flushLatency: NewHistogram(10000),
		startTime:    time.Now(),
	}
}

func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

func (m *Metrics) RecordPageEviction() {
	m.pageEvictions.Add(1)
}

func (m *Metrics) RecordDirtyPageFlush() {
	m.dirtyPageFlushes.Add(1)
}

func (m *Metrics) RecordFetchLatency(latencyUs float64) {
	m.fetchLatency.Record(latencyUs)
}

func (m *Metrics) RecordFlushLatency(latencyUs float64) {
	m.flushLatency.Record(latencyUs)
}

// CacheHitRatio returns hits / (hits + misses), or 0 with no traffic
func (m *Metrics) CacheHitRatio() float64 {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// MetricsSnapshot holds point-in-time values for every counter
type MetricsSnapshot struct {
	CacheHits        uint64
	CacheMisses      uint64
	CacheHitRatio    float64
	PageEvictions    uint64
	DirtyPageFlushes uint64
	FetchLatency     HistogramSnapshot
	FlushLatency     HistogramSnapshot
	Uptime           time.Duration
}

// Snapshot captures current metric values
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		CacheHitRatio:    m.CacheHitRatio(),
		PageEvictions:    m.pageEvictions.Load(),
		DirtyPageFlushes: m.dirtyPageFlushes.Load(),
		FetchLatency:     m.fetchLatency.Snapshot(),
		FlushLatency:     m.flushLatency.Snapshot(),
		Uptime:           time.Since(m.startTime),
	}
}

// LogSummary writes the current counters to the structured log
func (m *Metrics) LogSummary(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s := m.Snapshot()
	logger.Info("buffer pool metrics",
		"cacheHits", s.CacheHits,
		"cacheMisses", s.CacheMisses,
		"hitRatio", s.CacheHitRatio,
		"evictions", s.PageEvictions,
		"dirtyFlushes", s.DirtyPageFlushes,
		"fetchP99us", s.FetchLatency.P99,
		"flushP99us", s.FlushLatency.P99,
		"uptime", s.Uptime,
	)
}
