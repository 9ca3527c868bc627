package storage

// Replacer decides which frame the buffer pool evicts next. The buffer pool
// records an access on every fetch and toggles evictability as pins come and
// go; the replacer only sees frame IDs, never pages.
type Replacer interface {
	// RecordAccess notes that the frame was just accessed.
	// Fails with ErrCodeInvalidFrame if frameID is out of range.
	RecordAccess(frameID FrameID) error

	// SetEvictable marks the frame as a candidate (or non-candidate) for
	// eviction. Fails with ErrCodeInvalidFrame if the frame is untracked.
	SetEvictable(frameID FrameID, evictable bool) error

	// Evict selects a victim frame and stops tracking it.
	// Returns false if no evictable frame exists.
	Evict() (FrameID, bool)

	// Remove stops tracking a frame explicitly. Fails if the frame is
	// untracked or not evictable.
	Remove(frameID FrameID) error

	// Size returns the number of evictable frames
	Size() int
}

// NewReplacer creates a replacer for the given algorithm name.
// "lruk" is the default policy; "lru" keeps plain recency ordering.
func NewReplacer(algorithm string, numFrames int, k int) Replacer {
	switch algorithm {
	case "lru":
		return NewLRUReplacer(numFrames)
	case "lruk":
		return NewLRUKReplacer(numFrames, k)
	default:
		return NewLRUKReplacer(numFrames, k)
	}
}
