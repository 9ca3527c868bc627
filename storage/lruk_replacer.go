package storage

import (
	"container/list"
	"sync"
)

// lrukNode tracks the access history of a single frame.
// history holds the last K access timestamps, newest first; kthTimestamp is
// the oldest retained one and is only meaningful once overK is set.
type lrukNode struct {
	frameID      FrameID
	history      []uint64
	kthTimestamp uint64
	overK        bool
	evictable    bool
}

// LRUKReplacer implements the LRU-K replacement policy: the victim is the
// frame with the largest backward K-distance, i.e. the one whose K-th most
// recent access is furthest in the past. Frames with fewer than K recorded
// accesses have infinite distance and are evicted first, in FIFO order of
// their first access.
//
// Two lists partition the tracked frames:
//   - lessK holds frames with fewer than K accesses, in insertion order
//   - overK holds frames with at least K accesses, sorted by ascending
//     K-th timestamp (oldest first, so the front is the next victim)
type LRUKReplacer struct {
	numFrames int
	k         int

	lessK *list.List
	overK *list.List
	index map[FrameID]*list.Element

	currentTimestamp uint64
	evictableCount   int

	mutex sync.Mutex
}

// NewLRUKReplacer creates an LRU-K replacer tracking up to numFrames frames.
// k is the number of historical accesses considered per frame; k = 1 degrades
// to classic LRU.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	if k < 1 {
		k = 1
	}
	return &LRUKReplacer{
		numFrames: numFrames,
		k:         k,
		lessK:     list.New(),
		overK:     list.New(),
		index:     make(map[FrameID]*list.Element),
	}
}

// RecordAccess registers an access to the frame at the current timestamp.
// Unknown frames start tracking; frames crossing K accesses migrate to the
// overK list. Fails with ErrCodeInvalidFrame if frameID is out of range.
func (r *LRUKReplacer) RecordAccess(frameID FrameID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if frameID < 0 || int(frameID) >= r.numFrames {
		return ErrInvalidFrame("LRUKReplacer.RecordAccess", frameID)
	}

	r.currentTimestamp++

	elem, exists := r.index[frameID]
	if !exists {
		node := &lrukNode{
			frameID: frameID,
			history: []uint64{r.currentTimestamp},
		}
		if r.k == 1 {
			// A single access already fills the history window.
			node.overK = true
			node.kthTimestamp = r.currentTimestamp
			r.index[frameID] = r.insertOrdered(node)
		} else {
			r.index[frameID] = r.lessK.PushBack(node)
		}
		return nil
	}

	node := elem.Value.(*lrukNode)

	if node.overK {
		// Slide the window: newest in, oldest out, then re-sort by the
		// new K-th timestamp.
		node.history = append([]uint64{r.currentTimestamp}, node.history[:len(node.history)-1]...)
		node.kthTimestamp = node.history[len(node.history)-1]
		r.overK.Remove(elem)
		r.index[frameID] = r.insertOrdered(node)
		return nil
	}

	node.history = append([]uint64{r.currentTimestamp}, node.history...)
	if len(node.history) == r.k {
		node.overK = true
		node.kthTimestamp = node.history[len(node.history)-1]
		r.lessK.Remove(elem)
		r.index[frameID] = r.insertOrdered(node)
	}
	return nil
}

// insertOrdered places node into the overK list keeping ascending
// kthTimestamp order, and returns the new element.
func (r *LRUKReplacer) insertOrdered(node *lrukNode) *list.Element {
	for e := r.overK.Front(); e != nil; e = e.Next() {
		if node.kthTimestamp < e.Value.(*lrukNode).kthTimestamp {
			return r.overK.InsertBefore(node, e)
		}
	}
	return r.overK.PushBack(node)
}

// SetEvictable toggles whether the frame may be chosen as a victim.
// Fails with ErrCodeInvalidFrame if the frame is untracked.
func (r *LRUKReplacer) SetEvictable(frameID FrameID, evictable bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	elem, exists := r.index[frameID]
	if !exists {
		return ErrInvalidFrame("LRUKReplacer.SetEvictable", frameID)
	}

	node := elem.Value.(*lrukNode)
	if node.evictable && !evictable {
		r.evictableCount--
	} else if !node.evictable && evictable {
		r.evictableCount++
	}
	node.evictable = evictable
	return nil
}

// Evict chooses the evictable frame with the largest backward K-distance and
// stops tracking it. Frames with infinite distance (fewer than K accesses)
// win over any finite distance; among them the earliest first access wins.
func (r *LRUKReplacer) Evict() (FrameID, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for e := r.lessK.Front(); e != nil; e = e.Next() {
		node := e.Value.(*lrukNode)
		if node.evictable {
			r.lessK.Remove(e)
			delete(r.index, node.frameID)
			r.evictableCount--
			return node.frameID, true
		}
	}
	for e := r.overK.Front(); e != nil; e = e.Next() {
		node := e.Value.(*lrukNode)
		if node.evictable {
			r.overK.Remove(e)
			delete(r.index, node.frameID)
			r.evictableCount--
			return node.frameID, true
		}
	}
	return 0, false
}

// Remove stops tracking a frame regardless of its access history.
// Fails if the frame is untracked or not evictable.
func (r *LRUKReplacer) Remove(frameID FrameID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	elem, exists := r.index[frameID]
	if !exists {
		return ErrInvalidFrame("LRUKReplacer.Remove", frameID)
	}

	node := elem.Value.(*lrukNode)
	if !node.evictable {
		return ErrFrameNotEvictable("LRUKReplacer.Remove", frameID)
	}

	if node.overK {
		r.overK.Remove(elem)
	} else {
		r.lessK.Remove(elem)
	}
	delete(r.index, frameID)
	r.evictableCount--
	return nil
}

// Size returns the number of evictable frames
func (r *LRUKReplacer) Size() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.evictableCount
}
