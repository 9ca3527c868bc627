package storage

import (
	"testing"
)

func TestLRUReplacerVictimOrder(t *testing.T) {
	replacer := NewLRUReplacer(5)

	for _, frame := range []FrameID{0, 1, 2} {
		if err := replacer.RecordAccess(frame); err != nil {
			t.Fatalf("RecordAccess(%d) failed: %v", frame, err)
		}
		replacer.SetEvictable(frame, true)
	}

	// Touch frame 0 so it becomes the most recently used
	replacer.RecordAccess(0)

	for _, want := range []FrameID{1, 2, 0} {
		victim, ok := replacer.Evict()
		if !ok {
			t.Fatal("Should have a victim")
		}
		if victim != want {
			t.Errorf("Expected victim %d, got %d", want, victim)
		}
	}

	if _, ok := replacer.Evict(); ok {
		t.Error("Replacer should be empty")
	}
}

func TestLRUReplacerPinned(t *testing.T) {
	replacer := NewLRUReplacer(5)

	for _, frame := range []FrameID{0, 1, 2} {
		replacer.RecordAccess(frame)
		replacer.SetEvictable(frame, true)
	}

	replacer.SetEvictable(1, false)
	if replacer.Size() != 2 {
		t.Errorf("Expected size 2 after pin, got %d", replacer.Size())
	}

	victim, ok := replacer.Evict()
	if !ok || victim != 0 {
		t.Errorf("Expected victim 0, got %d", victim)
	}
	victim, ok = replacer.Evict()
	if !ok || victim != 2 {
		t.Errorf("Expected victim 2, got %d", victim)
	}
}

func TestLRUReplacerErrors(t *testing.T) {
	replacer := NewLRUReplacer(3)

	if err := replacer.RecordAccess(3); !IsErrorCode(err, ErrCodeInvalidFrame) {
		t.Errorf("Expected ErrCodeInvalidFrame, got %v", err)
	}
	if err := replacer.SetEvictable(0, true); !IsErrorCode(err, ErrCodeInvalidFrame) {
		t.Errorf("Expected ErrCodeInvalidFrame for untracked frame, got %v", err)
	}

	replacer.RecordAccess(0)
	if err := replacer.Remove(0); !IsErrorCode(err, ErrCodeFrameNotEvictable) {
		t.Errorf("Expected ErrCodeFrameNotEvictable, got %v", err)
	}

	replacer.SetEvictable(0, true)
	if err := replacer.Remove(0); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if replacer.Size() != 0 {
		t.Errorf("Expected size 0, got %d", replacer.Size())
	}
}

func TestNewReplacerFactory(t *testing.T) {
	if _, ok := NewReplacer("lru", 4, 2).(*LRUReplacer); !ok {
		t.Error("Expected an LRUReplacer for algorithm 'lru'")
	}
	if _, ok := NewReplacer("lruk", 4, 2).(*LRUKReplacer); !ok {
		t.Error("Expected an LRUKReplacer for algorithm 'lruk'")
	}
	if _, ok := NewReplacer("unknown", 4, 2).(*LRUKReplacer); !ok {
		t.Error("Expected the default LRUKReplacer for unknown algorithms")
	}
}
