package storage

// BasicPageGuard owns one pin on a page and releases it exactly once.
// The zero value (and a guard that has been dropped or moved from) is empty:
// it owns nothing and Drop is a no-op, so every exit path may call it.
type BasicPageGuard struct {
	bpm     *BufferPoolManager
	page    *Page
	isDirty bool
}

// Drop releases the pin. Safe to call on an empty guard and idempotent.
func (g *BasicPageGuard) Drop() {
	if g.page != nil && g.page.PageID() != InvalidPageID {
		g.bpm.UnpinPage(g.page.PageID(), g.isDirty)
	}
	g.page = nil
	g.bpm = nil
	g.isDirty = false
}

// MoveTo transfers ownership of the pin to dst, dropping whatever dst held.
// The receiver becomes empty. Moving a guard onto itself is a no-op.
func (g *BasicPageGuard) MoveTo(dst *BasicPageGuard) {
	if g == dst {
		return
	}
	dst.Drop()
	dst.bpm = g.bpm
	dst.page = g.page
	dst.isDirty = g.isDirty
	g.page = nil
	g.bpm = nil
	g.isDirty = false
}

// PageID returns the guarded page's ID, or InvalidPageID for an empty guard
func (g *BasicPageGuard) PageID() PageID {
	if g.page == nil {
		return InvalidPageID
	}
	return g.page.PageID()
}

// Data returns the page payload for reading
func (g *BasicPageGuard) Data() []byte {
	if g.page == nil {
		return nil
	}
	return g.page.Data()
}

// DataMut returns the page payload for writing and marks the guard dirty,
// so the pin is released with the dirty flag set.
func (g *BasicPageGuard) DataMut() []byte {
	if g.page == nil {
		return nil
	}
	g.isDirty = true
	return g.page.Data()
}

// MarkDirty records that the holder mutated the payload
func (g *BasicPageGuard) MarkDirty() {
	g.isDirty = true
}

// UpgradeRead converts the guard into a read guard, acquiring the shared
// latch. The receiver becomes empty.
func (g *BasicPageGuard) UpgradeRead() *ReadPageGuard {
	rg := &ReadPageGuard{}
	if g.page != nil {
		g.page.RLatch()
	}
	g.MoveTo(&rg.guard)
	return rg
}

// UpgradeWrite converts the guard into a write guard, acquiring the exclusive
// latch. The receiver becomes empty.
func (g *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	wg := &WritePageGuard{}
	if g.page != nil {
		g.page.WLatch()
	}
	g.MoveTo(&wg.guard)
	return wg
}

// ReadPageGuard owns a pin plus the shared latch on the page payload.
// Dropping releases the latch before the pin.
type ReadPageGuard struct {
	guard BasicPageGuard
}

// Drop releases the latch and the pin. Safe on an empty guard, idempotent.
func (g *ReadPageGuard) Drop() {
	if g.guard.page != nil {
		g.guard.page.RUnlatch()
	}
	g.guard.Drop()
}

// MoveTo transfers latch and pin to dst, dropping whatever dst held.
func (g *ReadPageGuard) MoveTo(dst *ReadPageGuard) {
	if g == dst {
		return
	}
	dst.Drop()
	g.guard.MoveTo(&dst.guard)
}

// PageID returns the guarded page's ID, or InvalidPageID for an empty guard
func (g *ReadPageGuard) PageID() PageID {
	return g.guard.PageID()
}

// Data returns the page payload for reading
func (g *ReadPageGuard) Data() []byte {
	return g.guard.Data()
}

// WritePageGuard owns a pin plus the exclusive latch on the page payload.
// Dropping releases the latch before the pin.
type WritePageGuard struct {
	guard BasicPageGuard
}

// Drop releases the latch and the pin. Safe on an empty guard, idempotent.
func (g *WritePageGuard) Drop() {
	if g.guard.page != nil {
		g.guard.page.WUnlatch()
	}
	g.guard.Drop()
}

// MoveTo transfers latch and pin to dst, dropping whatever dst held.
func (g *WritePageGuard) MoveTo(dst *WritePageGuard) {
	if g == dst {
		return
	}
	dst.Drop()
	g.guard.MoveTo(&dst.guard)
}

// PageID returns the guarded page's ID, or InvalidPageID for an empty guard
func (g *WritePageGuard) PageID() PageID {
	return g.guard.PageID()
}

// Data returns the page payload for reading
func (g *WritePageGuard) Data() []byte {
	return g.guard.Data()
}

// DataMut returns the page payload for writing and marks the guard dirty
func (g *WritePageGuard) DataMut() []byte {
	return g.guard.DataMut()
}

// FetchPageBasic fetches the page and wraps the pin in a basic guard
func (bpm *BufferPoolManager) FetchPageBasic(pageID PageID) (*BasicPageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{bpm: bpm, page: page}, nil
}

// FetchPageRead fetches the page, acquires the shared latch, and wraps both
// in a read guard. The latch is taken after the pin, outside the pool latch.
func (bpm *BufferPoolManager) FetchPageRead(pageID PageID) (*ReadPageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.RLatch()
	return &ReadPageGuard{guard: BasicPageGuard{bpm: bpm, page: page}}, nil
}

// FetchPageWrite fetches the page, acquires the exclusive latch, and wraps
// both in a write guard.
func (bpm *BufferPoolManager) FetchPageWrite(pageID PageID) (*WritePageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	page.WLatch()
	return &WritePageGuard{guard: BasicPageGuard{bpm: bpm, page: page}}, nil
}

// NewPageGuarded allocates a fresh page and wraps the pin in a basic guard
func (bpm *BufferPoolManager) NewPageGuarded() (*BasicPageGuard, error) {
	page, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	return &BasicPageGuard{bpm: bpm, page: page}, nil
}
