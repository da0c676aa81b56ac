// Package bufferpool implements the Buffer Pool Manager collaborator
// spec.md §6 requires: NewPage, FetchPage, UnpinPage, DeletePage over a
// fixed set of frames, backed by the extendible hash directory (hashdir)
// as its page table and the LRU victim selector (replacer) as its
// eviction policy — the two leaf components the B+-tree never touches
// directly but depends on transitively.
package bufferpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"crabdb/dberr"
	"crabdb/hashdir"
	"crabdb/replacer"
	"crabdb/storage"
)

// Manager owns poolSize frames, a page table mapping page id to frame
// index (the extendible hash directory), a free-frame list, and an LRU
// replacer choosing which unpinned frame to evict next.
//
// Grounded on bplustree/buffer_pool.go's Get/Put/Pin/Unpin/Flush shape and
// storage_engine/bufferpool/bufferpool.go's FetchPage/NewPage/UnpinPage
// naming (which matches spec.md §6 directly); both teacher variants used
// a linear-scan accessOrder slice and a plain map for the jobs hashdir and
// replacer now do.
type Manager struct {
	mu sync.Mutex

	disk   storage.Disker
	frames []*storage.Page
	free   []int // indices into frames with no page loaded

	pageTable *hashdir.Directory[hashdir.Int64Key, int] // page id -> frame index
	repl      replacer.Replacer[int]                    // frame index, unpinned only

	hits   uint64
	misses uint64
}

// New constructs a buffer pool of the given frame capacity over disk.
func New(capacity int, disk storage.Disker) *Manager {
	if capacity < 1 {
		capacity = 1
	}
	frames := make([]*storage.Page, capacity)
	free := make([]int, capacity)
	for i := range frames {
		frames[i] = storage.NewPage(storage.InvalidPageID)
		free[i] = i
	}
	return &Manager{
		disk:      disk,
		frames:    frames,
		free:      free,
		pageTable: hashdir.New[hashdir.Int64Key, int](4),
		repl:      replacer.NewLRU[int](),
	}
}

// NewPage allocates a new page on disk, pins it in a frame (pin=1,
// zeroed), and returns it. Evicts via the LRU replacer if no frame is
// free.
func (m *Manager) NewPage() (*storage.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.disk.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("bufferpool: new page: %w", err)
	}

	frameIdx, err := m.acquireFrameLocked()
	if err != nil {
		return nil, err
	}

	frame := m.frames[frameIdx]
	frame.ResetTo(id)
	frame.Pin()
	frame.SetDirty(true)

	m.pageTable.Insert(hashdir.Int64Key(id), frameIdx)
	return frame, nil
}

// FetchPage pins and returns the page for id, loading it from disk on a
// page-table miss. Pin count is incremented whether the page was already
// cached or not.
func (m *Manager) FetchPage(id int64) (*storage.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameIdx, ok := m.pageTable.Find(hashdir.Int64Key(id)); ok {
		m.hits++
		frame := m.frames[frameIdx]
		if frame.GetPinCount() == 0 {
			m.repl.Erase(frameIdx) // no longer a victim candidate
		}
		frame.Pin()
		return frame, nil
	}

	m.misses++
	data, err := m.disk.ReadPage(id)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: fetch page %d: %w", id, err)
	}

	frameIdx, err := m.acquireFrameLocked()
	if err != nil {
		if errors.Is(err, dberr.ErrOutOfMemory) {
			return nil, fmt.Errorf("bufferpool: fetch page %d: %w", id, dberr.ErrAllPagesPinned)
		}
		return nil, err
	}
	frame := m.frames[frameIdx]
	frame.ResetTo(id)
	copy(frame.GetData(), data)
	frame.Pin()

	m.pageTable.Insert(hashdir.Int64Key(id), frameIdx)
	return frame, nil
}

// UnpinPage decrements id's pin count; if it reaches zero the frame
// becomes eligible for eviction. dirty, if true, marks the page modified.
func (m *Manager) UnpinPage(id int64, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameIdx, ok := m.pageTable.Find(hashdir.Int64Key(id))
	if !ok {
		return fmt.Errorf("bufferpool: unpin page %d: %w", id, dberr.ErrPageNotFound)
	}
	frame := m.frames[frameIdx]
	if dirty {
		frame.SetDirty(true)
	}
	frame.Unpin()
	if frame.GetPinCount() == 0 {
		m.repl.Insert(frameIdx)
	}
	return nil
}

// DeletePage evicts id from the pool (flush skipped; the caller owns the
// decision to persist first) and frees its frame. Fails if the page is
// still pinned.
func (m *Manager) DeletePage(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameIdx, ok := m.pageTable.Find(hashdir.Int64Key(id))
	if !ok {
		return nil // already absent
	}
	frame := m.frames[frameIdx]
	if frame.GetPinCount() > 0 {
		return fmt.Errorf("bufferpool: delete page %d: still pinned", id)
	}

	m.pageTable.Remove(hashdir.Int64Key(id))
	m.repl.Erase(frameIdx)
	_ = m.disk.DeallocatePage(id)
	frame.ResetTo(storage.InvalidPageID)
	m.free = append(m.free, frameIdx)
	return nil
}

// FlushPage writes id's frame to disk if dirty.
func (m *Manager) FlushPage(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frameIdx, ok := m.pageTable.Find(hashdir.Int64Key(id))
	if !ok {
		return fmt.Errorf("bufferpool: flush page %d: %w", id, dberr.ErrPageNotFound)
	}
	return m.flushFrameLocked(frameIdx)
}

// FlushAll writes every dirty frame to disk.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, frame := range m.frames {
		if frame.GetPageId() == storage.InvalidPageID || !frame.IsDirty() {
			continue
		}
		if err := m.flushFrameLocked(i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) flushFrameLocked(frameIdx int) error {
	frame := m.frames[frameIdx]
	if !frame.IsDirty() {
		return nil
	}
	if err := m.disk.WritePage(frame.GetPageId(), frame.GetData()); err != nil {
		return fmt.Errorf("bufferpool: flush page %d: %w", frame.GetPageId(), err)
	}
	frame.SetDirty(false)
	return nil
}

// acquireFrameLocked returns a frame index ready to hold a new page,
// preferring a free frame, then evicting via the LRU replacer. Caller
// must hold m.mu.
func (m *Manager) acquireFrameLocked() (int, error) {
	if len(m.free) > 0 {
		idx := m.free[len(m.free)-1]
		m.free = m.free[:len(m.free)-1]
		return idx, nil
	}

	victimIdx, ok := m.repl.Victim()
	if !ok {
		return 0, dberr.ErrOutOfMemory
	}
	victim := m.frames[victimIdx]
	if victim.IsDirty() {
		if err := m.disk.WritePage(victim.GetPageId(), victim.GetData()); err != nil {
			return 0, fmt.Errorf("bufferpool: evict page %d: %w", victim.GetPageId(), err)
		}
	}
	m.pageTable.Remove(hashdir.Int64Key(victim.GetPageId()))
	return victimIdx, nil
}

// Stats reports buffer pool occupancy for introspection/tooling.
type Stats struct {
	Capacity    int
	Occupied    int
	PinnedPages int
	DirtyPages  int
	Hits        uint64
	Misses      uint64
}

// String renders a human-readable summary, grounded on the teacher's use
// of go-humanize for operator-facing counters rather than raw integers.
func (s Stats) String() string {
	occupiedBytes := humanize.Bytes(uint64(s.Occupied) * uint64(storage.PageSize))
	capacityBytes := humanize.Bytes(uint64(s.Capacity) * uint64(storage.PageSize))
	return fmt.Sprintf("%s/%s occupied (%d/%d frames), %s pinned, %s dirty, %s hits, %s misses",
		occupiedBytes, capacityBytes, s.Occupied, s.Capacity,
		humanize.Comma(int64(s.PinnedPages)), humanize.Comma(int64(s.DirtyPages)),
		humanize.Comma(int64(s.Hits)), humanize.Comma(int64(s.Misses)))
}

// Stats computes current pool statistics, grounded on
// storage_engine/bufferpool/helpers.go's GetStats.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Capacity: len(m.frames), Hits: m.hits, Misses: m.misses}
	for _, frame := range m.frames {
		if frame.GetPageId() == storage.InvalidPageID {
			continue
		}
		s.Occupied++
		if frame.GetPinCount() > 0 {
			s.PinnedPages++
		}
		if frame.IsDirty() {
			s.DirtyPages++
		}
	}
	return s
}
