package storage

import (
	"sync"

	"crabdb/dberr"
)

// InMemoryDiskManager is a non-durable stand-in for DiskManager, grounded
// on bplustree/inmemory_pager.go's InMemoryPager. Useful for tests and for
// a purely in-RAM index that never needs to survive a restart.
type InMemoryDiskManager struct {
	mu       sync.Mutex
	pages    map[int64][]byte
	nextPage int64
	closed   bool
}

// NewInMemoryDiskManager constructs an empty in-memory page store.
func NewInMemoryDiskManager() *InMemoryDiskManager {
	return &InMemoryDiskManager{
		pages:    make(map[int64][]byte),
		nextPage: 1,
	}
}

func (dm *InMemoryDiskManager) AllocatePage() (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return InvalidPageID, dberr.ErrClosed
	}
	id := dm.nextPage
	dm.nextPage++
	dm.pages[id] = make([]byte, PageSize)
	return id, nil
}

func (dm *InMemoryDiskManager) ReadPage(id int64) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return nil, dberr.ErrClosed
	}
	data, ok := dm.pages[id]
	if !ok {
		return make([]byte, PageSize), nil
	}
	out := make([]byte, PageSize)
	copy(out, data)
	return out, nil
}

func (dm *InMemoryDiskManager) WritePage(id int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return dberr.ErrClosed
	}
	dest := make([]byte, PageSize)
	copy(dest, data)
	dm.pages[id] = dest
	return nil
}

func (dm *InMemoryDiskManager) DeallocatePage(id int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return dberr.ErrClosed
	}
	delete(dm.pages, id)
	return nil
}

func (dm *InMemoryDiskManager) Sync() error { return nil }

func (dm *InMemoryDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.closed = true
	dm.pages = nil
	return nil
}

func (dm *InMemoryDiskManager) TotalPages() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.nextPage
}
