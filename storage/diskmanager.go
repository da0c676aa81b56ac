package storage

import (
	"fmt"
	"os"
	"sync"

	"crabdb/dberr"
)

// DiskManager owns a single backing file and the page-id space for it,
// grounded on bplustree/disk_pager.go's OnDiskPager and
// storage_engine/disk_manager/main.go's offset-based ReadPage/WritePage.
// Page 0 is reserved for the header page (spec.md §3); AllocatePage never
// hands it out.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	nextPage int64
	closed   bool
}

// NewDiskManager opens (creating if absent) a page file at path.
func NewDiskManager(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open page file %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat page file %s: %w", path, err)
	}
	numPages := stat.Size() / PageSize
	next := numPages
	if next < 1 {
		// Brand-new file: reserve and zero-fill page 0 up front so
		// FetchPage(HeaderPageID) always has something to read, the same
		// way AllocatePage zero-fills every other page id.
		blank := make([]byte, PageSize)
		if _, err := f.WriteAt(blank, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("reserve header page in %s: %w", path, err)
		}
		next = 1
	}
	return &DiskManager{file: f, nextPage: next}, nil
}

// AllocatePage reserves and zero-initializes a new page id.
func (dm *DiskManager) AllocatePage() (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return InvalidPageID, dberr.ErrClosed
	}
	id := dm.nextPage
	dm.nextPage++
	blank := make([]byte, PageSize)
	if _, err := dm.file.WriteAt(blank, id*PageSize); err != nil {
		return InvalidPageID, fmt.Errorf("allocate page %d: %w", id, err)
	}
	return id, nil
}

// ReadPage reads PageSize bytes for id into a fresh buffer.
func (dm *DiskManager) ReadPage(id int64) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return nil, dberr.ErrClosed
	}
	buf := make([]byte, PageSize)
	n, err := dm.file.ReadAt(buf, id*PageSize)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}
	return buf, nil
}

// WritePage writes exactly PageSize bytes of data at id's offset.
func (dm *DiskManager) WritePage(id int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return dberr.ErrClosed
	}
	if len(data) != PageSize {
		return fmt.Errorf("write page %d: data size %d != page size %d", id, len(data), PageSize)
	}
	if _, err := dm.file.WriteAt(data, id*PageSize); err != nil {
		return fmt.Errorf("write page %d: %w", id, err)
	}
	return nil
}

// DeallocatePage is a no-op placeholder: freed page ids are never reused
// by this implementation (matching the teacher's OnDiskPager, which
// leaves the same TODO).
func (dm *DiskManager) DeallocatePage(id int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return dberr.ErrClosed
	}
	return nil
}

// Sync flushes pending writes to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return dberr.ErrClosed
	}
	return dm.file.Sync()
}

// Close syncs and closes the backing file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return nil
	}
	err := dm.file.Sync()
	cerr := dm.file.Close()
	dm.closed = true
	if err != nil {
		return err
	}
	return cerr
}

// TotalPages reports the next page id that would be allocated.
func (dm *DiskManager) TotalPages() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.nextPage
}
