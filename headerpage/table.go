// Package headerpage implements the header-page collaborator spec.md §3
// assumes: a durable table mapping an index name to its current root page
// id, so the B+-tree can be reopened and find its root again.
//
// Grounded on the original header_page.h's InsertRecord/UpdateRecord
// contract (called from b_plus_tree.cpp's UpdateRootPageId) and the
// teacher's unwired storage_engine/catalog gesture at a name -> metadata
// registry. A ristretto cache sits in front of the on-disk record list as
// the fast read path; the on-disk copy, living in the reserved header
// page, is what survives a restart.
package headerpage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"crabdb/storage"
)

// Table persists index_name -> root_page_id records on the reserved
// header page, with a ristretto cache absorbing repeat lookups so a hot
// index's root id is almost never a round trip through the page latch.
type Table struct {
	mu   sync.Mutex
	page *storage.Page
	recs map[string]int64 // authoritative, in sync with the encoded page

	cache *ristretto.Cache[string, int64]
}

// New constructs a header-page table backed by page, decoding any
// existing records it holds.
func New(page *storage.Page) (*Table, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, int64]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("headerpage: new cache: %w", err)
	}

	t := &Table{page: page, recs: make(map[string]int64), cache: cache}
	t.decode()
	return t, nil
}

// decode populates recs from the page's current bytes. Format: a 4-byte
// record count, then for each record a 2-byte name length, the name
// bytes, and an 8-byte big-endian root page id.
func (t *Table) decode() {
	data := t.page.GetData()
	if len(data) < 4 {
		return
	}
	count := binary.BigEndian.Uint32(data[0:4])
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+2 > len(data) {
			return
		}
		nameLen := int(binary.BigEndian.Uint16(data[off : off+2]))
		off += 2
		if off+nameLen+8 > len(data) {
			return
		}
		name := string(data[off : off+nameLen])
		off += nameLen
		rootID := int64(binary.BigEndian.Uint64(data[off : off+8]))
		off += 8
		t.recs[name] = rootID
		t.cache.Set(name, rootID, 1)
	}
	t.cache.Wait()
}

// encodeLocked rewrites the page from recs. Caller must hold t.mu.
func (t *Table) encodeLocked() error {
	data := t.page.GetData()
	for i := range data {
		data[i] = 0
	}
	binary.BigEndian.PutUint32(data[0:4], uint32(len(t.recs)))
	off := 4
	for name, rootID := range t.recs {
		need := 2 + len(name) + 8
		if off+need > len(data) {
			return fmt.Errorf("headerpage: record table overflowed header page")
		}
		binary.BigEndian.PutUint16(data[off:off+2], uint16(len(name)))
		off += 2
		copy(data[off:], name)
		off += len(name)
		binary.BigEndian.PutUint64(data[off:off+8], uint64(rootID))
		off += 8
	}
	t.page.SetDirty(true)
	return nil
}

// GetRootID returns the root page id for name, reporting whether it was
// found.
func (t *Table) GetRootID(name string) (int64, bool) {
	if v, ok := t.cache.Get(name); ok {
		return v, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.recs[name]
	if ok {
		t.cache.Set(name, v, 1)
	}
	return v, ok
}

// UpdateRootPageId sets name's root page id, inserting a new record when
// insertRecord is true (name must not already exist) and overwriting an
// existing one otherwise, matching the original InsertRecord/UpdateRecord
// split.
func (t *Table) UpdateRootPageId(name string, rootID int64, insertRecord bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.recs[name]
	if insertRecord && exists {
		return fmt.Errorf("headerpage: record %q already exists", name)
	}
	if !insertRecord && !exists {
		return fmt.Errorf("headerpage: record %q does not exist", name)
	}

	t.recs[name] = rootID
	if err := t.encodeLocked(); err != nil {
		return err
	}
	t.cache.Set(name, rootID, 1)
	t.cache.Wait()
	return nil
}

// DeleteRecord removes name's record entirely.
func (t *Table) DeleteRecord(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.recs[name]; !ok {
		return fmt.Errorf("headerpage: record %q does not exist", name)
	}
	delete(t.recs, name)
	if err := t.encodeLocked(); err != nil {
		return err
	}
	t.cache.Del(name)
	return nil
}

// Stats exposes the backing cache's hit/miss metrics for introspection.
func (t *Table) Stats() *ristretto.Metrics {
	return t.cache.Metrics
}

// Close releases the cache's background goroutines.
func (t *Table) Close() {
	t.cache.Close()
}
