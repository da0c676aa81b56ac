// Package txn implements the latch-crabbing bookkeeping collaborator
// spec.md §6 requires: each B+-tree operation carries one Txn recording
// the ordered set of pages it still holds latched and the set of pages it
// has marked for deletion, so the tree can release ancestors in bulk once
// a node proves safe.
//
// Grounded on query_executor/txn_manager.go's Transaction/TxnManager shape
// (sequential id, Begin()) and the original CrabingProtocalFetchPage /
// FreePagesInTransaction protocol, which drives a page set and a deleted
// page set off of a single per-operation transaction object.
package txn

import (
	"sync/atomic"

	"crabdb/storage"
)

// Txn tracks the pages one B+-tree operation currently holds latched (in
// root-to-leaf order) and the pages it has decided to delete once it is
// safe to release its ancestors.
type Txn struct {
	id uint64

	pageSet    []*storage.Page
	deletedSet map[int64]struct{}
}

// Manager hands out monotonically increasing transaction ids. Safe for
// concurrent use: multiple goroutines may share one Manager and call
// Begin at once, which is exactly what spec.md §8's concurrent-readers-
// and-a-writer scenario does.
type Manager struct {
	nextID atomic.Uint64
}

// NewManager constructs a transaction manager starting ids at 1.
func NewManager() *Manager {
	m := &Manager{}
	m.nextID.Store(1)
	return m
}

// Begin starts a new transaction.
func (m *Manager) Begin() *Txn {
	id := m.nextID.Add(1) - 1
	return &Txn{id: id, deletedSet: make(map[int64]struct{})}
}

// ID returns the transaction's id.
func (t *Txn) ID() uint64 { return t.id }

// AddToPageSet appends a newly latched page to the end of the ordered set
// (root-to-leaf order is preserved because callers latch top-down).
func (t *Txn) AddToPageSet(p *storage.Page) {
	t.pageSet = append(t.pageSet, p)
}

// PageSet returns the currently latched pages, oldest (closest to root)
// first.
func (t *Txn) PageSet() []*storage.Page { return t.pageSet }

// ClearPageSet empties the latched-page set without unlatching; callers
// unlatch each page themselves before or after calling this.
func (t *Txn) ClearPageSet() { t.pageSet = t.pageSet[:0] }

// AddToDeletedPageSet records that id has been logically removed by this
// operation (its frame should be freed once the operation completes).
func (t *Txn) AddToDeletedPageSet(id int64) { t.deletedSet[id] = struct{}{} }

// IsDeleted reports whether id has been marked for deletion.
func (t *Txn) IsDeleted(id int64) bool {
	_, ok := t.deletedSet[id]
	return ok
}

// DeletedPageIDs returns every page id marked for deletion, in no
// particular order.
func (t *Txn) DeletedPageIDs() []int64 {
	ids := make([]int64, 0, len(t.deletedSet))
	for id := range t.deletedSet {
		ids = append(ids, id)
	}
	return ids
}

// ClearDeletedPageSet empties the deleted-page set once its members have
// been handed to the buffer pool for freeing.
func (t *Txn) ClearDeletedPageSet() { t.deletedSet = make(map[int64]struct{}) }
