package bplustree

import (
	"crabdb/storage"
)

// Iterator walks a tree's leaves in ascending key order, holding exactly
// one leaf page latched (shared) and pinned at a time. Grounded on
// spec.md §4.3.6's forward-only scan and the original's IndexIterator,
// which likewise pins/latches only the leaf it currently sits on.
type Iterator[K Key[K]] struct {
	tree *Tree[K]
	leaf *node[K]
	page *storage.Page
	idx  int
	done bool
}

// Begin returns an iterator positioned at the tree's first key, or an
// already-done iterator if the tree is empty.
func (t *Tree[K]) Begin() (*Iterator[K], error) {
	return t.newIterator(nil)
}

// BeginAt returns an iterator positioned at the first key >= key (an
// exact hit lands on that key), or an already-done iterator if no such
// key exists.
func (t *Tree[K]) BeginAt(key K) (*Iterator[K], error) {
	return t.newIterator(&key)
}

func (t *Tree[K]) newIterator(key *K) (*Iterator[K], error) {
	depth := 0
	t.lockRoot(false, &depth)

	if t.rootPageID == storage.InvalidPageID {
		t.tryUnlockRoot(false, &depth)
		return &Iterator[K]{tree: t, done: true}, nil
	}

	tx := t.scratch.Begin()
	leaf, page, err := t.findLeaf(key, OpRead, tx, &depth)
	if err != nil {
		t.freePageSet(tx, false, &depth)
		return nil, err
	}
	// Read descents release every ancestor as soon as the next node proves
	// safe, so by the time findLeaf returns only the leaf itself remains
	// in tx's page set; the root-id latch has nothing left to protect.
	t.tryUnlockRoot(false, &depth)

	idx := 0
	if key != nil {
		idx, _ = t.leafLookup(leaf, *key)
	}

	it := &Iterator[K]{tree: t, leaf: leaf, page: page, idx: idx}
	it.skipToNonEmpty()
	return it, nil
}

// skipToNonEmpty advances across empty leaves (possible only transiently
// mid-coalesce in a real system; kept defensive since the teacher's own
// iterator does the same) until it lands on a live entry or the scan ends.
func (it *Iterator[K]) skipToNonEmpty() {
	for !it.done && it.idx >= it.leaf.Size() {
		if !it.advanceLeaf() {
			it.done = true
			return
		}
	}
}

// advanceLeaf releases the current leaf and latches the next one in chain
// order, returning false if there is none.
func (it *Iterator[K]) advanceLeaf() bool {
	nextID := it.leaf.next
	it.page.RUnlatch()
	it.tree.bp.UnpinPage(it.leaf.pageID, false)
	if nextID == storage.InvalidPageID {
		it.leaf, it.page = nil, nil
		return false
	}
	page, err := it.tree.bp.FetchPage(nextID)
	if err != nil {
		it.leaf, it.page = nil, nil
		return false
	}
	page.RLatch()
	n, err := decodeNode[K](it.tree.codec, page.GetData())
	if err != nil {
		page.RUnlatch()
		it.tree.bp.UnpinPage(nextID, false)
		it.leaf, it.page = nil, nil
		return false
	}
	it.leaf, it.page, it.idx = n, page, 0
	return true
}

// IsEnd reports whether the iterator has exhausted the tree.
func (it *Iterator[K]) IsEnd() bool { return it.done }

// Key returns the current entry's key. Undefined if IsEnd.
func (it *Iterator[K]) Key() K { return it.leaf.KeyAt(it.idx) }

// Value returns the current entry's value. Undefined if IsEnd.
func (it *Iterator[K]) Value() int64 { return it.leaf.ValueAt(it.idx) }

// Next advances to the following entry, reports whether one exists.
func (it *Iterator[K]) Next() bool {
	if it.done {
		return false
	}
	it.idx++
	it.skipToNonEmpty()
	return !it.done
}

// Close releases the leaf this iterator still holds, if any. Callers
// must call Close once done scanning unless Next/skipToNonEmpty already
// walked off the end of the tree.
func (it *Iterator[K]) Close() {
	if it.page == nil {
		return
	}
	it.page.RUnlatch()
	it.tree.bp.UnpinPage(it.leaf.pageID, false)
	it.leaf, it.page = nil, nil
	it.done = true
}
