package bplustree

import (
	"fmt"

	"crabdb/storage"
	"crabdb/txn"
)

// crabFetch fetches and latches the page for id according to op, then —
// if previousID indicates an ancestor is held and the newly fetched node
// proves the descent safe — releases every page accumulated in tx's page
// set so far (the "crab" release). The fetched page is always appended
// to tx's page set before returning. Grounded on the original's
// CrabingProtocalFetchPage.
func (t *Tree[K]) crabFetch(id int64, op OpType, previousID int64, tx *txn.Txn, rootDepth *int) (*node[K], *storage.Page, error) {
	page, err := t.bp.FetchPage(id)
	if err != nil {
		return nil, nil, fmt.Errorf("bplustree: fetch page %d: %w", id, err)
	}
	if op.Exclusive() {
		page.WLatch()
	} else {
		page.RLatch()
	}
	n, err := decodeNode[K](t.codec, page.GetData())
	if err != nil {
		if op.Exclusive() {
			page.WUnlatch()
		} else {
			page.RUnlatch()
		}
		t.bp.UnpinPage(id, false)
		return nil, nil, err
	}

	if previousID != storage.InvalidPageID && (!op.Exclusive() || n.IsSafe(op)) {
		t.freePageSet(tx, op.Exclusive(), rootDepth)
	}
	tx.AddToPageSet(page)
	return n, page, nil
}

// freePageSet releases the root-id latch (once, via the reentrant
// counter) and unlatches/unpins every page currently in tx's page set, in
// acquisition order, deleting any pages tx marked for deletion along the
// way. Grounded on the original's FreePagesInTransaction.
func (t *Tree[K]) freePageSet(tx *txn.Txn, exclusive bool, rootDepth *int) {
	t.tryUnlockRoot(exclusive, rootDepth)
	for _, page := range tx.PageSet() {
		pid := page.GetPageId()
		if exclusive {
			page.WUnlatch()
		} else {
			page.RUnlatch()
		}
		t.bp.UnpinPage(pid, exclusive)
		if tx.IsDeleted(pid) {
			t.bp.DeletePage(pid)
		}
	}
	tx.ClearPageSet()
	tx.ClearDeletedPageSet()
}

// findLeaf descends from the root to a leaf under the latch-crabbing
// protocol. If key is nil, it follows the leftmost child at every level
// (used by Begin()). Caller must already hold the root-id latch via
// lockRoot and must eventually call freePageSet to release whatever
// remains in tx's page set.
func (t *Tree[K]) findLeaf(key *K, op OpType, tx *txn.Txn, rootDepth *int) (*node[K], *storage.Page, error) {
	curID := t.rootPageID
	n, page, err := t.crabFetch(curID, op, storage.InvalidPageID, tx, rootDepth)
	if err != nil {
		return nil, nil, err
	}
	for !n.IsLeaf() {
		var nextID int64
		if key == nil {
			nextID = n.ChildAt(0)
		} else {
			nextID = t.lookupChild(n, *key)
		}
		prevID := curID
		curID = nextID
		n, page, err = t.crabFetch(curID, op, prevID, tx, rootDepth)
		if err != nil {
			return nil, nil, err
		}
	}
	return n, page, nil
}

// lookupChild returns the child pointer an internal node routes key to:
// the rightmost slot i >= 1 whose separator key is <= key, or slot 0 if
// none qualifies. Mirrors B_PLUS_TREE_INTERNAL_PAGE_TYPE::Lookup's binary
// search.
func (t *Tree[K]) lookupChild(n *node[K], key K) int64 {
	lo, hi := 1, n.Size()-1
	res := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if n.keys[mid].Compare(key) <= 0 {
			res = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return n.children[res]
}

// leafLookup binary-searches a leaf's sorted keys for an exact match,
// returning the match index (found=true) or the insertion point
// (found=false).
func (t *Tree[K]) leafLookup(n *node[K], key K) (int, bool) {
	lo, hi := 0, n.Size()-1
	for lo <= hi {
		mid := (lo + hi) / 2
		c := n.keys[mid].Compare(key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return lo, false
}
