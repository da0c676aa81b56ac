package bplustree

import (
	"crabdb/storage"
	"crabdb/txn"
)

// GetValue performs a point lookup for key, returning its value and true
// if present. Matches spec.md §4.3.1/§4.3.3.
func (t *Tree[K]) GetValue(key K, tx *txn.Txn) (int64, bool) {
	depth := 0
	t.lockRoot(false, &depth)
	if t.rootPageID == storage.InvalidPageID {
		t.tryUnlockRoot(false, &depth)
		return 0, false
	}

	leaf, _, err := t.findLeaf(&key, OpRead, tx, &depth)
	if err != nil {
		t.freePageSet(tx, false, &depth)
		return 0, false
	}

	idx, found := t.leafLookup(leaf, key)
	var value int64
	if found {
		value = leaf.ValueAt(idx)
	}
	t.freePageSet(tx, false, &depth)
	return value, found
}
