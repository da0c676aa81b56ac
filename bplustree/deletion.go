package bplustree

import (
	"crabdb/storage"
	"crabdb/txn"
)

// Remove deletes key if present; no-op otherwise. Matches spec.md §4.3.5.
func (t *Tree[K]) Remove(key K, tx *txn.Txn) error {
	depth := 0
	t.lockRoot(true, &depth)

	if t.rootPageID == storage.InvalidPageID {
		t.tryUnlockRoot(true, &depth)
		return nil
	}

	leaf, leafPage, err := t.findLeaf(&key, OpDelete, tx, &depth)
	if err != nil {
		t.freePageSet(tx, true, &depth)
		return err
	}

	idx, found := t.leafLookup(leaf, key)
	if !found {
		t.freePageSet(tx, true, &depth)
		return nil
	}

	leaf.removeLeafAt(idx)
	if err := t.save(leaf, leafPage); err != nil {
		t.freePageSet(tx, true, &depth)
		return err
	}

	if leaf.Size() < leaf.MinSize() {
		if _, err := t.coalesceOrRedistribute(leaf, leafPage, tx, &depth); err != nil {
			t.freePageSet(tx, true, &depth)
			return err
		}
	}

	t.freePageSet(tx, true, &depth)
	return nil
}

// coalesceOrRedistribute restores an under-full node to the minimum size
// invariant, either by merging it with a sibling (marking the loser for
// deletion in tx) or by borrowing one entry from a sibling. Matches
// CoalesceOrRedistribute.
func (t *Tree[K]) coalesceOrRedistribute(n *node[K], nodePage *storage.Page, tx *txn.Txn, rootDepth *int) (bool, error) {
	if n.IsRoot() {
		deleted, err := t.adjustRoot(n)
		if err != nil {
			return false, err
		}
		if deleted {
			tx.AddToDeletedPageSet(n.pageID)
		}
		return deleted, nil
	}

	sibling, siblingPage, siblingIsRight, err := t.findSibling(n, tx, rootDepth)
	if err != nil {
		return false, err
	}

	parent, parentPage, err := t.loadNode(n.parentID)
	if err != nil {
		return false, err
	}
	defer t.bp.UnpinPage(parent.pageID, true)

	var left, right *node[K]
	var leftPage, rightPage *storage.Page
	if siblingIsRight {
		left, leftPage = n, nodePage
		right, rightPage = sibling, siblingPage
	} else {
		left, leftPage = sibling, siblingPage
		right, rightPage = n, nodePage
	}

	if left.Size()+right.Size() <= left.MaxSize() {
		removeIndex := parent.ValueIndex(right.pageID)
		if err := t.coalesce(left, leftPage, right, parent, removeIndex); err != nil {
			return false, err
		}
		tx.AddToDeletedPageSet(right.pageID)
		if err := t.save(parent, parentPage); err != nil {
			return false, err
		}
		if parent.Size() <= parent.MinSize() {
			if _, err := t.coalesceOrRedistribute(parent, parentPage, tx, rootDepth); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	if err := t.redistribute(left, leftPage, right, rightPage, parent, parentPage); err != nil {
		return false, err
	}
	return false, nil
}

// findSibling locates node n's sibling for coalesce/redistribute: the
// left sibling if one exists, otherwise the right one. Returns whether
// the chosen sibling sits to n's right. Matches FindLeftSibling.
func (t *Tree[K]) findSibling(n *node[K], tx *txn.Txn, rootDepth *int) (*node[K], *storage.Page, bool, error) {
	parent, _, err := t.loadNode(n.parentID)
	if err != nil {
		return nil, nil, false, err
	}
	defer t.bp.UnpinPage(parent.pageID, false)

	index := parent.ValueIndex(n.pageID)
	siblingIndex := index - 1
	isRight := false
	if index == 0 {
		siblingIndex = index + 1
		isRight = true
	}
	siblingID := parent.children[siblingIndex]

	siblingNode, siblingPage, err := t.crabFetch(siblingID, OpDelete, storage.InvalidPageID, tx, rootDepth)
	if err != nil {
		return nil, nil, false, err
	}
	return siblingNode, siblingPage, isRight, nil
}

// coalesce merges right entirely into left (right's page id is left for
// the caller to add to tx's deleted-page set) and removes the
// corresponding separator from parent. For internal nodes, the parent's
// separator descends into right's unused slot 0 before the move, and
// every moved child is re-parented to left. Matches Coalesce/MoveAllTo.
func (t *Tree[K]) coalesce(left *node[K], leftPage *storage.Page, right *node[K], parent *node[K], removeIndex int) error {
	if left.IsLeaf() {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)
		left.next = right.next
	} else {
		right.keys[0] = parent.KeyAt(removeIndex)
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
		for _, childID := range right.children {
			if err := t.reparentOne(childID, left.pageID); err != nil {
				return err
			}
		}
	}
	if err := t.save(left, leftPage); err != nil {
		return err
	}
	parent.removeInternalAt(removeIndex)
	return nil
}

// redistribute transfers exactly one entry between n and its sibling to
// bring n back up to its minimum size, then updates the parent's
// separator to match the new boundary. Matches Redistribute/
// MoveFirstToEndOf/MoveLastToFrontOf.
func (t *Tree[K]) redistribute(left *node[K], leftPage *storage.Page, right *node[K], rightPage *storage.Page, parent *node[K], parentPage *storage.Page) error {
	// The donor is whichever side still has the surplus entry; the other
	// side is the one that just underflowed.
	if left.Size() > right.Size() {
		if err := t.moveLastToFront(left, right); err != nil {
			return err
		}
	} else {
		if err := t.moveFirstToEnd(right, left); err != nil {
			return err
		}
	}

	if err := t.save(left, leftPage); err != nil {
		return err
	}
	if err := t.save(right, rightPage); err != nil {
		return err
	}

	sepIdx := parent.ValueIndex(right.pageID)
	parent.keys[sepIdx] = right.keys[0]
	return t.save(parent, parentPage)
}

// moveFirstToEnd removes src's first entry and appends it to the end of
// dst, re-parenting the moved child for internal nodes.
func (t *Tree[K]) moveFirstToEnd(src, dst *node[K]) error {
	if src.IsLeaf() {
		key, val := src.keys[0], src.values[0]
		src.removeLeafAt(0)
		dst.keys = append(dst.keys, key)
		dst.values = append(dst.values, val)
		return nil
	}
	key, child := src.keys[0], src.children[0]
	src.removeInternalAt(0)
	dst.keys = append(dst.keys, key)
	dst.children = append(dst.children, child)
	return t.reparentOne(child, dst.pageID)
}

// moveLastToFront removes src's last entry and prepends it to dst,
// re-parenting the moved child for internal nodes.
func (t *Tree[K]) moveLastToFront(src, dst *node[K]) error {
	last := src.Size() - 1
	if src.IsLeaf() {
		key, val := src.keys[last], src.values[last]
		src.keys = src.keys[:last]
		src.values = src.values[:last]
		dst.keys = append([]K{key}, dst.keys...)
		dst.values = append([]int64{val}, dst.values...)
		return nil
	}
	key, child := src.keys[last], src.children[last]
	src.keys = src.keys[:last]
	src.children = src.children[:last]
	dst.keys = append([]K{key}, dst.keys...)
	dst.children = append([]int64{child}, dst.children...)
	return t.reparentOne(child, dst.pageID)
}

// reparentOne loads child, updates its parent pointer to newParentID,
// saves it, and unpins the extra pin this loadNode introduced.
func (t *Tree[K]) reparentOne(childID, newParentID int64) error {
	child, childPage, err := t.loadNode(childID)
	if err != nil {
		return err
	}
	child.parentID = newParentID
	if err := t.save(child, childPage); err != nil {
		t.bp.UnpinPage(childID, false)
		return err
	}
	return t.bp.UnpinPage(childID, true)
}

// adjustRoot handles the two cases where deleting from the root leaves it
// either empty (leaf) or with a single child (internal), per AdjustRoot.
func (t *Tree[K]) adjustRoot(root *node[K]) (bool, error) {
	if root.IsLeaf() {
		return true, t.setRoot(storage.InvalidPageID)
	}
	if root.Size() == 1 {
		newRootID := root.children[0]
		if err := t.setRoot(newRootID); err != nil {
			return false, err
		}
		child, childPage, err := t.loadNode(newRootID)
		if err != nil {
			return false, err
		}
		child.parentID = storage.InvalidPageID
		if err := t.save(child, childPage); err != nil {
			t.bp.UnpinPage(newRootID, false)
			return false, err
		}
		if err := t.bp.UnpinPage(newRootID, true); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
