package bplustree

import (
	"crabdb/storage"
	"crabdb/txn"
)

// Insert adds (key, value) to the tree, rejecting duplicates (unique
// keys only). Returns true iff the pair was inserted. Matches
// spec.md §4.3.4.
func (t *Tree[K]) Insert(key K, value int64, tx *txn.Txn) (bool, error) {
	depth := 0
	t.lockRoot(true, &depth)

	if t.rootPageID == storage.InvalidPageID {
		if err := t.startNewTree(key, value); err != nil {
			t.tryUnlockRoot(true, &depth)
			return false, err
		}
		t.tryUnlockRoot(true, &depth)
		return true, nil
	}

	leaf, leafPage, err := t.findLeaf(&key, OpInsert, tx, &depth)
	if err != nil {
		t.freePageSet(tx, true, &depth)
		return false, err
	}

	idx, found := t.leafLookup(leaf, key)
	if found {
		t.freePageSet(tx, true, &depth)
		return false, nil
	}

	leaf.insertLeafAt(idx, key, value)
	if err := t.save(leaf, leafPage); err != nil {
		t.freePageSet(tx, true, &depth)
		return false, err
	}

	if leaf.Size() > leaf.MaxSize() {
		newLeaf, newLeafPage, err := t.split(leaf, leafPage)
		if err != nil {
			t.freePageSet(tx, true, &depth)
			return false, err
		}
		if err := t.insertIntoParent(leaf, newLeaf.KeyAt(0), newLeaf, leafPage, newLeafPage, tx, &depth); err != nil {
			t.freePageSet(tx, true, &depth)
			return false, err
		}
	}

	t.freePageSet(tx, true, &depth)
	return true, nil
}

// startNewTree allocates a fresh leaf as the sole node of a brand-new
// tree and records it as the root, matching StartNewTree.
func (t *Tree[K]) startNewTree(key K, value int64) error {
	root, page, err := t.newNode(KindLeaf, storage.InvalidPageID)
	if err != nil {
		return err
	}
	root.insertLeafAt(0, key, value)
	if err := t.save(root, page); err != nil {
		page.WUnlatch()
		t.bp.UnpinPage(root.pageID, false)
		return err
	}
	if err := t.setRoot(root.pageID); err != nil {
		page.WUnlatch()
		t.bp.UnpinPage(root.pageID, true)
		return err
	}
	page.WUnlatch()
	return t.bp.UnpinPage(root.pageID, true)
}

// split allocates a new sibling node and moves the upper half of
// source's entries into it, re-parenting moved children for internal
// splits. Matches Split/MoveHalfTo.
func (t *Tree[K]) split(source *node[K], sourcePage *storage.Page) (*node[K], *storage.Page, error) {
	newNode, newPage, err := t.newNode(source.kind, source.parentID)
	if err != nil {
		return nil, nil, err
	}

	total := source.Size()
	copyIdx := total / 2

	if source.IsLeaf() {
		newNode.keys = append(newNode.keys, source.keys[copyIdx:]...)
		newNode.values = append(newNode.values, source.values[copyIdx:]...)
		newNode.next = source.next
		source.next = newNode.pageID
		source.keys = source.keys[:copyIdx]
		source.values = source.values[:copyIdx]
	} else {
		newNode.keys = append(newNode.keys, source.keys[copyIdx:]...)
		newNode.children = append(newNode.children, source.children[copyIdx:]...)
		source.keys = source.keys[:copyIdx]
		source.children = source.children[:copyIdx]
		if err := t.reparentChildren(newNode); err != nil {
			newPage.WUnlatch()
			t.bp.UnpinPage(newNode.pageID, false)
			return nil, nil, err
		}
	}

	if err := t.save(newNode, newPage); err != nil {
		return nil, nil, err
	}
	if err := t.save(source, sourcePage); err != nil {
		return nil, nil, err
	}
	return newNode, newPage, nil
}

// reparentChildren updates parent_page_id on every child now owned by n,
// matching MoveHalfTo's reparenting loop. The source's own open question
// resolution (DESIGN.md) keeps the write-amplifying dirty=true here even
// though only the parent pointer changed.
func (t *Tree[K]) reparentChildren(n *node[K]) error {
	for _, childID := range n.children {
		child, childPage, err := t.loadNode(childID)
		if err != nil {
			return err
		}
		child.parentID = n.pageID
		if err := t.save(child, childPage); err != nil {
			t.bp.UnpinPage(childID, false)
			return err
		}
		if err := t.bp.UnpinPage(childID, true); err != nil {
			return err
		}
	}
	return nil
}

// insertIntoParent wires a freshly split pair into their parent,
// allocating a new root if old had none, and recursing if the parent
// itself now overflows. Matches InsertIntoParent.
func (t *Tree[K]) insertIntoParent(old *node[K], key K, newN *node[K], oldPage, newPage *storage.Page, tx *txn.Txn, rootDepth *int) error {
	if old.IsRoot() {
		root, rootPage, err := t.newNode(KindInternal, storage.InvalidPageID)
		if err != nil {
			return err
		}
		root.populateNewRoot(old.pageID, key, newN.pageID)
		old.parentID = root.pageID
		newN.parentID = root.pageID

		if err := t.save(old, oldPage); err != nil {
			return err
		}
		if err := t.save(newN, newPage); err != nil {
			return err
		}
		if err := t.save(root, rootPage); err != nil {
			return err
		}
		if err := t.setRoot(root.pageID); err != nil {
			return err
		}
		newPage.WUnlatch()
		rootPage.WUnlatch()
		if err := t.bp.UnpinPage(newN.pageID, true); err != nil {
			return err
		}
		return t.bp.UnpinPage(root.pageID, true)
	}

	parentID := old.parentID
	parent, parentPage, err := t.loadNode(parentID)
	if err != nil {
		return err
	}
	newN.parentID = parentID
	if err := t.save(newN, newPage); err != nil {
		t.bp.UnpinPage(parentID, false)
		return err
	}
	newPage.WUnlatch()
	if err := t.bp.UnpinPage(newN.pageID, true); err != nil {
		return err
	}

	parent.insertInternalAfter(old.pageID, key, newN.pageID)
	if err := t.save(parent, parentPage); err != nil {
		t.bp.UnpinPage(parentID, false)
		return err
	}

	if parent.Size() > parent.MaxSize() {
		newParent, newParentPage, err := t.split(parent, parentPage)
		if err != nil {
			t.bp.UnpinPage(parentID, true)
			return err
		}
		if err := t.insertIntoParent(parent, newParent.KeyAt(0), newParent, parentPage, newParentPage, tx, rootDepth); err != nil {
			t.bp.UnpinPage(parentID, true)
			return err
		}
	}
	return t.bp.UnpinPage(parentID, true)
}
