package bplustree

import (
	"fmt"
	"sync"

	"crabdb/bufferpool"
	"crabdb/comparator"
	"crabdb/dberr"
	"crabdb/headerpage"
	"crabdb/storage"
	"crabdb/txn"
)

// Tree is a concurrent B+-tree over fixed-width keys K, backed by pages
// from a buffer pool. Keys must implement Key[K]; node (de)serialization
// is driven by a comparator.Codec[K] supplied at construction, since Go
// generics cannot derive a fixed byte width from K alone.
type Tree[K Key[K]] struct {
	name   string
	bp     *bufferpool.Manager
	header *headerpage.Table
	codec  comparator.Codec[K]

	rootMu         sync.RWMutex
	rootPageID     int64
	headerRecorded bool

	leafMaxSize     int
	internalMaxSize int

	scratch *txn.Manager // backs iterators, which need a Txn but not a caller-visible one
}

// Option configures a Tree at construction time.
type Option[K Key[K]] func(*Tree[K])

// WithMaxSize overrides the default, page-size-derived leaf and internal
// node capacities. End-to-end tests use this to exercise small trees
// (spec.md §8 uses max_size=4 throughout).
func WithMaxSize[K Key[K]](leafMaxSize, internalMaxSize int) Option[K] {
	return func(t *Tree[K]) {
		t.leafMaxSize = leafMaxSize
		t.internalMaxSize = internalMaxSize
	}
}

// New constructs a tree named name over bp, persisting its root page id
// in header (nil is allowed for a purely in-memory, unnamed tree). The
// root is recovered from header if a prior record exists.
func New[K Key[K]](name string, bp *bufferpool.Manager, header *headerpage.Table, codec comparator.Codec[K], opts ...Option[K]) *Tree[K] {
	def := maxEntriesFor(codec.Size())
	t := &Tree[K]{
		name:            name,
		bp:              bp,
		header:          header,
		codec:           codec,
		rootPageID:      storage.InvalidPageID,
		leafMaxSize:     def,
		internalMaxSize: def,
		scratch:         txn.NewManager(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if header != nil {
		if id, ok := header.GetRootID(name); ok {
			t.rootPageID = id
			t.headerRecorded = true
		}
	}
	return t
}

// IsEmpty reports whether the tree currently has no root, per spec.md
// §4.3.1. Safe to call standalone, outside of any in-flight operation.
func (t *Tree[K]) IsEmpty() bool {
	t.rootMu.RLock()
	defer t.rootMu.RUnlock()
	return t.rootPageID == storage.InvalidPageID
}

// lockRoot/tryUnlockRoot implement the reentrant root-id latch spec.md
// §4.3.2 and §9 describe: depth is an explicit counter the caller
// threads through its own recursive descent, rather than thread-local
// storage, per the design note's "pass an explicit lock-guard object"
// realization.
func (t *Tree[K]) lockRoot(exclusive bool, depth *int) {
	if *depth == 0 {
		if exclusive {
			t.rootMu.Lock()
		} else {
			t.rootMu.RLock()
		}
	}
	*depth++
}

func (t *Tree[K]) tryUnlockRoot(exclusive bool, depth *int) {
	if *depth == 0 {
		return
	}
	*depth--
	if *depth == 0 {
		if exclusive {
			t.rootMu.Unlock()
		} else {
			t.rootMu.RUnlock()
		}
	}
}

// setRoot updates the in-memory root page id and persists it via the
// header-page collaborator. Caller must hold the root-id latch
// exclusively.
func (t *Tree[K]) setRoot(id int64) error {
	t.rootPageID = id
	if t.header == nil {
		return nil
	}
	insert := !t.headerRecorded
	if err := t.header.UpdateRootPageId(t.name, id, insert); err != nil {
		return fmt.Errorf("bplustree: persist root page id: %w", err)
	}
	t.headerRecorded = true
	return nil
}

// save re-encodes n's current in-memory state into its page and marks
// the page dirty. Every mutation to a decoded node must be followed by a
// save before the page is next fetched or unpinned.
func (t *Tree[K]) save(n *node[K], page *storage.Page) error {
	if err := encodeNode(n, t.codec, page.GetData()); err != nil {
		return fmt.Errorf("bplustree: encode node %d: %w", n.pageID, err)
	}
	page.SetDirty(true)
	return nil
}

// loadNode fetches (pinning) and decodes the node at pageID. Every call
// must be balanced by exactly one UnpinPage for pageID.
func (t *Tree[K]) loadNode(pageID int64) (*node[K], *storage.Page, error) {
	page, err := t.bp.FetchPage(pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("bplustree: fetch page %d: %w", pageID, err)
	}
	n, err := decodeNode[K](t.codec, page.GetData())
	if err != nil {
		t.bp.UnpinPage(pageID, false)
		return nil, nil, fmt.Errorf("bplustree: decode page %d: %w", pageID, err)
	}
	return n, page, nil
}

// newNode allocates a fresh page from the buffer pool and returns it
// latched exclusively, matching every Split/StartNewTree call site in
// the original: a newly created page is always immediately write-
// latched before anything else can observe it.
func (t *Tree[K]) newNode(kind Kind, parentID int64) (*node[K], *storage.Page, error) {
	page, err := t.bp.NewPage()
	if err != nil {
		return nil, nil, dberr.ErrOutOfMemory
	}
	page.WLatch()
	var n *node[K]
	if kind == KindLeaf {
		n = newLeafNode[K](page.GetPageId(), parentID, t.leafMaxSize)
	} else {
		n = newInternalNode[K](page.GetPageId(), parentID, t.internalMaxSize)
	}
	return n, page, nil
}
