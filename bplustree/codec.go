package bplustree

import (
	"encoding/binary"
	"fmt"

	"crabdb/comparator"
	"crabdb/storage"
)

// header layout, grounded on the teacher's node_codec.go fixed preamble
// (id/type/numKeys/parent/next), extended with max_size and lsn as
// spec.md §3's shared node header requires.
const (
	headerSize = 1 /*kind*/ + 4 /*size*/ + 4 /*maxSize*/ + 8 /*pageID*/ + 8 /*parentID*/ + 8 /*next*/ + 8 /*lsn*/
)

// encodeNode serializes n into page, using codec to encode each fixed-
// width key. Internal nodes store one more child than key by convention
// here (keys[0] unused), so both slices share length == size.
func encodeNode[K any](n *node[K], codec comparator.Codec[K], page []byte) error {
	for i := range page {
		page[i] = 0
	}
	off := 0
	page[off] = byte(n.kind)
	off++
	binary.BigEndian.PutUint32(page[off:], uint32(n.Size()))
	off += 4
	binary.BigEndian.PutUint32(page[off:], uint32(n.maxSize))
	off += 4
	binary.BigEndian.PutUint64(page[off:], uint64(n.pageID))
	off += 8
	binary.BigEndian.PutUint64(page[off:], uint64(n.parentID))
	off += 8
	binary.BigEndian.PutUint64(page[off:], uint64(n.next))
	off += 8
	off += 8 // lsn, inert

	keySize := codec.Size()
	for i := 0; i < n.Size(); i++ {
		kb := codec.Encode(n.keys[i])
		if len(kb) != keySize {
			return fmt.Errorf("bplustree: encoded key length %d != codec size %d", len(kb), keySize)
		}
		if off+keySize > len(page) {
			return fmt.Errorf("bplustree: node overflowed page while encoding key %d", i)
		}
		copy(page[off:], kb)
		off += keySize
	}

	if n.IsLeaf() {
		for i := 0; i < n.Size(); i++ {
			if off+8 > len(page) {
				return fmt.Errorf("bplustree: node overflowed page while encoding value %d", i)
			}
			binary.BigEndian.PutUint64(page[off:], uint64(n.values[i]))
			off += 8
		}
	} else {
		for i := 0; i < n.Size(); i++ {
			if off+8 > len(page) {
				return fmt.Errorf("bplustree: node overflowed page while encoding child %d", i)
			}
			binary.BigEndian.PutUint64(page[off:], uint64(n.children[i]))
			off += 8
		}
	}
	return nil
}

// decodeNode reconstructs a node from page bytes.
func decodeNode[K any](codec comparator.Codec[K], page []byte) (*node[K], error) {
	if len(page) < headerSize {
		return nil, fmt.Errorf("bplustree: page too small for node header")
	}
	off := 0
	kind := Kind(page[off])
	off++
	size := int(binary.BigEndian.Uint32(page[off:]))
	off += 4
	maxSize := int(binary.BigEndian.Uint32(page[off:]))
	off += 4
	pageID := int64(binary.BigEndian.Uint64(page[off:]))
	off += 8
	parentID := int64(binary.BigEndian.Uint64(page[off:]))
	off += 8
	next := int64(binary.BigEndian.Uint64(page[off:]))
	off += 8
	off += 8 // lsn

	n := &node[K]{kind: kind, pageID: pageID, parentID: parentID, maxSize: maxSize, next: next}

	keySize := codec.Size()
	n.keys = make([]K, size)
	for i := 0; i < size; i++ {
		if off+keySize > len(page) {
			return nil, fmt.Errorf("bplustree: page overflow decoding key %d", i)
		}
		n.keys[i] = codec.Decode(page[off : off+keySize])
		off += keySize
	}

	if kind == KindLeaf {
		n.values = make([]int64, size)
		for i := 0; i < size; i++ {
			if off+8 > len(page) {
				return nil, fmt.Errorf("bplustree: page overflow decoding value %d", i)
			}
			n.values[i] = int64(binary.BigEndian.Uint64(page[off : off+8]))
			off += 8
		}
	} else {
		n.children = make([]int64, size)
		for i := 0; i < size; i++ {
			if off+8 > len(page) {
				return nil, fmt.Errorf("bplustree: page overflow decoding child %d", i)
			}
			n.children[i] = int64(binary.BigEndian.Uint64(page[off : off+8]))
			off += 8
		}
	}
	return n, nil
}

// maxEntriesFor computes the default max_size the default-sized tree
// uses when a Tree is constructed without an explicit max size override.
// Insert stores max_size+1 entries transiently (the overflow entry) and
// saves the node to its page before splitting it back out of
// overflow, so the page must hold max_size+1 entries, not max_size of
// them — one slot short of however many (key, 8-byte value) pairs
// physically fit after the shared header.
func maxEntriesFor(keySize int) int {
	entrySize := keySize + 8
	n := (storage.PageSize-headerSize)/entrySize - 1
	if n < 4 {
		n = 4
	}
	return n
}
