// Package hashdir implements an extendible hash directory: a concurrent
// map from K to V with bucket-granular locks, used by the buffer pool as
// its page table (page_id -> frame index) and generically reusable
// wherever a growable concurrent hash map is needed.
package hashdir

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// HashKeyer is satisfied by key types that know how to produce a stable
// byte encoding of themselves for hashing. Fixed-width keys (int64 page
// ids, the comparator package's Key4/Key8/... types) implement this
// trivially.
type HashKeyer interface {
	comparable
	HashBytes() []byte
}

// Int64Key adapts an int64 (e.g. a page id) to HashKeyer.
type Int64Key int64

// HashBytes returns the little-endian 8-byte encoding of k.
func (k Int64Key) HashBytes() []byte {
	b := make([]byte, 8)
	u := uint64(k)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b
}

// defaultHash hashes a key's byte encoding with xxhash, the pack's stock
// fast non-cryptographic hash.
func defaultHash[K HashKeyer](k K) uint64 {
	return xxhash.Sum64(k.HashBytes())
}

type bucket[K HashKeyer, V any] struct {
	mu         sync.Mutex
	localDepth int
	kv         map[K]V
}

func newBucket[K HashKeyer, V any](localDepth, capacity int) *bucket[K, V] {
	return &bucket[K, V]{
		localDepth: localDepth,
		kv:         make(map[K]V, capacity),
	}
}

// Directory is an extendible hash directory, generic in (K, V), with a
// fixed per-bucket capacity. Global depth starts at 0 with a single
// bucket; it only ever grows (no shrink path, per spec.md's stated
// limitation).
type Directory[K HashKeyer, V any] struct {
	mu          sync.RWMutex // guards globalDepth and dir
	globalDepth int
	dir         []*bucket[K, V]
	bucketSize  int
	bucketCount int
}

// New constructs an extendible hash directory with the given per-bucket
// capacity.
func New[K HashKeyer, V any](bucketSize int) *Directory[K, V] {
	if bucketSize < 1 {
		bucketSize = 1
	}
	return &Directory[K, V]{
		dir:         []*bucket[K, V]{newBucket[K, V](0, bucketSize)},
		bucketSize:  bucketSize,
		bucketCount: 1,
	}
}

// idx computes the directory slot for k under the current global depth.
func (d *Directory[K, V]) idx(k K) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int(defaultHash(k)) & ((1 << d.globalDepth) - 1)
}

// Find looks up k, reporting whether it was present.
func (d *Directory[K, V]) Find(k K) (V, bool) {
	i := d.idx(k)
	d.mu.RLock()
	b := d.dir[i]
	d.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.kv[k]
	return v, ok
}

// Remove deletes k if present, reporting whether it was.
func (d *Directory[K, V]) Remove(k K) bool {
	i := d.idx(k)
	d.mu.RLock()
	b := d.dir[i]
	d.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.kv[k]; !ok {
		return false
	}
	delete(b.kv, k)
	return true
}

// Insert inserts or overwrites the value for k (last writer wins on
// duplicate keys), splitting buckets and doubling the directory as
// needed.
func (d *Directory[K, V]) Insert(k K, v V) {
	for {
		i := d.idx(k)
		d.mu.RLock()
		b := d.dir[i]
		d.mu.RUnlock()

		b.mu.Lock()
		if _, exists := b.kv[k]; exists || len(b.kv) < d.bucketSize {
			b.kv[k] = v
			b.mu.Unlock()
			return
		}

		// Overflow: split b. mask isolates the bit that distinguishes the
		// two halves once local depth increases by one.
		mask := 1 << b.localDepth
		b.localDepth++
		newBucketDepth := b.localDepth

		var newB *bucket[K, V]
		func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			if newBucketDepth > d.globalDepth {
				// Double the directory: append a copy of every slot, in
				// order, before any slot is reassigned. This preserves
				// the existing low-half mapping exactly.
				d.dir = append(d.dir, d.dir...)
				d.globalDepth++
			}

			newB = newBucket[K, V](newBucketDepth, d.bucketSize)
			d.bucketCount++

			for key, val := range b.kv {
				if int(defaultHash(key))&mask != 0 {
					newB.kv[key] = val
					delete(b.kv, key)
				}
			}

			for slot := range d.dir {
				if d.dir[slot] == b && slot&mask != 0 {
					d.dir[slot] = newB
				}
			}
		}()
		b.mu.Unlock()

		// Loop: the bucket the key now maps to (b or newB) may still be
		// full under pathological hash skew.
	}
}

// GetGlobalDepth returns the current global depth.
func (d *Directory[K, V]) GetGlobalDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.globalDepth
}

// GetNumBuckets returns the current number of distinct buckets.
func (d *Directory[K, V]) GetNumBuckets() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bucketCount
}

// GetLocalDepth returns the local depth of the bucket owning directory
// slot i, or -1 if i is out of range.
func (d *Directory[K, V]) GetLocalDepth(i int) int {
	d.mu.RLock()
	if i < 0 || i >= len(d.dir) {
		d.mu.RUnlock()
		return -1
	}
	b := d.dir[i]
	d.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.localDepth
}
