package bplustree

import (
	"fmt"
	"io"
	"os"

	"crabdb/storage"
)

// Inspect writes a human-readable BFS dump of the tree's structure to
// stdout: the root page id, then each level's nodes with their keys and
// (for leaves) key -> value pairs and the next-leaf chain pointer.
// Grounded on the teacher's InspectIndexFile/QueueUpChildren, adapted
// from a raw on-disk pager walk to the buffer pool and the new node
// codec. Out of core scope per spec.md §1 but kept as ambient debug
// tooling, the same way the teacher keeps it alongside the graded
// components; it does not participate in latch-crabbing, so it is only
// safe to run without a concurrent writer.
func (t *Tree[K]) Inspect() error {
	return t.InspectTo(os.Stdout)
}

// InspectTo writes the dump to w.
func (t *Tree[K]) InspectTo(w io.Writer) error {
	p := func(format string, args ...interface{}) { fmt.Fprintf(w, format, args...) }
	pln := func(s string) { fmt.Fprintln(w, s) }

	p("Index: %s\n", t.name)
	if t.rootPageID == storage.InvalidPageID {
		pln("  (empty tree)")
		return nil
	}
	p("  root page id = %d\n", t.rootPageID)
	pln("  Nodes (BFS):")
	pln("  ---")

	queue := []int64{t.rootPageID}
	level := 0
	for len(queue) > 0 {
		size := len(queue)
		p("  Level %d:\n", level)
		for i := 0; i < size; i++ {
			pageID := queue[i]
			n, _, err := t.loadNode(pageID)
			if err != nil {
				p("    [page %d] read error: %v\n", pageID, err)
				continue
			}

			if n.IsLeaf() {
				p("    [page %d] LEAF size=%d next=%d\n", pageID, n.Size(), n.next)
				for j := 0; j < n.Size(); j++ {
					p("      %v -> %d\n", n.KeyAt(j), n.ValueAt(j))
				}
			} else {
				p("    [page %d] INTERNAL size=%d keys=%v children=%v\n", pageID, n.Size(), n.keys[1:], n.children)
				queue = append(queue, n.children...)
			}
			t.bp.UnpinPage(pageID, false)
		}
		pln("  ---")
		queue = queue[size:]
		level++
	}
	return nil
}
