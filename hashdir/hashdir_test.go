package hashdir

import "testing"

func TestFindAfterInsert(t *testing.T) {
	d := New[Int64Key, string](2)
	d.Insert(1, "a")
	d.Insert(2, "b")
	d.Insert(3, "c")

	v, ok := d.Find(2)
	if !ok || v != "b" {
		t.Fatalf("Find(2) = %q, %v, want b, true", v, ok)
	}
}

func TestMostRecentInsertWins(t *testing.T) {
	d := New[Int64Key, string](2)
	d.Insert(1, "a")
	d.Insert(1, "a-updated")

	v, ok := d.Find(1)
	if !ok || v != "a-updated" {
		t.Fatalf("Find(1) = %q, %v, want a-updated, true", v, ok)
	}
}

func TestGlobalDepthGrowsOnOverflow(t *testing.T) {
	d := New[Int64Key, string](2)
	initialDepth := d.GetGlobalDepth()
	if initialDepth != 0 {
		t.Fatalf("initial global depth = %d, want 0", initialDepth)
	}

	for i := int64(0); i < 64; i++ {
		d.Insert(Int64Key(i), "v")
	}

	if d.GetGlobalDepth() <= initialDepth {
		t.Errorf("global depth did not grow: %d <= %d", d.GetGlobalDepth(), initialDepth)
	}
	if d.GetNumBuckets() <= 1 {
		t.Errorf("GetNumBuckets() = %d, want > 1", d.GetNumBuckets())
	}

	for i := int64(0); i < 64; i++ {
		if _, ok := d.Find(Int64Key(i)); !ok {
			t.Errorf("Find(%d) missing after inserts", i)
		}
	}
}

func TestRemove(t *testing.T) {
	d := New[Int64Key, string](2)
	d.Insert(1, "a")

	if !d.Remove(1) {
		t.Fatalf("Remove(1) = false, want true")
	}
	if d.Remove(1) {
		t.Fatalf("second Remove(1) = true, want false")
	}
	if _, ok := d.Find(1); ok {
		t.Fatalf("Find(1) found a removed key")
	}
}

func TestNumBucketsMonotonicallyIncreases(t *testing.T) {
	d := New[Int64Key, int](2)
	last := d.GetNumBuckets()
	for i := 0; i < 200; i++ {
		d.Insert(Int64Key(i), i)
		cur := d.GetNumBuckets()
		if cur < last {
			t.Fatalf("GetNumBuckets() decreased: %d -> %d at i=%d", last, cur, i)
		}
		last = cur
	}
}

func TestLocalDepthNeverExceedsGlobalDepth(t *testing.T) {
	d := New[Int64Key, int](2)
	for i := 0; i < 500; i++ {
		d.Insert(Int64Key(i), i)
	}
	gd := d.GetGlobalDepth()
	n := 1 << gd
	for i := 0; i < n; i++ {
		if ld := d.GetLocalDepth(i); ld > gd {
			t.Errorf("slot %d local depth %d exceeds global depth %d", i, ld, gd)
		}
	}
}
