package txn

import (
	"testing"

	"crabdb/storage"
)

func TestBeginAssignsIncreasingIDs(t *testing.T) {
	m := NewManager()
	a := m.Begin()
	b := m.Begin()
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct transaction ids, got %d and %d", a.ID(), b.ID())
	}
	if b.ID() <= a.ID() {
		t.Fatalf("expected increasing ids, got %d then %d", a.ID(), b.ID())
	}
}

func TestPageSetOrderPreserved(t *testing.T) {
	tx := NewManager().Begin()
	p1 := storage.NewPage(1)
	p2 := storage.NewPage(2)
	p3 := storage.NewPage(3)
	tx.AddToPageSet(p1)
	tx.AddToPageSet(p2)
	tx.AddToPageSet(p3)

	set := tx.PageSet()
	if len(set) != 3 || set[0] != p1 || set[1] != p2 || set[2] != p3 {
		t.Fatalf("page set order not preserved: %v", set)
	}

	tx.ClearPageSet()
	if len(tx.PageSet()) != 0 {
		t.Fatalf("ClearPageSet left entries behind")
	}
}

func TestDeletedPageSetTracksMembership(t *testing.T) {
	tx := NewManager().Begin()
	tx.AddToDeletedPageSet(10)
	tx.AddToDeletedPageSet(20)

	if !tx.IsDeleted(10) || !tx.IsDeleted(20) {
		t.Fatalf("expected 10 and 20 to be marked deleted")
	}
	if tx.IsDeleted(30) {
		t.Fatalf("30 should not be marked deleted")
	}

	ids := tx.DeletedPageIDs()
	if len(ids) != 2 {
		t.Fatalf("DeletedPageIDs() len = %d, want 2", len(ids))
	}

	tx.ClearDeletedPageSet()
	if len(tx.DeletedPageIDs()) != 0 {
		t.Fatalf("ClearDeletedPageSet left entries behind")
	}
}
