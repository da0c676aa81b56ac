package headerpage

import (
	"testing"

	"crabdb/storage"
)

func TestInsertAndGetRootID(t *testing.T) {
	tbl, err := New(storage.NewPage(storage.HeaderPageID))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tbl.Close()

	if err := tbl.UpdateRootPageId("primary", 5, true); err != nil {
		t.Fatalf("UpdateRootPageId insert: %v", err)
	}
	got, ok := tbl.GetRootID("primary")
	if !ok || got != 5 {
		t.Fatalf("GetRootID(primary) = %d, %v, want 5, true", got, ok)
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	tbl, _ := New(storage.NewPage(storage.HeaderPageID))
	defer tbl.Close()

	if err := tbl.UpdateRootPageId("primary", 1, true); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := tbl.UpdateRootPageId("primary", 2, true); err == nil {
		t.Fatalf("expected error inserting duplicate record")
	}
}

func TestUpdateMissingRejected(t *testing.T) {
	tbl, _ := New(storage.NewPage(storage.HeaderPageID))
	defer tbl.Close()

	if err := tbl.UpdateRootPageId("missing", 1, false); err == nil {
		t.Fatalf("expected error updating nonexistent record")
	}
}

func TestUpdateOverwritesExistingRoot(t *testing.T) {
	tbl, _ := New(storage.NewPage(storage.HeaderPageID))
	defer tbl.Close()

	tbl.UpdateRootPageId("primary", 1, true)
	if err := tbl.UpdateRootPageId("primary", 2, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := tbl.GetRootID("primary")
	if !ok || got != 2 {
		t.Fatalf("GetRootID(primary) = %d, %v, want 2, true", got, ok)
	}
}

func TestDeleteRecordRemovesEntry(t *testing.T) {
	tbl, _ := New(storage.NewPage(storage.HeaderPageID))
	defer tbl.Close()

	tbl.UpdateRootPageId("primary", 1, true)
	if err := tbl.DeleteRecord("primary"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, ok := tbl.GetRootID("primary"); ok {
		t.Fatalf("expected record gone after delete")
	}
}

func TestDecodeRoundTripsThroughPageBytes(t *testing.T) {
	page := storage.NewPage(storage.HeaderPageID)
	tbl, _ := New(page)
	tbl.UpdateRootPageId("a", 10, true)
	tbl.UpdateRootPageId("bb", 20, true)
	tbl.Close()

	reopened, err := New(page)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got, ok := reopened.GetRootID("a"); !ok || got != 10 {
		t.Fatalf("GetRootID(a) after reopen = %d, %v, want 10, true", got, ok)
	}
	if got, ok := reopened.GetRootID("bb"); !ok || got != 20 {
		t.Fatalf("GetRootID(bb) after reopen = %d, %v, want 20, true", got, ok)
	}
}
