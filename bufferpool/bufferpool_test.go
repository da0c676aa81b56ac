package bufferpool

import (
	"testing"

	"crabdb/storage"
)

func newTestManager(capacity int) *Manager {
	return New(capacity, storage.NewInMemoryDiskManager())
}

func TestNewPagePinsAndZeroes(t *testing.T) {
	m := newTestManager(4)
	p, err := m.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if p.GetPinCount() != 1 {
		t.Fatalf("pin count = %d, want 1", p.GetPinCount())
	}
	for _, b := range p.GetData() {
		if b != 0 {
			t.Fatalf("new page not zeroed")
		}
	}
}

func TestFetchPageReturnsSameFrameOnHit(t *testing.T) {
	m := newTestManager(4)
	p, _ := m.NewPage()
	id := p.GetPageId()
	copy(p.GetData(), []byte("hello"))
	if err := m.UnpinPage(id, true); err != nil {
		t.Fatalf("unpin: %v", err)
	}

	got, err := m.FetchPage(id)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(got.GetData()[:5]) != "hello" {
		t.Fatalf("fetched page lost its data")
	}
	stats := m.Stats()
	if stats.Hits != 1 {
		t.Fatalf("hits = %d, want 1", stats.Hits)
	}
}

func TestEvictionWritesBackDirtyVictim(t *testing.T) {
	m := newTestManager(1)
	p1, _ := m.NewPage()
	id1 := p1.GetPageId()
	copy(p1.GetData(), []byte("first"))
	if err := m.UnpinPage(id1, true); err != nil {
		t.Fatalf("unpin: %v", err)
	}

	p2, err := m.NewPage() // forces eviction of p1's frame
	if err != nil {
		t.Fatalf("NewPage (forced evict): %v", err)
	}
	id2 := p2.GetPageId()
	if err := m.UnpinPage(id2, true); err != nil {
		t.Fatalf("unpin: %v", err)
	}

	back, err := m.FetchPage(id1)
	if err != nil {
		t.Fatalf("FetchPage evicted page: %v", err)
	}
	if string(back.GetData()[:5]) != "first" {
		t.Fatalf("evicted page lost its dirty write")
	}
}

func TestAllFramesPinnedFailsAcquire(t *testing.T) {
	m := newTestManager(2)
	if _, err := m.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if _, err := m.NewPage(); err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if _, err := m.NewPage(); err == nil {
		t.Fatalf("expected error when all frames pinned, got nil")
	}
}

func TestDeletePageRejectsPinned(t *testing.T) {
	m := newTestManager(2)
	p, _ := m.NewPage()
	if err := m.DeletePage(p.GetPageId()); err == nil {
		t.Fatalf("expected error deleting pinned page")
	}
}

func TestDeletePageFreesFrame(t *testing.T) {
	m := newTestManager(1)
	p, _ := m.NewPage()
	id := p.GetPageId()
	if err := m.UnpinPage(id, false); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if err := m.DeletePage(id); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if len(m.free) != 1 {
		t.Fatalf("frame not returned to free list")
	}
}

func TestUnpinUnknownPageErrors(t *testing.T) {
	m := newTestManager(2)
	if err := m.UnpinPage(999, false); err == nil {
		t.Fatalf("expected error unpinning unknown page")
	}
}

func TestStatsStringReportsOccupancy(t *testing.T) {
	m := newTestManager(4)
	p, _ := m.NewPage()
	if err := m.UnpinPage(p.GetPageId(), true); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	s := m.Stats().String()
	if s == "" {
		t.Fatalf("Stats().String() returned empty summary")
	}
}
