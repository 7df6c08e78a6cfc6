package tracker

import (
	"testing"
	"time"
)

func TestPutGetUpdateRemove(t *testing.T) {
	r := NewRegistry()
	r.Put(Entry{SessionID: "s1", ProjectID: "p1", Slug: "first"})

	entry, ok := r.Get("s1")
	if !ok || entry.Slug != "first" {
		t.Fatalf("Get returned (%+v, %v)", entry, ok)
	}

	if !r.Update("s1", func(e *Entry) { e.Slug = "renamed"; e.MessageCount = 7 }) {
		t.Fatal("Update should find the entry")
	}
	entry, _ = r.Get("s1")
	if entry.Slug != "renamed" || entry.MessageCount != 7 {
		t.Fatalf("update not applied: %+v", entry)
	}

	if r.Update("missing", func(e *Entry) {}) {
		t.Fatal("Update of unknown session must report false")
	}

	r.Remove("s1")
	if _, ok := r.Get("s1"); ok {
		t.Fatal("entry survived Remove")
	}
	if r.Len() != 0 {
		t.Fatalf("Len after Remove: %d", r.Len())
	}
}

func TestHasSlug(t *testing.T) {
	r := NewRegistry()
	r.Put(Entry{SessionID: "s1", ProjectID: "p1", Slug: "shared"})
	r.Put(Entry{SessionID: "s2", ProjectID: "p2", Slug: "shared"})

	if !r.HasSlug("p1", "shared", "") {
		t.Fatal("slug in use must be reported")
	}
	if r.HasSlug("p1", "shared", "s1") {
		t.Fatal("owner must be excluded from the collision check")
	}
	if r.HasSlug("p1", "other", "") {
		t.Fatal("unused slug reported as taken")
	}
	// Same slug in another project is not a collision.
	if r.HasSlug("p3", "shared", "") {
		t.Fatal("slug scope must be per project")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	r := NewRegistry()
	r.Put(Entry{SessionID: "s1", CreatedAt: time.Now()})

	snapshot := r.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot size: %d", len(snapshot))
	}
	snapshot[0].Slug = "mutated"
	entry, _ := r.Get("s1")
	if entry.Slug == "mutated" {
		t.Fatal("snapshot must not alias registry state")
	}
}
