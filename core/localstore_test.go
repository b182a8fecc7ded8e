package core

import (
	"bytes"
	"testing"
)

func TestLocalStorePutGetIdempotent(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	h := HashBlob([]byte("object body"))

	if err := store.Put(h, []byte("first write")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// A second Put of the same hash must be a no-op (spec.md's local-store
	// idempotence invariant), not overwrite with different bytes.
	if err := store.Put(h, []byte("second write, should be ignored")); err != nil {
		t.Fatalf("Put (second): %v", err)
	}

	got, err := store.Get(h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("first write")) {
		t.Fatalf("Put overwrote an existing object: got %q", got)
	}
}

func TestLocalStoreExistsAndRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	h := HashBlob([]byte("removable"))
	if store.Exists(h) {
		t.Fatalf("object should not exist yet")
	}
	if err := store.Put(h, []byte("data")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Exists(h) {
		t.Fatalf("object should exist after Put")
	}
	if err := store.Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Exists(h) {
		t.Fatalf("object should not exist after Remove")
	}
	// Removing something absent is not an error.
	if err := store.Remove(h); err != nil {
		t.Fatalf("Remove of absent object should be a no-op, got: %v", err)
	}
}

func TestLocalStoreGetMissingIsNotFound(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	_, err = store.Get(HashBlob([]byte("never stored")))
	ce, ok := AsCoreError(err)
	if !ok || ce.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestLocalStoreListAndStats(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hashes := []Hash{
		HashBlob([]byte("one")),
		HashBlob([]byte("two")),
		HashBlob([]byte("three")),
	}
	for _, h := range hashes {
		if err := store.Put(h, []byte("payload")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	listed, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != len(hashes) {
		t.Fatalf("expected %d objects, got %d", len(hashes), len(listed))
	}
	stats, err := store.StatsSnapshot()
	if err != nil {
		t.Fatalf("StatsSnapshot: %v", err)
	}
	if stats.ObjectCount != len(hashes) {
		t.Fatalf("expected ObjectCount %d, got %d", len(hashes), stats.ObjectCount)
	}
	if stats.TotalBytes != int64(len(hashes))*int64(len("payload")) {
		t.Fatalf("unexpected TotalBytes %d", stats.TotalBytes)
	}
}
