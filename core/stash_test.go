package core

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestStashPushListPop(t *testing.T) {
	store := NewStashStore(t.TempDir())
	tree1 := HashBlob([]byte("tree-1"))
	tree2 := HashBlob([]byte("tree-2"))

	if err := store.Push("wip on main", tree1, "refs/heads/main", "stash-1", []byte("dek-1-0123456789012345678901")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := store.Push("wip on feature", tree2, "refs/heads/feature", "stash-2", []byte("dek-2-0123456789012345678901")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stash entries, got %d", len(entries))
	}
	if entries[0].ID != "stash-2" {
		t.Fatalf("expected most recent stash first, got %s", entries[0].ID)
	}

	top, err := store.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if top.ID != "stash-2" {
		t.Fatalf("Pop returned wrong entry: %s", top.ID)
	}
	entries, _ = store.List()
	if len(entries) != 1 || entries[0].ID != "stash-1" {
		t.Fatalf("unexpected remaining entries: %v", entries)
	}
}

func TestStashPopEmptyIsNotFound(t *testing.T) {
	store := NewStashStore(t.TempDir())
	_, err := store.Pop()
	ce, ok := AsCoreError(err)
	if !ok || ce.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound popping an empty stash, got %v", err)
	}
}

// TestStashMaterializeRestoresFiles confirms a popped stash entry's
// tree is written back into the working tree, including a nested
// subdirectory.
func TestStashMaterializeRestoresFiles(t *testing.T) {
	ctx := context.Background()
	objects, _ := newTestObjectStore(t)
	dek := testDEK(t)

	topBlob, err := objects.PutBlob(ctx, []byte("top level"), "text/plain", dek)
	if err != nil {
		t.Fatalf("PutBlob top: %v", err)
	}
	nestedBlob, err := objects.PutBlob(ctx, []byte("nested file"), "text/plain", dek)
	if err != nil {
		t.Fatalf("PutBlob nested: %v", err)
	}
	inner, err := objects.PutTree([]TreeEntry{
		{Name: "inner.txt", Kind: EntryBlob, ID: nestedBlob.Hash, Mode: ModeFile},
	})
	if err != nil {
		t.Fatalf("PutTree inner: %v", err)
	}
	root, err := objects.PutTree([]TreeEntry{
		{Name: "top.txt", Kind: EntryBlob, ID: topBlob.Hash, Mode: ModeFile},
		{Name: "sub", Kind: EntryTree, ID: inner.Hash, Mode: ModeTree},
	})
	if err != nil {
		t.Fatalf("PutTree root: %v", err)
	}

	workdir := t.TempDir()
	repo := &Repo{
		Repository: &Repository{LocalRoot: workdir},
		Objects:    objects,
		ChunkMap:   make(map[Hash]ChunkRef),
	}
	entry := StashEntry{ID: "s1", Tree: root.Hash, DEK: base64.StdEncoding.EncodeToString(dek)}

	written, err := repo.Materialize(ctx, workdir, entry)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 files written, got %d: %v", len(written), written)
	}

	got, err := os.ReadFile(filepath.Join(workdir, "top.txt"))
	if err != nil {
		t.Fatalf("ReadFile top.txt: %v", err)
	}
	if string(got) != "top level" {
		t.Fatalf("unexpected top.txt content: %q", got)
	}
	got, err = os.ReadFile(filepath.Join(workdir, "sub", "inner.txt"))
	if err != nil {
		t.Fatalf("ReadFile sub/inner.txt: %v", err)
	}
	if string(got) != "nested file" {
		t.Fatalf("unexpected sub/inner.txt content: %q", got)
	}
}

func TestStashDropByID(t *testing.T) {
	store := NewStashStore(t.TempDir())
	store.Push("first", HashBlob([]byte("t1")), "refs/heads/main", "a", nil)
	store.Push("second", HashBlob([]byte("t2")), "refs/heads/main", "b", nil)

	if err := store.Drop("a"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	entries, _ := store.List()
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Fatalf("unexpected entries after Drop: %v", entries)
	}
	if err := store.Drop("a"); err == nil {
		t.Fatalf("expected error dropping an already-removed entry")
	}
}
