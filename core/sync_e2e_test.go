package core

import (
	"context"
	"os"
	"testing"

	"walgit/core/blobclient"
	"walgit/core/ledgerclient"
)

// newTestRepo wires a full in-memory Repo the way cmd/walgit/repo.go does
// for production, but against fakes so the sync scenarios run without a
// network or ledger.
func newTestRepo(t *testing.T) (*Repo, *blobclient.Fake) {
	t.Helper()
	root := t.TempDir()
	local, err := NewLocalStore(root + "/.walgit")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	objects := NewObjectStore(local, nil, transport)
	engine := NewTxEngine(ledgerclient.NewFake())
	refs := NewRefStore(root + "/.walgit")
	if err := refs.SetHeadSymbolic("refs/heads/main"); err != nil {
		t.Fatalf("SetHeadSymbolic: %v", err)
	}
	return &Repo{
		Repository: &Repository{LocalRoot: root, DefaultBranch: "main"},
		Objects:    objects,
		Refs:       refs,
		Engine:     engine,
		ChunkMap:   make(map[Hash]ChunkRef),
	}, fake
}

// commitOnto creates and stores one commit record with the given parent,
// uploading it to the fake remote so fetch/clone can retrieve it, and
// recording its chunk ref on the repo's ChunkMap. It does not add the
// commit to repo.ChunkMap as "already pushed" from Push's point of view
// beyond that upload, matching the role an object plays once its bytes
// live on the remote.
func commitOnto(t *testing.T, repo *Repo, parent Hash, message string) Hash {
	t.Helper()
	c := Commit{Message: message, Parents: nil}
	if !parent.IsZero() {
		c.Parents = []Hash{parent}
	}
	h, err := repo.PutCommit(c)
	if err != nil {
		t.Fatalf("PutCommit: %v", err)
	}
	raw, err := repo.Objects.Local.Get(h)
	if err != nil {
		t.Fatalf("Local.Get: %v", err)
	}
	body, err := Unframe(raw)
	if err != nil {
		t.Fatalf("Unframe: %v", err)
	}
	ref, err := repo.Objects.Transport.Upload(context.Background(), body)
	if err != nil {
		t.Fatalf("Upload commit: %v", err)
	}
	repo.ChunkMap[h] = ref
	return h
}

// TestPushFastForward is end-to-end scenario 3: pushing a local branch
// that is a descendant of the remote-tracking ref succeeds and advances
// the remote-tracking ref.
func TestPushFastForward(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	c1 := commitOnto(t, repo, ZeroHash, "first")
	req := PushRequest{Branch: "refs/heads/main", LocalTarget: c1}
	if _, err := repo.Push(ctx, req, nil); err != nil {
		t.Fatalf("Push (initial): %v", err)
	}
	tracked, err := repo.Refs.Read("refs/remotes/origin/main")
	if err != nil {
		t.Fatalf("Read remote-tracking ref: %v", err)
	}
	if tracked != c1 {
		t.Fatalf("remote-tracking ref = %s, want %s", tracked, c1)
	}

	c2 := commitOnto(t, repo, c1, "second")
	req2 := PushRequest{Branch: "refs/heads/main", LocalTarget: c2}
	if _, err := repo.Push(ctx, req2, nil); err != nil {
		t.Fatalf("Push (fast-forward): %v", err)
	}
	tracked, err = repo.Refs.Read("refs/remotes/origin/main")
	if err != nil {
		t.Fatalf("Read remote-tracking ref: %v", err)
	}
	if tracked != c2 {
		t.Fatalf("remote-tracking ref after second push = %s, want %s", tracked, c2)
	}
}

// TestPushNonFastForwardRejectedWithoutForce is end-to-end scenario 4.
func TestPushNonFastForwardRejectedWithoutForce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	c1 := commitOnto(t, repo, ZeroHash, "first")
	if _, err := repo.Push(ctx, PushRequest{Branch: "refs/heads/main", LocalTarget: c1}, nil); err != nil {
		t.Fatalf("Push (initial): %v", err)
	}

	// A sibling commit off the same parent is not a descendant of c1.
	sibling := commitOnto(t, repo, ZeroHash, "unrelated sibling")
	_, err := repo.Push(ctx, PushRequest{Branch: "refs/heads/main", LocalTarget: sibling}, nil)
	ce, ok := AsCoreError(err)
	if !ok || ce.Kind != KindConflict {
		t.Fatalf("expected a conflict error for a non-fast-forward push, got %v", err)
	}

	// Forcing it through must succeed and overwrite the remote-tracking ref.
	if _, err := repo.Push(ctx, PushRequest{Branch: "refs/heads/main", LocalTarget: sibling, Force: true}, nil); err != nil {
		t.Fatalf("forced Push: %v", err)
	}
	tracked, _ := repo.Refs.Read("refs/remotes/origin/main")
	if tracked != sibling {
		t.Fatalf("forced push did not update remote-tracking ref: got %s", tracked)
	}
}

// TestPushCreatesLedgerObjects is grounded on fix (g): a push of a brand
// new commit must submit create_blob_object/create_tree_object/
// create_commit_object operations, not just a reference update.
func TestPushCreatesLedgerObjects(t *testing.T) {
	repo, _ := newTestRepo(t)
	ledger := ledgerclient.NewFake()
	repo.Engine = NewTxEngine(ledger)
	ctx := context.Background()

	dek, err := NewDEK()
	if err != nil {
		t.Fatalf("NewDEK: %v", err)
	}
	blob, err := repo.Objects.PutBlob(ctx, []byte("package main"), "text/plain", dek)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	tree, err := repo.Objects.PutTree([]TreeEntry{
		{Name: "main.go", Kind: EntryBlob, ID: blob.Hash, Mode: ModeFile},
	})
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	h, err := repo.PutCommit(Commit{Message: "add main.go", RootTree: tree.Hash})
	if err != nil {
		t.Fatalf("PutCommit: %v", err)
	}

	if _, err := repo.Push(ctx, PushRequest{Branch: "refs/heads/main", LocalTarget: h}, nil); err != nil {
		t.Fatalf("Push: %v", err)
	}

	var kinds []string
	for _, batch := range ledger.Submitted {
		for _, op := range batch.Operations {
			kinds = append(kinds, op.Kind)
		}
	}
	want := map[string]bool{
		string(OpCreateBlob):       false,
		string(OpCreateTree):       false,
		string(OpCreateCommit):     false,
		string(OpUpdateReference): false,
	}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, got := range want {
		if !got {
			t.Fatalf("expected a %s operation among submitted ops %v", k, kinds)
		}
	}
}

// TestPullFastForwardsCleanWorkingTree is end-to-end scenario 5's
// happy path.
func TestPullFastForwardsCleanWorkingTree(t *testing.T) {
	remoteSide, _ := newTestRepo(t)
	c1 := commitOnto(t, remoteSide, ZeroHash, "first")

	localSide, _ := newTestRepo(t)
	// A real pull resolves hash->ref mappings from the remote's commit
	// manifests before fetching; simulate that resolution directly here.
	for h, ref := range remoteSide.ChunkMap {
		localSide.ChunkMap[h] = ref
	}
	result, err := localSide.Pull(context.Background(), FetchRequest{Branch: "refs/heads/main", RemoteTarget: c1}, Keyring{})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if len(result.NewCommits) != 1 || result.NewCommits[0] != c1 {
		t.Fatalf("unexpected new commits from Pull: %v", result.NewCommits)
	}
	localTarget, err := localSide.Refs.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Read local branch: %v", err)
	}
	if localTarget != c1 {
		t.Fatalf("local branch not fast-forwarded: got %s want %s", localTarget, c1)
	}
}

// TestClonePullsFullHistory is end-to-end scenario 6: cloning downloads
// every commit reachable from the remote's default branch tip.
func TestClonePullsFullHistory(t *testing.T) {
	remoteSide, fake := newTestRepo(t)
	c1 := commitOnto(t, remoteSide, ZeroHash, "first")
	c2 := commitOnto(t, remoteSide, c1, "second")
	c3 := commitOnto(t, remoteSide, c2, "third")

	dest := t.TempDir()
	local, err := NewLocalStore(dest + "/.walgit")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	transport := NewRemoteTransport(fake)
	objects := NewObjectStore(local, nil, transport)
	engine := NewTxEngine(ledgerclient.NewFake())

	repo, result, err := Clone(context.Background(), CloneRequest{
		RepositoryID:  "repo-1",
		Name:          "cloned",
		DefaultBranch: "main",
		RemoteTarget:  c3,
		LocalRoot:     dest,
		SeedChunkMap:  remoteSide.ChunkMap,
	}, objects, engine)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if len(result.NewCommits) != 3 {
		t.Fatalf("expected 3 downloaded commits, got %d", len(result.NewCommits))
	}
	for _, h := range []Hash{c1, c2, c3} {
		if !repo.Objects.Local.Exists(h) {
			t.Fatalf("clone did not materialize commit %s locally", h)
		}
	}
	branchTarget, err := repo.Refs.Read("refs/heads/main")
	if err != nil {
		t.Fatalf("Read cloned branch ref: %v", err)
	}
	if branchTarget != c3 {
		t.Fatalf("cloned branch ref = %s, want %s", branchTarget, c3)
	}
}

// TestPullMaterializesFilesAndBacksUpConflicts exercises fix (e): pulling
// a commit with an encrypted manifest writes its files into the working
// tree, and a file modified locally since the last pull is preserved
// under "<path>.local" rather than silently overwritten.
func TestPullMaterializesFilesAndBacksUpConflicts(t *testing.T) {
	remoteSide, _ := newTestRepo(t)
	ctx := context.Background()
	signer, _, err := NewRandomSigner()
	if err != nil {
		t.Fatalf("NewRandomSigner: %v", err)
	}
	keyring := DeriveKeyring(signer)

	commitFile := func(parent Hash, path string, content []byte) Hash {
		dek, err := NewDEK()
		if err != nil {
			t.Fatalf("NewDEK: %v", err)
		}
		blob, err := remoteSide.Objects.PutBlob(ctx, content, "text/plain", dek)
		if err != nil {
			t.Fatalf("PutBlob: %v", err)
		}
		tree, err := remoteSide.Objects.PutTree([]TreeEntry{
			{Name: path, Kind: EntryBlob, ID: blob.Hash, Mode: ModeFile},
		})
		if err != nil {
			t.Fatalf("PutTree: %v", err)
		}
		var parents []Hash
		if !parent.IsZero() {
			parents = []Hash{parent}
		}
		c := Commit{Message: "commit " + path, RootTree: tree.Hash, Parents: parents}
		h := HashCommit(CommitFields{Tree: c.RootTree, Parents: c.Parents})
		manifest := Manifest{Tree: map[string]ManifestEntry{
			path: {BlobCID: blob.Hash.String(), Size: blob.Size, SHA256: SHA256Hex(content), Encrypted: true},
		}}
		manifestCID, err := UploadManifest(ctx, remoteSide.Objects.Transport, remoteSide.ChunkMap, manifest, dek)
		if err != nil {
			t.Fatalf("UploadManifest: %v", err)
		}
		shares, err := WrapDEK(dek, keyring.Recipients, keyring.Threshold, h[:])
		if err != nil {
			t.Fatalf("WrapDEK: %v", err)
		}
		wrappedDEKCID, err := UploadWrappedDEK(ctx, remoteSide.Objects.Transport, remoteSide.ChunkMap, keyring.Threshold, shares)
		if err != nil {
			t.Fatalf("UploadWrappedDEK: %v", err)
		}
		c.ManifestCID = manifestCID
		c.WrappedDEKCID = wrappedDEKCID
		stored, err := remoteSide.PutCommit(c)
		if err != nil {
			t.Fatalf("PutCommit: %v", err)
		}
		raw, err := remoteSide.Objects.Local.Get(stored)
		if err != nil {
			t.Fatalf("Local.Get: %v", err)
		}
		body, err := Unframe(raw)
		if err != nil {
			t.Fatalf("Unframe: %v", err)
		}
		ref, err := remoteSide.Objects.Transport.Upload(ctx, body)
		if err != nil {
			t.Fatalf("Upload commit: %v", err)
		}
		remoteSide.ChunkMap[stored] = ref
		return stored
	}

	c1 := commitFile(ZeroHash, "a.txt", []byte("version one"))

	localSide, _ := newTestRepo(t)
	for h, ref := range remoteSide.ChunkMap {
		localSide.ChunkMap[h] = ref
	}
	if _, err := localSide.Pull(ctx, FetchRequest{Branch: "refs/heads/main", RemoteTarget: c1}, keyring); err != nil {
		t.Fatalf("first Pull: %v", err)
	}

	localPath := localSide.Repository.LocalRoot + "/a.txt"
	got, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("read materialized file: %v", err)
	}
	if string(got) != "version one" {
		t.Fatalf("unexpected materialized content: %q", got)
	}

	// Modify the file locally, then pull a remote change to the same path.
	if err := os.WriteFile(localPath, []byte("locally edited"), 0o644); err != nil {
		t.Fatalf("write local edit: %v", err)
	}
	c2 := commitFile(c1, "a.txt", []byte("version two"))
	for h, ref := range remoteSide.ChunkMap {
		localSide.ChunkMap[h] = ref
	}
	result, err := localSide.Pull(ctx, FetchRequest{Branch: "refs/heads/main", RemoteTarget: c2}, keyring)
	if err != nil {
		t.Fatalf("second Pull: %v", err)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != "a.txt" {
		t.Fatalf("expected a.txt to be reported as a conflict, got %v", result.Conflicts)
	}
	backup, err := os.ReadFile(localPath + ".local")
	if err != nil {
		t.Fatalf("read backup file: %v", err)
	}
	if string(backup) != "locally edited" {
		t.Fatalf("unexpected backup content: %q", backup)
	}
	updated, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("read updated file: %v", err)
	}
	if string(updated) != "version two" {
		t.Fatalf("expected working file to hold the new remote content, got %q", updated)
	}
}
