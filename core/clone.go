package core

// Clone (spec.md §4.10): initializes a fresh local repository from a
// remote's default branch, downloads its full reachable history plus
// every blob referenced by the resulting commit's manifest, and
// materializes them into the working tree. Grounded on
// blockchain_synchronization.go's NewSyncManager construction idiom in
// the teacher repo, run once instead of on a ticker.

import (
	"context"
	"os"
)

// CloneRequest describes a repository to clone.
type CloneRequest struct {
	RepositoryID  string
	Name          string
	DefaultBranch string
	RemoteTarget  Hash
	LocalRoot     string

	// Keyring resolves the wrapped DEK of RemoteTarget's commit so its
	// manifest and blobs can be decrypted for materialization. Unused
	// when RemoteTarget is ZeroHash (a local-only init).
	Keyring Keyring

	// SeedChunkMap pre-populates the new repo's chunk index, the way a
	// real clone would resolve hash->ref mappings from the remote's
	// commit manifests before downloading. Optional; Fetch will fail on
	// any hash missing from it unless the underlying transport can
	// resolve chunks by hash alone.
	SeedChunkMap map[Hash]ChunkRef
}

// Clone creates the .walgit layout at req.LocalRoot, fetches the default
// branch's full history, resolves the DEK and manifest for its tip
// commit, downloads every referenced blob, and writes them into the
// working tree (spec.md §4.10 "clone").
func Clone(ctx context.Context, req CloneRequest, objects *ObjectStore, engine *TxEngine) (*Repo, SyncResult, error) {
	repository := &Repository{
		ID:            req.RepositoryID,
		Name:          req.Name,
		DefaultBranch: req.DefaultBranch,
		LocalRoot:     req.LocalRoot,
	}
	walgitDir := repository.WalgitDir()
	if err := os.MkdirAll(walgitDir, 0o755); err != nil {
		return nil, SyncResult{}, IOError("create .walgit directory", err)
	}

	refs := NewRefStore(walgitDir)
	branchRef := "refs/heads/" + req.DefaultBranch
	if err := refs.SetHeadSymbolic(branchRef); err != nil {
		return nil, SyncResult{}, err
	}

	chunkMap := req.SeedChunkMap
	if chunkMap == nil {
		chunkMap = make(map[Hash]ChunkRef)
	}
	repo := &Repo{
		Repository: repository,
		Objects:    objects,
		Refs:       refs,
		Engine:     engine,
		ChunkMap:   chunkMap,
	}

	result, err := repo.Fetch(ctx, FetchRequest{Branch: branchRef, RemoteTarget: req.RemoteTarget})
	if err != nil {
		return nil, SyncResult{}, err
	}
	if err := refs.Write(branchRef, req.RemoteTarget); err != nil {
		return nil, SyncResult{}, err
	}
	result.UpdatedRefs[branchRef] = req.RemoteTarget

	_, updated, err := repo.materialize(ctx, ZeroHash, req.RemoteTarget, req.Keyring)
	if err != nil {
		return nil, SyncResult{}, err
	}
	result.UpdatedFiles = updated

	return repo, result, nil
}
