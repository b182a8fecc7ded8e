package core

// Pull (spec.md §4.10 scenario 5): fetch, then fast-forward the current
// branch and materialize the resulting changes into the working tree.
// Files the remote changed are written in place; a file that was also
// modified locally is backed up to "<path>.local" first rather than
// silently overwritten. Grounded on
// blockchain_synchronization.go's SyncManager composing SyncOnce with a
// status check in the teacher repo.

import (
	"context"
	"os"
	"path/filepath"
)

// Pull fetches the named branch, fast-forwards the local branch ref and
// HEAD to the new target, and writes every file the new commit's
// manifest changed into the working tree (spec.md §4.10 "pull").
func (repo *Repo) Pull(ctx context.Context, req FetchRequest, keyring Keyring) (SyncResult, error) {
	result, err := repo.Fetch(ctx, req)
	if err != nil {
		return SyncResult{}, err
	}

	localRef := req.Branch
	localTarget, err := repo.Refs.Read(localRef)
	if err != nil {
		if ce, ok := AsCoreError(err); !ok || ce.Kind != KindNotFound {
			return SyncResult{}, err
		}
		localTarget = ZeroHash
	}

	ff, err := FastForwardCheck(ctx, repo, localTarget, req.RemoteTarget)
	if err != nil {
		return SyncResult{}, err
	}
	if !ff {
		return SyncResult{}, ConflictErrorf(ConflictDiverged, "local "+req.Branch+" has diverged from remote")
	}

	conflicts, updated, err := repo.materialize(ctx, localTarget, req.RemoteTarget, keyring)
	if err != nil {
		return SyncResult{}, err
	}

	if err := repo.Refs.CompareAndSwap(localRef, localTarget, req.RemoteTarget); err != nil {
		return SyncResult{}, err
	}
	// HEAD is left as-is: when it symbolically points at localRef (the
	// common case) it now resolves to the new target automatically.
	result.UpdatedRefs[localRef] = req.RemoteTarget
	result.Conflicts = conflicts
	result.UpdatedFiles = updated
	return result, nil
}

// materialize writes every file oldTarget's manifest and newTarget's
// manifest disagree on into the working tree, backing up a locally
// modified file to "<path>.local" before overwriting it. Either target
// may be ZeroHash or carry no manifest, in which case its tree is treated
// as empty. Paths present only in oldTarget's manifest are not removed
// from the working tree.
func (repo *Repo) materialize(ctx context.Context, oldTarget, newTarget Hash, keyring Keyring) (conflicts, updated []string, err error) {
	newManifest, newDEK, err := repo.manifestAndDEK(ctx, newTarget, keyring)
	if err != nil {
		return nil, nil, err
	}
	if newManifest == nil {
		return nil, nil, nil
	}
	oldManifest, _, err := repo.manifestAndDEK(ctx, oldTarget, keyring)
	if err != nil {
		return nil, nil, err
	}

	root := repo.Repository.LocalRoot
	for path, entry := range newManifest.Tree {
		if oldManifest != nil {
			if old, ok := oldManifest.Tree[path]; ok && manifestEntriesEqual(old, entry) {
				continue
			}
		}

		blobHash, err := HashFromHex(entry.BlobCID)
		if err != nil {
			return nil, nil, err
		}
		ref := repo.ChunkMap[blobHash]
		content, err := repo.Objects.GetBlob(ctx, blobHash, newDEK, ref)
		if err != nil {
			return nil, nil, err
		}

		fullPath := filepath.Join(root, filepath.FromSlash(path))
		locallyModified := false
		if oldManifest != nil {
			if old, hadBefore := oldManifest.Tree[path]; hadBefore {
				if onDisk, err := os.ReadFile(fullPath); err == nil {
					if SHA256Hex(onDisk) != old.SHA256 {
						locallyModified = true
					}
				}
			}
		}

		if locallyModified {
			if err := os.Rename(fullPath, fullPath+".local"); err != nil && !os.IsNotExist(err) {
				return nil, nil, IOError("back up locally modified file", err)
			}
			conflicts = append(conflicts, path)
		}

		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, nil, IOError("create parent directory", err)
		}
		if err := os.WriteFile(fullPath, content, 0o644); err != nil {
			return nil, nil, IOError("write updated file", err)
		}
		updated = append(updated, path)
	}
	return conflicts, updated, nil
}

// manifestAndDEK resolves a commit's manifest and DEK, returning (nil,
// nil, nil) for a zero hash or a commit with no manifest (e.g. a
// synthetic test commit or the root of a freshly initialized repo).
func (repo *Repo) manifestAndDEK(ctx context.Context, h Hash, keyring Keyring) (*Manifest, []byte, error) {
	if h.IsZero() {
		return nil, nil, nil
	}
	c, err := repo.LoadCommit(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	if c.ManifestCID == "" || c.WrappedDEKCID == "" {
		return nil, nil, nil
	}
	dek, err := ResolveDEK(ctx, repo.Objects.Transport, repo.ChunkMap, c.WrappedDEKCID, keyring, h[:])
	if err != nil {
		return nil, nil, err
	}
	m, err := DownloadManifest(ctx, repo.Objects.Transport, repo.ChunkMap, c.ManifestCID, dek)
	if err != nil {
		return nil, nil, err
	}
	return &m, dek, nil
}
