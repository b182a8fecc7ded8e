package core

// Fetch (spec.md §4.10): downloads new commits reachable from a remote
// branch that the local object store doesn't have yet, along with their
// root trees and (recursively) subtrees, updating the local
// remote-tracking ref without touching the working tree or local
// branches. Blob content itself is fetched lazily by GetBlob; Fetch only
// resolves blob metadata (the tree entry naming it), not its bytes.
// Grounded on blockchain_synchronization.go's SyncOnce single-round idiom
// in the teacher repo.

import "context"

// FetchRequest names the remote branch to fetch and its current ledger
// target, as reported by a prior ledger query.
type FetchRequest struct {
	Branch       string
	RemoteTarget Hash
}

// Fetch walks newly reachable commits from RemoteTarget back to what is
// already known locally, downloading each missing commit and its tree
// hierarchy, then advances the local remote-tracking ref (spec.md §4.10
// "fetch").
func (repo *Repo) Fetch(ctx context.Context, req FetchRequest) (SyncResult, error) {
	trackingRef := "refs/remotes/origin/" + trimBranchPrefix(req.Branch)

	var newCommits []Hash
	frontier := []Hash{req.RemoteTarget}
	visited := make(map[Hash]bool)

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return SyncResult{}, ErrCancelled
		}
		h := frontier[0]
		frontier = frontier[1:]
		if h.IsZero() || visited[h] {
			continue
		}
		visited[h] = true

		alreadyHad := repo.Objects.Local.Exists(h)
		if !alreadyHad {
			if err := repo.fetchObject(ctx, h); err != nil {
				return SyncResult{}, err
			}
		}

		c, err := repo.LoadCommit(ctx, h)
		if err != nil {
			return SyncResult{}, err
		}

		if alreadyHad {
			continue // already have this commit and, transitively, its ancestors and trees
		}
		newCommits = append(newCommits, h)

		if !c.RootTree.IsZero() {
			if err := repo.fetchTreeMetadata(ctx, c.RootTree, visited); err != nil {
				return SyncResult{}, err
			}
		}
		frontier = append(frontier, c.Parents...)
	}

	if err := repo.Refs.Write(trackingRef, req.RemoteTarget); err != nil {
		return SyncResult{}, err
	}

	return SyncResult{
		UpdatedRefs: map[string]Hash{trackingRef: req.RemoteTarget},
		NewCommits:  newCommits,
	}, nil
}

// fetchTreeMetadata downloads h's tree object if missing, then recurses
// into every subtree entry; blob entries are left unfetched since their
// content is resolved lazily by GetBlob (spec.md §4.10's "root trees, and
// recursively subtrees; blob metadata").
func (repo *Repo) fetchTreeMetadata(ctx context.Context, h Hash, visited map[Hash]bool) error {
	if h.IsZero() || visited[h] {
		return nil
	}
	visited[h] = true

	if !repo.Objects.Local.Exists(h) {
		if err := repo.fetchObject(ctx, h); err != nil {
			return err
		}
	}

	tree, err := repo.Objects.GetTree(h)
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		if e.Kind == EntryTree {
			if err := repo.fetchTreeMetadata(ctx, e.ID, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchObject downloads one object by hash using its recorded ChunkRef
// and stores it locally in the same framing PutBlob/PutTree/PutCommit
// use, regardless of object kind.
func (repo *Repo) fetchObject(ctx context.Context, h Hash) error {
	ref, ok := repo.ChunkMap[h]
	if !ok {
		return NotFoundError("object", h.String())
	}
	data, err := repo.Objects.Transport.Download(ctx, ref)
	if err != nil {
		return err
	}
	return repo.Objects.Local.Put(h, Frame(data))
}
