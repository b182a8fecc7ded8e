package core

// Push (spec.md §4.10): uploads commits/blobs/trees missing on the
// remote, grouped into batches of at most PushBatchSize commits, each
// batch submitting a ledger transaction that creates every new blob,
// tree, and commit object it introduces; only the final batch advances
// the remote branch ref. Grounded on transactions.go's AddTx/Pick/Run
// batching idiom combined with chain_fork_manager.go's divergence
// detection in the teacher repo.

import (
	"context"
	"encoding/base64"
	"strconv"

	"walgit/core/ledgerclient"
)

// PushRequest describes one push attempt.
type PushRequest struct {
	Branch      string // e.g. "refs/heads/main"
	LocalTarget Hash
	Force       bool
}

// PushBatchSize is the default number of commits grouped into one ledger
// transaction (spec.md §4.10's push batching).
const PushBatchSize = 5

// Push uploads every missing object first, then submits one ledger
// transaction per batch of commits, streaming BatchStateChange progress if events is
// non-nil (spec.md §4.10 "push" and its push-batch state machine).
func (repo *Repo) Push(ctx context.Context, req PushRequest, events chan<- BatchStateChange) (ledgerclient.Receipt, error) {
	remoteRef := "refs/remotes/origin/" + trimBranchPrefix(req.Branch)
	remoteTarget, err := repo.Refs.Read(remoteRef)
	if err != nil {
		if ce, ok := AsCoreError(err); !ok || ce.Kind != KindNotFound {
			return ledgerclient.Receipt{}, err
		}
		remoteTarget = ZeroHash
	}

	if !req.Force {
		ff, err := FastForwardCheck(ctx, repo, remoteTarget, req.LocalTarget)
		if err != nil {
			return ledgerclient.Receipt{}, err
		}
		if !ff {
			return ledgerclient.Receipt{}, ConflictErrorf(ConflictNonFastForward, "remote "+req.Branch+" is not an ancestor of local target")
		}
	}

	newCommits, err := repo.commitsSinceExclusive(ctx, remoteTarget, req.LocalTarget)
	if err != nil {
		return ledgerclient.Receipt{}, err
	}

	missing, err := repo.collectMissingObjects(ctx, newCommits)
	if err != nil {
		return ledgerclient.Receipt{}, err
	}
	for h := range missing {
		if err := repo.uploadObject(ctx, h); err != nil {
			return ledgerclient.Receipt{}, err
		}
	}

	batches := chunkCommits(newCommits, PushBatchSize)
	if len(batches) == 0 {
		batches = [][]Hash{nil}
	}

	var receipt ledgerclient.Receipt
	for i, batch := range batches {
		ops, err := repo.buildObjectOps(ctx, batch, missing)
		if err != nil {
			return ledgerclient.Receipt{}, err
		}

		last := i == len(batches)-1
		if last {
			ops = append(ops, ledgerclient.Operation{
				Kind:   string(OpUpdateReference),
				Target: req.Branch,
				Fields: map[string]string{
					"old_target": remoteTarget.String(),
					"new_target": req.LocalTarget.String(),
					"force":      boolStr(req.Force),
				},
			})
		}
		if len(ops) == 0 {
			continue
		}

		gasOps := make([]Op, len(ops))
		for j, op := range ops {
			gasOps[j] = Op(op.Kind)
		}
		batchReq := ledgerclient.BatchRequest{
			BatchID:    "push-" + req.LocalTarget.String() + "-" + strconv.Itoa(i),
			Operations: ops,
			GasBudget:  FallbackEstimate(gasOps),
		}

		receipt, err = repo.Engine.SubmitAndWait(ctx, batchReq, events)
		if err != nil {
			return ledgerclient.Receipt{}, err
		}
	}

	if err := repo.Refs.Write(remoteRef, req.LocalTarget); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// uploadObject uploads one locally stored object's raw bytes through the
// transport and records the resulting ChunkRef under h, the way every
// object kind (blob, tree, commit, manifest, wrapped DEK) is addressed.
func (repo *Repo) uploadObject(ctx context.Context, h Hash) error {
	raw, err := repo.Objects.Local.Get(h)
	if err != nil {
		return err
	}
	content, err := Unframe(raw)
	if err != nil {
		return err
	}
	ref, err := repo.Objects.Transport.Upload(ctx, content)
	if err != nil {
		return err
	}
	repo.ChunkMap[h] = ref
	return nil
}

// collectMissingObjects walks every commit, tree, and blob reachable from
// commits and returns the ones repo.ChunkMap has no record of, i.e. the
// objects this push has not yet uploaded to the remote transport (spec.md
// §4.10's "uploads commits/blobs/trees missing on the remote").
func (repo *Repo) collectMissingObjects(ctx context.Context, commits []Hash) (map[Hash]bool, error) {
	missing := make(map[Hash]bool)
	seen := make(map[Hash]bool)
	for _, ch := range commits {
		if !seen[ch] {
			seen[ch] = true
			if _, ok := repo.ChunkMap[ch]; !ok {
				missing[ch] = true
			}
		}
		c, err := repo.LoadCommit(ctx, ch)
		if err != nil {
			return nil, err
		}
		if c.RootTree.IsZero() {
			continue
		}
		if err := repo.collectMissingTree(c.RootTree, missing, seen); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (repo *Repo) collectMissingTree(h Hash, missing map[Hash]bool, seen map[Hash]bool) error {
	if seen[h] {
		return nil
	}
	seen[h] = true
	if _, ok := repo.ChunkMap[h]; !ok {
		missing[h] = true
	}
	tree, err := repo.Objects.GetTree(h)
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		if seen[e.ID] {
			continue
		}
		if e.Kind == EntryTree {
			if err := repo.collectMissingTree(e.ID, missing, seen); err != nil {
				return err
			}
			continue
		}
		seen[e.ID] = true
		if _, ok := repo.ChunkMap[e.ID]; !ok {
			missing[e.ID] = true
		}
	}
	return nil
}

// commitsSinceExclusive returns the commits reachable from newTip but not
// from oldBase, oldest first, so a batch of commits uploads parents
// before children.
func (repo *Repo) commitsSinceExclusive(ctx context.Context, oldBase, newTip Hash) ([]Hash, error) {
	chain, err := Ancestors(ctx, repo, newTip)
	if err != nil {
		return nil, err
	}
	var fresh []Hash
	for _, h := range chain {
		if h == oldBase {
			break
		}
		fresh = append(fresh, h)
	}
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	return fresh, nil
}

func chunkCommits(commits []Hash, size int) [][]Hash {
	var out [][]Hash
	for i := 0; i < len(commits); i += size {
		end := i + size
		if end > len(commits) {
			end = len(commits)
		}
		out = append(out, commits[i:end])
	}
	return out
}

// buildObjectOps constructs create_blob_object/create_tree_object/
// create_commit_object ledger operations for every new object a batch of
// commits introduces, skipping anything the caller didn't mark missing
// (spec.md §4.10's "a ledger transaction creating every new blob, tree,
// and commit object").
func (repo *Repo) buildObjectOps(ctx context.Context, commits []Hash, missing map[Hash]bool) ([]ledgerclient.Operation, error) {
	var ops []ledgerclient.Operation
	seen := make(map[Hash]bool)

	for _, ch := range commits {
		c, err := repo.LoadCommit(ctx, ch)
		if err != nil {
			return nil, err
		}

		if !c.RootTree.IsZero() {
			treeOps, err := repo.buildTreeOps(c.RootTree, missing, seen)
			if err != nil {
				return nil, err
			}
			ops = append(ops, treeOps...)
		}

		if missing[ch] && !seen[ch] {
			seen[ch] = true
			rlpBytes, err := EncodeCommitRLP(c)
			if err != nil {
				return nil, err
			}
			if _, err := DecodeCommitRLP(rlpBytes); err != nil {
				return nil, err
			}
			ops = append(ops, ledgerclient.Operation{
				Kind:   string(OpCreateCommit),
				Target: ch.String(),
				Fields: map[string]string{
					"root_tree":       c.RootTree.String(),
					"manifest_cid":    c.ManifestCID,
					"wrapped_dek_cid": c.WrappedDEKCID,
					"rlp":             base64.StdEncoding.EncodeToString(rlpBytes),
				},
			})
		}
	}
	return ops, nil
}

// buildTreeOps recursively walks a tree, emitting create_tree_object and
// create_blob_object operations for every missing descendant.
func (repo *Repo) buildTreeOps(h Hash, missing map[Hash]bool, seen map[Hash]bool) ([]ledgerclient.Operation, error) {
	var ops []ledgerclient.Operation
	if seen[h] {
		return ops, nil
	}

	tree, err := repo.Objects.GetTree(h)
	if err != nil {
		return nil, err
	}
	for _, e := range tree.Entries {
		if e.Kind == EntryTree {
			childOps, err := repo.buildTreeOps(e.ID, missing, seen)
			if err != nil {
				return nil, err
			}
			ops = append(ops, childOps...)
		} else if missing[e.ID] && !seen[e.ID] {
			seen[e.ID] = true
			ops = append(ops, ledgerclient.Operation{
				Kind:   string(OpCreateBlob),
				Target: e.ID.String(),
				Fields: map[string]string{"name": e.Name},
			})
		}
	}

	if missing[h] && !seen[h] {
		seen[h] = true
		ops = append(ops, ledgerclient.Operation{
			Kind:   string(OpCreateTree),
			Target: h.String(),
			Fields: map[string]string{"entry_count": strconv.Itoa(len(tree.Entries))},
		})
	}
	return ops, nil
}

func trimBranchPrefix(ref string) string {
	const prefix = "refs/heads/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

