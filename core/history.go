package core

// Commit history traversal (spec.md §4.9): bounded-depth ancestry,
// common-ancestor computation, and fast-forward detection. Grounded on
// chain_fork_manager.go's AddForkBlock/ListForks/ResolveForks/
// RecoverLongestFork longest-branch reorg logic in the teacher repo,
// adapted from chain reorg selection to Git-style merge-base computation.

import "context"

// CommitLoader fetches a commit record (and so its parents); in practice
// Repo.LoadCommit, which reads the local store and decodes the commit
// JSON, injected so history.go stays independent of transport wiring.
type CommitLoader interface {
	LoadCommit(ctx context.Context, h Hash) (Commit, error)
}

// MaxAncestryDepth bounds Ancestors' traversal so a malformed or
// adversarial parent chain cannot hang a caller (spec.md §4.9 "bounded
// DFS ancestry").
const MaxAncestryDepth = 100_000

// Ancestors returns every commit reachable from start, nearest first,
// depth-first, stopping after MaxAncestryDepth commits.
func Ancestors(ctx context.Context, loader CommitLoader, start Hash) ([]Hash, error) {
	if start.IsZero() {
		return nil, nil
	}
	visited := make(map[Hash]bool)
	var order []Hash
	stack := []Hash{start}

	for len(stack) > 0 {
		if len(order) >= MaxAncestryDepth {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[h] {
			continue
		}
		visited[h] = true
		order = append(order, h)

		c, err := loader.LoadCommit(ctx, h)
		if err != nil {
			return nil, err
		}
		for i := len(c.Parents) - 1; i >= 0; i-- {
			if !visited[c.Parents[i]] {
				stack = append(stack, c.Parents[i])
			}
		}
	}
	return order, nil
}

// IsAncestor reports whether candidate is reachable from descendant
// (spec.md §4.9, used by fast-forward checks).
func IsAncestor(ctx context.Context, loader CommitLoader, candidate, descendant Hash) (bool, error) {
	if candidate == descendant {
		return true, nil
	}
	chain, err := Ancestors(ctx, loader, descendant)
	if err != nil {
		return false, err
	}
	for _, h := range chain {
		if h == candidate {
			return true, nil
		}
	}
	return false, nil
}

// CommonAncestor returns the nearest commit reachable from both a and b,
// or ZeroHash if they share no history (spec.md §4.9 "common ancestor").
func CommonAncestor(ctx context.Context, loader CommitLoader, a, b Hash) (Hash, error) {
	aChain, err := Ancestors(ctx, loader, a)
	if err != nil {
		return ZeroHash, err
	}
	bSet := make(map[Hash]bool, len(aChain))
	bChain, err := Ancestors(ctx, loader, b)
	if err != nil {
		return ZeroHash, err
	}
	for _, h := range bChain {
		bSet[h] = true
	}
	for _, h := range aChain {
		if bSet[h] {
			return h, nil
		}
	}
	return ZeroHash, nil
}

// FastForwardCheck reports whether updating a ref currently at oldTarget
// to newTarget is a fast-forward (oldTarget is an ancestor of newTarget,
// or oldTarget is ZeroHash). It does not tell a diverged pair from an
// unrelated one (spec.md §4.9/§4.10's push conflict classification).
func FastForwardCheck(ctx context.Context, loader CommitLoader, oldTarget, newTarget Hash) (fastForward bool, err error) {
	if oldTarget.IsZero() {
		return true, nil // creating the ref for the first time
	}
	return IsAncestor(ctx, loader, oldTarget, newTarget)
}
