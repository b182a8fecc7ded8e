package core

import (
	"context"
	"testing"
)

// memCommitLoader is an in-memory CommitLoader fixture for history.go
// tests, keyed by commit hash.
type memCommitLoader map[Hash]Commit

func (m memCommitLoader) LoadCommit(ctx context.Context, h Hash) (Commit, error) {
	c, ok := m[h]
	if !ok {
		return Commit{}, NotFoundError("commit", h.String())
	}
	return c, nil
}

// chain builds a linear c0 <- c1 <- c2 <- ... history for tests.
func chain(n int) (memCommitLoader, []Hash) {
	loader := memCommitLoader{}
	var hashes []Hash
	var parent Hash
	for i := 0; i < n; i++ {
		msg := []byte{byte(i)}
		h := HashBlob(append([]byte("commit-"), msg...))
		c := Commit{Hash: h, Message: string(msg)}
		if !parent.IsZero() || i > 0 {
			c.Parents = []Hash{parent}
		}
		loader[h] = c
		hashes = append(hashes, h)
		parent = h
	}
	return loader, hashes
}

func TestAncestorsLinearChain(t *testing.T) {
	loader, hashes := chain(5)
	order, err := Ancestors(context.Background(), loader, hashes[4])
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 ancestors (including self), got %d", len(order))
	}
	if order[0] != hashes[4] {
		t.Fatalf("expected nearest-first traversal starting at the tip")
	}
}

func TestAncestorsEmptyForZeroHash(t *testing.T) {
	loader, _ := chain(3)
	order, err := Ancestors(context.Background(), loader, ZeroHash)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil ancestry for ZeroHash, got %v", order)
	}
}

func TestIsAncestor(t *testing.T) {
	loader, hashes := chain(4)
	ok, err := IsAncestor(context.Background(), loader, hashes[0], hashes[3])
	if err != nil {
		t.Fatalf("IsAncestor: %v", err)
	}
	if !ok {
		t.Fatalf("expected hashes[0] to be an ancestor of hashes[3]")
	}
	ok, err = IsAncestor(context.Background(), loader, hashes[3], hashes[0])
	if err != nil {
		t.Fatalf("IsAncestor (reverse): %v", err)
	}
	if ok {
		t.Fatalf("did not expect tip to be an ancestor of its own ancestor")
	}
}

func TestCommonAncestorDivergentBranches(t *testing.T) {
	loader, trunk := chain(3) // trunk[0] <- trunk[1] <- trunk[2]

	// Branch off trunk[1] into two divergent tips.
	branchA := HashBlob([]byte("branch-a"))
	loader[branchA] = Commit{Hash: branchA, Parents: []Hash{trunk[1]}}
	branchB := HashBlob([]byte("branch-b"))
	loader[branchB] = Commit{Hash: branchB, Parents: []Hash{trunk[1]}}

	ancestor, err := CommonAncestor(context.Background(), loader, branchA, branchB)
	if err != nil {
		t.Fatalf("CommonAncestor: %v", err)
	}
	if ancestor != trunk[1] {
		t.Fatalf("expected common ancestor trunk[1], got %s", ancestor)
	}
}

func TestCommonAncestorUnrelatedHistories(t *testing.T) {
	loaderA, a := chain(2)
	loaderB, b := chain(2)
	merged := memCommitLoader{}
	for k, v := range loaderA {
		merged[k] = v
	}
	for k, v := range loaderB {
		merged[k] = v
	}
	ancestor, err := CommonAncestor(context.Background(), merged, a[1], b[1])
	if err != nil {
		t.Fatalf("CommonAncestor: %v", err)
	}
	if !ancestor.IsZero() {
		t.Fatalf("expected ZeroHash for unrelated histories, got %s", ancestor)
	}
}

func TestFastForwardCheck(t *testing.T) {
	loader, hashes := chain(3)
	ff, err := FastForwardCheck(context.Background(), loader, ZeroHash, hashes[2])
	if err != nil {
		t.Fatalf("FastForwardCheck (genesis): %v", err)
	}
	if !ff {
		t.Fatalf("expected ZeroHash old target to always fast-forward")
	}

	ff, err = FastForwardCheck(context.Background(), loader, hashes[0], hashes[2])
	if err != nil {
		t.Fatalf("FastForwardCheck: %v", err)
	}
	if !ff {
		t.Fatalf("expected fast-forward from an ancestor to a descendant")
	}

	ff, err = FastForwardCheck(context.Background(), loader, hashes[2], hashes[0])
	if err != nil {
		t.Fatalf("FastForwardCheck (non-ff): %v", err)
	}
	if ff {
		t.Fatalf("did not expect moving a ref backwards to count as a fast-forward")
	}
}
