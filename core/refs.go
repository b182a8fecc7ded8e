package core

// Ref store (spec.md §4.9): branch/tag/remote references and HEAD,
// written with compare-and-swap semantics so two concurrent updates to
// the same ref never silently clobber each other. Grounded on
// access_control.go's ledger-backed role CAS-with-cache idiom in the
// teacher repo, adapted from a ledger-backed CAS to a filesystem one
// since refs live in .walgit/refs.

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RefStore manages the on-disk refs namespace under .walgit/refs and the
// HEAD file.
type RefStore struct {
	mu   sync.RWMutex
	root string // .walgit
}

func NewRefStore(walgitDir string) *RefStore {
	return &RefStore{root: walgitDir}
}

func (r *RefStore) refPath(name string) string {
	return filepath.Join(r.root, filepath.FromSlash(name))
}

// Read returns the target hash of a reference.
func (r *RefStore) Read(name string) (Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, err := os.ReadFile(r.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ZeroHash, NotFoundError("ref", name)
		}
		return ZeroHash, IOError("read ref", err)
	}
	return HashFromHex(strings.TrimSpace(string(b)))
}

// Write sets a reference's target hash unconditionally.
func (r *RefStore) Write(name string, target Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(name, target)
}

func (r *RefStore) writeLocked(name string, target Hash) error {
	path := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return IOError("create ref directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-ref-*")
	if err != nil {
		return IOError("create temp ref file", err)
	}
	if _, err := tmp.WriteString(target.String() + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return IOError("write temp ref file", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return IOError("rename temp ref file into place", err)
	}
	return nil
}

// CompareAndSwap updates name to newTarget only if its current value is
// oldTarget, returning ConflictNonFastForward otherwise (spec.md §4.9
// "ref CAS", §8 universal invariant).
func (r *RefStore) CompareAndSwap(name string, oldTarget, newTarget Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.readLocked(name)
	if err != nil {
		if ce, ok := AsCoreError(err); ok && ce.Kind == KindNotFound {
			current = ZeroHash
		} else {
			return err
		}
	}
	if current != oldTarget {
		return ConflictErrorf(ConflictNonFastForward, "ref "+name+" was updated concurrently")
	}
	return r.writeLocked(name, newTarget)
}

func (r *RefStore) readLocked(name string) (Hash, error) {
	b, err := os.ReadFile(r.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ZeroHash, NotFoundError("ref", name)
		}
		return ZeroHash, IOError("read ref", err)
	}
	return HashFromHex(strings.TrimSpace(string(b)))
}

// List enumerates every reference under the given namespace prefix, e.g.
// "refs/heads" (spec.md §4.9 "list refs").
func (r *RefStore) List(prefix string) ([]Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := r.refPath(prefix)
	var out []Reference
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		target, err := r.readLocked(name)
		if err != nil {
			return nil
		}
		out = append(out, Reference{Name: name, Kind: refKindForName(name), Target: target})
		return nil
	})
	if err != nil {
		return nil, IOError("list refs", err)
	}
	return out, nil
}

func refKindForName(name string) RefKind {
	switch {
	case strings.HasPrefix(name, "refs/tags/"):
		return RefTag
	case strings.HasPrefix(name, "refs/remotes/"):
		return RefRemote
	default:
		return RefBranch
	}
}

// Delete removes a reference.
func (r *RefStore) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(r.refPath(name)); err != nil && !os.IsNotExist(err) {
		return IOError("delete ref", err)
	}
	return nil
}

// headFile is a JSON document so HEAD can be symbolic ("refs/heads/main")
// or a direct hash (detached HEAD), mirroring Git's HEAD file semantics
// (spec.md §4.9 "resolve_head").
type headFile struct {
	Symbolic string `json:"symbolic,omitempty"`
	Direct   string `json:"direct,omitempty"`
}

// SetHeadSymbolic points HEAD at a branch ref by name.
func (r *RefStore) SetHeadSymbolic(refName string) error {
	return r.writeHead(headFile{Symbolic: refName})
}

// SetHeadDetached points HEAD directly at a commit hash.
func (r *RefStore) SetHeadDetached(h Hash) error {
	return r.writeHead(headFile{Direct: h.String()})
}

func (r *RefStore) writeHead(hf headFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(hf)
	if err != nil {
		return CodecError("marshal HEAD", err)
	}
	return os.WriteFile(filepath.Join(r.root, "HEAD"), b, 0o644)
}

// HeadRef returns HEAD's symbolic branch ref name and true, or ("", false,
// nil) when HEAD is detached.
func (r *RefStore) HeadRef() (string, bool, error) {
	r.mu.RLock()
	b, err := os.ReadFile(filepath.Join(r.root, "HEAD"))
	r.mu.RUnlock()
	if err != nil {
		return "", false, IOError("read HEAD", err)
	}
	var hf headFile
	if err := json.Unmarshal(b, &hf); err != nil {
		return "", false, CodecError("parse HEAD", err)
	}
	if hf.Symbolic == "" {
		return "", false, nil
	}
	return hf.Symbolic, true, nil
}

// ResolveHead follows HEAD to a commit hash, resolving the symbolic
// indirection if present (spec.md §4.9 "resolve_head() -> commit hash").
func (r *RefStore) ResolveHead() (Hash, error) {
	r.mu.RLock()
	b, err := os.ReadFile(filepath.Join(r.root, "HEAD"))
	r.mu.RUnlock()
	if err != nil {
		return ZeroHash, IOError("read HEAD", err)
	}
	var hf headFile
	if err := json.Unmarshal(b, &hf); err != nil {
		return ZeroHash, CodecError("parse HEAD", err)
	}
	if hf.Direct != "" {
		return HashFromHex(hf.Direct)
	}
	return r.Read(hf.Symbolic)
}
