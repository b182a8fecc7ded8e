package core

// Stash (supplements spec.md §6's on-disk layout, which names
// .walgit/stash/ but leaves its operations unspecified by §4; modeled
// here the way the rest of the local store handles atomic writes).
// Stashes are themselves trees, hashed and stored through the same
// object store as commits, so a stash pop is just another tree
// checkout — grounded on storage.go's Create/Release escrow-slot idiom
// in the teacher repo, adapted from an escrow ledger entry to a stack of
// named snapshots.

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// StashEntry is one saved working-tree snapshot. Its blobs are encrypted
// the same way a commit's are (spec.md §4.3), so the entry carries its
// own DEK, base64-encoded, rather than going through a commit's wrapped
// and threshold-shared key.
type StashEntry struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Tree      Hash      `json:"tree"`
	ParentRef string    `json:"parent_ref"`
	DEK       string    `json:"dek"`
	CreatedAt time.Time `json:"created_at"`
}

// decodeDEK decodes the entry's base64 DEK for use with ObjectStore.GetBlob.
func (e StashEntry) decodeDEK() ([]byte, error) {
	dek, err := base64.StdEncoding.DecodeString(e.DEK)
	if err != nil {
		return nil, CodecError("decode stash DEK", err)
	}
	return dek, nil
}

// stashIndex is the ordered list of stash entries, most recent first,
// persisted at .walgit/stash/index.json.
type stashIndex struct {
	Entries []StashEntry `json:"entries"`
}

// StashStore manages .walgit/stash.
type StashStore struct {
	dir string
}

func NewStashStore(walgitDir string) *StashStore {
	return &StashStore{dir: filepath.Join(walgitDir, "stash")}
}

func (s *StashStore) indexPath() string { return filepath.Join(s.dir, "index.json") }

func (s *StashStore) readIndex() (stashIndex, error) {
	var idx stashIndex
	b, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return idx, IOError("read stash index", err)
	}
	if err := json.Unmarshal(b, &idx); err != nil {
		return idx, CodecError("decode stash index", err)
	}
	return idx, nil
}

func (s *StashStore) writeIndex(idx stashIndex) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return IOError("create stash directory", err)
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return CodecError("encode stash index", err)
	}
	tmp, err := os.CreateTemp(s.dir, "tmp-index-*")
	if err != nil {
		return IOError("create temp stash index", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return IOError("write temp stash index", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), s.indexPath()); err != nil {
		os.Remove(tmp.Name())
		return IOError("rename temp stash index into place", err)
	}
	return nil
}

// Push saves a new working-tree snapshot (already hashed into tree by
// the caller) onto the top of the stash stack. dek is the key the
// snapshot's blobs were encrypted under; it is stored alongside the
// entry so Pop can decrypt them again.
func (s *StashStore) Push(message string, tree Hash, parentRef string, id string, dek []byte) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	entry := StashEntry{
		ID:        id,
		Message:   message,
		Tree:      tree,
		ParentRef: parentRef,
		DEK:       base64.StdEncoding.EncodeToString(dek),
		CreatedAt: time.Now(),
	}
	idx.Entries = append([]StashEntry{entry}, idx.Entries...)
	return s.writeIndex(idx)
}

// List returns all stash entries, most recent first.
func (s *StashStore) List() ([]StashEntry, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Entries, nil
}

// Pop removes and returns the most recent stash entry.
func (s *StashStore) Pop() (StashEntry, error) {
	idx, err := s.readIndex()
	if err != nil {
		return StashEntry{}, err
	}
	if len(idx.Entries) == 0 {
		return StashEntry{}, NotFoundError("stash", "top")
	}
	top := idx.Entries[0]
	idx.Entries = idx.Entries[1:]
	if err := s.writeIndex(idx); err != nil {
		return StashEntry{}, err
	}
	return top, nil
}

// Materialize writes a stash entry's tree into root, overwriting whatever
// is on disk at each path unconditionally (unlike Pull's materialize,
// a stash pop has no prior commit to diff against, so there is no
// "locally modified since" to detect). Returns the paths written.
func (repo *Repo) Materialize(ctx context.Context, root string, entry StashEntry) ([]string, error) {
	dek, err := entry.decodeDEK()
	if err != nil {
		return nil, err
	}
	var written []string
	if err := repo.writeTree(ctx, root, entry.Tree, dek, &written); err != nil {
		return nil, err
	}
	return written, nil
}

// writeTree recursively writes tree's entries under prefix, descending
// into nested Tree entries and materializing Blob entries as files.
func (repo *Repo) writeTree(ctx context.Context, prefix string, treeHash Hash, dek []byte, written *[]string) error {
	tree, err := repo.Objects.GetTree(treeHash)
	if err != nil {
		return err
	}
	for _, e := range tree.Entries {
		path := filepath.Join(prefix, e.Name)
		if e.Kind == EntryTree {
			if err := repo.writeTree(ctx, path, e.ID, dek, written); err != nil {
				return err
			}
			continue
		}
		ref := repo.ChunkMap[e.ID]
		content, err := repo.Objects.GetBlob(ctx, e.ID, dek, ref)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return IOError("create parent directory", err)
		}
		mode := os.FileMode(0o644)
		if e.Mode == ModeExec {
			mode = 0o755
		}
		if err := os.WriteFile(path, content, mode); err != nil {
			return IOError("write stashed file", err)
		}
		*written = append(*written, path)
	}
	return nil
}

// Drop removes a specific stash entry by ID without applying it.
func (s *StashStore) Drop(id string) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	out := idx.Entries[:0]
	found := false
	for _, e := range idx.Entries {
		if e.ID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return NotFoundError("stash", id)
	}
	idx.Entries = out
	return s.writeIndex(idx)
}
