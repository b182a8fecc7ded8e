package core

// Local object store (spec.md §4.4): a fanout-by-prefix content store
// under .walgit/objects, written atomically so a crash never leaves a
// partial object visible under its final name. Grounded on storage.go's
// diskLRU put/get eviction idiom in the teacher repo, adapted from an
// eviction cache to a permanent content-addressed store (local objects
// are never evicted; that policy lives in cache.go's L2 tier instead).

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LocalStore is the on-disk object store for one repository's .walgit
// directory.
type LocalStore struct {
	mu   sync.RWMutex
	root string // .walgit/objects
}

// NewLocalStore opens (creating if absent) the object store rooted at
// dir/objects.
func NewLocalStore(dir string) (*LocalStore, error) {
	root := filepath.Join(dir, "objects")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, IOError("create objects directory", err)
	}
	return &LocalStore{root: root}, nil
}

// fanoutPath splits a hash into objects/<first-2-hex>/<remaining-38-hex>,
// matching Git's fanout convention to keep any one directory small.
func (s *LocalStore) fanoutPath(h Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Exists reports whether an object is present locally.
func (s *LocalStore) Exists(h Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.fanoutPath(h))
	return err == nil
}

// Put writes framed object bytes under their content hash, atomically
// (write to a temp file in the same directory, then rename). A
// pre-existing object is left untouched (spec.md §8 "local-store
// idempotence").
func (s *LocalStore) Put(h Hash, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := s.fanoutPath(h)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return IOError("create fanout directory", err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return IOError("create temp object file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return IOError("write temp object file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return IOError("sync temp object file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return IOError("close temp object file", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return IOError("rename temp object file into place", err)
	}
	return nil
}

// Get reads an object's raw bytes by hash.
func (s *LocalStore) Get(h Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := os.ReadFile(s.fanoutPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError("object", h.String())
		}
		return nil, IOError("read object", err)
	}
	return b, nil
}

// OpenReader streams an object without loading it fully into memory, for
// large blobs (spec.md §4.4).
func (s *LocalStore) OpenReader(h Hash) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := os.Open(s.fanoutPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFoundError("object", h.String())
		}
		return nil, IOError("open object", err)
	}
	return f, nil
}

// List enumerates every object hash currently stored locally (spec.md
// §4.4, used by gc/repair).
func (s *LocalStore) List() ([]Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Hash
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, IOError("list fanout directories", err)
	}
	for _, dirEnt := range entries {
		if !dirEnt.IsDir() {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(s.root, dirEnt.Name()))
		if err != nil {
			return nil, IOError("list fanout bucket", err)
		}
		for _, f := range sub {
			hexStr := dirEnt.Name() + f.Name()
			h, err := HashFromHex(hexStr)
			if err != nil {
				continue // stray non-object file; skip rather than fail the scan
			}
			out = append(out, h)
		}
	}
	return out, nil
}

// Remove deletes a local object, used by gc once a remote copy is
// confirmed durable.
func (s *LocalStore) Remove(h Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.fanoutPath(h)); err != nil && !os.IsNotExist(err) {
		return IOError("remove object", err)
	}
	return nil
}

// Stats summarizes local store occupancy.
type LocalStoreStats struct {
	ObjectCount int
	TotalBytes  int64
}

func (s *LocalStore) StatsSnapshot() (LocalStoreStats, error) {
	hashes, err := s.List()
	if err != nil {
		return LocalStoreStats{}, err
	}
	var stats LocalStoreStats
	stats.ObjectCount = len(hashes)
	for _, h := range hashes {
		info, err := os.Stat(s.fanoutPath(h))
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

func (s *LocalStore) String() string {
	return fmt.Sprintf("LocalStore(%s)", s.root)
}
