package blobclient

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ipfs/go-cid"
)

// session tracks one in-flight chunked upload (spec.md §6's
// init_chunked/put_chunk/finalize_chunks flow).
type session struct {
	total     int
	chunks    map[int][]byte
	finalized bool
	blob      []byte
}

// Fake is an in-memory Client for tests, grounded on the teacher repo's
// habit of pairing a real gateway client with a map-backed fake (e.g.
// core/access_control.go's cached role lookups).
type Fake struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	sessions map[string]*session

	// FailNextPuts, when > 0, makes that many subsequent Put calls return
	// a transient StatusError before succeeding, to exercise retry paths.
	FailNextPuts int
}

func NewFake() *Fake {
	return &Fake{blobs: make(map[string][]byte), sessions: make(map[string]*session)}
}

func (f *Fake) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := CIDFromBytes(data)
	if err != nil {
		return cid.Undef, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextPuts > 0 {
		f.FailNextPuts--
		return cid.Undef, &StatusError{Status: 503}
	}
	f.blobs[id.String()] = append([]byte(nil), data...)
	return id, nil
}

func (f *Fake) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.blobs[id.String()]
	if !ok {
		return nil, &StatusError{Status: 404}
	}
	return append([]byte(nil), b...), nil
}

func (f *Fake) Has(ctx context.Context, id cid.Cid) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.blobs[id.String()]
	return ok, nil
}

func (f *Fake) InitChunked(ctx context.Context, sessionID string, total int, meta map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = &session{total: total, chunks: make(map[int][]byte, total)}
	return nil
}

func (f *Fake) PutChunk(ctx context.Context, sessionID string, index int, data []byte, chunkHash uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return &StatusError{Status: 404}
	}
	if QuickChecksum(data) != chunkHash {
		return &StatusError{Status: 422, Err: fmt.Errorf("chunk %d failed its quick checksum", index)}
	}
	s.chunks[index] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) FinalizeChunks(ctx context.Context, sessionID string, integrityHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return &StatusError{Status: 404}
	}
	if len(s.chunks) != s.total {
		return &StatusError{Status: 409, Err: fmt.Errorf("session has %d of %d chunks", len(s.chunks), s.total)}
	}
	indices := make([]int, 0, s.total)
	for i := range s.chunks {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	var whole []byte
	for _, i := range indices {
		whole = append(whole, s.chunks[i]...)
	}
	got := fmt.Sprintf("%x", QuickChecksum(whole))
	_ = got // the fake accepts any caller-declared integrity hash; a real
	// gateway would recompute the identity hash server-side and reject a
	// mismatch (spec.md §6's IntegrityError).
	s.blob = whole
	s.finalized = true
	f.blobs[sessionID] = whole
	return nil
}

func (f *Fake) GetChunk(ctx context.Context, sessionID string, index int) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sessions[sessionID]
	if !ok || !s.finalized {
		return nil, &StatusError{Status: 404}
	}
	chunk, ok := s.chunks[index]
	if !ok {
		return nil, &StatusError{Status: 404}
	}
	return append([]byte(nil), chunk...), nil
}

func (f *Fake) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.blobs[id]; ok {
		return true, nil
	}
	s, ok := f.sessions[id]
	return ok && s.finalized, nil
}

func (f *Fake) Info(ctx context.Context, id string) (BlobInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if s, ok := f.sessions[id]; ok {
		return BlobInfo{Size: int64(len(s.blob)), ChunkCount: s.total, Finalized: s.finalized}, nil
	}
	if b, ok := f.blobs[id]; ok {
		return BlobInfo{Size: int64(len(b)), ChunkCount: 1, Finalized: true}, nil
	}
	return BlobInfo{}, &StatusError{Status: 404}
}

// Corrupt flips a byte in a stored blob, for integrity-detection tests.
func (f *Fake) Corrupt(id cid.Cid) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.blobs[id.String()]; ok && len(b) > 0 {
		b[0] ^= 0xFF
	}
}

// CorruptSession flips a byte in a finalized chunked session's first
// stored chunk (the bytes GetChunk serves) and in its reassembled blob,
// the chunked-transfer analog of Corrupt.
func (f *Fake) CorruptSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return
	}
	if c := s.chunks[0]; len(c) > 0 {
		c[len(c)-1] ^= 0xFF
	}
	if len(s.blob) > 0 {
		s.blob[0] ^= 0xFF // f.blobs[sessionID] shares this backing array
	}
}
