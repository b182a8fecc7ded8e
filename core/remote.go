package core

// Chunked remote transport orchestration (spec.md §4.5): splits a blob
// into fixed-size chunks, uploads/downloads them with bounded
// concurrency through the chunked-session protocol, and reassembles with
// a final identity-hash check. Grounded on storage.go's Pin/Retrieve
// cache-then-gateway flow in the teacher repo; concurrency bound via
// golang.org/x/sync/semaphore, the pack's standard bounded-fan-out
// primitive.

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/ipfs/go-cid"

	"walgit/core/blobclient"
)

// ChunkSize is the single-shot/chunk boundary (spec.md §4.5): payloads at
// or below this size upload in one call, larger payloads split into
// chunks of this size.
const ChunkSize = 1 * 1024 * 1024

// MaxConcurrentChunks bounds how many chunk transfers run at once
// (spec.md §4.5's default concurrency).
const MaxConcurrentChunks = 5

// ChunkRef records how to retrieve a previously uploaded object: either a
// single-shot CID, or a chunked-session id plus the per-chunk quick
// checksums recorded at upload time. This replaces addressing by a bare
// []cid.Cid list, since the chunked-session protocol (spec.md §6)
// addresses chunks by session id and index, not by CID.
type ChunkRef struct {
	// TransportHash is the identity hash of the exact bytes handed to
	// Upload, verified against the reassembled bytes on Download.
	TransportHash Hash

	// Single is set when the payload fit in one chunk and was uploaded
	// with a bare Put.
	Single *cid.Cid

	// SessionID is set when the payload was uploaded chunked; it equals
	// TransportHash.String() so Download can reopen the session by name.
	SessionID string
	// ChunkHashes holds each chunk's quick checksum, recorded at upload
	// time so a caller can re-verify a chunk in isolation.
	ChunkHashes []uint64
}

// Chunked reports whether this ref addresses a multi-chunk session.
func (r ChunkRef) Chunked() bool { return r.SessionID != "" }

// RemoteTransport drives chunked upload/download against a blobclient.Client.
type RemoteTransport struct {
	Client  blobclient.Client
	Breaker *Breaker
	Retry   RetryPolicy
}

// NewRemoteTransport wires a client with the default retry/breaker
// policy.
func NewRemoteTransport(c blobclient.Client) *RemoteTransport {
	return &RemoteTransport{
		Client:  c,
		Breaker: NewBreaker(5, defaultBreakerCooldown),
		Retry:   DefaultRetryPolicy,
	}
}

// Upload splits data into chunks (single-shot if it fits in one),
// uploads each with retry/backoff behind the circuit breaker, and
// returns a ChunkRef describing how to retrieve it again (spec.md §4.5
// "upload(bytes) -> manifest entry").
func (t *RemoteTransport) Upload(ctx context.Context, data []byte) (ChunkRef, error) {
	h := HashBlob(data)
	if len(data) <= ChunkSize {
		id, err := t.uploadSingle(ctx, data)
		if err != nil {
			return ChunkRef{}, err
		}
		return ChunkRef{TransportHash: h, Single: &id}, nil
	}

	chunks := splitChunks(data, ChunkSize)
	sessionID := h.String()
	if err := t.Client.InitChunked(ctx, sessionID, len(chunks), nil); err != nil {
		return ChunkRef{}, classifyBlobErr(err)
	}

	hashes := make([]uint64, len(chunks))
	sem := semaphore.NewWeighted(MaxConcurrentChunks)
	errCh := make(chan error, len(chunks))
	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			return ChunkRef{}, ErrCancelled
		}
		hashes[i] = blobclient.QuickChecksum(chunk)
		go func(i int, chunk []byte) {
			defer sem.Release(1)
			errCh <- t.uploadChunk(ctx, sessionID, i, chunk)
		}(i, chunk)
	}
	for range chunks {
		if err := <-errCh; err != nil {
			return ChunkRef{}, err
		}
	}

	if err := t.withBreaker(func() error {
		return t.Retry.Do(ctx, func(attempt int) error {
			return classifyBlobErr(t.Client.FinalizeChunks(ctx, sessionID, h.String()))
		})
	}); err != nil {
		return ChunkRef{}, err
	}

	return ChunkRef{TransportHash: h, SessionID: sessionID, ChunkHashes: hashes}, nil
}

func (t *RemoteTransport) uploadSingle(ctx context.Context, data []byte) (cid.Cid, error) {
	var id cid.Cid
	err := t.withBreaker(func() error {
		return t.Retry.Do(ctx, func(attempt int) error {
			framed := Frame(data)
			got, err := t.Client.Put(ctx, framed)
			if err != nil {
				return classifyBlobErr(err)
			}
			id = got
			return nil
		})
	})
	return id, err
}

// uploadChunk sends one framed chunk. The checksum sent with it covers the
// framed bytes actually uploaded; ChunkRef.ChunkHashes keep the unframed
// payload's checksum for verification on download.
func (t *RemoteTransport) uploadChunk(ctx context.Context, sessionID string, index int, chunk []byte) error {
	framed := Frame(chunk)
	wireHash := blobclient.QuickChecksum(framed)
	return t.withBreaker(func() error {
		return t.Retry.Do(ctx, func(attempt int) error {
			return classifyBlobErr(t.Client.PutChunk(ctx, sessionID, index, framed, wireHash))
		})
	})
}

// withBreaker runs fn behind the circuit breaker, recording the outcome.
func (t *RemoteTransport) withBreaker(fn func() error) error {
	if !t.Breaker.Allow() {
		return NetworkErrorf(NetConnection, "circuit breaker open", nil)
	}
	if err := fn(); err != nil {
		t.Breaker.RecordFailure()
		return err
	}
	t.Breaker.RecordSuccess()
	return nil
}

// Download fetches and reassembles a blob described by ref, verifying
// the result against ref.TransportHash (spec.md §4.5 "download(manifest
// entry) -> bytes, verified").
func (t *RemoteTransport) Download(ctx context.Context, ref ChunkRef) ([]byte, error) {
	var out []byte
	var err error
	if ref.Chunked() {
		out, err = t.downloadChunked(ctx, ref)
	} else if ref.Single != nil {
		out, err = t.downloadSingle(ctx, *ref.Single)
	} else {
		return nil, FormatError("chunk ref names neither a single CID nor a session", nil)
	}
	if err != nil {
		return nil, err
	}
	result := Verify(ref.TransportHash, out)
	if !result.OK {
		return nil, IntegrityError(result.Expected, result.Got, "sha1")
	}
	return out, nil
}

func (t *RemoteTransport) downloadSingle(ctx context.Context, id cid.Cid) ([]byte, error) {
	var out []byte
	err := t.withBreaker(func() error {
		return t.Retry.Do(ctx, func(attempt int) error {
			framed, err := t.Client.Get(ctx, id)
			if err != nil {
				return classifyBlobErr(err)
			}
			payload, err := Unframe(framed)
			if err != nil {
				return err
			}
			out = payload
			return nil
		})
	})
	return out, err
}

func (t *RemoteTransport) downloadChunked(ctx context.Context, ref ChunkRef) ([]byte, error) {
	n := len(ref.ChunkHashes)
	chunks := make([][]byte, n)
	sem := semaphore.NewWeighted(MaxConcurrentChunks)
	errCh := make(chan error, n)

	for i := range ref.ChunkHashes {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, ErrCancelled
		}
		go func(i int) {
			defer sem.Release(1)
			b, err := t.downloadChunk(ctx, ref.SessionID, i, ref.ChunkHashes[i])
			if err != nil {
				errCh <- err
				return
			}
			chunks[i] = b
			errCh <- nil
		}(i)
	}
	for range ref.ChunkHashes {
		if err := <-errCh; err != nil {
			return nil, err
		}
	}

	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

func (t *RemoteTransport) downloadChunk(ctx context.Context, sessionID string, index int, wantHash uint64) ([]byte, error) {
	var out []byte
	err := t.withBreaker(func() error {
		return t.Retry.Do(ctx, func(attempt int) error {
			framed, err := t.Client.GetChunk(ctx, sessionID, index)
			if err != nil {
				return classifyBlobErr(err)
			}
			payload, err := Unframe(framed)
			if err != nil {
				return err
			}
			if blobclient.QuickChecksum(payload) != wantHash {
				return IntegrityError(ZeroHash, ZeroHash, fmt.Sprintf("chunk %d quick checksum", index))
			}
			out = payload
			return nil
		})
	})
	return out, err
}

func classifyBlobErr(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*blobclient.StatusError); ok {
		return ClassifyTransportError(se.Status, se.Error())
	}
	return NetworkErrorf(NetTransient, err.Error(), err)
}

func splitChunks(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var out [][]byte
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[i:end])
	}
	return out
}
