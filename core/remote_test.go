package core

import (
	"bytes"
	"context"
	"testing"

	"walgit/core/blobclient"
)

func TestRemoteTransportUploadDownloadRoundtrip(t *testing.T) {
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	ctx := context.Background()

	data := bytes.Repeat([]byte("chunked blob data "), 1000) // exceeds one chunk at small sizes, fine either way
	ref, err := transport.Upload(ctx, data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.TransportHash != HashBlob(data) {
		t.Fatalf("Upload returned wrong identity hash")
	}

	got, err := transport.Download(ctx, ref)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("downloaded data mismatch")
	}
}

func TestRemoteTransportUploadRetriesOnTransientFailure(t *testing.T) {
	fake := blobclient.NewFake()
	fake.FailNextPuts = 2
	transport := NewRemoteTransport(fake)
	transport.Retry = RetryPolicy{MaxAttempts: 5, BaseDelay: 0, MaxDelay: 0}

	data := []byte("small blob that should survive a couple of transient failures")
	ref, err := transport.Upload(context.Background(), data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.TransportHash != HashBlob(data) {
		t.Fatalf("unexpected hash after retried upload")
	}
}

// TestRemoteTransportDetectsCorruption is scenario 2 from the end-to-end
// suite: a chunk corrupted at the transport layer must make Download fail
// (here the flipped byte breaks the stored frame, which Unframe rejects)
// rather than be silently accepted.
func TestRemoteTransportDetectsCorruption(t *testing.T) {
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	ctx := context.Background()

	data := []byte("a blob whose single chunk will be corrupted on the wire")
	ref, err := transport.Upload(ctx, data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.Single != nil {
		fake.Corrupt(*ref.Single)
	}

	if _, err := transport.Download(ctx, ref); err == nil {
		t.Fatalf("expected Download to detect corruption, got nil error")
	}
}

// TestRemoteTransportDetectsChunkCorruption is scenario 2's chunked-session
// variant: a corrupted chunk in a multi-chunk upload must be caught by the
// per-chunk quick-checksum check during reassembly.
func TestRemoteTransportDetectsChunkCorruption(t *testing.T) {
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	ctx := context.Background()

	data := bytes.Repeat([]byte("x"), ChunkSize*2+1)
	ref, err := transport.Upload(ctx, data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !ref.Chunked() {
		t.Fatalf("expected a chunked upload for %d bytes", len(data))
	}
	fake.CorruptSession(ref.SessionID)

	if _, err := transport.Download(ctx, ref); err == nil {
		t.Fatalf("expected Download to detect chunk corruption, got nil error")
	}
}

func TestSplitChunksRoundtrip(t *testing.T) {
	data := make([]byte, ChunkSize*2+100)
	for i := range data {
		data[i] = byte(i)
	}
	chunks := splitChunks(data, ChunkSize)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	var reassembled []byte
	for _, c := range chunks {
		reassembled = append(reassembled, c...)
	}
	if !bytes.Equal(reassembled, data) {
		t.Fatalf("reassembled chunks do not match original data")
	}
}

// TestChunkedUploadBoundary is scenario 2 from the end-to-end suite: a
// 3,145,729-byte payload with ChunkSize=1MiB must split into three full
// chunks plus a one-byte final chunk, exercising init_chunked/put_chunk/
// finalize_chunks end to end.
func TestChunkedUploadBoundary(t *testing.T) {
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	ctx := context.Background()

	data := bytes.Repeat([]byte("y"), 3*ChunkSize+1)
	ref, err := transport.Upload(ctx, data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !ref.Chunked() {
		t.Fatalf("expected a chunked upload")
	}
	if len(ref.ChunkHashes) != 4 {
		t.Fatalf("expected 4 chunks (3 full + 1 remainder), got %d", len(ref.ChunkHashes))
	}

	got, err := transport.Download(ctx, ref)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("downloaded data mismatch")
	}
}
