package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"walgit/core/blobclient"
)

func newTestPrefetcher(t *testing.T) (*Prefetcher, *blobclient.Fake) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := NewCacheMetrics(reg)
	cache, err := NewCache(CacheConfig{
		L1Entries: 10,
		L2Bytes:   1 << 20,
		L3TTL:     time.Minute,
		CacheDir:  t.TempDir(),
	}, nil, metrics)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	fake := blobclient.NewFake()
	transport := NewRemoteTransport(fake)
	return NewPrefetcher(cache, transport), fake
}

func TestFetchWithPrefetchMissFallsThroughToTransport(t *testing.T) {
	p, fake := newTestPrefetcher(t)
	data := []byte("primary blob")
	uploaded, err := NewRemoteTransport(fake).Upload(context.Background(), data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	h := HashBlob(data)

	got, err := p.FetchWithPrefetch(context.Background(), h, uploaded, nil, nil)
	if err != nil {
		t.Fatalf("FetchWithPrefetch: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("FetchWithPrefetch returned %q, want %q", got, data)
	}
	if cached, err := p.cache.Get(h); err != nil || string(cached) != string(data) {
		t.Fatalf("expected the miss to populate the cache, got %v / %v", cached, err)
	}
}

func TestFetchWithPrefetchSchedulesRelatedBlobs(t *testing.T) {
	p, fake := newTestPrefetcher(t)
	transport := NewRemoteTransport(fake)

	primary := []byte("primary")
	sibling := []byte("sibling")
	primaryUp, err := transport.Upload(context.Background(), primary)
	if err != nil {
		t.Fatalf("Upload primary: %v", err)
	}
	siblingUp, err := transport.Upload(context.Background(), sibling)
	if err != nil {
		t.Fatalf("Upload sibling: %v", err)
	}

	primaryHash := HashBlob(primary)
	siblingHash := HashBlob(sibling)

	_, err = p.FetchWithPrefetch(context.Background(), primaryHash, primaryUp,
		[]Hash{siblingHash}, map[Hash]ChunkRef{siblingHash: siblingUp})
	if err != nil {
		t.Fatalf("FetchWithPrefetch: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := p.cache.Get(siblingHash); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sibling blob was never prefetched into the cache")
}
