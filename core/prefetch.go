package core

// L4 fallthrough and prefetching (spec.md §4.6). On a full cache miss,
// FetchWithPrefetch downloads via the remote transport, populates every
// cache tier, and kicks off background prefetch of the commit's sibling
// blobs so a follow-up checkout of neighboring files is warm. Grounded
// on blockchain_synchronization.go's SyncManager loop/Start/Stop idiom in
// the teacher repo for the background-worker shape.

import (
	"context"
	"sync"
)

// Prefetcher runs background cache warming against the remote transport.
type Prefetcher struct {
	cache     *Cache
	transport *RemoteTransport

	mu      sync.Mutex
	pending map[Hash]struct{}
}

func NewPrefetcher(cache *Cache, transport *RemoteTransport) *Prefetcher {
	return &Prefetcher{cache: cache, transport: transport, pending: make(map[Hash]struct{})}
}

// FetchWithPrefetch returns h's bytes, falling through cache tiers to the
// remote transport on a miss, then schedules background prefetch of
// related blobs (spec.md §4.6 "prefetch related objects").
func (p *Prefetcher) FetchWithPrefetch(ctx context.Context, h Hash, ref ChunkRef, related []Hash, relatedRefs map[Hash]ChunkRef) ([]byte, error) {
	if b, err := p.cache.Get(h); err == nil {
		p.Schedule(ctx, related, relatedRefs)
		return b, nil
	}
	data, err := p.transport.Download(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(h, data); err != nil {
		return nil, err
	}
	p.Schedule(ctx, related, relatedRefs)
	return data, nil
}

// Schedule starts background downloads for hashes not already cached or
// already in flight. It is fire-and-forget: a failed prefetch is silently
// dropped since the blob will simply be fetched synchronously if needed
// later.
func (p *Prefetcher) Schedule(ctx context.Context, hashes []Hash, refs map[Hash]ChunkRef) {
	for _, h := range hashes {
		if _, err := p.cache.Get(h); err == nil {
			continue
		}
		p.mu.Lock()
		if _, inFlight := p.pending[h]; inFlight {
			p.mu.Unlock()
			continue
		}
		p.pending[h] = struct{}{}
		p.mu.Unlock()

		go func(h Hash, ref ChunkRef) {
			defer func() {
				p.mu.Lock()
				delete(p.pending, h)
				p.mu.Unlock()
			}()
			data, err := p.transport.Download(ctx, ref)
			if err != nil {
				return
			}
			p.cache.Put(h, data)
		}(h, refs[h])
	}
}
