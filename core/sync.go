package core

// Sync protocol shared plumbing (spec.md §4.10): the repository handle
// push/fetch/pull/clone operate on, and the commit loader that decodes a
// commit record from the local object store so history.go can walk
// ancestry without knowing about transport. Grounded on
// blockchain_synchronization.go's SyncManager Start/Stop/loop/SyncOnce
// lifecycle in the teacher repo.

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Repo bundles the collaborators one sync operation needs: local state,
// object access, refs, and the ledger.
type Repo struct {
	Repository *Repository
	Objects    *ObjectStore
	Refs       *RefStore
	Engine     *TxEngine
	ChunkMap   map[Hash]ChunkRef // object hash -> remote chunk ref, maintained by push/fetch
}

// LoadCommit implements CommitLoader by fetching and decoding the
// commit record, inflating the compressed body written by PutCommit.
func (r *Repo) LoadCommit(ctx context.Context, h Hash) (Commit, error) {
	raw, err := r.Objects.Local.Get(h)
	if err != nil {
		return Commit{}, err
	}
	body, err := UnframeAndDecompress(raw)
	if err != nil {
		return Commit{}, err
	}
	var c Commit
	if err := json.Unmarshal(body, &c); err != nil {
		return Commit{}, CodecError("decode commit", err)
	}
	return c, nil
}

// PutCommit hashes, compresses, and stores a commit record.
func (r *Repo) PutCommit(c Commit) (Hash, error) {
	h := HashCommit(CommitFields{
		Tree:      c.RootTree,
		Parents:   c.Parents,
		Author:    c.Author.String(),
		Committer: c.Author.String(),
		Message:   c.Message,
	})
	c.Hash = h
	body, err := json.Marshal(c)
	if err != nil {
		return ZeroHash, CodecError("encode commit", err)
	}
	framed, _, err := CompressAndFrame(body, "application/vnd.walgit.commit")
	if err != nil {
		return ZeroHash, err
	}
	if err := r.Objects.Local.Put(h, framed); err != nil {
		return ZeroHash, err
	}
	return h, nil
}

// SyncResult is the common shape returned by fetch/pull/clone.
type SyncResult struct {
	UpdatedRefs map[string]Hash
	NewCommits  []Hash

	// Conflicts lists working-tree-relative paths where pull found a
	// locally modified file that also changed remotely; the local
	// version is backed up to "<path>.local" rather than overwritten
	// (spec.md §4.10 scenario 5).
	Conflicts []string
	// UpdatedFiles lists working-tree-relative paths pull wrote.
	UpdatedFiles []string
}

// SyncManager runs Fetch on an interval in the background, the way
// blockchain_synchronization.go's SyncManager drives periodic
// SyncOnce calls in the teacher repo. Used by a long-lived `walgit
// watch` style command rather than the one-shot CLI operations.
type SyncManager struct {
	repo     *Repo
	interval time.Duration
	log      *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	status SyncResult
}

// NewSyncManager constructs a manager that fetches req on each tick.
func NewSyncManager(repo *Repo, interval time.Duration, log *zap.Logger) *SyncManager {
	return &SyncManager{repo: repo, interval: interval, log: log.Sugar()}
}

// Start begins the background polling loop; it is a no-op if already
// running.
func (m *SyncManager) Start(ctx context.Context, req FetchRequest) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go m.loop(loopCtx, req)
}

// Stop cancels the background loop.
func (m *SyncManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *SyncManager) loop(ctx context.Context, req FetchRequest) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := m.repo.Fetch(ctx, req)
			if err != nil {
				m.log.Warnw("background fetch failed", "branch", req.Branch, "error", err)
				continue
			}
			m.mu.Lock()
			m.status = result
			m.mu.Unlock()
			m.log.Infow("background fetch completed", "branch", req.Branch, "new_commits", len(result.NewCommits))
		}
	}
}

// Status returns the most recent completed sync result.
func (m *SyncManager) Status() SyncResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
