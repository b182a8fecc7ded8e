package main

// Shared repository-opening plumbing for every command file, mirroring
// master_node.go's ensureMaster lazy-singleton idiom in the teacher repo.

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"walgit/core"
	"walgit/core/blobclient"
	"walgit/core/ledgerclient"
	walgitcfg "walgit/pkg/config"
)

var openRepo *core.Repo

// ensureRepo opens the .walgit directory under the current working
// directory, constructing every collaborator from the loaded config.
// It is idempotent within one CLI invocation, mirroring master_node.go's
// ensureMaster lazy-singleton idiom.
func ensureRepo() (*core.Repo, error) {
	if openRepo != nil {
		return openRepo, nil
	}
	return openRepoAt(".")
}

func openRepoAt(root string) (*core.Repo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	walgitDir := filepath.Join(absRoot, ".walgit")
	if _, err := os.Stat(walgitDir); err != nil {
		return nil, core.NotFoundError("repository", absRoot)
	}

	cfg := walgitcfg.AppConfig

	local, err := core.NewLocalStore(walgitDir)
	if err != nil {
		return nil, err
	}

	var blobClient blobclient.Client = blobclient.NewHTTPClient(cfg.Transport.GatewayURL)
	transport := core.NewRemoteTransport(blobClient)

	reg := prometheus.NewRegistry()
	metrics := core.NewCacheMetrics(reg)
	cache, err := core.NewCache(core.CacheConfig{
		L1Entries: cfg.Cache.L1Entries,
		L2Bytes:   cfg.Cache.L2Bytes,
		L3TTL:     time.Duration(cfg.Cache.L3TTLSecs) * time.Second,
		CacheDir:  filepath.Join(walgitDir, "cache"),
	}, transport, metrics)
	if err != nil {
		return nil, err
	}

	objects := core.NewObjectStore(local, cache, transport)

	var ledger ledgerclient.Client
	if cfg.Network.UseBlockchain {
		grpcClient, err := ledgerclient.Dial(cfg.Network.LedgerEndpoint)
		if err != nil {
			return nil, err
		}
		ledger = grpcClient
	} else {
		ledger = ledgerclient.NewFake()
	}
	engine := core.NewTxEngine(ledger)

	refs := core.NewRefStore(walgitDir)

	openRepo = &core.Repo{
		Repository: &core.Repository{LocalRoot: absRoot},
		Objects:    objects,
		Refs:       refs,
		Engine:     engine,
		ChunkMap:   make(map[core.Hash]core.ChunkRef),
	}
	return openRepo, nil
}
