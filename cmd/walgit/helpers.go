package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"walgit/core"
)

// cmdContext returns the background context every command uses for its
// core operations. A future revision may thread os/signal cancellation
// through here for Ctrl-C handling.
func cmdContext() context.Context {
	return context.Background()
}

// detectContentType mirrors PutBlob's expectation of a sniffed MIME type
// (spec.md §3's content-type detection via net/http.DetectContentType).
func detectContentType(content []byte) string {
	return http.DetectContentType(content)
}

func commitTimestamp() time.Time {
	return time.Now().UTC()
}

// currentBranchName resolves HEAD's symbolic branch name, defaulting to
// the repository's default branch for a freshly initialized repo or a
// detached HEAD.
func currentBranchName(repo *core.Repo) string {
	ref, ok, err := repo.Refs.HeadRef()
	if err != nil || !ok {
		return repo.Repository.DefaultBranch
	}
	const prefix = "refs/heads/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// signerStorePath is where the CLI persists the local signer's mnemonic,
// analogous to wallet.go's keystore file in the teacher repo.
func signerStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".walgit", "signer.key")
}

// loadSigner loads the persisted signer, generating and persisting a new
// one on first use.
func loadSigner() (*core.Signer, error) {
	path := signerStorePath()
	b, err := os.ReadFile(path)
	if err == nil {
		return core.SignerFromMnemonic(string(b))
	}
	if !os.IsNotExist(err) {
		return nil, core.IOError("read signer key", err)
	}
	signer, mnemonic, err := core.NewRandomSigner()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, core.IOError("create signer directory", err)
	}
	if err := os.WriteFile(path, []byte(mnemonic), 0o600); err != nil {
		return nil, core.IOError("persist signer key", err)
	}
	return signer, nil
}
