package core

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Hash is a content-addressable identifier: the lowercase-hex SHA-1 digest
// of a framed object payload.
type Hash [20]byte

// ZeroHash is the empty/unset hash value, used for genesis commits' absent
// parent and for uninitialized reference reads.
var ZeroHash Hash

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Short returns the first 4 and last 4 hex characters, for log lines.
func (h Hash) Short() string {
	s := h.String()
	if len(s) <= 8 {
		return s
	}
	return fmt.Sprintf("%s..%s", s[:4], s[len(s)-4:])
}

func (h Hash) IsZero() bool { return h == ZeroHash }

// HashFromHex parses a 40-character hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash %q has %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Address identifies a ledger account (commit author, branch updater).
type Address [20]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }
func (a Address) Hex() string    { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) Short() string {
	full := hex.EncodeToString(a[:])
	if len(full) <= 8 {
		return full
	}
	return fmt.Sprintf("%s..%s", full[:4], full[len(full)-4:])
}
func (a Address) IsZero() bool { return a == Address{} }

// EntryKind distinguishes a tree entry pointing at a blob from one pointing
// at a nested tree.
type EntryKind uint8

const (
	EntryBlob EntryKind = iota
	EntryTree
)

func (k EntryKind) String() string {
	if k == EntryTree {
		return "tree"
	}
	return "blob"
}

// Mode is the POSIX permission bits recorded for a tree entry. Only two
// values are meaningful: regular (0o644) and executable (0o755); trees
// always carry ModeTree.
type Mode uint32

const (
	ModeFile Mode = 0o644
	ModeExec Mode = 0o755
	ModeTree Mode = 0o040000
)

// TreeEntry is one named member of a Tree, sorted by Name for canonical
// hashing (spec.md §3: "entries sorted by name (byte order)").
type TreeEntry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"kind"`
	ID   Hash      `json:"object_id"`
	Mode Mode      `json:"mode"`
}

// Tree is the ordered set of entries making up a directory snapshot.
type Tree struct {
	Hash    Hash        `json:"hash"`
	Entries []TreeEntry `json:"entries"`
}

// Blob is the immutable content of one file version.
type Blob struct {
	Hash             Hash              `json:"hash"`
	Size             int64             `json:"size"`
	ContentType      string            `json:"content_type"`
	Integrity        map[string][]byte `json:"integrity,omitempty"`
	CompressedSize   int64             `json:"compressed_size"`
	CompressionRatio float64           `json:"compression_ratio"`
}

// Commit is one point in a repository's history DAG.
type Commit struct {
	Hash          Hash      `json:"hash"`
	Message       string    `json:"message"`
	Author        Address   `json:"author"`
	Timestamp     time.Time `json:"timestamp"`
	RootTree      Hash      `json:"root_tree"`
	Parents       []Hash    `json:"parents,omitempty"`
	ManifestCID   string    `json:"manifest_cid,omitempty"`
	WrappedDEKCID string    `json:"wrapped_dek_cid,omitempty"`
}

// ManifestEntry is one file's record within a commit manifest.
type ManifestEntry struct {
	BlobCID   string    `json:"blob_cid"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	Encrypted bool      `json:"encrypted"`
	Timestamp time.Time `json:"timestamp"`
}

// Manifest is the per-commit JSON document uploaded as an encrypted blob;
// its remote identifier becomes the commit's ManifestCID (spec.md §3/§6).
type Manifest struct {
	Timestamp        time.Time                `json:"timestamp"`
	Author           string                   `json:"author"`
	Message          string                   `json:"message"`
	ParentCommitCID  *string                  `json:"parent_commit_cid"`
	Tree             map[string]ManifestEntry `json:"tree"`
	Metadata         map[string]string        `json:"metadata,omitempty"`
}

// RefKind distinguishes the three named-reference namespaces.
type RefKind uint8

const (
	RefBranch RefKind = iota
	RefTag
	RefRemote
)

// Reference is a named pointer to a commit hash.
type Reference struct {
	Name   string  `json:"name"` // e.g. "refs/heads/main"
	Kind   RefKind `json:"kind"`
	Target Hash    `json:"target"`
}

// Repository mirrors the ledger-side repository object locally.
type Repository struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Description             string    `json:"description"`
	Owner                   Address   `json:"owner"`
	DefaultBranch           string    `json:"default_branch"`
	ReferencesCollectionID  string    `json:"references_collection_id"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`

	// LocalRoot is the filesystem path of the working copy, rooted at the
	// directory containing .walgit/.
	LocalRoot string `json:"-"`
}

// WalgitDir returns the path to this repository's .walgit metadata
// directory (spec.md §6).
func (r *Repository) WalgitDir() string {
	return r.LocalRoot + "/.walgit"
}
