package core

// Hasher / Integrity (spec.md §4.1). Git-style framed SHA-1 hashing for
// blob/tree/commit identity, multi-algorithm checksums for the Blob's
// Integrity map, and a fast non-cryptographic quick checksum for chunk
// transport — grounded on ledger.go's StateRoot/transactions.go's HashTx
// incremental-hash-over-framed-fields pattern in the teacher repo.

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"sort"

	"github.com/cespare/xxhash/v2"
	sha256simd "github.com/minio/sha256-simd"
	"golang.org/x/crypto/blake2b"
)

// HashBlob computes the content hash of a blob: SHA-1 over
// "blob " + decimal(len) + 0x00 + bytes (spec.md §4.1/§6).
func HashBlob(b []byte) Hash {
	h := sha1.New()
	writeFrame(h, "blob", len(b))
	h.Write(b)
	return sum(h)
}

// StreamHasher incrementally accumulates a framed object hash without
// materializing the full buffer (spec.md §4.1 "Streaming variant").
type StreamHasher struct {
	h hash.Hash
}

// NewBlobStreamHasher starts a streaming blob hash; size must be the final
// content length, known up front because it is part of the frame header.
func NewBlobStreamHasher(size int64) *StreamHasher {
	sh := &StreamHasher{h: sha1.New()}
	writeFrame(sh.h, "blob", int(size))
	return sh
}

func (s *StreamHasher) Write(p []byte) (int, error) { return s.h.Write(p) }
func (s *StreamHasher) Sum() Hash                    { return sum(s.h) }

// HashTree computes the content hash of a tree. Entries are sorted by name
// (byte order) before framing so the result is invariant under input order
// (spec.md §4.1, §8 universal invariant).
func HashTree(entries []TreeEntry) Hash {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var body []byte
	for _, e := range sorted {
		body = append(body, []byte(fmt.Sprintf("%o ", e.Mode))...)
		body = append(body, []byte(e.Name)...)
		body = append(body, 0x00)
		body = append(body, e.ID[:]...)
	}

	h := sha1.New()
	writeFrame(h, "tree", len(body))
	h.Write(body)
	return sum(h)
}

// CommitFields carries the inputs to HashCommit; kept as a struct so the
// header order (tree, parent*, author, committer, blank line, message) is
// fixed in one place.
type CommitFields struct {
	Tree      Hash
	Parents   []Hash
	Author    string
	Committer string
	Message   string
}

// HashCommit computes the content hash of a commit from its textual
// headers (spec.md §4.1/§6).
func HashCommit(f CommitFields) Hash {
	var body []byte
	body = append(body, []byte("tree "+f.Tree.String()+"\n")...)
	for _, p := range f.Parents {
		body = append(body, []byte("parent "+p.String()+"\n")...)
	}
	body = append(body, []byte("author "+f.Author+"\n")...)
	body = append(body, []byte("committer "+f.Committer+"\n")...)
	body = append(body, '\n')
	body = append(body, []byte(f.Message)...)

	h := sha1.New()
	writeFrame(h, "commit", len(body))
	h.Write(body)
	return sum(h)
}

func writeFrame(h hash.Hash, kind string, size int) {
	h.Write([]byte(fmt.Sprintf("%s %d\x00", kind, size)))
}

func sum(h hash.Hash) Hash {
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Checksums computes one digest per requested algorithm name, for the
// Blob.Integrity map (spec.md §3/§4.1). Supported: "sha1", "sha256",
// "blake2b-256".
func Checksums(b []byte, algos []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(algos))
	for _, a := range algos {
		switch a {
		case "sha1":
			d := sha1.Sum(b)
			out[a] = d[:]
		case "sha256":
			d := sha256simd.Sum256(b)
			out[a] = d[:]
		case "blake2b-256":
			d := blake2b.Sum256(b)
			out[a] = d[:]
		default:
			return nil, FormatError(fmt.Sprintf("unsupported checksum algorithm %q", a), nil)
		}
	}
	return out, nil
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	OK       bool
	Expected Hash
	Got      Hash
}

// Verify re-hashes b and compares against expected, returning a structured
// mismatch rather than a bare bool (spec.md §4.1).
func Verify(expected Hash, b []byte) VerifyResult {
	got := HashBlob(b)
	return VerifyResult{OK: got == expected, Expected: expected, Got: got}
}

// QuickChecksum is a fast, non-cryptographic 64-bit digest used to detect
// transport corruption of a chunk; cryptographic integrity is verified
// separately against the overall blob hash after reassembly (spec.md
// §4.1/§4.5).
func QuickChecksum(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// SHA256Hex is a convenience used by the manifest (spec.md §6's
// ManifestEntry.sha256 field records plaintext SHA-256, independent of the
// blob's identity hash).
func SHA256Hex(b []byte) string {
	d := sha256.Sum256(b)
	return fmt.Sprintf("%x", d)
}
