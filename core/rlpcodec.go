package core

// RLP auxiliary fast-path decode (spec.md §4.1/§6): JSON remains the
// canonical commit encoding, but an RLP-framed variant is offered for
// callers that already maintain an RLP pipeline against the ledger
// (mirroring the teacher's own mixed JSON+RLP ledger, see
// ledger.go::DecodeBlockRLP).

import (
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// rlpCommit mirrors Commit's fields in a flat, RLP-friendly shape: RLP
// has no native notion of time.Time and encodes only unsigned integers, so
// the timestamp travels as Unix seconds stored in a uint64 (two's
// complement for times before 1970).
type rlpCommit struct {
	Hash          []byte
	Message       string
	Author        []byte
	TimestampUnix uint64
	RootTree      []byte
	Parents       [][]byte
	ManifestCID   string
	WrappedDEKCID string
}

// EncodeCommitRLP produces the auxiliary RLP encoding of a commit.
func EncodeCommitRLP(c Commit) ([]byte, error) {
	parents := make([][]byte, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = p[:]
	}
	rc := rlpCommit{
		Hash:          c.Hash[:],
		Message:       c.Message,
		Author:        c.Author[:],
		TimestampUnix: uint64(c.Timestamp.Unix()),
		RootTree:      c.RootTree[:],
		Parents:       parents,
		ManifestCID:   c.ManifestCID,
		WrappedDEKCID: c.WrappedDEKCID,
	}
	b, err := rlp.EncodeToBytes(rc)
	if err != nil {
		return nil, CodecError("rlp encode commit", err)
	}
	return b, nil
}

// DecodeCommitRLP parses a commit produced by EncodeCommitRLP, mirroring
// the teacher's DecodeBlockRLP naming.
func DecodeCommitRLP(b []byte) (Commit, error) {
	var rc rlpCommit
	if err := rlp.DecodeBytes(b, &rc); err != nil {
		return Commit{}, CodecError("rlp decode commit", err)
	}
	var c Commit
	copy(c.Hash[:], rc.Hash)
	c.Message = rc.Message
	copy(c.Author[:], rc.Author)
	c.Timestamp = time.Unix(int64(rc.TimestampUnix), 0).UTC()
	copy(c.RootTree[:], rc.RootTree)
	c.Parents = make([]Hash, len(rc.Parents))
	for i, p := range rc.Parents {
		copy(c.Parents[i][:], p)
	}
	c.ManifestCID = rc.ManifestCID
	c.WrappedDEKCID = rc.WrappedDEKCID
	return c, nil
}
