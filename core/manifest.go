package core

// Manifest and wrapped-DEK orchestration (spec.md §3/§4.2/§4.10): a
// commit's per-file manifest and its threshold-wrapped DEK are both
// ordinary content-addressed objects, uploaded and fetched through the
// same RemoteTransport as blobs. Grounded on the commit flow in
// ledger.go's CreateBlock/ImportBlock pairing in the teacher repo, where
// auxiliary block metadata travels through the same object pipe as the
// block payload.

import (
	"bytes"
	"context"
	"encoding/json"
)

// wrappedDEKDoc is the JSON document uploaded as the commit's wrapped-DEK
// object; WrappedDEKCID names it the same way ManifestCID names the
// manifest object.
type wrappedDEKDoc struct {
	Threshold int            `json:"threshold"`
	Shares    []WrappedShare `json:"shares"`
}

// UploadManifest marshals manifest to JSON, seals it under dek the same
// way a blob is sealed (spec.md §3's "manifest is uploaded as an
// encrypted blob"), and uploads it through transport, recording the
// resulting ChunkRef in chunkMap so a later fetch can retrieve it. The
// returned string is suitable for Commit.ManifestCID.
func UploadManifest(ctx context.Context, transport *RemoteTransport, chunkMap map[Hash]ChunkRef, manifest Manifest, dek []byte) (string, error) {
	body, err := json.Marshal(manifest)
	if err != nil {
		return "", CodecError("encode manifest", err)
	}
	sealed, err := EncryptBlob(dek, body)
	if err != nil {
		return "", err
	}
	ref, err := transport.Upload(ctx, sealed)
	if err != nil {
		return "", err
	}
	chunkMap[ref.TransportHash] = ref
	return ref.TransportHash.String(), nil
}

// DownloadManifest fetches and decrypts a manifest previously uploaded by
// UploadManifest.
func DownloadManifest(ctx context.Context, transport *RemoteTransport, chunkMap map[Hash]ChunkRef, manifestCID string, dek []byte) (Manifest, error) {
	var m Manifest
	h, err := HashFromHex(manifestCID)
	if err != nil {
		return m, err
	}
	ref, ok := chunkMap[h]
	if !ok {
		return m, NotFoundError("manifest", manifestCID)
	}
	sealed, err := transport.Download(ctx, ref)
	if err != nil {
		return m, err
	}
	body, err := DecryptBlob(dek, sealed)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, CodecError("decode manifest", err)
	}
	return m, nil
}

// UploadWrappedDEK uploads a commit's threshold-wrapped DEK shares as an
// object, returning an identifier suitable for Commit.WrappedDEKCID.
func UploadWrappedDEK(ctx context.Context, transport *RemoteTransport, chunkMap map[Hash]ChunkRef, threshold int, shares []WrappedShare) (string, error) {
	doc := wrappedDEKDoc{Threshold: threshold, Shares: shares}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", CodecError("encode wrapped DEK", err)
	}
	ref, err := transport.Upload(ctx, body)
	if err != nil {
		return "", err
	}
	chunkMap[ref.TransportHash] = ref
	return ref.TransportHash.String(), nil
}

// ResolveDEK fetches a commit's wrapped-DEK object and unwraps it against
// keyring, reconstructing the original per-commit DEK (spec.md §4.2's
// "unwrap_dek").
func ResolveDEK(ctx context.Context, transport *RemoteTransport, chunkMap map[Hash]ChunkRef, wrappedDEKCID string, keyring Keyring, commitContext []byte) ([]byte, error) {
	h, err := HashFromHex(wrappedDEKCID)
	if err != nil {
		return nil, err
	}
	ref, ok := chunkMap[h]
	if !ok {
		return nil, NotFoundError("wrapped dek", wrappedDEKCID)
	}
	body, err := transport.Download(ctx, ref)
	if err != nil {
		return nil, err
	}
	var doc wrappedDEKDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, CodecError("decode wrapped DEK", err)
	}
	return UnwrapDEK(doc.Shares, keyring.Map(), doc.Threshold, commitContext)
}

// manifestEntriesEqual reports whether two manifest snapshots reference
// the same blob for path, used by Pull to decide whether a remote
// manifest changed a file.
func manifestEntriesEqual(a, b ManifestEntry) bool {
	return a.BlobCID == b.BlobCID && bytes.Equal([]byte(a.SHA256), []byte(b.SHA256))
}
