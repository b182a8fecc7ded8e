package core

// Encryption collaborator (spec.md §4.2). Per-commit data-encryption-key
// generation, AES-256-GCM encrypt/decrypt, and DEK wrapping under a
// threshold set of recipient keys via Shamir split + HKDF-derived wrap
// keys. Grounded on wallet.go's derivePrivate/NewRandomWallet key-handling
// idiom in the teacher repo; AES-GCM itself has no pack library (every
// pack AEAD use is stdlib-backed), so it is implemented on
// crypto/aes+crypto/cipher directly — see DESIGN.md's standard-library
// justifications.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

func newSHA256() hash.Hash { return sha256.New() }

// DEKSize is the data-encryption-key length: AES-256.
const DEKSize = 32

// BlobAAD is the additional authenticated data bound to every blob
// sealed under a commit's DEK (spec.md §4.2/§6), preventing a sealed
// blob from one context being replayed as if it belonged to another.
const BlobAAD = "WalGit-v1"

// NonceSize is the GCM standard nonce length.
const NonceSize = 12

// NewDEK generates a fresh random 256-bit data-encryption key for one
// commit (spec.md §4.2 "new_dek").
func NewDEK() ([]byte, error) {
	dek := make([]byte, DEKSize)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return nil, IOError("generate DEK", err)
	}
	return dek, nil
}

// Encrypt seals plaintext under dek with AES-256-GCM, returning
// nonce||ciphertext||tag (spec.md §4.2 "encrypt").
func Encrypt(dek, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, CryptoErrorf(CryptoAuth, "construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, CryptoErrorf(CryptoAuth, "construct GCM", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, IOError("generate nonce", err)
	}
	ct := gcm.Seal(nil, nonce, plaintext, additionalData)
	return append(nonce, ct...), nil
}

// Decrypt opens a blob produced by Encrypt (spec.md §4.2 "decrypt").
// Authentication failure is a CryptoAuth error and is never retried.
func Decrypt(dek, sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < NonceSize {
		return nil, FormatError("ciphertext shorter than nonce", nil)
	}
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, CryptoErrorf(CryptoAuth, "construct AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, CryptoErrorf(CryptoAuth, "construct GCM", err)
	}
	nonce, ct := sealed[:NonceSize], sealed[NonceSize:]
	pt, err := gcm.Open(nil, nonce, ct, additionalData)
	if err != nil {
		return nil, CryptoErrorf(CryptoAuth, "GCM authentication failed", err)
	}
	return pt, nil
}

// EncryptBlob seals compressed blob content under dek and wraps the
// result in the WALGIT1 wire frame (spec.md §6), the format blob content
// is stored and transported in from here on.
func EncryptBlob(dek, compressed []byte) ([]byte, error) {
	sealed, err := Encrypt(dek, compressed, []byte(BlobAAD))
	if err != nil {
		return nil, err
	}
	return FrameEncrypted(sealed)
}

// DecryptBlob reverses EncryptBlob.
func DecryptBlob(dek, framed []byte) ([]byte, error) {
	sealed, err := UnframeEncrypted(framed)
	if err != nil {
		return nil, err
	}
	return Decrypt(dek, sealed, []byte(BlobAAD))
}

// RecipientKey is one party's static key material used to derive its
// per-commit wrap key.
type RecipientKey struct {
	ID         string
	SharedSalt []byte
}

// wrapKeyFor derives a recipient-specific AES key from the recipient's
// shared salt using HKDF-SHA256, so each recipient's wrapped share is
// bound to that recipient and cannot be swapped (spec.md §4.2's threshold
// wrap).
func wrapKeyFor(r RecipientKey, info []byte) ([]byte, error) {
	kdf := hkdf.New(newSHA256, r.SharedSalt, nil, info)
	key := make([]byte, DEKSize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, CryptoErrorf(CryptoPolicy, "derive wrap key", err)
	}
	return key, nil
}

// WrappedShare is one recipient's encrypted Shamir share of a DEK.
type WrappedShare struct {
	RecipientID string
	Sealed      []byte // AES-GCM(wrapKey, share)
}

// WrapDEK splits dek into a (t, n) Shamir threshold scheme and seals each
// share under its recipient's derived wrap key (spec.md §4.2's
// "wrap_dek(dek, recipients, threshold)").
func WrapDEK(dek []byte, recipients []RecipientKey, threshold int, commitContext []byte) ([]WrappedShare, error) {
	if threshold < 1 || threshold > len(recipients) {
		return nil, FormatError("threshold must be between 1 and len(recipients)", nil)
	}
	shares, err := shamirSplit(dek, threshold, len(recipients))
	if err != nil {
		return nil, err
	}
	out := make([]WrappedShare, len(recipients))
	for i, r := range recipients {
		key, err := wrapKeyFor(r, commitContext)
		if err != nil {
			return nil, err
		}
		sealed, err := Encrypt(key, shares[i].Bytes(), commitContext)
		if err != nil {
			return nil, err
		}
		out[i] = WrappedShare{RecipientID: r.ID, Sealed: sealed}
	}
	return out, nil
}

// UnwrapDEK reconstructs a DEK from at least `threshold` wrapped shares
// (spec.md §4.2's "unwrap_dek(shares, recipient_key)"). Fewer than
// threshold valid shares, or any share that fails to authenticate, yields
// a CryptoUnwrap error.
func UnwrapDEK(wrapped []WrappedShare, recipients map[string]RecipientKey, threshold int, commitContext []byte) ([]byte, error) {
	var shares []shamirShare
	for _, w := range wrapped {
		r, ok := recipients[w.RecipientID]
		if !ok {
			continue
		}
		key, err := wrapKeyFor(r, commitContext)
		if err != nil {
			continue
		}
		plain, err := Decrypt(key, w.Sealed, commitContext)
		if err != nil {
			continue
		}
		shares = append(shares, shamirShareFromBytes(plain))
		if len(shares) >= threshold {
			break
		}
	}
	if len(shares) < threshold {
		return nil, CryptoErrorf(CryptoUnwrap, "insufficient valid shares to reconstruct DEK", nil)
	}
	return shamirCombine(shares), nil
}
