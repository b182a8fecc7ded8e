package core

// Signer collaborator (§6's commit-author identity): an Ed25519 key pair
// derived from a BIP-39 mnemonic, used to sign commit and push batch
// submissions. Scoped down from wallet.go's NewRandomWallet/
// WalletFromMnemonic/NewHDWalletFromSeed/SignTx in the teacher repo:
// WalGit needs one signing identity per user, not a full HD wallet tree,
// so derivePrivate's path-derivation machinery is dropped but the
// mnemonic-to-seed-to-key flow is kept verbatim in spirit.

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160"
)

// Signer holds one user's commit-signing identity.
type Signer struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// NewRandomSigner generates a fresh signer backed by newly generated
// mnemonic entropy (spec.md §6, mirroring wallet.go's
// RandomMnemonicEntropy/NewRandomWallet pair).
func NewRandomSigner() (*Signer, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", CryptoErrorf(CryptoPolicy, "generate mnemonic entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", CryptoErrorf(CryptoPolicy, "derive mnemonic", err)
	}
	s, err := SignerFromMnemonic(mnemonic)
	return s, mnemonic, err
}

// SignerFromMnemonic recreates a Signer deterministically from a BIP-39
// mnemonic (spec.md §6, mirroring wallet.go's WalletFromMnemonic).
func SignerFromMnemonic(mnemonic string) (*Signer, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, CryptoErrorf(CryptoPolicy, "invalid mnemonic", nil)
	}
	seed := bip39.NewSeed(mnemonic, "")
	digest := sha256.Sum256(seed)
	priv := ed25519.NewKeyFromSeed(digest[:])
	return &Signer{public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// Address derives this signer's 20-byte ledger address from its public
// key via SHA-256 then RIPEMD-160, mirroring wallet.go's
// pubKeyToAddress in the teacher repo.
func (s *Signer) Address() Address {
	sha := sha256.Sum256(s.public)
	r := ripemd160.New()
	r.Write(sha[:])
	digest := r.Sum(nil)
	var a Address
	copy(a[:], digest)
	return a
}

// Sign produces a detached Ed25519 signature over msg (used to sign
// commit manifests and push batch submissions before handing them to
// the ledger collaborator).
func (s *Signer) Sign(msg []byte) []byte {
	return ed25519.Sign(s.private, msg)
}

// Verify checks a detached signature against this signer's public key.
func (s *Signer) Verify(msg, sig []byte) bool {
	return ed25519.Verify(s.public, msg, sig)
}

// Wipe zeroes the private key material, mirroring wallet.go's Wipe.
func (s *Signer) Wipe() {
	for i := range s.private {
		s.private[i] = 0
	}
}
