package core

// Keyring resolves the recipient set a commit's DEK is wrapped against
// (spec.md §4.2's "wrap_dek(dek, recipients, threshold)"). A real
// deployment escrows distinct recipients per collaborator; a solo
// repository still needs enough independent shares to satisfy a (2,3)
// threshold, so DeriveKeyring splits the owner's own signing material
// into three HKDF-separated recipients bound to fixed context labels,
// the way wallet.go derives multiple child keys from one seed in the
// teacher repo.

// DefaultWrapThreshold and DefaultWrapRecipients are WalGit's (t, n)
// Shamir parameters for DEK wrapping (spec.md §4.2).
const (
	DefaultWrapThreshold  = 2
	DefaultWrapRecipients = 3
)

// Keyring is the recipient set and threshold used to wrap and later
// unwrap a repository's commit DEKs.
type Keyring struct {
	Recipients []RecipientKey
	Threshold  int
}

// Map indexes Recipients by ID for UnwrapDEK.
func (k Keyring) Map() map[string]RecipientKey {
	out := make(map[string]RecipientKey, len(k.Recipients))
	for _, r := range k.Recipients {
		out[r.ID] = r
	}
	return out
}

// DeriveKeyring derives a deterministic (2, 3) keyring from signer's
// private key material: the owner's own share plus two recovery shares,
// each bound to a fixed label so the three salts are independent even
// though they all trace back to one signing key.
func DeriveKeyring(signer *Signer) Keyring {
	return Keyring{
		Recipients: []RecipientKey{
			{ID: "owner", SharedSalt: signer.Sign([]byte("walgit-dek-recipient-owner"))},
			{ID: "recovery-a", SharedSalt: signer.Sign([]byte("walgit-dek-recipient-recovery-a"))},
			{ID: "recovery-b", SharedSalt: signer.Sign([]byte("walgit-dek-recipient-recovery-b"))},
		},
		Threshold: DefaultWrapThreshold,
	}
}
