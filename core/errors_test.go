package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrapAndAs(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError("write object", cause)
	wrapped := fmt.Errorf("put blob: %w", err)

	ce, ok := AsCoreError(wrapped)
	if !ok {
		t.Fatalf("AsCoreError did not find the wrapped *Error")
	}
	if ce.Kind != KindIO {
		t.Fatalf("Kind = %v, want KindIO", ce.Kind)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is did not see through Error.Unwrap to the cause")
	}
}

func TestRetryableByKind(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want bool
	}{
		{"network", NetworkErrorf(NetTransient, "blip", nil), true},
		{"ledger gas", LedgerErrorf(LedgerGas, "insufficient gas", nil), true},
		{"ledger budget", LedgerErrorf(LedgerBudget, "over budget", nil), true},
		{"ledger validation", LedgerErrorf(LedgerValidation, "bad op", nil), false},
		{"integrity", IntegrityError(ZeroHash, ZeroHash, "sha1"), false},
		{"auth", AuthErrorf(AuthPermission, "denied"), false},
		{"cancelled", ErrCancelled, false},
	}
	for _, c := range cases {
		if got := c.err.Retryable(); got != c.want {
			t.Errorf("%s: Retryable() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNotFoundErrorContext(t *testing.T) {
	err := NotFoundError("blob", "deadbeef")
	if err.Context["kind"] != "blob" || err.Context["id"] != "deadbeef" {
		t.Fatalf("unexpected context: %+v", err.Context)
	}
}
