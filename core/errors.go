package core

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure per spec.md §7. The CLI collaborator
// renders these; core never formats for humans directly.
type Kind uint8

const (
	KindNotFound Kind = iota
	KindIntegrity
	KindFormat
	KindCodec
	KindCrypto
	KindIO
	KindNetwork
	KindAuth
	KindLedger
	KindConflict
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIntegrity:
		return "integrity"
	case KindFormat:
		return "format"
	case KindCodec:
		return "codec"
	case KindCrypto:
		return "crypto"
	case KindIO:
		return "io"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindLedger:
		return "ledger"
	case KindConflict:
		return "conflict"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// NetworkSub further classifies KindNetwork errors; these are the
// retryable subclasses spec.md §4.5/§4.7 refer to.
type NetworkSub uint8

const (
	NetTransient NetworkSub = iota
	NetRateLimited
	NetTimeout
	NetConnection
	NetServer
)

// AuthSub further classifies KindAuth errors; never retryable.
type AuthSub uint8

const (
	AuthPermission AuthSub = iota
	AuthSignature
	AuthFunds
)

// LedgerSub further classifies KindLedger errors from dry-run/submit
// effects.
type LedgerSub uint8

const (
	LedgerGas LedgerSub = iota
	LedgerBudget
	LedgerObjectMissing
	LedgerValidation
	LedgerAbort
	LedgerVersion
	LedgerTxTooLarge
)

// CryptoSub further classifies KindCrypto errors.
type CryptoSub uint8

const (
	CryptoAuth CryptoSub = iota
	CryptoUnwrap
	CryptoPolicy
)

// ConflictSub further classifies KindConflict errors.
type ConflictSub uint8

const (
	ConflictNonFastForward ConflictSub = iota
	ConflictDiverged
)

// Error is the terminal result carried by every fallible core operation:
// kind, message, suggestion, and context (spec.md §7 "User-visible
// behavior").
type Error struct {
	Kind       Kind
	Sub        uint8 // interpreted according to Kind; see *Sub types above
	Message    string
	Suggestion string
	Context    map[string]string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the retry strategies in core/retry.go should
// attempt this error again. Integrity errors never retry (spec.md §7).
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindLedger:
		sub := LedgerSub(e.Sub)
		return sub == LedgerGas || sub == LedgerBudget
	default:
		return false
	}
}

func newErr(kind Kind, sub uint8, msg string, cause error) *Error {
	return &Error{Kind: kind, Sub: sub, Message: msg, Cause: cause, Context: map[string]string{}}
}

func NotFoundError(objKind, id string) *Error {
	e := newErr(KindNotFound, 0, fmt.Sprintf("%s %s not found", objKind, id), nil)
	e.Suggestion = "verify the id and that it exists locally or remotely"
	e.Context["kind"] = objKind
	e.Context["id"] = id
	return e
}

func IntegrityError(expected, got Hash, algo string) *Error {
	e := newErr(KindIntegrity, 0, fmt.Sprintf("%s mismatch: expected %s got %s", algo, expected, got), nil)
	e.Suggestion = "re-download or re-verify the object; this is never safe to retry automatically"
	e.Context["expected"] = expected.String()
	e.Context["got"] = got.String()
	e.Context["algo"] = algo
	return e
}

func FormatError(msg string, cause error) *Error {
	e := newErr(KindFormat, 0, msg, cause)
	e.Suggestion = "the payload is malformed; inspect its framing header"
	return e
}

func CodecError(msg string, cause error) *Error {
	return newErr(KindCodec, 0, msg, cause)
}

func CryptoErrorf(sub CryptoSub, msg string, cause error) *Error {
	e := newErr(KindCrypto, uint8(sub), msg, cause)
	if sub == CryptoAuth {
		e.Suggestion = "authentication failed; the ciphertext or key is wrong, do not retry"
	}
	return e
}

func IOError(msg string, cause error) *Error {
	return newErr(KindIO, 0, msg, cause)
}

func NetworkErrorf(sub NetworkSub, msg string, cause error) *Error {
	e := newErr(KindNetwork, uint8(sub), msg, cause)
	e.Suggestion = "this class of error is retried automatically"
	return e
}

func AuthErrorf(sub AuthSub, msg string) *Error {
	e := newErr(KindAuth, uint8(sub), msg, nil)
	e.Suggestion = "check credentials/signer and try again"
	return e
}

func LedgerErrorf(sub LedgerSub, msg string, cause error) *Error {
	return newErr(KindLedger, uint8(sub), msg, cause)
}

func ConflictErrorf(sub ConflictSub, msg string) *Error {
	e := newErr(KindConflict, uint8(sub), msg, nil)
	if sub == ConflictNonFastForward {
		e.Suggestion = "pull first, or pass force=true to overwrite the remote branch"
	}
	return e
}

var ErrCancelled = newErr(KindCancelled, 0, "operation cancelled", nil)

// AsCoreError extracts *Error from err, if present.
func AsCoreError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
