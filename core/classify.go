package core

import "strings"

// retryableWords is the configurable retryable-error word list from
// spec.md §4.7, checked case-insensitively against raw ledger/transport
// error text when no typed *Error is available.
var retryableWords = []string{
	"rate limit",
	"congestion",
	"quorum",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"connection reset",
	"connection refused",
	"too many requests",
	"503",
	"502",
}

// ClassifyLedgerError maps raw ledger-effect text to a *Error with a
// LedgerSub, the way a dry-run or submit response's status string must be
// turned into the classified kinds spec.md §7 requires.
func ClassifyLedgerError(text string) *Error {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "insufficient gas") || strings.Contains(lower, "out of gas"):
		return LedgerErrorf(LedgerGas, text, nil)
	case strings.Contains(lower, "budget"):
		return LedgerErrorf(LedgerBudget, text, nil)
	case strings.Contains(lower, "object") && strings.Contains(lower, "not found"):
		return LedgerErrorf(LedgerObjectMissing, text, nil)
	case strings.Contains(lower, "too large"):
		return LedgerErrorf(LedgerTxTooLarge, text, nil)
	case strings.Contains(lower, "version"):
		return LedgerErrorf(LedgerVersion, text, nil)
	case strings.Contains(lower, "abort"):
		return LedgerErrorf(LedgerAbort, text, nil)
	case isRetryableText(lower):
		return NetworkErrorf(NetTransient, text, nil)
	default:
		return LedgerErrorf(LedgerValidation, text, nil)
	}
}

func isRetryableText(lowerText string) bool {
	for _, w := range retryableWords {
		if strings.Contains(lowerText, w) {
			return true
		}
	}
	return false
}

// ClassifyTransportError maps an HTTP status code and message into a
// *Error per spec.md §4.5's retryable/non-retryable split.
func ClassifyTransportError(status int, msg string) *Error {
	switch {
	case status == 401 || status == 403:
		return AuthErrorf(AuthPermission, msg)
	case status == 404:
		return NotFoundError("blob", msg)
	case status == 400 || status == 422:
		e := newErr(KindFormat, 0, msg, nil)
		return e
	case status == 409:
		e := newErr(KindFormat, 0, msg, nil)
		e.Suggestion = "duplicate object; this is not retried"
		return e
	case status == 429:
		return NetworkErrorf(NetRateLimited, msg, nil)
	case status == 408 || status == 504:
		return NetworkErrorf(NetTimeout, msg, nil)
	case status >= 500:
		return NetworkErrorf(NetServer, msg, nil)
	case status == 0:
		return NetworkErrorf(NetConnection, msg, nil)
	default:
		return NetworkErrorf(NetTransient, msg, nil)
	}
}
