package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorKind is the retry-relevant category of a failure. It is derived
// from the error on demand and never stored.
type ErrorKind int

const (
	// KindPermanent failures are not retried. Unrecognized errors land here.
	KindPermanent ErrorKind = iota
	// KindTransient failures (timeouts, resets, navigation hiccups) may succeed on retry.
	KindTransient
	// KindSelectorNotFound failures mean the page did not (yet) contain the expected element.
	KindSelectorNotFound
)

// String returns the wire name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindSelectorNotFound:
		return "selector_not_found"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Lowercase substrings matched against the error message.
var (
	transientSignatures = []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"econnreset",
		"connection reset",
		"econnrefused",
		"connection refused",
		"broken pipe",
		"epipe",
		"socket hang up",
		"navigation",
		"net::err_",
		"enotfound",
		"eai_again",
		"network",
		"unexpected eof",
	}

	selectorSignatures = []string{
		"not found",
		"waiting for selector",
		"waiting for locator",
		"strict mode violation",
	}
)

// PermanentError marks an error as never worth retrying regardless of its
// message. Provider rejections implement it so that a description such as
// "timeout while solving" does not trigger a retry.
type PermanentError interface {
	error
	Permanent() bool
}

// TransientError marks an error as worth retrying regardless of its
// message, such as a 5xx status from a remote API.
type TransientError interface {
	error
	Transient() bool
}

// ClassifyError derives the ErrorKind of err. It is pure: identical input
// always yields the same kind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindPermanent
	}

	var perm PermanentError
	if errors.As(err, &perm) && perm.Permanent() {
		return KindPermanent
	}
	var tr TransientError
	if errors.As(err, &tr) && tr.Transient() {
		return KindTransient
	}

	// Prefer typed checks over string matching
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrFailFast) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return KindTransient
		}
	}
	for _, sig := range selectorSignatures {
		if strings.Contains(msg, sig) {
			return KindSelectorNotFound
		}
	}
	return KindPermanent
}

// IsTransient reports whether err classifies as KindTransient.
func IsTransient(err error) bool {
	return ClassifyError(err) == KindTransient
}
