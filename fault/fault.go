// Package fault defines the classified-error taxonomy shared by the client
// orchestration layer and the server proxy.
//
// Every failure that crosses a trust boundary (gateway call, proxy call) is
// mapped into exactly one Kind before it re-enters orchestration logic. The
// five wire kinds match on both sides of the proxy, so the client and the
// server never disagree about what a given failure means.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind identifies one category of the shared taxonomy.
type Kind string

const (
	KindInvalidArgument  Kind = "INVALID_ARGUMENT"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindUnavailable      Kind = "UNAVAILABLE"
	KindInternal         Kind = "INTERNAL"

	// KindNotFound is local to the client (message-store lookups). It never
	// crosses the wire; if it somehow reaches the proxy boundary it is
	// reported as INTERNAL.
	KindNotFound Kind = "NOT_FOUND"
)

// Error carries a taxonomy kind, a user-facing message, and an internal
// diagnostic detail that is never shown to end users.
type Error struct {
	Kind    Kind
	Message string // safe to display
	Detail  string // internal diagnostics only
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether a user-initiated retry makes sense for this
// failure. Only transient kinds qualify; argument and authorization failures
// will fail the same way again.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable || e.Kind == KindInternal
}

// New creates a classified error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted user-facing message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy kind and user-facing message to an underlying
// cause. The cause's text becomes the internal detail.
func Wrap(kind Kind, message string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Kind: kind, Message: message, Detail: detail, err: err}
}

// KindOf extracts the taxonomy kind from err. Unclassified errors report
// KindInternal, matching the classification fallback.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given taxonomy kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether err permits a retry. nil is not retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	// Unclassified errors behave as KindInternal.
	return true
}

// Classify maps an arbitrary failure into the taxonomy. Already-classified
// errors pass through unchanged, so classification is stable across layers:
//
//   - context cancellation and deadlines → UNAVAILABLE (the call never
//     completed; retrying is sensible)
//   - network-level failures (dial, DNS, reset) → UNAVAILABLE
//   - everything else → INTERNAL
//
// Status-code-bearing failures from HTTP providers are converted by the
// caller via FromStatusCode before reaching Classify.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindUnavailable, "the request was interrupted", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(KindUnavailable, "the service could not be reached", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Wrap(KindUnavailable, "the service could not be reached", err)
	}

	return Wrap(KindInternal, "something went wrong", err)
}

// FromStatusCode maps an HTTP status code to a taxonomy kind. Both the
// client-side proxy provider and the server-side upstream classification use
// this table, which keeps the two paths consistent.
func FromStatusCode(code int) Kind {
	switch {
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge:
		return KindInvalidArgument
	case code == http.StatusUnauthorized:
		return KindUnauthenticated
	case code == http.StatusForbidden:
		return KindPermissionDenied
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code > http.StatusInternalServerError:
		return KindUnavailable
	default:
		return KindInternal
	}
}

// StatusCode maps a taxonomy kind to the HTTP status the proxy responds
// with. The local-only NOT_FOUND kind deliberately maps to 500: it must
// never leak across the wire as a distinct category.
func StatusCode(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ParseKind converts a wire status string back into a Kind. Unknown strings
// collapse to INTERNAL so a newer server cannot crash an older client.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindInvalidArgument, KindUnauthenticated, KindPermissionDenied,
		KindUnavailable, KindInternal:
		return Kind(s)
	default:
		return KindInternal
	}
}
