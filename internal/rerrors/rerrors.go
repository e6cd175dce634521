// Package rerrors implements the error taxonomy of the replication engine:
// transport failures, remote rejections, validation failures, ordering
// timeouts, quorum failures, and fatal startup errors. Each kind is a
// sentinel that call sites match with errors.Is / errors.As rather than
// string comparison.
package rerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the abstract kinds named by the
// error-handling design: transport, remote-reject, validation, ordering
// timeout, quorum-unmet, or fatal startup.
type Kind int

const (
	KindTransport Kind = iota
	KindRemoteReject
	KindValidationInvalid
	KindOrderingTimeout
	KindQuorumUnmet
	KindFatalStartup
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemoteReject:
		return "remote_reject"
	case KindValidationInvalid:
		return "validation_invalid"
	case KindOrderingTimeout:
		return "ordering_timeout"
	case KindQuorumUnmet:
		return "quorum_unmet"
	case KindFatalStartup:
		return "fatal_startup"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with one of the taxonomy's kinds.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, rerrors.New(rerrors.KindQuorumUnmet, "", nil)) style checks
// as well as direct Kind comparisons via errors.As.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transport wraps a dial/send failure.
func Transport(op string, err error) error { return New(KindTransport, op, err) }

// RemoteReject wraps a non-OK RPC response (treated like Transport for
// retry purposes, but kept distinct for logging).
func RemoteReject(op string, err error) error { return New(KindRemoteReject, op, err) }

// ValidationInvalid marks a duplicate or unrecoverable-repeat replica.
func ValidationInvalid(op string, err error) error { return New(KindValidationInvalid, op, err) }

// OrderingTimeout marks a gap-wait that exceeded its budget.
func OrderingTimeout(op string, err error) error { return New(KindOrderingTimeout, op, err) }

// QuorumUnmet marks an admission failure.
func QuorumUnmet(op string, err error) error { return New(KindQuorumUnmet, op, err) }

// FatalStartup marks a boot-time error that should exit the process.
func FatalStartup(op string, err error) error { return New(KindFatalStartup, op, err) }

// IsKind reports whether err (or something it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
