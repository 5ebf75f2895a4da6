package ledger

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	// KindNotAuthorized means the signing principal lacks ledger-side
	// permission for the operation (not the issuing academy, or the academy
	// is inactive/unregistered).
	KindNotAuthorized Kind = "NotAuthorized"

	// KindNotFound means the certificate id was never issued, or referenced
	// content is absent.
	KindNotFound Kind = "NotFound"

	// KindNetwork means the call may or may not have taken effect. A
	// submitted transaction can still land after the error is returned.
	// Callers must treat this as indeterminate, never as success or as a
	// clean failure.
	KindNetwork Kind = "NetworkError"

	// KindInsufficientFunds means the issuing account cannot cover the
	// transaction cost.
	KindInsufficientFunds Kind = "InsufficientFunds"
)

// Error is the package's structured error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError constructs a typed registry error.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError constructs a typed registry error wrapping a cause.
func WrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsIndeterminate reports whether err means the operation may or may not
// have taken effect on the ledger. Such errors must never be recorded
// locally as either success or failure.
func IsIndeterminate(err error) bool {
	return IsKind(err, KindNetwork)
}
