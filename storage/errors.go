package storage

import "errors"

var (
	// ErrNotFound signals the object is absent from the store.
	ErrNotFound = errors.New("storage: not found")
	// ErrUnavailable signals a transport failure: the store could not be
	// reached, so absence and presence are both unknown. Never collapse this
	// into ErrNotFound.
	ErrUnavailable = errors.New("storage: unavailable")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
	ErrBadURL      = errors.New("storage: malformed object url")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
