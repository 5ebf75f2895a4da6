package grpccas

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// mapRPC translates transport errors back into storage sentinels.
//
// Unreachability is never reported as absence: a verifier that cannot reach
// the store must see ErrUnavailable, not ErrNotFound.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed/undefined CIDs.
		return storage.ErrInvalidCID
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested CID.
		return storage.ErrCIDMismatch
	case codes.FailedPrecondition:
		return storage.ErrImmutable
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, st.Message())
	default:
		// Best-effort: if the server sent a known storage error message, preserve it.
		switch st.Message() {
		case storage.ErrNotFound.Error():
			return storage.ErrNotFound
		case storage.ErrInvalidCID.Error():
			return storage.ErrInvalidCID
		case storage.ErrCIDMismatch.Error():
			return storage.ErrCIDMismatch
		default:
			return err
		}
	}
}
