package grpcledger

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// mapRPC translates transport errors back into the registry taxonomy.
//
// Anything that leaves the outcome unknown maps to KindNetwork: a failed
// RPC does not prove the transaction did not land.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return ledger.WrapError(ledger.KindNetwork, "registry call failed", err)
	}

	switch st.Code() {
	case codes.NotFound:
		return ledger.NewError(ledger.KindNotFound, st.Message())
	case codes.PermissionDenied:
		return ledger.NewError(ledger.KindNotAuthorized, st.Message())
	case codes.FailedPrecondition:
		// The server uses FailedPrecondition only for funding shortfalls.
		return ledger.NewError(ledger.KindInsufficientFunds, st.Message())
	default:
		return ledger.WrapError(ledger.KindNetwork, st.Message(), err)
	}
}

// mapErr translates registry errors into gRPC status codes for the wire.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case ledger.IsKind(err, ledger.KindNotFound):
		return status.Error(codes.NotFound, err.Error())
	case ledger.IsKind(err, ledger.KindNotAuthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case ledger.IsKind(err, ledger.KindInsufficientFunds):
		return status.Error(codes.FailedPrecondition, err.Error())
	case ledger.IsKind(err, ledger.KindNetwork):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
