package grpcledger

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// Server exposes a ledger.Registry over the Registry gRPC service.
type Server struct {
	UnimplementedRegistryServer
	Registry ledger.Registry
}

func (s *Server) check() error {
	if s == nil || s.Registry == nil {
		return status.Error(codes.FailedPrecondition, "missing registry")
	}
	return nil
}

func (s *Server) Issue(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var w issueParamsWire
	if err := json.Unmarshal(in.GetValue(), &w); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed issue params")
	}
	receipt, err := s.Registry.Issue(ctx, paramsFromWire(w))
	if err != nil {
		return nil, mapErr(err)
	}
	payload, err := json.Marshal(issueReceiptWire{ChainID: receipt.ChainID, TxID: receipt.TxID})
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding issue receipt")
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *Server) Revoke(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	receipt, err := s.Registry.Revoke(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return txReceiptPayload(receipt)
}

func (s *Server) Reactivate(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	receipt, err := s.Registry.Reactivate(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return txReceiptPayload(receipt)
}

func txReceiptPayload(receipt ledger.TxReceipt) (*wrapperspb.BytesValue, error) {
	payload, err := json.Marshal(txReceiptWire{TxID: receipt.TxID, AlreadyInState: receipt.AlreadyInState})
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding transaction receipt")
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rec, err := s.Registry.Get(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if rec == nil {
		// Never-issued ids travel as an empty payload, not an error: absence
		// is an answer, not a failure.
		return wrapperspb.Bytes(nil), nil
	}
	payload, err := json.Marshal(recordToWire(rec))
	if err != nil {
		return nil, status.Error(codes.Internal, "encoding record")
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *Server) IsValid(ctx context.Context, in *wrapperspb.UInt64Value) (*wrapperspb.BoolValue, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	valid, err := s.Registry.IsValid(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(valid), nil
}

func (s *Server) Height(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	height, err := s.Registry.Height(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.UInt64(height), nil
}
