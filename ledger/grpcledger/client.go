package grpcledger

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// Client implements ledger.Registry over the Registry gRPC service.
//
// The remote daemon holds the chain connection and signing credentials;
// callers of this client never handle key material.
type Client struct {
	cc     *grpc.ClientConn
	client RegistryClient

	// Timeout caps each RPC when non-zero, on top of the caller's context.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewRegistryClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

func (c *Client) Issue(ctx context.Context, params ledger.IssueParams) (ledger.IssueReceipt, error) {
	payload, err := json.Marshal(paramsToWire(params))
	if err != nil {
		return ledger.IssueReceipt{}, ledger.WrapError(ledger.KindNetwork, "encoding issue params", err)
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Issue(ctx, wrapperspb.Bytes(payload))
	if err != nil {
		return ledger.IssueReceipt{}, mapRPC(err)
	}
	var w issueReceiptWire
	if err := json.Unmarshal(reply.GetValue(), &w); err != nil {
		return ledger.IssueReceipt{}, ledger.WrapError(ledger.KindNetwork, "malformed issue receipt", err)
	}
	return ledger.IssueReceipt{ChainID: w.ChainID, TxID: w.TxID}, nil
}

func (c *Client) Revoke(ctx context.Context, chainID uint64) (ledger.TxReceipt, error) {
	return c.tx(ctx, chainID, c.client.Revoke)
}

func (c *Client) Reactivate(ctx context.Context, chainID uint64) (ledger.TxReceipt, error) {
	return c.tx(ctx, chainID, c.client.Reactivate)
}

func (c *Client) tx(ctx context.Context, chainID uint64, call func(context.Context, *wrapperspb.UInt64Value, ...grpc.CallOption) (*wrapperspb.BytesValue, error)) (ledger.TxReceipt, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := call(ctx, wrapperspb.UInt64(chainID))
	if err != nil {
		return ledger.TxReceipt{}, mapRPC(err)
	}
	var w txReceiptWire
	if err := json.Unmarshal(reply.GetValue(), &w); err != nil {
		return ledger.TxReceipt{}, ledger.WrapError(ledger.KindNetwork, "malformed transaction receipt", err)
	}
	return ledger.TxReceipt{TxID: w.TxID, AlreadyInState: w.AlreadyInState}, nil
}

func (c *Client) Get(ctx context.Context, chainID uint64) (*ledger.OnChainRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.UInt64(chainID))
	if err != nil {
		return nil, mapRPC(err)
	}
	// An empty payload means the id was never issued.
	b := reply.GetValue()
	if len(b) == 0 {
		return nil, nil
	}
	var w recordWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, ledger.WrapError(ledger.KindNetwork, "malformed record payload", err)
	}
	return recordFromWire(w), nil
}

func (c *Client) IsValid(ctx context.Context, chainID uint64) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.IsValid(ctx, wrapperspb.UInt64(chainID))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Height(ctx context.Context) (uint64, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Height(ctx, &emptypb.Empty{})
	if err != nil {
		return 0, mapRPC(err)
	}
	return reply.GetValue(), nil
}
