package grpcledger

import (
	"context"
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/memledger"
)

func newBufconnClient(t *testing.T, reg ledger.Registry) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterRegistryServer(srv, &Server{Registry: reg})

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewRegistryClient(cc), Timeout: 2 * time.Second}
}

func newBackend(t *testing.T) (*memledger.Ledger, ledger.Registry) {
	t.Helper()
	l := memledger.New(memledger.Options{})
	l.RegisterAcademy("acad-7", 0)
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, "acad-7")
	signer, err := ledger.NewEd25519Signer("acad-7", seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return l, l.Client(signer)
}

func TestRegistryRoundTrip(t *testing.T) {
	_, backend := newBackend(t)
	client := newBufconnClient(t, backend)
	ctx := context.Background()

	exp := uint64(1000)
	receipt, err := client.Issue(ctx, ledger.IssueParams{
		StudentWallet:    "SP2X...WALLET",
		Grade:            "A",
		GraduationDate:   1756684800,
		ExpirationHeight: &exp,
		MetadataURL:      "cas://bafy.../certificate.json",
		ContentDigest:    "ab12cd34",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if receipt.ChainID == 0 || receipt.TxID == "" {
		t.Fatalf("incomplete receipt: %+v", receipt)
	}

	rec, err := client.Get(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatalf("issued record missing")
	}
	if rec.AcademyID != "acad-7" || rec.StudentWallet != "SP2X...WALLET" {
		t.Fatalf("principals lost in transit: %+v", rec)
	}
	if rec.ExpirationHeight == nil || *rec.ExpirationHeight != exp {
		t.Fatalf("expiration height lost in transit: %+v", rec.ExpirationHeight)
	}

	valid, err := client.IsValid(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !valid {
		t.Fatalf("freshly issued certificate reported invalid")
	}

	rev, err := client.Revoke(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if rev.AlreadyInState {
		t.Fatalf("first revoke reported AlreadyInState")
	}
	again, err := client.Revoke(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if !again.AlreadyInState {
		t.Fatalf("idempotent revoke lost AlreadyInState in transit")
	}

	react, err := client.Reactivate(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if react.AlreadyInState {
		t.Fatalf("reactivate after revoke reported AlreadyInState")
	}

	height, err := client.Height(ctx)
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	if height == 0 {
		t.Fatalf("height not reported")
	}
}

func TestGetNeverIssuedCrossesWireAsNil(t *testing.T) {
	_, backend := newBackend(t)
	client := newBufconnClient(t, backend)

	rec, err := client.Get(context.Background(), 404)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestErrorKindsSurviveTransit(t *testing.T) {
	l, backend := newBackend(t)
	client := newBufconnClient(t, backend)
	ctx := context.Background()

	_, err := client.Revoke(ctx, 404)
	if !ledger.IsKind(err, ledger.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	receipt, err := client.Issue(ctx, ledger.IssueParams{StudentWallet: "w", MetadataURL: "u", ContentDigest: "d"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	l.DeactivateAcademy("acad-7")
	_, err = client.Issue(ctx, ledger.IssueParams{StudentWallet: "w", MetadataURL: "u", ContentDigest: "d"})
	if !ledger.IsKind(err, ledger.KindNotAuthorized) {
		t.Fatalf("expected NotAuthorized, got %v", err)
	}

	l.SetIntercept(func(op string) error {
		return ledger.NewError(ledger.KindNetwork, "injected outage")
	})
	_, err = client.Get(ctx, receipt.ChainID)
	if !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate network error, got %v", err)
	}
}

func TestInsufficientFundsSurvivesTransit(t *testing.T) {
	l := memledger.New(memledger.Options{TxCost: 10})
	l.RegisterAcademy("acad-7", 5)
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, "acad-7")
	signer, err := ledger.NewEd25519Signer("acad-7", seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	client := newBufconnClient(t, l.Client(signer))

	_, err = client.Issue(context.Background(), ledger.IssueParams{StudentWallet: "w", MetadataURL: "u", ContentDigest: "d"})
	if !ledger.IsKind(err, ledger.KindInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
}
