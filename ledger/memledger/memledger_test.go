package memledger

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

func newSigner(t *testing.T, principal string) ledger.Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, principal)
	s, err := ledger.NewEd25519Signer(principal, seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func issueParams() ledger.IssueParams {
	return ledger.IssueParams{
		StudentWallet:  "SP2X...WALLET",
		Grade:          "A",
		GraduationDate: 1756684800,
		MetadataURL:    "cas://bafy.../certificate.json",
		ContentDigest:  "ab12cd34",
	}
}

func TestIssueAssignsSequentialIDs(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))
	ctx := context.Background()

	first, err := client.Issue(ctx, issueParams())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := client.Issue(ctx, issueParams())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if first.ChainID != 1 || second.ChainID != 2 {
		t.Fatalf("expected ids 1,2; got %d,%d", first.ChainID, second.ChainID)
	}
	if first.TxID == second.TxID {
		t.Fatalf("transaction ids should differ")
	}

	rec, err := client.Get(ctx, first.ChainID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatalf("issued record missing")
	}
	if rec.AcademyID != "acad-7" || rec.Revoked {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.IssuedAtHeight == 0 {
		t.Fatalf("issuance height not recorded")
	}
}

func TestGetNeverIssuedReturnsNilNil(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))

	rec, err := client.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for never-issued id, got %+v", rec)
	}
}

func TestIssueRequiresRegisteredActiveAcademy(t *testing.T) {
	l := New(Options{})
	ctx := context.Background()

	_, err := l.Client(newSigner(t, "ghost")).Issue(ctx, issueParams())
	if !ledger.IsKind(err, ledger.KindNotAuthorized) {
		t.Fatalf("expected NotAuthorized for unregistered academy, got %v", err)
	}

	l.RegisterAcademy("acad-7", 0)
	l.DeactivateAcademy("acad-7")
	_, err = l.Client(newSigner(t, "acad-7")).Issue(ctx, issueParams())
	if !ledger.IsKind(err, ledger.KindNotAuthorized) {
		t.Fatalf("expected NotAuthorized for inactive academy, got %v", err)
	}
}

func TestIssueChecksFunds(t *testing.T) {
	l := New(Options{TxCost: 10})
	l.RegisterAcademy("acad-7", 15)
	client := l.Client(newSigner(t, "acad-7"))
	ctx := context.Background()

	if _, err := client.Issue(ctx, issueParams()); err != nil {
		t.Fatalf("first issue should be funded: %v", err)
	}
	_, err := client.Issue(ctx, issueParams())
	if !ledger.IsKind(err, ledger.KindInsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
}

func TestRevokeReactivateStateMachine(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))
	ctx := context.Background()

	receipt, err := client.Issue(ctx, issueParams())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id := receipt.ChainID

	rev, err := client.Revoke(ctx, id)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if rev.AlreadyInState {
		t.Fatalf("first revoke reported AlreadyInState")
	}

	again, err := client.Revoke(ctx, id)
	if err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if !again.AlreadyInState {
		t.Fatalf("second revoke should report AlreadyInState")
	}

	react, err := client.Reactivate(ctx, id)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if react.AlreadyInState {
		t.Fatalf("reactivate after revoke reported AlreadyInState")
	}

	rec, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Revoked {
		t.Fatalf("record still revoked after reactivate")
	}

	_, err = client.Revoke(ctx, 404)
	if !ledger.IsKind(err, ledger.KindNotFound) {
		t.Fatalf("expected NotFound for unknown id, got %v", err)
	}
}

func TestRevokeAuthorization(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	ctx := context.Background()

	receipt, err := l.Client(newSigner(t, "acad-7")).Issue(ctx, issueParams())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = l.Client(newSigner(t, "acad-9")).Revoke(ctx, receipt.ChainID)
	if !ledger.IsKind(err, ledger.KindNotAuthorized) {
		t.Fatalf("expected NotAuthorized for foreign academy, got %v", err)
	}

	l.MakeAdmin("root")
	if _, err := l.Client(newSigner(t, "root")).Revoke(ctx, receipt.ChainID); err != nil {
		t.Fatalf("admin revoke failed: %v", err)
	}
}

func TestIsValidRecomputesExpiration(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))
	ctx := context.Background()

	height, err := client.Height(ctx)
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	// Issuance itself advances the chain by one block.
	exp := height + 1 + 3
	params := issueParams()
	params.ExpirationHeight = &exp

	receipt, err := client.Issue(ctx, params)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	l.AdvanceHeight(3) // current height == exp
	valid, err := client.IsValid(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !valid {
		t.Fatalf("certificate should be valid at exactly the expiration height")
	}

	l.AdvanceHeight(1) // current height == exp+1
	valid, err = client.IsValid(ctx, receipt.ChainID)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if valid {
		t.Fatalf("certificate should be invalid one block past expiration")
	}
}

func TestInterceptInjectsFaults(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))
	ctx := context.Background()

	receipt, err := client.Issue(ctx, issueParams())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	l.SetIntercept(func(op string) error {
		return ledger.NewError(ledger.KindNetwork, "injected outage")
	})
	if _, err := client.Get(ctx, receipt.ChainID); !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate network error, got %v", err)
	}

	l.SetIntercept(nil)
	if _, err := client.Get(ctx, receipt.ChainID); err != nil {
		t.Fatalf("Get after clearing intercept: %v", err)
	}
}

func TestCancelledContextIsNetworkError(t *testing.T) {
	l := New(Options{})
	l.RegisterAcademy("acad-7", 0)
	client := l.Client(newSigner(t, "acad-7"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Issue(ctx, issueParams())
	if !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate error on cancellation, got %v", err)
	}
}
