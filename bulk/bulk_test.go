package bulk

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/memledger"
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

// issueThree issues certificates A, B, C where B belongs to a different
// academy, so acad-7 is not authorized to act on it.
func issueThree(t *testing.T) (*memledger.Ledger, ledger.Registry, []uint64) {
	t.Helper()
	l := memledger.New(memledger.Options{})
	l.RegisterAcademy("acad-7", 0)
	l.RegisterAcademy("acad-other", 0)

	mine := l.Client(newSigner(t, "acad-7"))
	other := l.Client(newSigner(t, "acad-other"))
	ctx := context.Background()

	params := ledger.IssueParams{StudentWallet: "w", MetadataURL: "u", ContentDigest: "d"}
	a, err := mine.Issue(ctx, params)
	if err != nil {
		t.Fatalf("Issue A: %v", err)
	}
	b, err := other.Issue(ctx, params)
	if err != nil {
		t.Fatalf("Issue B: %v", err)
	}
	c, err := mine.Issue(ctx, params)
	if err != nil {
		t.Fatalf("Issue C: %v", err)
	}
	return l, mine, []uint64{a.ChainID, b.ChainID, c.ChainID}
}

func TestApplyIsolatesFailures(t *testing.T) {
	_, registry, ids := issueThree(t)
	coord := &Coordinator{Registry: registry}

	report, err := coord.Apply(context.Background(), ActionRevoke, ids)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.SuccessCount != 2 || report.FailedCount != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", report.Errors)
	}
	if report.Errors[0].ChainID != ids[1] {
		t.Fatalf("wrong id reported failed: %+v", report.Errors[0])
	}
	if report.Errors[0].Kind != ledger.KindNotAuthorized {
		t.Fatalf("wrong failure kind: %+v", report.Errors[0])
	}
	if report.Failed(ids[0]) || report.Failed(ids[2]) {
		t.Fatalf("successful ids reported as failed: %+v", report.Errors)
	}

	// A and C really were revoked despite B failing.
	ctx := context.Background()
	for _, id := range []uint64{ids[0], ids[2]} {
		rec, err := registry.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !rec.Revoked {
			t.Fatalf("certificate %d not revoked", id)
		}
	}
}

func TestApplyTotalFailureIsStillACleanCall(t *testing.T) {
	l, registry, ids := issueThree(t)
	l.SetIntercept(func(op string) error {
		return ledger.NewError(ledger.KindNetwork, "injected outage")
	})
	coord := &Coordinator{Registry: registry}

	report, err := coord.Apply(context.Background(), ActionRevoke, ids)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.SuccessCount != 0 || report.FailedCount != len(ids) {
		t.Fatalf("unexpected counts: %+v", report)
	}
	for _, item := range report.Errors {
		if item.Kind != ledger.KindNetwork {
			t.Fatalf("expected network kind, got %+v", item)
		}
	}
}

func TestApplyErrorsStayInInputOrder(t *testing.T) {
	_, registry, ids := issueThree(t)
	coord := &Coordinator{Registry: registry, Workers: 4}

	// Unknown ids interleaved with the unauthorized one; every failure must
	// come back in input order even with parallel workers.
	input := []uint64{404, ids[1], 405, ids[0]}
	report, err := coord.Apply(context.Background(), ActionRevoke, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.SuccessCount != 1 || report.FailedCount != 3 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	wantOrder := []uint64{404, ids[1], 405}
	for i, item := range report.Errors {
		if item.ChainID != wantOrder[i] {
			t.Fatalf("errors out of input order: got %+v want %v", report.Errors, wantOrder)
		}
	}
	if report.Errors[0].Kind != ledger.KindNotFound || report.Errors[1].Kind != ledger.KindNotAuthorized {
		t.Fatalf("unexpected kinds: %+v", report.Errors)
	}
}

func TestApplyReportsAlreadyInState(t *testing.T) {
	_, registry, ids := issueThree(t)
	ctx := context.Background()
	if _, err := registry.Revoke(ctx, ids[0]); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	coord := &Coordinator{Registry: registry}
	report, err := coord.Apply(ctx, ActionRevoke, []uint64{ids[0], ids[2]})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.SuccessCount != 2 || report.FailedCount != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.AlreadyInState) != 1 || report.AlreadyInState[0] != ids[0] {
		t.Fatalf("AlreadyInState not surfaced: %+v", report)
	}
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	_, registry, _ := issueThree(t)
	coord := &Coordinator{Registry: registry}
	if _, err := coord.Apply(context.Background(), Action("delete"), []uint64{1}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestApplyEmptyBatch(t *testing.T) {
	_, registry, _ := issueThree(t)
	coord := &Coordinator{Registry: registry}
	report, err := coord.Apply(context.Background(), ActionReactivate, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.SuccessCount != 0 || report.FailedCount != 0 || len(report.Errors) != 0 {
		t.Fatalf("empty batch produced a non-empty report: %+v", report)
	}
}
