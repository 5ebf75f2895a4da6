package verify

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/memledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/metadata"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/testkit"
)

type fixture struct {
	ledger   *memledger.Ledger
	registry ledger.Registry
	content  *testkit.ContentStore
	verifier *Verifier
	chainID  uint64
	url      string
}

func newFixture(t *testing.T, expiration *uint64) *fixture {
	t.Helper()
	ctx := context.Background()

	doc := metadata.Compose(
		metadata.Course{Title: "Blockchain 101", Hours: 40, Language: "es", Skills: []string{"solidity", "cryptography"}},
		metadata.Student{Name: "Ana Ruiz", IdentifierHash: "feed1234", IdentifierSalt: "abcd", Grade: "A"},
		metadata.Academy{ID: "acad-7", Name: "Academia Norte"},
		time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	)
	canonical, err := metadata.Canonicalize(doc)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	digest := metadata.DigestHex(canonical)

	content := testkit.NewContentStore()
	published, err := content.Publish(ctx, canonical, "certificate.json")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	l := memledger.New(memledger.Options{})
	l.RegisterAcademy("acad-7", 0)
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, "acad-7")
	signer, err := ledger.NewEd25519Signer("acad-7", seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	registry := l.Client(signer)

	receipt, err := registry.Issue(ctx, ledger.IssueParams{
		StudentWallet:    "SP2X...WALLET",
		Grade:            "A",
		GraduationDate:   1756684800,
		ExpirationHeight: expiration,
		MetadataURL:      published.URL,
		ContentDigest:    digest,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	return &fixture{
		ledger:   l,
		registry: registry,
		content:  content,
		verifier: &Verifier{Registry: registry, Fetcher: content},
		chainID:  receipt.ChainID,
		url:      published.URL,
	}
}

func TestVerifyValidCertificate(t *testing.T) {
	f := newFixture(t, nil)

	verdict, err := f.verifier.Verify(context.Background(), f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.OnChainExists || verdict.Revoked || verdict.Expired || !verdict.DigestMatches {
		t.Fatalf("unexpected sub-results: %+v", verdict)
	}
	if !verdict.OverallValid {
		t.Fatalf("valid certificate reported invalid: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != ContentOK {
		t.Fatalf("unexpected content outcome: %+v", verdict.Evidence)
	}
	if verdict.Evidence.Record == nil || verdict.Evidence.RecomputedDigest == "" {
		t.Fatalf("evidence trail incomplete: %+v", verdict.Evidence)
	}
}

func TestVerifyShortCircuitsOnUnknownID(t *testing.T) {
	f := newFixture(t, nil)
	f.content.SetOffline(true) // a content fetch attempt would fail loudly

	verdict, err := f.verifier.Verify(context.Background(), 404)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.OnChainExists || verdict.OverallValid {
		t.Fatalf("nonexistent certificate reported on chain: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != ContentNotChecked {
		t.Fatalf("content was fetched despite short-circuit: %+v", verdict.Evidence)
	}
}

func TestVerifyRevoked(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.registry.Revoke(ctx, f.chainID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	verdict, err := f.verifier.Verify(ctx, f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.Revoked || verdict.OverallValid {
		t.Fatalf("revocation not reflected: %+v", verdict)
	}
	// Revocation does not disturb the other sub-results.
	if !verdict.OnChainExists || verdict.Expired || !verdict.DigestMatches {
		t.Fatalf("unrelated sub-results changed: %+v", verdict)
	}
}

func TestVerifyExpirationBoundary(t *testing.T) {
	// Issuance advances the chain by one block, so the record lands at
	// height 1. Expire it two blocks later.
	exp := uint64(3)
	f := newFixture(t, &exp)
	ctx := context.Background()

	f.ledger.AdvanceHeight(2) // current height == 3 == expiration
	verdict, err := f.verifier.Verify(ctx, f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.Expired || !verdict.OverallValid {
		t.Fatalf("certificate should be valid at exactly the expiration height: %+v", verdict)
	}

	f.ledger.AdvanceHeight(1) // current height == 4
	verdict, err = f.verifier.Verify(ctx, f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.Expired || verdict.OverallValid {
		t.Fatalf("certificate should be invalid one block past expiration: %+v", verdict)
	}
}

func TestVerifyDistinguishesTamperFromLoss(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Tampered: bytes fetch fine but the digest no longer matches.
	tampered := metadata.Compose(
		metadata.Course{Title: "Blockchain 101 PRO"},
		metadata.Student{Name: "Ana Ruiz"},
		metadata.Academy{ID: "acad-7", Name: "Academia Norte"},
		time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	)
	canonical, err := metadata.Canonicalize(tampered)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !f.content.Tamper(f.url, canonical) {
		t.Fatalf("Tamper: object not found")
	}

	verdict, err := f.verifier.Verify(ctx, f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.DigestMatches || verdict.OverallValid {
		t.Fatalf("tampered content not detected: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != ContentDigestMismatch {
		t.Fatalf("tampering misclassified: %+v", verdict.Evidence)
	}

	// Lost: the fetch itself fails, which is a different finding.
	f.content.Lose(f.url)
	verdict, err = f.verifier.Verify(ctx, f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.DigestMatches || verdict.OverallValid {
		t.Fatalf("lost content not detected: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != ContentUnavailable {
		t.Fatalf("content loss misclassified: %+v", verdict.Evidence)
	}
	if verdict.Evidence.ContentError == "" {
		t.Fatalf("fetch failure reason not recorded: %+v", verdict.Evidence)
	}
}

func TestVerifyMalformedContent(t *testing.T) {
	f := newFixture(t, nil)

	if !f.content.Tamper(f.url, []byte("{not json")) {
		t.Fatalf("Tamper: object not found")
	}
	verdict, err := f.verifier.Verify(context.Background(), f.chainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.DigestMatches || verdict.OverallValid {
		t.Fatalf("malformed content not detected: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != ContentMalformed {
		t.Fatalf("malformed content misclassified: %+v", verdict.Evidence)
	}
}

func TestVerifyLedgerUnreachableIsAnError(t *testing.T) {
	f := newFixture(t, nil)
	f.ledger.SetIntercept(func(op string) error {
		return ledger.NewError(ledger.KindNetwork, "injected outage")
	})

	_, err := f.verifier.Verify(context.Background(), f.chainID)
	if !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate network error, got %v", err)
	}
}
