package issuer

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache/memcache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/identity"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger/memledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/metadata"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage/testkit"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/verify"
)

type fixture struct {
	ledger   *memledger.Ledger
	registry ledger.Registry
	content  *testkit.ContentStore
	store    *memcache.Store
	issuer   *Issuer
	verifier *verify.Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := memledger.New(memledger.Options{})
	l.RegisterAcademy("acad-7", 0)

	seed := make([]byte, ed25519.SeedSize)
	copy(seed, "acad-7")
	signer, err := ledger.NewEd25519Signer("acad-7", seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	registry := l.Client(signer)

	content := testkit.NewContentStore()
	store := memcache.New()

	return &fixture{
		ledger:   l,
		registry: registry,
		content:  content,
		store:    store,
		issuer: &Issuer{
			Registry:  registry,
			Publisher: content,
			Store:     store,
			Now:       func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) },
		},
		verifier: &verify.Verifier{Registry: registry, Fetcher: content},
	}
}

func sampleRequest() Request {
	return Request{
		LocalID: "cert-1",
		Course: metadata.Course{
			Title:    "Blockchain 101",
			Hours:    40,
			Language: "es",
			Skills:   []string{"solidity", "cryptography"},
		},
		Academy:        metadata.Academy{ID: "acad-7", Name: "Academia Norte"},
		StudentName:    "Ana Ruiz",
		RawIdentifier:  "12345678Z",
		StudentWallet:  "SP2X...WALLET",
		Grade:          "A",
		GraduationDate: 1756684800,
	}
}

func TestIssueCommitsAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.issuer.Issue(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if res.ChainID == 0 || res.TxID == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	// One-time disclosure material is present and well-formed.
	if len(res.VerificationCode) != identity.DefaultCodeLength {
		t.Fatalf("unexpected code: %q", res.VerificationCode)
	}
	if res.IdentifierSalt == "" || res.IdentifierHash == "" {
		t.Fatalf("identity material missing: %+v", res)
	}
	// The hash is reproducible from the disclosed material plus the raw
	// identifier, and from nothing less.
	recomputed := identity.HashIdentifier("12345678Z", res.VerificationCode, res.IdentifierSalt)
	if recomputed != res.IdentifierHash {
		t.Fatalf("disclosed material does not reproduce the identifier hash")
	}

	// The published document never contains the raw identifier.
	data, err := f.content.Fetch(ctx, res.MetadataURL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if strings.Contains(string(data), "12345678Z") {
		t.Fatalf("raw identifier leaked into published content")
	}

	// The cache row matches the commitment.
	rec, err := f.store.Get(ctx, "cert-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ChainID == nil || *rec.ChainID != res.ChainID {
		t.Fatalf("chain id not recorded: %+v", rec)
	}
	if rec.Status != cache.StatusIssued || rec.ContentDigest != res.ContentDigest {
		t.Fatalf("cache row out of step: %+v", rec)
	}
}

func TestIssueAbortsBeforeLedgerOnPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.content.SetOffline(true)
	ctx := context.Background()

	if _, err := f.issuer.Issue(ctx, sampleRequest()); err == nil {
		t.Fatalf("expected publish failure")
	}

	// No dangling ledger record may exist.
	rec, err := f.registry.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("ledger transaction submitted despite publish failure: %+v", rec)
	}
	if _, err := f.store.Get(ctx, "cert-1"); err != cache.ErrNotFound {
		t.Fatalf("cache row written despite publish failure: %v", err)
	}
}

func TestIssueIndeterminateLedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.SetIntercept(func(op string) error {
		if op == "issue" {
			return ledger.NewError(ledger.KindNetwork, "injected outage")
		}
		return nil
	})

	_, err := f.issuer.Issue(context.Background(), sampleRequest())
	if !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate error, got %v", err)
	}
	if _, err := f.store.Get(context.Background(), "cert-1"); err != cache.ErrNotFound {
		t.Fatalf("indeterminate issuance produced a cache row: %v", err)
	}
}

func TestRevokeFlipsOptimistically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.issuer.Issue(ctx, sampleRequest()); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := f.issuer.Revoke(ctx, "cert-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	rec, err := f.store.Get(ctx, "cert-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != cache.StatusRevoked {
		t.Fatalf("optimistic flip missing: %+v", rec)
	}
}

func TestRevokeIndeterminateDoesNotFlip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.issuer.Issue(ctx, sampleRequest()); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	f.ledger.SetIntercept(func(op string) error {
		if op == "revoke" {
			return ledger.NewError(ledger.KindNetwork, "injected outage")
		}
		return nil
	})

	if _, err := f.issuer.Revoke(ctx, "cert-1"); !ledger.IsIndeterminate(err) {
		t.Fatalf("expected indeterminate error")
	}
	rec, err := f.store.Get(ctx, "cert-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != cache.StatusIssued {
		t.Fatalf("cache flipped on an indeterminate transaction: %+v", rec)
	}
}

func TestRevokeRequiresChainID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.store.Put(ctx, &cache.Record{LocalID: "draft-1", Status: cache.StatusDraft}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := f.issuer.Revoke(ctx, "draft-1"); err != cache.ErrNoChainID {
		t.Fatalf("expected ErrNoChainID, got %v", err)
	}
}

// TestLifecycle walks issue -> verify -> revoke -> verify -> tamper -> verify
// and checks the verdict at each step.
func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.issuer.Issue(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if res.ChainID != 1 {
		t.Fatalf("expected first chain id 1, got %d", res.ChainID)
	}

	verdict, err := f.verifier.Verify(ctx, res.ChainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.OnChainExists || verdict.Revoked || verdict.Expired ||
		!verdict.DigestMatches || !verdict.OverallValid {
		t.Fatalf("fresh certificate verdict wrong: %+v", verdict)
	}

	if _, err := f.issuer.Revoke(ctx, "cert-1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	verdict, err = f.verifier.Verify(ctx, res.ChainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.Revoked || verdict.OverallValid {
		t.Fatalf("revoked certificate verdict wrong: %+v", verdict)
	}
	if !verdict.OnChainExists || verdict.Expired || !verdict.DigestMatches {
		t.Fatalf("revocation disturbed unrelated sub-results: %+v", verdict)
	}

	if !f.content.Tamper(res.MetadataURL, []byte(`{"version":"1","certificate":{"title":"Blockchain 999","description":"","modality":"","hours":0,"issue_date":"","language":""},"recipient":{"name":"","identifier_hash":"","identifier_salt":""},"issuer":{"name":"","department":"","instructors":[],"authorization_id":""},"achievement":{"skills":[],"grade":"","category":""}}`)) {
		t.Fatalf("Tamper: object not found")
	}
	verdict, err = f.verifier.Verify(ctx, res.ChainID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verdict.DigestMatches || verdict.OverallValid {
		t.Fatalf("tampered content verdict wrong: %+v", verdict)
	}
	if verdict.Evidence.ContentOutcome != verify.ContentDigestMismatch {
		t.Fatalf("tampering misclassified: %+v", verdict.Evidence)
	}
}
