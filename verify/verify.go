// Package verify reconstructs certificate validity from the ledger and the
// content store, and proves it with a full evidence trail.
//
// Verification is a pure, single-shot read-and-check: no retries, no cache
// writes. Callers needing retry or backoff wrap the call.
package verify

import (
	"context"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/metadata"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// ContentOutcome classifies what happened to the off-chain document check.
//
// Unavailability and mismatch are deliberately distinct: an unreachable or
// lost document implies loss, a reachable document with the wrong digest
// implies tampering.
type ContentOutcome string

const (
	// ContentNotChecked means verification short-circuited before fetching.
	ContentNotChecked ContentOutcome = "not_checked"
	// ContentOK means the document was fetched and its digest matches the
	// on-chain digest.
	ContentOK ContentOutcome = "ok"
	// ContentUnavailable means the document could not be fetched.
	ContentUnavailable ContentOutcome = "unavailable"
	// ContentMalformed means bytes were fetched but do not parse as a
	// certificate document.
	ContentMalformed ContentOutcome = "malformed"
	// ContentDigestMismatch means the fetched document's recomputed digest
	// differs from the on-chain digest.
	ContentDigestMismatch ContentOutcome = "digest_mismatch"
)

// Evidence is everything the verifier observed while reaching its verdict.
type Evidence struct {
	ChainID       uint64
	Record        *ledger.OnChainRecord
	CurrentHeight uint64

	ContentOutcome ContentOutcome
	// ContentError is the fetch/parse failure, if any.
	ContentError string
	// RecomputedDigest is the hex digest of the re-canonicalized fetched
	// document; empty when the content was not checked or unavailable.
	RecomputedDigest string
}

// Verdict is the ephemeral result of one verification. Each sub-result is
// exposed separately; callers must never collapse them into a single
// boolean, since "revoked", "expired", and "tampered" need different
// user-facing messaging.
type Verdict struct {
	OnChainExists bool
	Revoked       bool
	Expired       bool
	DigestMatches bool
	OverallValid  bool

	Evidence Evidence
}

// Verifier checks certificates against ledger truth and published content.
// It is stateless and safe for concurrent use.
type Verifier struct {
	Registry ledger.Reader
	Fetcher  storage.Fetcher
}

// Verify resolves the certificate under chainID and checks existence,
// revocation, expiration, and content integrity.
//
// A never-issued id short-circuits: the verdict reports OnChainExists false
// and no content fetch is attempted. A ledger read failure is returned as an
// error, since without ledger truth no honest verdict exists.
func (v *Verifier) Verify(ctx context.Context, chainID uint64) (Verdict, error) {
	verdict := Verdict{
		Evidence: Evidence{ChainID: chainID, ContentOutcome: ContentNotChecked},
	}

	rec, err := v.Registry.Get(ctx, chainID)
	if err != nil {
		return Verdict{}, err
	}
	if rec == nil {
		return verdict, nil
	}
	verdict.OnChainExists = true
	verdict.Revoked = rec.Revoked
	verdict.Evidence.Record = rec

	height, err := v.Registry.Height(ctx)
	if err != nil {
		return Verdict{}, err
	}
	verdict.Evidence.CurrentHeight = height
	verdict.Expired = rec.Expired(height)

	v.checkContent(ctx, rec, &verdict)

	verdict.OverallValid = verdict.OnChainExists && !verdict.Revoked &&
		!verdict.Expired && verdict.DigestMatches
	return verdict, nil
}

func (v *Verifier) checkContent(ctx context.Context, rec *ledger.OnChainRecord, verdict *Verdict) {
	data, err := v.Fetcher.Fetch(ctx, rec.MetadataURL)
	if err != nil {
		verdict.Evidence.ContentOutcome = ContentUnavailable
		verdict.Evidence.ContentError = err.Error()
		return
	}

	doc, err := metadata.Parse(data)
	if err != nil {
		verdict.Evidence.ContentOutcome = ContentMalformed
		verdict.Evidence.ContentError = err.Error()
		return
	}
	canonical, err := metadata.Canonicalize(doc)
	if err != nil {
		verdict.Evidence.ContentOutcome = ContentMalformed
		verdict.Evidence.ContentError = err.Error()
		return
	}

	recomputed := metadata.DigestHex(canonical)
	verdict.Evidence.RecomputedDigest = recomputed
	if recomputed != rec.ContentDigest {
		verdict.Evidence.ContentOutcome = ContentDigestMismatch
		return
	}
	verdict.Evidence.ContentOutcome = ContentOK
	verdict.DigestMatches = true
}
