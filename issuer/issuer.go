// Package issuer orchestrates certificate issuance, revocation, and
// reactivation across the content store, the ledger registry, and the local
// cache.
//
// Ordering is the load-bearing part: content is published and resolvable
// before any ledger transaction is submitted, so the ledger never commits a
// pointer to content that does not exist.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/identity"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/metadata"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// Issuer wires the issuance pipeline together. It holds no per-certificate
// state and may be used concurrently.
type Issuer struct {
	Registry  ledger.Registry
	Publisher storage.Publisher
	Store     cache.Store

	// Now supplies the issuance timestamp; defaults to time.Now.
	Now func() time.Time
}

// Request carries everything needed to issue one certificate.
//
// RawIdentifier is the recipient's private identifier (e.g. national ID).
// It is consumed transiently to derive the identity hash and is never
// stored, logged, or returned.
type Request struct {
	LocalID string

	Course  metadata.Course
	Academy metadata.Academy

	StudentName   string
	RawIdentifier string
	StudentWallet string
	Grade         string

	GraduationDate   int64
	ExpirationHeight *uint64

	// CodeLength overrides the verification code length; zero means the
	// default.
	CodeLength int
}

// Result reports a committed issuance.
//
// VerificationCode, IdentifierHash, and IdentifierSalt are surfaced exactly
// once, here. The code is not recoverable from stored data alone; losing it
// means the recipient identity can no longer be re-proven.
type Result struct {
	ChainID       uint64
	TxID          string
	MetadataURL   string
	ContentDigest string

	VerificationCode string
	IdentifierHash   string
	IdentifierSalt   string
}

// Issue runs the full pipeline: derive identity material, compose and
// canonicalize the document, publish it, commit the issuance transaction,
// and record the local cache row.
//
// A publish failure aborts before any ledger transaction. A ledger failure
// after publish leaves the published content behind, which is harmless:
// content addressing makes the orphaned object inert.
func (i *Issuer) Issue(ctx context.Context, req Request) (Result, error) {
	codeLength := req.CodeLength
	if codeLength == 0 {
		codeLength = identity.DefaultCodeLength
	}
	code, err := identity.GenerateVerificationCode(codeLength)
	if err != nil {
		return Result{}, err
	}
	salt, err := identity.GenerateSalt()
	if err != nil {
		return Result{}, err
	}
	idHash := identity.HashIdentifier(req.RawIdentifier, code, salt)

	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	doc := metadata.Compose(req.Course, metadata.Student{
		Name:           req.StudentName,
		IdentifierHash: idHash,
		IdentifierSalt: salt,
		Grade:          req.Grade,
	}, req.Academy, now())

	canonical, err := metadata.Canonicalize(doc)
	if err != nil {
		return Result{}, err
	}
	digest := metadata.DigestHex(canonical)

	published, err := i.Publisher.Publish(ctx, canonical, "certificate.json")
	if err != nil {
		return Result{}, fmt.Errorf("publishing certificate content: %w", err)
	}

	receipt, err := i.Registry.Issue(ctx, ledger.IssueParams{
		StudentWallet:    req.StudentWallet,
		Grade:            req.Grade,
		GraduationDate:   req.GraduationDate,
		ExpirationHeight: req.ExpirationHeight,
		MetadataURL:      published.URL,
		ContentDigest:    digest,
	})
	if err != nil {
		// Indeterminate failures included: without a chain id there is
		// nothing truthful to cache as issued.
		return Result{}, err
	}

	chainID := receipt.ChainID
	rec := &cache.Record{
		LocalID:       req.LocalID,
		ChainID:       &chainID,
		Status:        cache.StatusIssued,
		StudentName:   req.StudentName,
		CourseRef:     req.Course.Title,
		MetadataURL:   published.URL,
		ContentDigest: digest,
	}
	if err := i.Store.Put(ctx, rec); err != nil {
		// The certificate exists on chain regardless; surface the cache
		// failure with enough context to re-create the row.
		return Result{}, fmt.Errorf("certificate %d committed but local record failed: %w", chainID, err)
	}

	return Result{
		ChainID:          chainID,
		TxID:             receipt.TxID,
		MetadataURL:      published.URL,
		ContentDigest:    digest,
		VerificationCode: code,
		IdentifierHash:   idHash,
		IdentifierSalt:   salt,
	}, nil
}

// Revoke submits a revocation for the certificate under localID and
// optimistically flips the cached status. The flip is provisional;
// reconciliation overwrites it if it disagrees with ledger truth.
func (i *Issuer) Revoke(ctx context.Context, localID string) (ledger.TxReceipt, error) {
	return i.flip(ctx, localID, cache.StatusRevoked, i.Registry.Revoke)
}

// Reactivate clears a revocation the same way.
func (i *Issuer) Reactivate(ctx context.Context, localID string) (ledger.TxReceipt, error) {
	return i.flip(ctx, localID, cache.StatusIssued, i.Registry.Reactivate)
}

func (i *Issuer) flip(ctx context.Context, localID string, status cache.Status, call func(context.Context, uint64) (ledger.TxReceipt, error)) (ledger.TxReceipt, error) {
	rec, err := i.Store.Get(ctx, localID)
	if err != nil {
		return ledger.TxReceipt{}, err
	}
	if rec.ChainID == nil {
		return ledger.TxReceipt{}, cache.ErrNoChainID
	}

	receipt, err := call(ctx, *rec.ChainID)
	if err != nil {
		// An indeterminate failure must not flip the cache: the transaction
		// may or may not have landed, and reconciliation will settle it.
		return ledger.TxReceipt{}, err
	}

	if err := i.Store.SetStatus(ctx, localID, status); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return receipt, fmt.Errorf("transaction %s committed but local status flip failed: %w", receipt.TxID, err)
	}
	return receipt, nil
}
