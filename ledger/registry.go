// Package ledger defines the client contract for the on-chain certificate
// registry.
//
// The registry is the authoritative source for certificate existence,
// revocation, expiration, and the off-chain content pointer. Issuance,
// revocation, and reactivation are ledger transactions; reads are queries
// against committed state. Authorization is enforced ledger-side against the
// signing principal and is not re-checked here.
//
// The state machine per certificate id is:
//
//	nonexistent -> issued -> { revoked <-> reactivated }
//
// There is no transition back to nonexistent. Expiration is a derived
// predicate over current chain height, not a stored state.
package ledger

import "context"

// OnChainRecord is the committed ledger state for one certificate.
// Every field except Revoked is immutable once the issuance transaction
// commits.
type OnChainRecord struct {
	AcademyID     string
	StudentWallet string
	Grade         string
	// GraduationDate is a unix timestamp in seconds.
	GraduationDate int64
	// ExpirationHeight is the last block height at which the certificate is
	// still valid. Nil means the certificate never expires.
	ExpirationHeight *uint64
	MetadataURL      string
	// ContentDigest is the hex sha-256 of the canonical metadata document at
	// publish time.
	ContentDigest  string
	Revoked        bool
	IssuedAtHeight uint64
}

// Expired reports whether the record is past its expiration at the given
// chain height. A certificate is still valid at exactly ExpirationHeight.
func (r *OnChainRecord) Expired(currentHeight uint64) bool {
	if r == nil || r.ExpirationHeight == nil {
		return false
	}
	return currentHeight > *r.ExpirationHeight
}

// IssueParams are the immutable fields committed by an issuance transaction.
// The academy principal comes from the registry client's signing credential,
// not from the params.
type IssueParams struct {
	StudentWallet    string
	Grade            string
	GraduationDate   int64
	ExpirationHeight *uint64
	MetadataURL      string
	ContentDigest    string
}

// IssueReceipt reports a committed issuance.
type IssueReceipt struct {
	// ChainID is the ledger-assigned certificate identity, immutable once
	// assigned.
	ChainID uint64
	TxID    string
}

// TxReceipt reports a committed revoke or reactivate transaction.
type TxReceipt struct {
	TxID string
	// AlreadyInState is true when the certificate was already in the
	// requested state. The ledger treats this as success; callers may want
	// it for bookkeeping.
	AlreadyInState bool
}

// Registry is the certificate registry client contract.
//
// All errors from transaction-submitting methods are *Error values; callers
// branch on Kind. A KindNetwork error from Issue, Revoke, or Reactivate is
// indeterminate: the transaction may still land.
type Registry interface {
	// Issue submits an issuance transaction signed by the academy credential.
	// Fails with KindInsufficientFunds, KindNotAuthorized, or KindNetwork.
	Issue(ctx context.Context, params IssueParams) (IssueReceipt, error)

	// Revoke marks the certificate revoked. Revoking an already-revoked
	// certificate is not an error; the receipt reports AlreadyInState.
	// Fails with KindNotAuthorized, KindNotFound, or KindNetwork.
	Revoke(ctx context.Context, chainID uint64) (TxReceipt, error)

	// Reactivate clears the revoked flag. Same semantics as Revoke.
	Reactivate(ctx context.Context, chainID uint64) (TxReceipt, error)

	// Get returns the committed record for chainID, or (nil, nil) if the id
	// was never issued. A read failure is KindNetwork, never (nil, nil).
	Get(ctx context.Context, chainID uint64) (*OnChainRecord, error)

	// IsValid reports whether the record exists, is not revoked, and is not
	// past its expiration at the current chain height. The expiration check
	// is recomputed against current height on every call.
	IsValid(ctx context.Context, chainID uint64) (bool, error)

	// Height returns the current chain height. Implementations must query
	// the ledger, never estimate from wall-clock time.
	Height(ctx context.Context) (uint64, error)
}

// Reader is the read-only subset of Registry, sufficient for verification
// and reconciliation.
type Reader interface {
	Get(ctx context.Context, chainID uint64) (*OnChainRecord, error)
	Height(ctx context.Context) (uint64, error)
}
