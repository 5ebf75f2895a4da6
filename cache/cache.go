// Package cache defines the local certificate cache: a denormalized,
// possibly-stale projection of on-chain certificates plus presentation data
// that does not exist on the ledger.
//
// The cache is never authoritative. Local status flips from revoke and
// reactivate actions are optimistic and provisional; reconciliation
// overwrites them from ledger truth.
package cache

import (
	"context"
	"errors"
)

// Status is the local lifecycle status of a cached certificate.
//
// Draft exists only before a chain id is assigned and has no ledger
// counterpart. Once issued, the status must eventually agree with the
// ledger's revoked flag via StatusFromLedger.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusIssued  Status = "issued"
	StatusRevoked Status = "revoked"
)

// StatusFromLedger is the merge function translating committed ledger state
// into a local status. The ledger is one boolean; the cache is a tagged
// status.
func StatusFromLedger(revoked bool) Status {
	if revoked {
		return StatusRevoked
	}
	return StatusIssued
}

var (
	// ErrNotFound means no cached record exists under the given local id.
	ErrNotFound = errors.New("cache: record not found")

	// ErrNoChainID means the record has no ledger counterpart yet and
	// cannot be revoked, reactivated, or synced.
	ErrNoChainID = errors.New("cache: record has no chain id")

	// ErrStaleSnapshot means an ApplySync carried a ledger snapshot from a
	// height older than one already reconciled. The record is untouched.
	ErrStaleSnapshot = errors.New("cache: ledger snapshot older than last reconciled height")
)

// Record is one cached certificate row.
type Record struct {
	// LocalID is the caller-chosen key, opaque to this package.
	LocalID string

	// ChainID is nil until the issuance transaction commits.
	ChainID *uint64

	Status Status

	// Presentation data, not present on the ledger.
	StudentName string
	CourseRef   string

	MetadataURL   string
	ContentDigest string

	// SyncedHeight is the chain height of the last reconciliation that
	// touched this record. Zero means never reconciled.
	SyncedHeight uint64
}

// Store is the local persistence contract consumed by issuance and
// reconciliation.
//
// Implementations must be safe for concurrent use across distinct local ids.
type Store interface {
	// Get returns the record under localID, or ErrNotFound.
	Get(ctx context.Context, localID string) (*Record, error)

	// Put creates or replaces the record under r.LocalID.
	Put(ctx context.Context, r *Record) error

	// SetStatus flips the local status without touching SyncedHeight. Used
	// for optimistic writes after revoke/reactivate transactions. Fails
	// with ErrNoChainID when the record has no ledger counterpart.
	SetStatus(ctx context.Context, localID string, status Status) error

	// ApplySync records the outcome of a reconciliation that observed the
	// ledger at the given height. The status is written only when height is
	// at least the record's SyncedHeight; an older snapshot fails with
	// ErrStaleSnapshot and leaves the record untouched. The returned bool
	// reports whether the stored status actually changed.
	ApplySync(ctx context.Context, localID string, status Status, height uint64) (bool, error)
}
