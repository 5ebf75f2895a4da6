package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable store for canonical certificate
// metadata documents.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable; the ledger's digest pointer depends on it.
// - CIDs MUST be derived from the bytes written (callers supply canonical bytes).
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
