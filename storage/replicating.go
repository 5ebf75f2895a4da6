package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
)

// NamedCAS associates a CAS with a stable backend name, used where callers
// need per-backend reporting (e.g. publish-time replication receipts).
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every published document to all configured backends.
//
// Reads fall back in order. All backends must return the canonical CID for a
// write, otherwise ErrCIDMismatch is returned: a backend that disagrees about
// content identity must never be trusted silently.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll writes the same bytes to all backends and returns the canonical CID
// plus the per-backend CID map for replication reporting.
func (r ReplicatingCAS) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	perBackend := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		got, err := b.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, nil, fmt.Errorf("storage: backend %s: %w", b.Name, err)
		}
		perBackend[b.Name] = got
		if got != want {
			return cid.Undef, nil, fmt.Errorf("storage: backend %s: %w", b.Name, ErrCIDMismatch)
		}
	}
	return want, perBackend, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		data, err := b.CAS.Get(id)
		if err == nil {
			return data, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS.Has(id) {
			return true
		}
	}
	return false
}
