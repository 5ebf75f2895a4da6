package testkit

import (
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// MemCAS is an in-memory storage.CAS honoring the full contract, for tests
// and wiring that needs a throwaway backend.
type MemCAS struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

var _ storage.CAS = (*MemCAS)(nil)

func NewMemCAS() *MemCAS {
	return &MemCAS{objects: make(map[cid.Cid][]byte)}
}

func (m *MemCAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id]; !ok {
		m.objects[id] = append([]byte(nil), data...)
	}
	return id, nil
}

func (m *MemCAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemCAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id]
	return ok
}
