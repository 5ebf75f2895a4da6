// Package memcache is an in-memory cache.Store for tests and ephemeral use.
package memcache

import (
	"context"
	"sync"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
)

type Store struct {
	mu      sync.Mutex
	records map[string]cache.Record
}

func New() *Store {
	return &Store{records: map[string]cache.Record{}}
}

func (s *Store) Get(ctx context.Context, localID string) (*cache.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[localID]
	if !ok {
		return nil, cache.ErrNotFound
	}
	out := rec
	if rec.ChainID != nil {
		id := *rec.ChainID
		out.ChainID = &id
	}
	return &out, nil
}

func (s *Store) Put(ctx context.Context, r *cache.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *r
	if r.ChainID != nil {
		id := *r.ChainID
		rec.ChainID = &id
	}
	s.records[r.LocalID] = rec
	return nil
}

func (s *Store) SetStatus(ctx context.Context, localID string, status cache.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[localID]
	if !ok {
		return cache.ErrNotFound
	}
	if rec.ChainID == nil {
		return cache.ErrNoChainID
	}
	rec.Status = status
	s.records[localID] = rec
	return nil
}

func (s *Store) ApplySync(ctx context.Context, localID string, status cache.Status, height uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[localID]
	if !ok {
		return false, cache.ErrNotFound
	}
	if rec.ChainID == nil {
		return false, cache.ErrNoChainID
	}
	if height < rec.SyncedHeight {
		return false, cache.ErrStaleSnapshot
	}

	changed := rec.Status != status
	rec.Status = status
	rec.SyncedHeight = height
	s.records[localID] = rec
	return changed, nil
}
