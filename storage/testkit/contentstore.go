package testkit

import (
	"context"
	"sync"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cidutil"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/storage"
)

// ContentStore is an in-memory, deliberately mutable content store for tests.
//
// Unlike a real CAS it allows Tamper and Lose so verifier tests can simulate
// an integrity violation and a content outage independently. Safe for
// concurrent use.
type ContentStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	offline bool
}

var (
	_ storage.Publisher = (*ContentStore)(nil)
	_ storage.Fetcher   = (*ContentStore)(nil)
)

func NewContentStore() *ContentStore {
	return &ContentStore{objects: make(map[string][]byte)}
}

func (s *ContentStore) Publish(ctx context.Context, data []byte, filename string) (storage.PublishedObject, error) {
	if err := ctx.Err(); err != nil {
		return storage.PublishedObject{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return storage.PublishedObject{}, storage.ErrUnavailable
	}
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return storage.PublishedObject{}, err
	}
	u := storage.ObjectURL(id, filename)
	s.objects[u] = append([]byte(nil), data...)
	return storage.PublishedObject{ContentID: id, URL: u}, nil
}

func (s *ContentStore) Fetch(ctx context.Context, objectURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, storage.ErrUnavailable
	}
	b, ok := s.objects[objectURL]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Tamper replaces the stored bytes at objectURL without changing the URL,
// simulating a store that violates the immutability assumption.
func (s *ContentStore) Tamper(objectURL string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectURL]; !ok {
		return false
	}
	s.objects[objectURL] = append([]byte(nil), data...)
	return true
}

// Lose drops the object entirely, simulating content loss.
func (s *ContentStore) Lose(objectURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectURL)
}

// SetOffline makes all subsequent calls fail with ErrUnavailable.
func (s *ContentStore) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}
