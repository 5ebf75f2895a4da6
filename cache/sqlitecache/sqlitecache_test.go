package sqlitecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache/testkit"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestConformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) cache.Store {
		t.Helper()
		return newStore(t)
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id := uint64(7)
	rec := &cache.Record{
		LocalID:       "cert-1",
		ChainID:       &id,
		Status:        cache.StatusIssued,
		StudentName:   "Ana Ruiz",
		CourseRef:     "course-42",
		MetadataURL:   "cas://bafy.../certificate.json",
		ContentDigest: "ab12cd34",
		SyncedHeight:  120,
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "cert-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.ChainID == nil || *got.ChainID != 7 {
		t.Fatalf("chain id lost across reopen: %+v", got.ChainID)
	}
	if got.Status != cache.StatusIssued || got.SyncedHeight != 120 {
		t.Fatalf("record mutated across reopen: %+v", got)
	}
}
