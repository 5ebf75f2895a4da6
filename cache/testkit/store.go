// Package testkit provides a shared conformance suite for cache.Store
// implementations.
package testkit

import (
	"context"
	"errors"
	"testing"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
)

// NewStore constructs a fresh, empty store for a test.
// The returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) cache.Store

// RunStoreConformance exercises the cache.Store contract against any backend.
func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	chainID := func(id uint64) *uint64 { return &id }

	issued := func(localID string) *cache.Record {
		return &cache.Record{
			LocalID:       localID,
			ChainID:       chainID(1),
			Status:        cache.StatusIssued,
			StudentName:   "Ana Ruiz",
			CourseRef:     "course-42",
			MetadataURL:   "cas://bafy.../certificate.json",
			ContentDigest: "ab12cd34",
		}
	}

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		want := issued("cert-1")
		if err := store.Put(ctx, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := store.Get(ctx, "cert-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != want.Status || got.StudentName != want.StudentName ||
			got.CourseRef != want.CourseRef || got.MetadataURL != want.MetadataURL ||
			got.ContentDigest != want.ContentDigest {
			t.Fatalf("record mismatch: got %+v want %+v", got, want)
		}
		if got.ChainID == nil || *got.ChainID != 1 {
			t.Fatalf("chain id lost: %+v", got.ChainID)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(ctx, "nope"); !errors.Is(err, cache.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutReplacesExisting", func(t *testing.T) {
		store := newStore(t)
		rec := issued("cert-1")
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		rec.Status = cache.StatusRevoked
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("second Put failed: %v", err)
		}
		got, err := store.Get(ctx, "cert-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != cache.StatusRevoked {
			t.Fatalf("replacement not applied: %+v", got)
		}
	})

	t.Run("SetStatusOptimisticFlip", func(t *testing.T) {
		store := newStore(t)
		if err := store.Put(ctx, issued("cert-1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := store.SetStatus(ctx, "cert-1", cache.StatusRevoked); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		got, err := store.Get(ctx, "cert-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != cache.StatusRevoked {
			t.Fatalf("status flip not applied: %+v", got)
		}
		if got.SyncedHeight != 0 {
			t.Fatalf("optimistic flip must not touch SyncedHeight: %+v", got)
		}
	})

	t.Run("DraftHasNoLedgerCounterpart", func(t *testing.T) {
		store := newStore(t)
		draft := &cache.Record{LocalID: "draft-1", Status: cache.StatusDraft, StudentName: "Ana Ruiz"}
		if err := store.Put(ctx, draft); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := store.SetStatus(ctx, "draft-1", cache.StatusRevoked); !errors.Is(err, cache.ErrNoChainID) {
			t.Fatalf("expected ErrNoChainID from SetStatus, got %v", err)
		}
		if _, err := store.ApplySync(ctx, "draft-1", cache.StatusIssued, 10); !errors.Is(err, cache.ErrNoChainID) {
			t.Fatalf("expected ErrNoChainID from ApplySync, got %v", err)
		}
	})

	t.Run("ApplySyncReportsChange", func(t *testing.T) {
		store := newStore(t)
		if err := store.Put(ctx, issued("cert-1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		changed, err := store.ApplySync(ctx, "cert-1", cache.StatusRevoked, 100)
		if err != nil {
			t.Fatalf("ApplySync failed: %v", err)
		}
		if !changed {
			t.Fatalf("expected change from issued to revoked")
		}

		changed, err = store.ApplySync(ctx, "cert-1", cache.StatusRevoked, 110)
		if err != nil {
			t.Fatalf("ApplySync failed: %v", err)
		}
		if changed {
			t.Fatalf("no-op sync reported a change")
		}

		got, err := store.Get(ctx, "cert-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.SyncedHeight != 110 {
			t.Fatalf("SyncedHeight not advanced: %+v", got)
		}
	})

	t.Run("ApplySyncRejectsStaleSnapshot", func(t *testing.T) {
		store := newStore(t)
		if err := store.Put(ctx, issued("cert-1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		if _, err := store.ApplySync(ctx, "cert-1", cache.StatusRevoked, 150); err != nil {
			t.Fatalf("ApplySync failed: %v", err)
		}
		if _, err := store.ApplySync(ctx, "cert-1", cache.StatusIssued, 100); !errors.Is(err, cache.ErrStaleSnapshot) {
			t.Fatalf("expected ErrStaleSnapshot, got %v", err)
		}

		got, err := store.Get(ctx, "cert-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != cache.StatusRevoked || got.SyncedHeight != 150 {
			t.Fatalf("stale snapshot clobbered the record: %+v", got)
		}
	})
}
