// Package reconcile keeps the local certificate cache consistent with ledger
// truth.
//
// Reconciliation is one-directional: the ledger always wins. Optimistic
// local status flips are provisional and are overwritten whenever a sync
// observes disagreement.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/cache"
	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// Engine reconciles cached records against committed ledger state.
// It is stateless; a single Engine may be used concurrently for distinct
// local ids.
type Engine struct {
	Registry ledger.Reader
	Store    cache.Store
}

// Result reports the outcome of one sync.
type Result struct {
	// Changed is true when the stored status was overwritten with a
	// different ledger-derived status.
	Changed bool

	// Stale is true when the ledger snapshot was older than one already
	// reconciled; the record was left untouched.
	Stale bool

	// Status is the ledger-derived status for the record (the stored status
	// after a non-stale sync).
	Status cache.Status

	// Height is the chain height at which ledger state was observed.
	Height uint64
}

// Sync fetches ledger truth for the record under localID and overwrites the
// local status when they disagree.
//
// The observed chain height is captured before the record read, so the
// snapshot height can only understate how fresh the observation is. A
// transient ledger failure leaves the record untouched and is returned as-is;
// the caller decides whether and when to retry.
func (e *Engine) Sync(ctx context.Context, localID string) (Result, error) {
	rec, err := e.Store.Get(ctx, localID)
	if err != nil {
		return Result{}, err
	}
	if rec.ChainID == nil {
		return Result{}, cache.ErrNoChainID
	}

	height, err := e.Registry.Height(ctx)
	if err != nil {
		return Result{}, err
	}
	onChain, err := e.Registry.Get(ctx, *rec.ChainID)
	if err != nil {
		return Result{}, err
	}
	if onChain == nil {
		// Ledger ids never transition back to nonexistent; a cached chain id
		// the ledger does not know is corrupt local state, not staleness.
		return Result{}, ledger.NewError(ledger.KindNotFound,
			fmt.Sprintf("cached chain id %d is unknown to the ledger", *rec.ChainID))
	}

	derived := cache.StatusFromLedger(onChain.Revoked)

	// Write only on full, checked success. A cancelled caller must not leave
	// a partially reconciled record behind.
	if err := ctx.Err(); err != nil {
		return Result{}, ledger.WrapError(ledger.KindNetwork, "sync aborted before write", err)
	}

	changed, err := e.Store.ApplySync(ctx, localID, derived, height)
	if err != nil {
		if errors.Is(err, cache.ErrStaleSnapshot) {
			return Result{Stale: true, Status: derived, Height: height}, nil
		}
		return Result{}, err
	}
	return Result{Changed: changed, Status: derived, Height: height}, nil
}
