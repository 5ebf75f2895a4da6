// Package bulk applies revoke/reactivate actions to batches of certificates
// with per-item isolation.
//
// Each certificate id is one independent ledger transaction. A failure on
// one id never aborts or rolls back the others; there is no all-or-nothing
// semantics at this layer.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// Action selects the per-item ledger transaction.
type Action string

const (
	ActionRevoke     Action = "revoke"
	ActionReactivate Action = "reactivate"
)

// ItemError records one failed id with its typed cause.
type ItemError struct {
	ChainID uint64
	// Kind is the registry error category when the failure was typed,
	// empty otherwise.
	Kind    ledger.Kind
	Message string
}

// Report aggregates one batch. Errors appear in input order. Total failure
// is still a successful call, with SuccessCount zero.
type Report struct {
	SuccessCount int
	FailedCount  int
	Errors       []ItemError

	// AlreadyInState lists ids whose transaction succeeded but changed
	// nothing (e.g. revoking an already-revoked certificate). These count
	// as successes; the ids are surfaced for bookkeeping.
	AlreadyInState []uint64
}

// Failed reports whether chainID appears in the error list.
func (r *Report) Failed(chainID uint64) bool {
	for _, e := range r.Errors {
		if e.ChainID == chainID {
			return true
		}
	}
	return false
}

// Coordinator applies bulk actions against a registry.
type Coordinator struct {
	Registry ledger.Registry

	// Workers caps concurrent ledger transactions. Zero or one means
	// sequential processing. Regardless of concurrency, the report is
	// assembled in input order.
	Workers int
}

type itemResult struct {
	err            error
	alreadyInState bool
}

// Apply runs the action over every id and aggregates the outcome. It returns
// an error only for an unknown action; per-item failures live in the report.
func (c *Coordinator) Apply(ctx context.Context, action Action, chainIDs []uint64) (Report, error) {
	var call func(context.Context, uint64) (ledger.TxReceipt, error)
	switch action {
	case ActionRevoke:
		call = c.Registry.Revoke
	case ActionReactivate:
		call = c.Registry.Reactivate
	default:
		return Report{}, fmt.Errorf("bulk: unknown action %q", action)
	}

	results := make([]itemResult, len(chainIDs))

	if c.Workers > 1 {
		sem := make(chan struct{}, c.Workers)
		var wg sync.WaitGroup
		for i, id := range chainIDs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, id uint64) {
				defer wg.Done()
				defer func() { <-sem }()
				receipt, err := call(ctx, id)
				results[i] = itemResult{err: err, alreadyInState: receipt.AlreadyInState}
			}(i, id)
		}
		wg.Wait()
	} else {
		for i, id := range chainIDs {
			receipt, err := call(ctx, id)
			results[i] = itemResult{err: err, alreadyInState: receipt.AlreadyInState}
		}
	}

	var report Report
	for i, res := range results {
		if res.err != nil {
			report.FailedCount++
			item := ItemError{ChainID: chainIDs[i], Message: res.err.Error()}
			var lerr *ledger.Error
			if errors.As(res.err, &lerr) {
				item.Kind = lerr.Kind
			}
			report.Errors = append(report.Errors, item)
			continue
		}
		report.SuccessCount++
		if res.alreadyInState {
			report.AlreadyInState = append(report.AlreadyInState, chainIDs[i])
		}
	}
	return report, nil
}
