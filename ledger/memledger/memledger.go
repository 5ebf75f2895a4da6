// Package memledger is an in-memory certificate registry implementing the
// ledger client contract.
//
// It models the on-chain state machine (nonexistent -> issued ->
// revoked <-> reactivated), a monotonic block height, principal-based
// authorization, and per-academy transaction funding. Intended for tests and
// local development; state lives in process memory only.
package memledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ChristianPDAG/academic-certificates-stacks-sub000/ledger"
)

// Ledger is a shared in-memory chain. Clients bound to different signing
// principals operate on the same state.
type Ledger struct {
	mu        sync.Mutex
	height    uint64
	nextID    uint64
	records   map[uint64]*ledger.OnChainRecord
	academies map[string]*account
	admins    map[string]bool

	// intercept, when set, runs before every operation and aborts it when it
	// returns a non-nil error. Used to inject network faults in tests.
	intercept func(op string) error

	txCost uint64
}

type account struct {
	active bool
	funds  uint64
}

type Options struct {
	// TxCost is deducted from the academy account per transaction.
	// Zero disables funding checks.
	TxCost uint64
	// StartHeight is the chain height before any transaction.
	StartHeight uint64
}

func New(opts Options) *Ledger {
	return &Ledger{
		height:    opts.StartHeight,
		nextID:    1,
		records:   map[uint64]*ledger.OnChainRecord{},
		academies: map[string]*account{},
		admins:    map[string]bool{},
		txCost:    opts.TxCost,
	}
}

// RegisterAcademy activates an academy principal with the given funds.
func (l *Ledger) RegisterAcademy(academyID string, funds uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.academies[academyID] = &account{active: true, funds: funds}
}

// DeactivateAcademy keeps the principal known but no longer authorized.
func (l *Ledger) DeactivateAcademy(academyID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.academies[academyID]; ok {
		acct.active = false
	}
}

// MakeAdmin grants a principal revoke/reactivate rights over every
// certificate.
func (l *Ledger) MakeAdmin(principal string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.admins[principal] = true
}

// AdvanceHeight moves the chain forward by n blocks without a transaction.
func (l *Ledger) AdvanceHeight(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += n
}

// SetIntercept installs a fault hook. The hook receives the operation name
// ("issue", "revoke", "reactivate", "get", "height") and aborts the call by
// returning a non-nil error. Pass nil to clear.
func (l *Ledger) SetIntercept(fn func(op string) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intercept = fn
}

// Client returns a registry bound to the given signing credential. The
// credential's principal is the academy identity used for authorization.
func (l *Ledger) Client(signer ledger.Signer) ledger.Registry {
	return &client{ledger: l, signer: signer}
}

type client struct {
	ledger *Ledger
	signer ledger.Signer
}

func (c *client) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return ledger.WrapError(ledger.KindNetwork, "ledger call aborted", err)
	}
	if c.ledger.intercept != nil {
		if err := c.ledger.intercept(op); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) Issue(ctx context.Context, params ledger.IssueParams) (ledger.IssueReceipt, error) {
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := c.begin(ctx, "issue"); err != nil {
		return ledger.IssueReceipt{}, err
	}

	principal := c.signer.Principal()
	acct, ok := l.academies[principal]
	if !ok || !acct.active {
		return ledger.IssueReceipt{}, ledger.NewError(ledger.KindNotAuthorized,
			fmt.Sprintf("academy %q is not registered or inactive", principal))
	}
	if l.txCost > 0 && acct.funds < l.txCost {
		return ledger.IssueReceipt{}, ledger.NewError(ledger.KindInsufficientFunds,
			fmt.Sprintf("academy %q cannot cover transaction cost", principal))
	}

	if _, err := c.signer.Sign([]byte(fmt.Sprintf("issue:%s:%s", params.StudentWallet, params.ContentDigest))); err != nil {
		return ledger.IssueReceipt{}, ledger.WrapError(ledger.KindNotAuthorized, "signing failed", err)
	}

	if l.txCost > 0 {
		acct.funds -= l.txCost
	}
	l.height++
	id := l.nextID
	l.nextID++

	rec := &ledger.OnChainRecord{
		AcademyID:      principal,
		StudentWallet:  params.StudentWallet,
		Grade:          params.Grade,
		GraduationDate: params.GraduationDate,
		MetadataURL:    params.MetadataURL,
		ContentDigest:  params.ContentDigest,
		IssuedAtHeight: l.height,
	}
	if params.ExpirationHeight != nil {
		h := *params.ExpirationHeight
		rec.ExpirationHeight = &h
	}
	l.records[id] = rec

	return ledger.IssueReceipt{ChainID: id, TxID: fmt.Sprintf("tx-%d", l.height)}, nil
}

func (c *client) Revoke(ctx context.Context, chainID uint64) (ledger.TxReceipt, error) {
	return c.setRevoked(ctx, "revoke", chainID, true)
}

func (c *client) Reactivate(ctx context.Context, chainID uint64) (ledger.TxReceipt, error) {
	return c.setRevoked(ctx, "reactivate", chainID, false)
}

func (c *client) setRevoked(ctx context.Context, op string, chainID uint64, revoked bool) (ledger.TxReceipt, error) {
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := c.begin(ctx, op); err != nil {
		return ledger.TxReceipt{}, err
	}

	rec, ok := l.records[chainID]
	if !ok {
		return ledger.TxReceipt{}, ledger.NewError(ledger.KindNotFound,
			fmt.Sprintf("certificate %d does not exist", chainID))
	}

	principal := c.signer.Principal()
	if rec.AcademyID != principal && !l.admins[principal] {
		return ledger.TxReceipt{}, ledger.NewError(ledger.KindNotAuthorized,
			fmt.Sprintf("principal %q is not the issuing academy of certificate %d", principal, chainID))
	}

	l.height++
	receipt := ledger.TxReceipt{TxID: fmt.Sprintf("tx-%d", l.height)}
	if rec.Revoked == revoked {
		receipt.AlreadyInState = true
		return receipt, nil
	}
	rec.Revoked = revoked
	return receipt, nil
}

func (c *client) Get(ctx context.Context, chainID uint64) (*ledger.OnChainRecord, error) {
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := c.begin(ctx, "get"); err != nil {
		return nil, err
	}

	rec, ok := l.records[chainID]
	if !ok {
		return nil, nil
	}
	out := *rec
	if rec.ExpirationHeight != nil {
		h := *rec.ExpirationHeight
		out.ExpirationHeight = &h
	}
	return &out, nil
}

func (c *client) IsValid(ctx context.Context, chainID uint64) (bool, error) {
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := c.begin(ctx, "get"); err != nil {
		return false, err
	}

	rec, ok := l.records[chainID]
	if !ok {
		return false, nil
	}
	return !rec.Revoked && !rec.Expired(l.height), nil
}

func (c *client) Height(ctx context.Context) (uint64, error) {
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := c.begin(ctx, "height"); err != nil {
		return 0, err
	}
	return l.height, nil
}
