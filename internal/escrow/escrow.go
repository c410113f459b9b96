// Package escrow manages custodial holds: funds locked per transaction id
// until released to a recipient or refunded to the depositor.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/infra/token"
	"github.com/paywow/settlement/internal/settlement/events"
	"github.com/paywow/settlement/internal/settlement/metrics"
)

// Config holds the escrow ledger's construction-time state.
type Config struct {
	Owner          string // authorized release identity (confirmed-delivery path)
	CustodyAccount string // account holding locked funds
}

// Ledger is the escrow component. One mutex serializes mutations so each
// escrow account transitions under one call at a time.
type Ledger struct {
	cfg     Config
	tokens  token.Service
	repo    storage.EscrowRepository
	clock   ledger.Clock
	emitter events.Emitter
	log     *slog.Logger
	mu      sync.Mutex
}

func New(cfg Config, tokens token.Service, repo storage.EscrowRepository, clock ledger.Clock, emitter events.Emitter, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Ledger{
		cfg:     cfg,
		tokens:  tokens,
		repo:    repo,
		clock:   clock,
		emitter: emitter,
		log:     log,
	}
}

// CreateEscrow locks amount of asset from owner until lockedUntil.
// The transaction id must be unused and lockedUntil must be in the future.
func (l *Ledger) CreateEscrow(ctx context.Context, transactionID, owner string, amount int64, asset string, lockedUntil uint64) (*domain.EscrowAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now, err := l.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger time: %w", err)
	}
	if lockedUntil <= now {
		return nil, fmt.Errorf("%w: locked_until %d is not after ledger %d", domain.ErrInvalidAmount, lockedUntil, now)
	}
	if _, err := l.repo.Get(ctx, transactionID); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTransaction, transactionID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("escrow lookup: %w", err)
	}

	if err := l.tokens.Transfer(ctx, asset, owner, l.cfg.CustodyAccount, amount); err != nil {
		return nil, fmt.Errorf("%w: lock: %v", domain.ErrTransferFailed, err)
	}

	account := &domain.EscrowAccount{
		TransactionID: transactionID,
		Owner:         owner,
		Balance:       amount,
		Asset:         asset,
		LockedUntil:   lockedUntil,
		Status:        domain.EscrowStatusLocked,
		CreatedAt:     now,
	}
	if err := l.repo.Create(ctx, account); err != nil {
		// Record failed after funds moved into custody; undo the lock.
		if rerr := l.tokens.Transfer(ctx, asset, l.cfg.CustodyAccount, owner, amount); rerr != nil {
			l.log.Error("failed to unwind escrow lock", "transaction_id", transactionID, "error", rerr)
		}
		return nil, fmt.Errorf("record escrow: %w", err)
	}

	metrics.EscrowsActive.Inc()
	l.emitter.Emit(ctx, domain.EventTypeEscrowCreated, now, map[string]any{
		"transaction_id": transactionID,
		"owner":          owner,
		"amount":         amount,
		"locked_until":   lockedUntil,
	})
	return account, nil
}

// ReleaseEscrow pays the locked balance out to recipient. The configured
// owner identity (the confirmed-delivery path) may release at any time;
// anyone else must wait for lockedUntil. Terminal escrows always fail with
// ErrAlreadyFinalized, never double-transfer.
func (l *Ledger) ReleaseEscrow(ctx context.Context, caller, transactionID, recipient string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.repo.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if account.Status.Terminal() {
		return fmt.Errorf("%w: escrow %s is %s", domain.ErrAlreadyFinalized, transactionID, account.Status)
	}
	now, err := l.clock.Now(ctx)
	if err != nil {
		return fmt.Errorf("ledger time: %w", err)
	}
	if caller != l.cfg.Owner && now < account.LockedUntil {
		return fmt.Errorf("%w: until ledger %d (now %d)", domain.ErrFundsLocked, account.LockedUntil, now)
	}

	if err := l.tokens.Transfer(ctx, account.Asset, l.cfg.CustodyAccount, recipient, account.Balance); err != nil {
		return fmt.Errorf("%w: release: %v", domain.ErrTransferFailed, err)
	}
	if err := l.repo.Finalize(ctx, transactionID, domain.EscrowStatusReleased); err != nil {
		return fmt.Errorf("finalize escrow: %w", err)
	}

	metrics.EscrowsActive.Dec()
	l.emitter.Emit(ctx, domain.EventTypeEscrowReleased, now, map[string]any{
		"transaction_id": transactionID,
		"recipient":      recipient,
		"amount":         account.Balance,
	})
	return nil
}

// RefundEscrow returns the locked balance to the depositor. Only the
// depositor or the configured owner may refund.
func (l *Ledger) RefundEscrow(ctx context.Context, caller, transactionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.repo.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if account.Status.Terminal() {
		return fmt.Errorf("%w: escrow %s is %s", domain.ErrAlreadyFinalized, transactionID, account.Status)
	}
	if caller != account.Owner && caller != l.cfg.Owner {
		return fmt.Errorf("%w: caller %q may not refund escrow %s", domain.ErrUnauthorized, caller, transactionID)
	}

	if err := l.tokens.Transfer(ctx, account.Asset, l.cfg.CustodyAccount, account.Owner, account.Balance); err != nil {
		return fmt.Errorf("%w: refund: %v", domain.ErrTransferFailed, err)
	}
	if err := l.repo.Finalize(ctx, transactionID, domain.EscrowStatusRefunded); err != nil {
		return fmt.Errorf("finalize escrow: %w", err)
	}

	now, _ := l.clock.Now(ctx)
	metrics.EscrowsActive.Dec()
	l.emitter.Emit(ctx, domain.EventTypeEscrowRefunded, now, map[string]any{
		"transaction_id": transactionID,
		"owner":          account.Owner,
		"amount":         account.Balance,
	})
	return nil
}

// IsLocked reports whether the escrow holds funds and the unlock sequence
// has not been reached. Missing or terminal escrows are not locked.
func (l *Ledger) IsLocked(ctx context.Context, transactionID string) (bool, error) {
	account, err := l.repo.Get(ctx, transactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	now, err := l.clock.Now(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger time: %w", err)
	}
	return account.Status == domain.EscrowStatusLocked && now < account.LockedUntil, nil
}

// GetEscrow retrieves an escrow account.
func (l *Ledger) GetEscrow(ctx context.Context, transactionID string) (*domain.EscrowAccount, error) {
	return l.repo.Get(ctx, transactionID)
}
