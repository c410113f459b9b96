// Package dispute handles claims against transactions with a fixed
// resolution deadline and an automatic timeout refund path.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/settlement/events"
	"github.com/paywow/settlement/internal/settlement/metrics"
)

// Refunder applies the compensation action when a dispute ends in the
// claimant's favor. Wired by the orchestrator to the escrow refund path.
type Refunder interface {
	Refund(ctx context.Context, transactionID string) error
}

// RefunderFunc adapts a function to the Refunder interface.
type RefunderFunc func(ctx context.Context, transactionID string) error

func (f RefunderFunc) Refund(ctx context.Context, transactionID string) error {
	return f(ctx, transactionID)
}

// TerminalChecker reports whether the underlying transaction is already in a
// terminal state, in which case filing is rejected.
type TerminalChecker interface {
	IsTerminal(ctx context.Context, transactionID string) (bool, error)
}

// DeadlineIndex tracks resolution deadlines for sweepers. Best effort: index
// failures never fail the filing.
type DeadlineIndex interface {
	Add(ctx context.Context, disputeID string, deadline uint64) error
	Remove(ctx context.Context, disputeID string) error
}

// Config holds the dispute ledger's construction-time state.
type Config struct {
	Owner         string // admin identity for resolution and pause
	DisputeWindow uint64 // ledger sequences from filing to deadline
}

// Ledger is the dispute component. Pause halts all financial movement,
// including timeout refunds; that is a policy decision, not an oversight.
type Ledger struct {
	cfg      Config
	repo     storage.DisputeRepository
	clock    ledger.Clock
	refunder Refunder
	terminal TerminalChecker
	index    DeadlineIndex
	emitter  events.Emitter
	log      *slog.Logger
	paused   bool
	mu       sync.Mutex
}

func New(cfg Config, repo storage.DisputeRepository, clock ledger.Clock, emitter events.Emitter, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Ledger{
		cfg:     cfg,
		repo:    repo,
		clock:   clock,
		emitter: emitter,
		log:     log,
	}
}

// SetRefunder wires the compensation action applied on claimant-favoring
// outcomes.
func (l *Ledger) SetRefunder(r Refunder) { l.refunder = r }

// SetTerminalChecker wires the filing guard against settled transactions.
func (l *Ledger) SetTerminalChecker(c TerminalChecker) { l.terminal = c }

// SetDeadlineIndex wires the sweeper-facing deadline index.
func (l *Ledger) SetDeadlineIndex(i DeadlineIndex) { l.index = i }

// FileDispute records a new claim. The resolution deadline is fixed at
// filing time: filed_at + dispute_window.
func (l *Ledger) FileDispute(ctx context.Context, disputeID, transactionID, claimant, respondent string, amount int64, reason, evidence string) (*domain.Dispute, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return nil, domain.ErrPaused
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := l.repo.Get(ctx, disputeID); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateDispute, disputeID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("dispute lookup: %w", err)
	}
	if l.terminal != nil {
		done, err := l.terminal.IsTerminal(ctx, transactionID)
		if err != nil {
			return nil, fmt.Errorf("transaction check: %w", err)
		}
		if done {
			return nil, fmt.Errorf("%w: transaction %s is terminal", domain.ErrAlreadyFinalized, transactionID)
		}
	}

	now, err := l.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger time: %w", err)
	}
	d := &domain.Dispute{
		DisputeID:          disputeID,
		TransactionID:      transactionID,
		Claimant:           claimant,
		Respondent:         respondent,
		Amount:             amount,
		Reason:             reason,
		Evidence:           evidence,
		FiledAt:            now,
		ResolutionDeadline: now + l.cfg.DisputeWindow,
		Status:             domain.DisputeStatusFiled,
	}
	if err := l.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if l.index != nil {
		if err := l.index.Add(ctx, disputeID, d.ResolutionDeadline); err != nil {
			l.log.Warn("failed to index dispute deadline", "dispute_id", disputeID, "error", err)
		}
	}

	l.emitter.Emit(ctx, domain.EventTypeDisputeFiled, now, map[string]any{
		"dispute_id":          disputeID,
		"transaction_id":      transactionID,
		"claimant":            claimant,
		"amount":              amount,
		"resolution_deadline": d.ResolutionDeadline,
	})
	return d, nil
}

// MarkUnderReview moves a filed dispute into manual review. Owner-only.
func (l *Ledger) MarkUnderReview(ctx context.Context, caller, disputeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	d, err := l.repo.Get(ctx, disputeID)
	if err != nil {
		return err
	}
	if !domain.CanTransitionDispute(d.Status, domain.DisputeStatusUnderReview) {
		return fmt.Errorf("%w: dispute %s is %s", domain.ErrAlreadyResolved, disputeID, d.Status)
	}
	if err := l.repo.UpdateStatus(ctx, disputeID, domain.DisputeStatusUnderReview); err != nil {
		return err
	}

	now, _ := l.clock.Now(ctx)
	l.emitter.Emit(ctx, domain.EventTypeDisputeUnderReview, now, map[string]any{
		"dispute_id": disputeID,
	})
	return nil
}

// ResolveDispute closes a dispute by admin ruling. A claimant-favoring ruling
// triggers the refund action before the status write, so a storage failure
// never strands moved funds behind a terminal dispute.
func (l *Ledger) ResolveDispute(ctx context.Context, caller, disputeID string, favorClaimant bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return domain.ErrPaused
	}
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	d, err := l.repo.Get(ctx, disputeID)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return fmt.Errorf("%w: dispute %s is %s", domain.ErrAlreadyResolved, disputeID, d.Status)
	}

	if favorClaimant {
		if err := l.applyRefund(ctx, d.TransactionID); err != nil {
			return err
		}
	}
	if err := l.repo.UpdateStatus(ctx, disputeID, domain.DisputeStatusResolved); err != nil {
		return err
	}
	l.dropFromIndex(ctx, disputeID)

	now, _ := l.clock.Now(ctx)
	metrics.DisputesByOutcome.WithLabelValues(string(domain.DisputeStatusResolved)).Inc()
	l.emitter.Emit(ctx, domain.EventTypeDisputeResolved, now, map[string]any{
		"dispute_id":     disputeID,
		"favor_claimant": favorClaimant,
		"amount":         d.Amount,
	})
	return nil
}

// RefundOnTimeout refunds a dispute whose resolution deadline has passed
// without a ruling. Callable by anyone; gated by pause like every other
// fund-moving operation.
func (l *Ledger) RefundOnTimeout(ctx context.Context, disputeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return domain.ErrPaused
	}
	d, err := l.repo.Get(ctx, disputeID)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return fmt.Errorf("%w: dispute %s is %s", domain.ErrAlreadyResolved, disputeID, d.Status)
	}
	now, err := l.clock.Now(ctx)
	if err != nil {
		return fmt.Errorf("ledger time: %w", err)
	}
	if now < d.ResolutionDeadline {
		return fmt.Errorf("%w: deadline %d (now %d)", domain.ErrNotYetResolvable, d.ResolutionDeadline, now)
	}

	if err := l.applyRefund(ctx, d.TransactionID); err != nil {
		return err
	}
	if err := l.repo.UpdateStatus(ctx, disputeID, domain.DisputeStatusRefunded); err != nil {
		return err
	}
	l.dropFromIndex(ctx, disputeID)

	metrics.DisputesByOutcome.WithLabelValues(string(domain.DisputeStatusRefunded)).Inc()
	l.emitter.Emit(ctx, domain.EventTypeDisputeRefunded, now, map[string]any{
		"dispute_id": disputeID,
		"claimant":   d.Claimant,
		"amount":     d.Amount,
	})
	return nil
}

// IsResolvable reports whether the timeout refund path is open: deadline
// reached and status non-terminal. Missing disputes are not resolvable.
func (l *Ledger) IsResolvable(ctx context.Context, disputeID string) (bool, error) {
	d, err := l.repo.Get(ctx, disputeID)
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
	return d.Resolvable(now), nil
}

// ListResolvable returns all disputes currently eligible for timeout refund.
func (l *Ledger) ListResolvable(ctx context.Context) ([]*domain.Dispute, error) {
	now, err := l.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger time: %w", err)
	}
	return l.repo.ListExpired(ctx, now)
}

// GetDispute retrieves a dispute.
func (l *Ledger) GetDispute(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	return l.repo.Get(ctx, disputeID)
}

// Pause blocks filing, resolution and timeout refunds. Owner-only.
func (l *Ledger) Pause(ctx context.Context, caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	l.paused = true
	return nil
}

// Unpause lifts the emergency pause. Owner-only.
func (l *Ledger) Unpause(ctx context.Context, caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	l.paused = false
	return nil
}

// Paused reports the pause gate state.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

func (l *Ledger) applyRefund(ctx context.Context, transactionID string) error {
	if l.refunder == nil {
		return nil
	}
	if err := l.refunder.Refund(ctx, transactionID); err != nil {
		// An already-finalized escrow means the funds were returned on an
		// earlier attempt; the dispute record still needs its transition.
		if errors.Is(err, domain.ErrAlreadyFinalized) {
			return nil
		}
		return fmt.Errorf("refund action: %w", err)
	}
	return nil
}

func (l *Ledger) dropFromIndex(ctx context.Context, disputeID string) {
	if l.index == nil {
		return
	}
	if err := l.index.Remove(ctx, disputeID); err != nil {
		l.log.Warn("failed to drop dispute from deadline index", "dispute_id", disputeID, "error", err)
	}
}

func (l *Ledger) requireOwner(caller string) error {
	if caller != l.cfg.Owner {
		return fmt.Errorf("%w: caller %q is not the owner", domain.ErrUnauthorized, caller)
	}
	return nil
}
