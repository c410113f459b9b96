// Package worker holds background loops that run beside the settlement
// engine.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
)

// DisputeSource lists disputes eligible for a timeout refund.
type DisputeSource interface {
	ListResolvable(ctx context.Context) ([]*domain.Dispute, error)
}

// TimeoutRefunder applies the timeout refund for one dispute.
type TimeoutRefunder interface {
	RefundOnTimeout(ctx context.Context, disputeID string) error
}

// DeadlineIndex is an optional fast path for finding due disputes without a
// table scan.
type DeadlineIndex interface {
	Due(ctx context.Context, now uint64) ([]string, error)
}

// Sweeper periodically refunds disputes whose resolution deadline has passed
// without a ruling. Every refund goes through the orchestrator, so the
// transaction log stays consistent with the dispute outcome.
type Sweeper struct {
	interval time.Duration
	source   DisputeSource
	refunder TimeoutRefunder
	index    DeadlineIndex // optional
	clock    ledger.Clock
	log      *slog.Logger
}

// NewSweeper creates a new dispute timeout sweeper.
func NewSweeper(interval time.Duration, source DisputeSource, refunder TimeoutRefunder, clock ledger.Clock, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		interval: interval,
		source:   source,
		refunder: refunder,
		clock:    clock,
		log:      log,
	}
}

// SetDeadlineIndex wires the optional deadline index.
func (s *Sweeper) SetDeadlineIndex(i DeadlineIndex) { s.index = i }

// Start runs the sweeper loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return // Sweeping disabled
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sweep
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep refunds every dispute currently past its deadline. One failing
// dispute never blocks the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.dueDisputes(ctx)
	if err != nil {
		s.log.Error("sweep failed to list due disputes", "error", err)
		return
	}

	for _, id := range ids {
		err := s.refunder.RefundOnTimeout(ctx, id)
		switch {
		case err == nil:
			s.log.Info("dispute refunded on timeout", "dispute_id", id)
		case errors.Is(err, domain.ErrPaused):
			// The pause gate covers timeout refunds; try again next tick.
			return
		case errors.Is(err, domain.ErrAlreadyResolved), errors.Is(err, domain.ErrNotYetResolvable):
			// Resolved between listing and refund, or a stale index entry.
		default:
			s.log.Error("sweep failed to refund dispute", "dispute_id", id, "error", err)
		}
	}
}

func (s *Sweeper) dueDisputes(ctx context.Context) ([]string, error) {
	if s.index != nil {
		now, err := s.clock.Now(ctx)
		if err != nil {
			return nil, err
		}
		return s.index.Due(ctx, now)
	}

	disputes, err := s.source.ListResolvable(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(disputes))
	for _, d := range disputes {
		ids = append(ids, d.DisputeID)
	}
	return ids, nil
}
