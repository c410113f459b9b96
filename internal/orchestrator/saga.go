package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/settlement/metrics"
)

// recordStep writes a step outcome to the durable log. The log is advisory
// for recovery; a write failure must not fail the flow it describes.
func (o *Orchestrator) recordStep(ctx context.Context, transactionID string, name domain.StepName, status domain.StepStatus, points uint64, beneficiary string, stepErr error, now uint64) {
	step := &domain.SagaStep{
		StepID:        uuid.NewString(),
		TransactionID: transactionID,
		Name:          name,
		Status:        status,
		Points:        points,
		Beneficiary:   beneficiary,
		Attempts:      1,
		RecordedAt:    now,
	}
	if stepErr != nil {
		step.LastError = stepErr.Error()
	}
	if status == domain.StepStatusFailed {
		metrics.StepFailures.WithLabelValues(string(name)).Inc()
	}
	if err := o.steps.Save(ctx, step); err != nil {
		o.log.Error("failed to record saga step",
			"transaction_id", transactionID, "step", string(name), "error", err)
	}
}

// runTail executes the idempotent tail of a flow: award points to the
// beneficiary, then advance the transaction status. The transfer has already
// committed when this runs, so a tail error is surfaced for a later
// RetryTail, never compensated by reversing the transfer.
func (o *Orchestrator) runTail(ctx context.Context, tx *domain.Transaction, awardStep, completeStep domain.StepName, beneficiary string, points uint64, target domain.TxStatus, now uint64) error {
	// The pending record carries the award target so a retry after a crash
	// still knows how many points were owed.
	o.recordStep(ctx, tx.TransactionID, awardStep, domain.StepStatusPending, points, beneficiary, nil, now)
	if points > 0 {
		if _, err := o.loyalty.AwardPoints(ctx, beneficiary, tx.TransactionID, points); err != nil {
			o.recordStep(ctx, tx.TransactionID, awardStep, domain.StepStatusFailed, points, beneficiary, err, now)
			return fmt.Errorf("loyalty award (funds already moved, retry the tail): %w", err)
		}
	}
	o.recordStep(ctx, tx.TransactionID, awardStep, domain.StepStatusCompleted, points, beneficiary, nil, now)

	if err := o.txs.UpdateStatus(ctx, tx.TransactionID, target); err != nil {
		o.recordStep(ctx, tx.TransactionID, completeStep, domain.StepStatusFailed, 0, "", err, now)
		return fmt.Errorf("status advance (funds already moved, retry the tail): %w", err)
	}
	o.recordStep(ctx, tx.TransactionID, completeStep, domain.StepStatusCompleted, 0, "", nil, now)
	return nil
}

// RetryTail replays only the unfinished tail steps of a flow whose transfer
// committed. It never re-invokes a transfer: if no transfer step completed,
// nothing moved and the whole flow must be re-run instead.
func (o *Orchestrator) RetryTail(ctx context.Context, transactionID string) error {
	now, err := o.clock.Tick(ctx)
	if err != nil {
		return err
	}
	tx, err := o.txs.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	recorded, err := o.steps.GetByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	byName := make(map[domain.StepName]*domain.SagaStep, len(recorded))
	for _, s := range recorded {
		byName[s.Name] = s
	}

	completed := func(name domain.StepName) bool {
		s, ok := byName[name]
		return ok && s.Status == domain.StepStatusCompleted
	}

	metrics.TailRetries.Inc()

	// The release phase supersedes the creation phase once its transfer has
	// committed.
	switch {
	case completed(domain.StepRelease):
		return o.retryTailSteps(ctx, tx, byName, domain.StepReleaseAward, domain.StepReleaseComplete, tx.Payee, domain.TxStatusCompleted, now)
	case completed(domain.StepTransfer):
		target := domain.TxStatusCompleted
		if tx.Type == domain.TxTypeEscrow {
			target = domain.TxStatusEscrowed
		}
		return o.retryTailSteps(ctx, tx, byName, domain.StepAward, domain.StepComplete, tx.Payer, target, now)
	default:
		return fmt.Errorf("%w: no committed transfer step for %s", domain.ErrNotFound, transactionID)
	}
}

func (o *Orchestrator) retryTailSteps(ctx context.Context, tx *domain.Transaction, byName map[domain.StepName]*domain.SagaStep, awardStep, completeStep domain.StepName, beneficiary string, target domain.TxStatus, now uint64) error {
	award := byName[awardStep]
	if award == nil || award.Status != domain.StepStatusCompleted {
		points := uint64(0)
		if award != nil {
			points = award.Points
			if award.Beneficiary != "" {
				beneficiary = award.Beneficiary
			}
		}
		if points > 0 {
			if _, err := o.loyalty.AwardPoints(ctx, beneficiary, tx.TransactionID, points); err != nil {
				o.recordRetry(ctx, award, tx.TransactionID, awardStep, domain.StepStatusFailed, points, beneficiary, err, now)
				return fmt.Errorf("loyalty award: %w", err)
			}
		}
		o.recordRetry(ctx, award, tx.TransactionID, awardStep, domain.StepStatusCompleted, points, beneficiary, nil, now)
	}

	complete := byName[completeStep]
	if complete == nil || complete.Status != domain.StepStatusCompleted {
		if tx.Status != target && domain.CanTransitionTx(tx.Status, target) {
			if err := o.txs.UpdateStatus(ctx, tx.TransactionID, target); err != nil {
				o.recordRetry(ctx, complete, tx.TransactionID, completeStep, domain.StepStatusFailed, 0, "", err, now)
				return fmt.Errorf("status advance: %w", err)
			}
		}
		o.recordRetry(ctx, complete, tx.TransactionID, completeStep, domain.StepStatusCompleted, 0, "", nil, now)
	}
	return nil
}

// recordRetry preserves the attempt count of an earlier step record.
func (o *Orchestrator) recordRetry(ctx context.Context, prev *domain.SagaStep, transactionID string, name domain.StepName, status domain.StepStatus, points uint64, beneficiary string, stepErr error, now uint64) {
	step := &domain.SagaStep{
		StepID:        uuid.NewString(),
		TransactionID: transactionID,
		Name:          name,
		Status:        status,
		Points:        points,
		Beneficiary:   beneficiary,
		Attempts:      1,
		RecordedAt:    now,
	}
	if prev != nil {
		step.StepID = prev.StepID
		step.Attempts = prev.Attempts + 1
	}
	if stepErr != nil {
		step.LastError = stepErr.Error()
	}
	if status == domain.StepStatusFailed {
		metrics.StepFailures.WithLabelValues(string(name)).Inc()
	}
	if err := o.steps.Save(ctx, step); err != nil {
		o.log.Error("failed to record saga step",
			"transaction_id", transactionID, "step", string(name), "error", err)
	}
}

// GetSteps returns the recorded step log for a flow, for inspection of
// crashed or aborted flows.
func (o *Orchestrator) GetSteps(ctx context.Context, transactionID string) ([]*domain.SagaStep, error) {
	return o.steps.GetByTransaction(ctx, transactionID)
}
