// Package orchestrator sequences settlement flows across the processor,
// escrow, dispute and loyalty components.
//
// The platform provides no cross-component rollback, so each flow is a saga:
// the irreversible transfer runs first, the soft bookkeeping tail (loyalty
// award, status advance) runs last, and every step lands in a durable step
// log. A failed tail never invalidates the transfer; RetryTail replays only
// the tail, never the transfer.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/dispute"
	"github.com/paywow/settlement/internal/escrow"
	"github.com/paywow/settlement/internal/fees"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/loyalty"
	"github.com/paywow/settlement/internal/processor"
	"github.com/paywow/settlement/internal/settlement/metrics"
)

// Config holds the orchestrator's construction-time state.
type Config struct {
	// Owner is the admin identity. It is also the authorized escrow release
	// identity: the escrow ledger must be constructed with the same owner.
	Owner string

	// PointsPer is the payment volume, in minor units, that earns one
	// loyalty point. Points are floor(amount / PointsPer).
	PointsPer int64
}

// Orchestrator is the sole entry point for composite flows. Components never
// call back into it.
type Orchestrator struct {
	cfg       Config
	txs       storage.TransactionRepository
	steps     storage.SagaStepRepository
	processor *processor.Processor
	escrows   *escrow.Ledger
	disputes  *dispute.Ledger
	loyalty   *loyalty.Ledger
	clock     ledger.Clock
	log       *slog.Logger
}

func New(
	cfg Config,
	txs storage.TransactionRepository,
	steps storage.SagaStepRepository,
	proc *processor.Processor,
	escrows *escrow.Ledger,
	disputes *dispute.Ledger,
	loyaltyLedger *loyalty.Ledger,
	clock ledger.Clock,
	log *slog.Logger,
) *Orchestrator {
	if cfg.PointsPer <= 0 {
		cfg.PointsPer = 100
	}
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		cfg:       cfg,
		txs:       txs,
		steps:     steps,
		processor: proc,
		escrows:   escrows,
		disputes:  disputes,
		loyalty:   loyaltyLedger,
		clock:     clock,
		log:       log,
	}
	// Dispute outcomes compensate through the escrow refund path, and filing
	// is guarded against terminal transactions in the log.
	disputes.SetRefunder(dispute.RefunderFunc(o.refundEscrowForDispute))
	disputes.SetTerminalChecker(o)
	return o
}

// PreviewSplit computes the fee split a payment of amount would settle with.
// Bit-for-bit identical to the processor's own computation.
func (o *Orchestrator) PreviewSplit(amount int64, merchantFeeBps uint32) (fees.Split, error) {
	return fees.ComputeSplit(amount, o.processor.PlatformFeeBps(), merchantFeeBps)
}

// ProcessSimplePayment runs the simple transfer flow: log the transaction,
// execute the fee-split payment, then the tail (loyalty award, completion).
// A processor failure leaves the row Pending and surfaces the processor's
// error; no loyalty is awarded. A tail failure leaves funds correctly moved;
// retry with RetryTail only.
func (o *Orchestrator) ProcessSimplePayment(ctx context.Context, paymentID, payer, payee string, amount int64, merchant string, merchantFeeBps uint32) (fees.Split, error) {
	start := time.Now()
	now, err := o.clock.Tick(ctx)
	if err != nil {
		return fees.Split{}, err
	}
	if amount <= 0 {
		return fees.Split{}, domain.ErrInvalidAmount
	}

	tx := &domain.Transaction{
		TransactionID: paymentID,
		Payer:         payer,
		Payee:         payee,
		Amount:        amount,
		Status:        domain.TxStatusPending,
		Type:          domain.TxTypeSimple,
		CreatedAt:     now,
	}
	if err := o.txs.Create(ctx, tx); err != nil {
		return fees.Split{}, err
	}

	split, err := o.processor.ProcessPayment(ctx, payer, payee, amount, merchant, merchantFeeBps, paymentID)
	if err != nil {
		o.recordStep(ctx, paymentID, domain.StepTransfer, domain.StepStatusFailed, 0, "", err, now)
		return fees.Split{}, err
	}
	o.recordStep(ctx, paymentID, domain.StepTransfer, domain.StepStatusCompleted, 0, "", nil, now)

	points := uint64(split.PayeeAmount / o.cfg.PointsPer)
	if err := o.runTail(ctx, tx, domain.StepAward, domain.StepComplete, payer, points, domain.TxStatusCompleted, now); err != nil {
		return split, err
	}

	metrics.PaymentsProcessed.WithLabelValues(string(domain.TxTypeSimple)).Inc()
	metrics.PaymentVolume.WithLabelValues(string(domain.TxTypeSimple)).Add(float64(amount))
	metrics.FlowDuration.WithLabelValues("simple_payment").Observe(time.Since(start).Seconds())
	return split, nil
}

// ProcessEscrowPayment runs the escrow flow: log the transaction, lock the
// funds, then the tail (loyalty award, Escrowed status).
func (o *Orchestrator) ProcessEscrowPayment(ctx context.Context, transactionID, payer, payee string, amount int64, lockedUntil uint64) (*domain.EscrowAccount, error) {
	start := time.Now()
	now, err := o.clock.Tick(ctx)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx := &domain.Transaction{
		TransactionID: transactionID,
		Payer:         payer,
		Payee:         payee,
		Amount:        amount,
		Status:        domain.TxStatusPending,
		Type:          domain.TxTypeEscrow,
		CreatedAt:     now,
	}
	if err := o.txs.Create(ctx, tx); err != nil {
		return nil, err
	}

	account, err := o.escrows.CreateEscrow(ctx, transactionID, payer, amount, o.processor.PaymentToken(), lockedUntil)
	if err != nil {
		o.recordStep(ctx, transactionID, domain.StepTransfer, domain.StepStatusFailed, 0, "", err, now)
		return nil, err
	}
	o.recordStep(ctx, transactionID, domain.StepTransfer, domain.StepStatusCompleted, 0, "", nil, now)

	points := uint64(amount / o.cfg.PointsPer)
	if err := o.runTail(ctx, tx, domain.StepAward, domain.StepComplete, payer, points, domain.TxStatusEscrowed, now); err != nil {
		return account, err
	}

	metrics.PaymentsProcessed.WithLabelValues(string(domain.TxTypeEscrow)).Inc()
	metrics.PaymentVolume.WithLabelValues(string(domain.TxTypeEscrow)).Add(float64(amount))
	metrics.FlowDuration.WithLabelValues("escrow_payment").Observe(time.Since(start).Seconds())
	return account, nil
}

// ReleaseEscrow pays an escrow out to recipient and completes the
// transaction. The caller identity is passed through to the escrow ledger:
// the configured owner releases at any time, anyone else waits out the lock.
// Reputation points go to the recipient in the tail.
func (o *Orchestrator) ReleaseEscrow(ctx context.Context, caller, transactionID, recipient string) error {
	now, err := o.clock.Tick(ctx)
	if err != nil {
		return err
	}
	tx, err := o.txs.Get(ctx, transactionID)
	if err != nil {
		return err
	}

	account, err := o.escrows.GetEscrow(ctx, transactionID)
	if err != nil {
		return err
	}
	amount := account.Balance

	if err := o.escrows.ReleaseEscrow(ctx, caller, transactionID, recipient); err != nil {
		o.recordStep(ctx, transactionID, domain.StepRelease, domain.StepStatusFailed, 0, "", err, now)
		return err
	}
	o.recordStep(ctx, transactionID, domain.StepRelease, domain.StepStatusCompleted, 0, "", nil, now)

	points := uint64(amount / o.cfg.PointsPer)
	return o.runTail(ctx, tx, domain.StepReleaseAward, domain.StepReleaseComplete, recipient, points, domain.TxStatusCompleted, now)
}

// FileDispute files a claim against a transaction and marks the row
// Disputed. Terminal transactions cannot be disputed.
func (o *Orchestrator) FileDispute(ctx context.Context, disputeID, transactionID, claimant, respondent, reason, evidence string) (*domain.Dispute, error) {
	now, err := o.clock.Tick(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := o.txs.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	d, err := o.disputes.FileDispute(ctx, disputeID, transactionID, claimant, respondent, tx.Amount, reason, evidence)
	if err != nil {
		return nil, err
	}
	if domain.CanTransitionTx(tx.Status, domain.TxStatusDisputed) {
		if err := o.txs.UpdateStatus(ctx, transactionID, domain.TxStatusDisputed); err != nil {
			o.log.Warn("dispute filed but transaction status not advanced",
				"transaction_id", transactionID, "ledger_seq", now, "error", err)
		}
	}
	return d, nil
}

// ResolveDispute applies an admin ruling. Favoring the claimant refunds the
// escrow and marks the transaction Refunded; favoring the respondent releases
// the escrow to the respondent and completes the transaction.
func (o *Orchestrator) ResolveDispute(ctx context.Context, caller, disputeID string, favorClaimant bool) error {
	if _, err := o.clock.Tick(ctx); err != nil {
		return err
	}
	d, err := o.disputes.GetDispute(ctx, disputeID)
	if err != nil {
		return err
	}

	if err := o.disputes.ResolveDispute(ctx, caller, disputeID, favorClaimant); err != nil {
		return err
	}

	if favorClaimant {
		return o.advanceStatus(ctx, d.TransactionID, domain.TxStatusRefunded)
	}
	if err := o.escrows.ReleaseEscrow(ctx, o.cfg.Owner, d.TransactionID, d.Respondent); err != nil {
		// Already-finalized means funds moved on a prior attempt.
		if !errors.Is(err, domain.ErrAlreadyFinalized) {
			return err
		}
	}
	return o.advanceStatus(ctx, d.TransactionID, domain.TxStatusCompleted)
}

// RefundOnTimeout refunds an expired dispute and marks the transaction
// Refunded. Callable by anyone once the deadline passes.
func (o *Orchestrator) RefundOnTimeout(ctx context.Context, disputeID string) error {
	if _, err := o.clock.Tick(ctx); err != nil {
		return err
	}
	d, err := o.disputes.GetDispute(ctx, disputeID)
	if err != nil {
		return err
	}
	if err := o.disputes.RefundOnTimeout(ctx, disputeID); err != nil {
		return err
	}
	return o.advanceStatus(ctx, d.TransactionID, domain.TxStatusRefunded)
}

// GetTransaction looks up a transaction row.
func (o *Orchestrator) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return o.txs.Get(ctx, transactionID)
}

// IsTerminal reports whether a transaction admits no further transitions.
// Satisfies dispute.TerminalChecker.
func (o *Orchestrator) IsTerminal(ctx context.Context, transactionID string) (bool, error) {
	tx, err := o.txs.Get(ctx, transactionID)
	if err != nil {
		return false, err
	}
	return tx.Status.Terminal(), nil
}

func (o *Orchestrator) refundEscrowForDispute(ctx context.Context, transactionID string) error {
	return o.escrows.RefundEscrow(ctx, o.cfg.Owner, transactionID)
}

func (o *Orchestrator) advanceStatus(ctx context.Context, transactionID string, status domain.TxStatus) error {
	tx, err := o.txs.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Status == status || !domain.CanTransitionTx(tx.Status, status) {
		return nil
	}
	return o.txs.UpdateStatus(ctx, transactionID, status)
}
