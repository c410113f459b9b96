// Package processor executes fee-split payments and tracks the collected
// platform-fee pool.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/fees"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/infra/token"
	"github.com/paywow/settlement/internal/settlement/events"
	"github.com/paywow/settlement/internal/settlement/metrics"
)

// Config holds the processor's construction-time state.
type Config struct {
	Owner          string // admin identity; receives withdrawn fees
	FeeAccount     string // custody account for the collected-fee pool
	PaymentToken   string // asset all payments settle in
	PlatformFeeBps uint32
}

// Processor is the payment processor component. Mutating operations are
// serialized through one mutex, mirroring the host model where calls to the
// same contract instance never interleave.
type Processor struct {
	cfg     Config
	tokens  token.Service
	state   storage.ProcessorStateRepository
	clock   ledger.Clock
	emitter events.Emitter
	log     *slog.Logger
	mu      sync.Mutex
}

// New creates a payment processor. The platform fee is fixed at construction.
func New(cfg Config, tokens token.Service, state storage.ProcessorStateRepository, clock ledger.Clock, emitter events.Emitter, log *slog.Logger) (*Processor, error) {
	if cfg.PlatformFeeBps > fees.BpsDenominator {
		return nil, fmt.Errorf("platform fee %d bps: %w", cfg.PlatformFeeBps, domain.ErrFeeExceedsPayment)
	}
	if log == nil {
		log = slog.Default()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Processor{
		cfg:     cfg,
		tokens:  tokens,
		state:   state,
		clock:   clock,
		emitter: emitter,
		log:     log,
	}, nil
}

// PlatformFeeBps returns the configured platform fee.
func (p *Processor) PlatformFeeBps() uint32 {
	return p.cfg.PlatformFeeBps
}

// PaymentToken returns the configured settlement asset.
func (p *Processor) PaymentToken() string {
	return p.cfg.PaymentToken
}

// CollectedFees returns the current platform-fee pool balance.
func (p *Processor) CollectedFees(ctx context.Context) (int64, error) {
	return p.state.CollectedFees(ctx)
}

// ProcessPayment moves a payer's amount split three ways: payee amount to the
// payee, platform fee to the fee pool, merchant fee to the merchant. A zero
// merchant fee skips the merchant transfer entirely. The call is
// all-or-nothing: if a later transfer fails, earlier ones are reversed before
// the error is surfaced.
func (p *Processor) ProcessPayment(ctx context.Context, payer, payee string, amount int64, merchant string, merchantFeeBps uint32, paymentID string) (fees.Split, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount <= 0 {
		return fees.Split{}, domain.ErrInvalidAmount
	}
	allowed, err := p.state.IsWhitelisted(ctx, p.cfg.PaymentToken)
	if err != nil {
		return fees.Split{}, fmt.Errorf("whitelist lookup: %w", err)
	}
	if !allowed {
		return fees.Split{}, fmt.Errorf("%w: %s", domain.ErrTokenNotSupported, p.cfg.PaymentToken)
	}

	split, err := fees.ComputeSplit(amount, p.cfg.PlatformFeeBps, merchantFeeBps)
	if err != nil {
		return fees.Split{}, err
	}

	asset := p.cfg.PaymentToken
	if err := p.tokens.Transfer(ctx, asset, payer, payee, split.PayeeAmount); err != nil {
		return fees.Split{}, fmt.Errorf("%w: payee leg: %v", domain.ErrTransferFailed, err)
	}
	if err := p.tokens.Transfer(ctx, asset, payer, p.cfg.FeeAccount, split.PlatformFee); err != nil {
		p.reverse(ctx, asset, payee, payer, split.PayeeAmount)
		return fees.Split{}, fmt.Errorf("%w: platform leg: %v", domain.ErrTransferFailed, err)
	}
	if split.MerchantFee > 0 {
		if err := p.tokens.Transfer(ctx, asset, payer, merchant, split.MerchantFee); err != nil {
			p.reverse(ctx, asset, p.cfg.FeeAccount, payer, split.PlatformFee)
			p.reverse(ctx, asset, payee, payer, split.PayeeAmount)
			return fees.Split{}, fmt.Errorf("%w: merchant leg: %v", domain.ErrTransferFailed, err)
		}
	}

	if err := p.state.AddCollectedFees(ctx, split.PlatformFee); err != nil {
		// The pool is only withdrawable up to the recorded total, so an
		// unrecorded fee would strand funds in the fee account. Unwind.
		if split.MerchantFee > 0 {
			p.reverse(ctx, asset, merchant, payer, split.MerchantFee)
		}
		p.reverse(ctx, asset, p.cfg.FeeAccount, payer, split.PlatformFee)
		p.reverse(ctx, asset, payee, payer, split.PayeeAmount)
		return fees.Split{}, fmt.Errorf("record collected fees: %w", err)
	}

	now, _ := p.clock.Now(ctx)
	collected, err := p.state.CollectedFees(ctx)
	if err == nil {
		metrics.FeesCollected.Set(float64(collected))
	}
	p.emitter.Emit(ctx, domain.EventTypePaymentProcessed, now, map[string]any{
		"payment_id":   paymentID,
		"payer":        payer,
		"payee":        payee,
		"amount":       amount,
		"platform_fee": split.PlatformFee,
		"merchant_fee": split.MerchantFee,
	})
	return split, nil
}

// reverse undoes a transfer leg after a later leg failed. Best effort: the
// token service is the authority, and a failed reversal is only loggable.
func (p *Processor) reverse(ctx context.Context, asset, from, to string, amount int64) {
	if amount == 0 {
		return
	}
	if err := p.tokens.Transfer(ctx, asset, from, to, amount); err != nil {
		p.log.Error("failed to reverse transfer leg",
			"asset", asset, "from", from, "to", to, "amount", amount, "error", err)
	}
}

// WithdrawFees moves collected platform fees from the pool to the owner.
// Owner-only.
func (p *Processor) WithdrawFees(ctx context.Context, caller string, amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireOwner(caller); err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	collected, err := p.state.CollectedFees(ctx)
	if err != nil {
		return fmt.Errorf("collected fees lookup: %w", err)
	}
	if amount > collected {
		return fmt.Errorf("%w: pool has %d, requested %d", domain.ErrInsufficientBalance, collected, amount)
	}
	if err := p.tokens.Transfer(ctx, p.cfg.PaymentToken, p.cfg.FeeAccount, p.cfg.Owner, amount); err != nil {
		return fmt.Errorf("%w: withdrawal: %v", domain.ErrTransferFailed, err)
	}
	if err := p.state.AddCollectedFees(ctx, -amount); err != nil {
		return fmt.Errorf("record withdrawal: %w", err)
	}

	now, _ := p.clock.Now(ctx)
	metrics.FeesCollected.Set(float64(collected - amount))
	p.emitter.Emit(ctx, domain.EventTypeFeesWithdrawn, now, map[string]any{
		"amount":    amount,
		"remaining": collected - amount,
	})
	return nil
}

// SetWhitelist flips a token's allow-list entry. Owner-only.
func (p *Processor) SetWhitelist(ctx context.Context, caller, tokenAsset string, allowed bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireOwner(caller); err != nil {
		return err
	}
	return p.state.SetWhitelisted(ctx, tokenAsset, allowed)
}

func (p *Processor) requireOwner(caller string) error {
	if caller != p.cfg.Owner {
		return fmt.Errorf("%w: caller %q is not the owner", domain.ErrUnauthorized, caller)
	}
	return nil
}
