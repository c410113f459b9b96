// Package loyalty tracks customer points, derived tiers and issued reward
// records.
package loyalty

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

// Ledger is the loyalty component. Awarding is deliberately NOT idempotent
// per transaction id: at-most-once award discipline belongs to the
// orchestrator's step log, not here.
type Ledger struct {
	accounts storage.LoyaltyRepository
	rewards  storage.RewardRepository
	clock    ledger.Clock
	emitter  events.Emitter
	log      *slog.Logger
	mu       sync.Mutex
}

func New(accounts storage.LoyaltyRepository, rewards storage.RewardRepository, clock ledger.Clock, emitter events.Emitter, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Ledger{
		accounts: accounts,
		rewards:  rewards,
		clock:    clock,
		emitter:  emitter,
		log:      log,
	}
}

// AwardPoints credits points to a customer and issues a reward record at the
// resulting tier. Returns the new reward's token id.
func (l *Ledger) AwardPoints(ctx context.Context, customer, transactionID string, points uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if points == 0 {
		return 0, domain.ErrInvalidPoints
	}
	account, err := l.accounts.Get(ctx, customer)
	if errors.Is(err, domain.ErrNotFound) {
		account = &domain.LoyaltyAccount{Customer: customer}
	} else if err != nil {
		return 0, fmt.Errorf("account lookup: %w", err)
	}
	account.Points += points
	if err := l.accounts.Save(ctx, account); err != nil {
		return 0, fmt.Errorf("save account: %w", err)
	}

	now, _ := l.clock.Now(ctx)
	tokenID, err := l.issueReward(ctx, customer, transactionID, points, account.Tier(), now)
	if err != nil {
		return 0, err
	}

	metrics.PointsAwarded.Add(float64(points))
	l.emitter.Emit(ctx, domain.EventTypePointsAwarded, now, map[string]any{
		"customer":       customer,
		"transaction_id": transactionID,
		"points":         points,
		"balance":        account.Points,
	})
	return tokenID, nil
}

// GetCustomerTier derives the customer's tier from the current balance.
// Customers with no account are Bronze.
func (l *Ledger) GetCustomerTier(ctx context.Context, customer string) (domain.Tier, error) {
	points, err := l.GetCustomerPoints(ctx, customer)
	if err != nil {
		return "", err
	}
	return domain.TierForPoints(points), nil
}

// GetCustomerPoints returns the customer's balance; zero if never awarded.
func (l *Ledger) GetCustomerPoints(ctx context.Context, customer string) (uint64, error) {
	account, err := l.accounts.Get(ctx, customer)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Points, nil
}

// RedeemPoints decrements a customer's balance and emits a redemption record
// for downstream settlement. It does not create a credit.
func (l *Ledger) RedeemPoints(ctx context.Context, customer string, points uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if points == 0 {
		return domain.ErrInvalidPoints
	}
	account, err := l.accounts.Get(ctx, customer)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: customer %s has no points", domain.ErrInvalidPoints, customer)
	}
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}
	if points > account.Points {
		return fmt.Errorf("%w: balance %d, requested %d", domain.ErrInvalidPoints, account.Points, points)
	}
	account.Points -= points
	// Accounts are never destroyed, even at zero balance.
	if err := l.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	now, _ := l.clock.Now(ctx)
	l.emitter.Emit(ctx, domain.EventTypePointsRedeemed, now, map[string]any{
		"customer":  customer,
		"points":    points,
		"remaining": account.Points,
	})
	return nil
}

// IssueReward creates a reward record with a fresh monotonically increasing
// token id. Ids are never reused.
func (l *Ledger) IssueReward(ctx context.Context, customer, transactionID string, pointsEarned uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	points, err := l.customerPointsLocked(ctx, customer)
	if err != nil {
		return 0, err
	}
	now, _ := l.clock.Now(ctx)
	return l.issueReward(ctx, customer, transactionID, pointsEarned, domain.TierForPoints(points), now)
}

// GetReward retrieves an issued reward by token id.
func (l *Ledger) GetReward(ctx context.Context, tokenID uint64) (*domain.LoyaltyReward, error) {
	return l.rewards.Get(ctx, tokenID)
}

// TotalRewards returns the number of rewards issued so far.
func (l *Ledger) TotalRewards(ctx context.Context) (uint64, error) {
	return l.rewards.Count(ctx)
}

func (l *Ledger) issueReward(ctx context.Context, customer, transactionID string, pointsEarned uint64, tier domain.Tier, now uint64) (uint64, error) {
	reward := &domain.LoyaltyReward{
		Owner:         customer,
		PointsEarned:  pointsEarned,
		Tier:          tier,
		TransactionID: transactionID,
		IssuedAt:      now,
	}
	tokenID, err := l.rewards.Create(ctx, reward)
	if err != nil {
		return 0, fmt.Errorf("issue reward: %w", err)
	}
	l.emitter.Emit(ctx, domain.EventTypeRewardIssued, now, map[string]any{
		"token_id":       tokenID,
		"customer":       customer,
		"transaction_id": transactionID,
		"tier":           string(tier),
	})
	return tokenID, nil
}

func (l *Ledger) customerPointsLocked(ctx context.Context, customer string) (uint64, error) {
	account, err := l.accounts.Get(ctx, customer)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Points, nil
}
