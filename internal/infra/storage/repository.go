package storage

import (
	"context"

	"github.com/paywow/settlement/internal/core/domain"
)

// TransactionRepository handles the orchestrator's transaction log.
// Rows are append-only apart from status transitions; nothing is deleted.
type TransactionRepository interface {
	// Create inserts a new transaction row.
	// Returns domain.ErrDuplicateTransaction on an id collision.
	Create(ctx context.Context, tx *domain.Transaction) error

	// Get retrieves a transaction. Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// UpdateStatus transitions a transaction's status.
	UpdateStatus(ctx context.Context, transactionID string, status domain.TxStatus) error
}

// SagaStepRepository persists the per-flow step log used for tail retries.
type SagaStepRepository interface {
	// Save inserts or updates a step record, keyed by (transaction_id, name).
	Save(ctx context.Context, step *domain.SagaStep) error

	// GetByTransaction retrieves all recorded steps for a flow.
	GetByTransaction(ctx context.Context, transactionID string) ([]*domain.SagaStep, error)
}

// EscrowRepository handles escrow account storage.
type EscrowRepository interface {
	// Create inserts a new escrow account.
	// Returns domain.ErrDuplicateTransaction on an id collision.
	Create(ctx context.Context, escrow *domain.EscrowAccount) error

	// Get retrieves an escrow account. Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, transactionID string) (*domain.EscrowAccount, error)

	// Finalize sets a terminal status and zeroes the balance.
	Finalize(ctx context.Context, transactionID string, status domain.EscrowStatus) error
}

// DisputeRepository handles dispute claim storage.
type DisputeRepository interface {
	// Create inserts a new dispute.
	// Returns domain.ErrDuplicateDispute on an id collision.
	Create(ctx context.Context, dispute *domain.Dispute) error

	// Get retrieves a dispute. Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, disputeID string) (*domain.Dispute, error)

	// UpdateStatus transitions a dispute's status.
	UpdateStatus(ctx context.Context, disputeID string, status domain.DisputeStatus) error

	// ListExpired retrieves non-terminal disputes whose resolution deadline
	// is at or before the given ledger sequence.
	ListExpired(ctx context.Context, now uint64) ([]*domain.Dispute, error)
}

// LoyaltyRepository handles per-customer points balances.
type LoyaltyRepository interface {
	// Get retrieves an account. Returns domain.ErrNotFound if the customer
	// has never been awarded points.
	Get(ctx context.Context, customer string) (*domain.LoyaltyAccount, error)

	// Save inserts or updates an account.
	Save(ctx context.Context, account *domain.LoyaltyAccount) error
}

// RewardRepository handles issued loyalty reward records.
type RewardRepository interface {
	// Create persists a reward and assigns it the next token id.
	// Token ids are monotonic and never reused.
	Create(ctx context.Context, reward *domain.LoyaltyReward) (uint64, error)

	// Get retrieves a reward by token id. Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, tokenID uint64) (*domain.LoyaltyReward, error)

	// Count returns the total number of issued rewards.
	Count(ctx context.Context) (uint64, error)
}

// ProcessorStateRepository holds the payment processor's durable state:
// the collected platform-fee pool and the token allow-list.
type ProcessorStateRepository interface {
	// CollectedFees returns the current platform-fee pool balance.
	CollectedFees(ctx context.Context) (int64, error)

	// AddCollectedFees adjusts the pool by delta (negative on withdrawal).
	AddCollectedFees(ctx context.Context, delta int64) error

	// SetWhitelisted flips a token's allow-list entry.
	SetWhitelisted(ctx context.Context, token string, allowed bool) error

	// IsWhitelisted reports whether a token is allow-listed.
	IsWhitelisted(ctx context.Context, token string) (bool, error)
}
