package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paywow/settlement/internal/core/domain"
)

// LoyaltyRepo implements storage.LoyaltyRepository using PostgreSQL.
type LoyaltyRepo struct {
	db *DB
}

// NewLoyaltyRepo creates a new PostgreSQL loyalty account repository.
func NewLoyaltyRepo(db *DB) *LoyaltyRepo {
	return &LoyaltyRepo{db: db}
}

// Get retrieves a customer's points account.
func (r *LoyaltyRepo) Get(ctx context.Context, customer string) (*domain.LoyaltyAccount, error) {
	var points int64
	err := r.db.GetContext(ctx, &points,
		`SELECT points FROM loyalty_accounts WHERE customer = $1`, customer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: loyalty account %s", domain.ErrNotFound, customer)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loyalty account: %w", err)
	}
	return &domain.LoyaltyAccount{Customer: customer, Points: uint64(points)}, nil
}

// Save inserts or updates a customer's points account.
func (r *LoyaltyRepo) Save(ctx context.Context, account *domain.LoyaltyAccount) error {
	query := `
		INSERT INTO loyalty_accounts (customer, points)
		VALUES ($1, $2)
		ON CONFLICT (customer) DO UPDATE SET points = EXCLUDED.points
	`
	if _, err := r.db.ExecContext(ctx, query, account.Customer, int64(account.Points)); err != nil {
		return fmt.Errorf("failed to save loyalty account: %w", err)
	}
	return nil
}

// RewardRepo implements storage.RewardRepository using PostgreSQL. Token ids
// come from the table's BIGSERIAL sequence, so they are monotonic and never
// reused even across instances.
type RewardRepo struct {
	db *DB
}

// NewRewardRepo creates a new PostgreSQL reward repository.
func NewRewardRepo(db *DB) *RewardRepo {
	return &RewardRepo{db: db}
}

type rewardRow struct {
	TokenID       int64  `db:"token_id"`
	Owner         string `db:"owner"`
	PointsEarned  int64  `db:"points_earned"`
	Tier          string `db:"tier"`
	TransactionID string `db:"transaction_id"`
	IssuedAt      int64  `db:"issued_at"`
}

// Create persists a reward and returns its assigned token id.
func (r *RewardRepo) Create(ctx context.Context, reward *domain.LoyaltyReward) (uint64, error) {
	var tokenID int64
	query := `
		INSERT INTO loyalty_rewards (owner, points_earned, tier, transaction_id, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING token_id
	`
	err := r.db.GetContext(ctx, &tokenID, query,
		reward.Owner, int64(reward.PointsEarned), string(reward.Tier),
		reward.TransactionID, int64(reward.IssuedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert reward: %w", err)
	}
	reward.TokenID = uint64(tokenID)
	return uint64(tokenID), nil
}

// Get retrieves a reward by token id.
func (r *RewardRepo) Get(ctx context.Context, tokenID uint64) (*domain.LoyaltyReward, error) {
	var row rewardRow
	query := `
		SELECT token_id, owner, points_earned, tier, transaction_id, issued_at
		FROM loyalty_rewards WHERE token_id = $1
	`
	err := r.db.GetContext(ctx, &row, query, int64(tokenID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reward %d", domain.ErrNotFound, tokenID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return &domain.LoyaltyReward{
		TokenID:       uint64(row.TokenID),
		Owner:         row.Owner,
		PointsEarned:  uint64(row.PointsEarned),
		Tier:          domain.Tier(row.Tier),
		TransactionID: row.TransactionID,
		IssuedAt:      uint64(row.IssuedAt),
	}, nil
}

// Count returns the total number of issued rewards.
func (r *RewardRepo) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM loyalty_rewards`); err != nil {
		return 0, fmt.Errorf("failed to count rewards: %w", err)
	}
	return uint64(count), nil
}
