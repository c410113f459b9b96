package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const deadlineKey = "dispute_deadlines"

// DeadlineIndex tracks dispute resolution deadlines in a sorted set keyed by
// deadline sequence, so the timeout sweeper can find due disputes without
// scanning the database.
type DeadlineIndex struct {
	rdb *redis.Client
}

// NewDeadlineIndex creates a Redis-backed deadline index.
func NewDeadlineIndex(client *Client) *DeadlineIndex {
	return &DeadlineIndex{rdb: client.rdb}
}

// Add indexes a dispute under its resolution deadline.
func (i *DeadlineIndex) Add(ctx context.Context, disputeID string, deadline uint64) error {
	err := i.rdb.ZAdd(ctx, deadlineKey, redis.Z{
		Score:  float64(deadline),
		Member: disputeID,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// Remove drops a resolved dispute from the index.
func (i *DeadlineIndex) Remove(ctx context.Context, disputeID string) error {
	if err := i.rdb.ZRem(ctx, deadlineKey, disputeID).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	return nil
}

// Due returns the ids of all disputes whose deadline is at or before now,
// oldest first. Entries stay indexed until Remove; the sweeper confirms
// eligibility against the ledger before acting.
func (i *DeadlineIndex) Due(ctx context.Context, now uint64) ([]string, error) {
	ids, err := i.rdb.ZRangeByScore(ctx, deadlineKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	return ids, nil
}
