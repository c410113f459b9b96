package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sequenceKey = "ledger_sequence"

// Sequence is a Redis-backed ledger clock. INCR gives every instance a
// shared, strictly monotonic sequence.
type Sequence struct {
	rdb *redis.Client
}

// NewSequence creates a Redis-backed ledger sequence.
func NewSequence(client *Client) *Sequence {
	return &Sequence{rdb: client.rdb}
}

// Now returns the current sequence without advancing it.
func (s *Sequence) Now(ctx context.Context) (uint64, error) {
	val, err := s.rdb.Get(ctx, sequenceKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Tick advances the sequence and returns the new value.
func (s *Sequence) Tick(ctx context.Context) (uint64, error) {
	val, err := s.rdb.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr failed: %w", err)
	}
	return uint64(val), nil
}
