// Package ledger provides the ledger-time source: a monotonically increasing
// sequence number standing in for wall-clock time. There is no background
// scheduler; deadline comparisons only happen when a caller invokes an
// operation.
package ledger

import (
	"context"
	"sync/atomic"
)

// Clock reads and advances the ledger sequence. The sequence is ticked once
// at the start of each externally invoked flow and read within it, so every
// operation inside a flow observes the same ledger time.
type Clock interface {
	// Now returns the current ledger sequence.
	Now(ctx context.Context) (uint64, error)

	// Tick advances the sequence by one and returns the new value.
	Tick(ctx context.Context) (uint64, error)
}

// MemoryClock is an in-process Clock backed by an atomic counter.
type MemoryClock struct {
	seq atomic.Uint64
}

func NewMemoryClock(start uint64) *MemoryClock {
	c := &MemoryClock{}
	c.seq.Store(start)
	return c
}

func (c *MemoryClock) Now(ctx context.Context) (uint64, error) {
	return c.seq.Load(), nil
}

func (c *MemoryClock) Tick(ctx context.Context) (uint64, error) {
	return c.seq.Add(1), nil
}

// Advance jumps the sequence forward. Test helper for deadline scenarios.
func (c *MemoryClock) Advance(delta uint64) uint64 {
	return c.seq.Add(delta)
}
