package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/paywow/settlement/internal/core/domain"
)

// MemoryService is an in-process token ledger used in tests and standalone
// mode. Balances are keyed by (asset, account); overdrafts are rejected so a
// failed transfer leaves both accounts untouched.
type MemoryService struct {
	balances map[string]int64
	mu       sync.Mutex
}

func NewMemoryService() *MemoryService {
	return &MemoryService{balances: make(map[string]int64)}
}

func key(asset, account string) string {
	return asset + "/" + account
}

// Mint credits an account. Setup helper; the settlement core never mints.
func (s *MemoryService) Mint(asset, account string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[key(asset, account)] += amount
}

func (s *MemoryService) Transfer(ctx context.Context, asset, from, to string, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fromKey := key(asset, from)
	if s.balances[fromKey] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrTransferFailed, from, s.balances[fromKey], amount)
	}
	s.balances[fromKey] -= amount
	s.balances[key(asset, to)] += amount
	return nil
}

func (s *MemoryService) Balance(ctx context.Context, asset, account string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[key(asset, account)], nil
}
