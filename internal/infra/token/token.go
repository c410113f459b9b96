// Package token defines the fungible asset transfer primitive. The token
// service is an external collaborator: transfers are assumed atomic and
// authorization-checked on its side.
package token

import "context"

// Service moves asset balances between accounts.
type Service interface {
	// Transfer moves amount of asset from one account to another.
	// The move is atomic: it either fully applies or fully fails.
	Transfer(ctx context.Context, asset, from, to string, amount int64) error

	// Balance returns the current balance of an account for an asset.
	Balance(ctx context.Context, asset, account string) (int64, error)
}
