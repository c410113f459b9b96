package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProcessorStateRepo implements storage.ProcessorStateRepository using
// PostgreSQL. The fee pool lives in a single-row table so AddCollectedFees
// can adjust it atomically.
type ProcessorStateRepo struct {
	db *DB
}

// NewProcessorStateRepo creates a new PostgreSQL processor state repository.
func NewProcessorStateRepo(db *DB) *ProcessorStateRepo {
	return &ProcessorStateRepo{db: db}
}

// CollectedFees returns the current platform fee pool balance.
func (r *ProcessorStateRepo) CollectedFees(ctx context.Context) (int64, error) {
	var fees int64
	err := r.db.GetContext(ctx, &fees,
		`SELECT collected_fees FROM processor_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get collected fees: %w", err)
	}
	return fees, nil
}

// AddCollectedFees adjusts the fee pool by delta.
func (r *ProcessorStateRepo) AddCollectedFees(ctx context.Context, delta int64) error {
	query := `
		INSERT INTO processor_state (id, collected_fees)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET collected_fees = processor_state.collected_fees + EXCLUDED.collected_fees
	`
	if _, err := r.db.ExecContext(ctx, query, delta); err != nil {
		return fmt.Errorf("failed to adjust collected fees: %w", err)
	}
	return nil
}

// SetWhitelisted flips a token's allow-list entry.
func (r *ProcessorStateRepo) SetWhitelisted(ctx context.Context, token string, allowed bool) error {
	query := `
		INSERT INTO token_whitelist (token, allowed)
		VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET allowed = EXCLUDED.allowed
	`
	if _, err := r.db.ExecContext(ctx, query, token, allowed); err != nil {
		return fmt.Errorf("failed to set whitelist entry: %w", err)
	}
	return nil
}

// IsWhitelisted reports whether a token is allow-listed.
func (r *ProcessorStateRepo) IsWhitelisted(ctx context.Context, token string) (bool, error) {
	var allowed bool
	err := r.db.GetContext(ctx, &allowed,
		`SELECT allowed FROM token_whitelist WHERE token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check whitelist: %w", err)
	}
	return allowed, nil
}
