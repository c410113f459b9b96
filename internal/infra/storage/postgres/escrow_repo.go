package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paywow/settlement/internal/core/domain"
)

// EscrowRepo implements storage.EscrowRepository using PostgreSQL.
type EscrowRepo struct {
	db *DB
}

// NewEscrowRepo creates a new PostgreSQL escrow repository.
func NewEscrowRepo(db *DB) *EscrowRepo {
	return &EscrowRepo{db: db}
}

type escrowRow struct {
	TransactionID string `db:"transaction_id"`
	Owner         string `db:"owner"`
	Balance       int64  `db:"balance"`
	Asset         string `db:"asset"`
	LockedUntil   int64  `db:"locked_until"`
	Status        string `db:"status"`
	CreatedAt     int64  `db:"created_at"`
}

// Create inserts a new escrow account.
func (r *EscrowRepo) Create(ctx context.Context, escrow *domain.EscrowAccount) error {
	query := `
		INSERT INTO escrow_accounts (transaction_id, owner, balance, asset, locked_until, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		escrow.TransactionID, escrow.Owner, escrow.Balance, escrow.Asset,
		int64(escrow.LockedUntil), string(escrow.Status), int64(escrow.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: escrow %s", domain.ErrDuplicateTransaction, escrow.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert escrow: %w", err)
	}
	return nil
}

// Get retrieves an escrow account by transaction id.
func (r *EscrowRepo) Get(ctx context.Context, transactionID string) (*domain.EscrowAccount, error) {
	var row escrowRow
	query := `
		SELECT transaction_id, owner, balance, asset, locked_until, status, created_at
		FROM escrow_accounts WHERE transaction_id = $1
	`
	err := r.db.GetContext(ctx, &row, query, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: escrow %s", domain.ErrNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}
	return &domain.EscrowAccount{
		TransactionID: row.TransactionID,
		Owner:         row.Owner,
		Balance:       row.Balance,
		Asset:         row.Asset,
		LockedUntil:   uint64(row.LockedUntil),
		Status:        domain.EscrowStatus(row.Status),
		CreatedAt:     uint64(row.CreatedAt),
	}, nil
}

// Finalize sets a terminal status and zeroes the balance. The status guard in
// the WHERE clause makes finalization race-safe across instances.
func (r *EscrowRepo) Finalize(ctx context.Context, transactionID string, status domain.EscrowStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE escrow_accounts SET status = $2, balance = 0 WHERE transaction_id = $1 AND status = $3`,
		transactionID, string(status), string(domain.EscrowStatusLocked))
	if err != nil {
		return fmt.Errorf("failed to finalize escrow: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: escrow %s", domain.ErrAlreadyFinalized, transactionID)
	}
	return nil
}
