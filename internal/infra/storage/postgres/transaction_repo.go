package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paywow/settlement/internal/core/domain"
)

// TransactionRepo implements storage.TransactionRepository using PostgreSQL.
type TransactionRepo struct {
	db *DB
}

// NewTransactionRepo creates a new PostgreSQL transaction repository.
func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

type transactionRow struct {
	TransactionID string `db:"transaction_id"`
	Payer         string `db:"payer"`
	Payee         string `db:"payee"`
	Amount        int64  `db:"amount"`
	Status        string `db:"status"`
	Type          string `db:"type"`
	CreatedAt     int64  `db:"created_at"`
}

// Create inserts a new transaction row.
func (r *TransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, payer, payee, amount, status, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.TransactionID, tx.Payer, tx.Payee, tx.Amount,
		string(tx.Status), string(tx.Type), int64(tx.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateTransaction, tx.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Get retrieves a transaction by id.
func (r *TransactionRepo) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var row transactionRow
	query := `
		SELECT transaction_id, payer, payee, amount, status, type, created_at
		FROM transactions WHERE transaction_id = $1
	`
	err := r.db.GetContext(ctx, &row, query, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateStatus transitions a transaction's status.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, transactionID string, status domain.TxStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2 WHERE transaction_id = $1`,
		transactionID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, transactionID)
	}
	return nil
}

func (row *transactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		TransactionID: row.TransactionID,
		Payer:         row.Payer,
		Payee:         row.Payee,
		Amount:        row.Amount,
		Status:        domain.TxStatus(row.Status),
		Type:          domain.TxType(row.Type),
		CreatedAt:     uint64(row.CreatedAt),
	}
}
