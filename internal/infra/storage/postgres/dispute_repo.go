package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paywow/settlement/internal/core/domain"
)

// DisputeRepo implements storage.DisputeRepository using PostgreSQL.
type DisputeRepo struct {
	db *DB
}

// NewDisputeRepo creates a new PostgreSQL dispute repository.
func NewDisputeRepo(db *DB) *DisputeRepo {
	return &DisputeRepo{db: db}
}

type disputeRow struct {
	DisputeID          string `db:"dispute_id"`
	TransactionID      string `db:"transaction_id"`
	Claimant           string `db:"claimant"`
	Respondent         string `db:"respondent"`
	Amount             int64  `db:"amount"`
	Reason             string `db:"reason"`
	Evidence           string `db:"evidence"`
	FiledAt            int64  `db:"filed_at"`
	ResolutionDeadline int64  `db:"resolution_deadline"`
	Status             string `db:"status"`
}

// Create inserts a new dispute.
func (r *DisputeRepo) Create(ctx context.Context, dispute *domain.Dispute) error {
	query := `
		INSERT INTO disputes (dispute_id, transaction_id, claimant, respondent, amount, reason, evidence, filed_at, resolution_deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		dispute.DisputeID, dispute.TransactionID, dispute.Claimant, dispute.Respondent,
		dispute.Amount, dispute.Reason, dispute.Evidence,
		int64(dispute.FiledAt), int64(dispute.ResolutionDeadline), string(dispute.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateDispute, dispute.DisputeID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

// Get retrieves a dispute by id.
func (r *DisputeRepo) Get(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	var row disputeRow
	query := `
		SELECT dispute_id, transaction_id, claimant, respondent, amount, reason, evidence, filed_at, resolution_deadline, status
		FROM disputes WHERE dispute_id = $1
	`
	err := r.db.GetContext(ctx, &row, query, disputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dispute %s", domain.ErrNotFound, disputeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateStatus transitions a dispute's status.
func (r *DisputeRepo) UpdateStatus(ctx context.Context, disputeID string, status domain.DisputeStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE disputes SET status = $2 WHERE dispute_id = $1`,
		disputeID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update dispute status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: dispute %s", domain.ErrNotFound, disputeID)
	}
	return nil
}

// ListExpired retrieves non-terminal disputes whose resolution deadline is at
// or before now, oldest deadline first.
func (r *DisputeRepo) ListExpired(ctx context.Context, now uint64) ([]*domain.Dispute, error) {
	var rows []disputeRow
	query := `
		SELECT dispute_id, transaction_id, claimant, respondent, amount, reason, evidence, filed_at, resolution_deadline, status
		FROM disputes
		WHERE resolution_deadline <= $1 AND status IN ($2, $3)
		ORDER BY resolution_deadline ASC
	`
	err := r.db.SelectContext(ctx, &rows, query, int64(now),
		string(domain.DisputeStatusFiled), string(domain.DisputeStatusUnderReview))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired disputes: %w", err)
	}

	disputes := make([]*domain.Dispute, 0, len(rows))
	for i := range rows {
		disputes = append(disputes, rows[i].toDomain())
	}
	return disputes, nil
}

func (row *disputeRow) toDomain() *domain.Dispute {
	return &domain.Dispute{
		DisputeID:          row.DisputeID,
		TransactionID:      row.TransactionID,
		Claimant:           row.Claimant,
		Respondent:         row.Respondent,
		Amount:             row.Amount,
		Reason:             row.Reason,
		Evidence:           row.Evidence,
		FiledAt:            uint64(row.FiledAt),
		ResolutionDeadline: uint64(row.ResolutionDeadline),
		Status:             domain.DisputeStatus(row.Status),
	}
}
