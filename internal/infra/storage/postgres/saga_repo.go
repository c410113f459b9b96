package postgres

import (
	"context"
	"fmt"

	"github.com/paywow/settlement/internal/core/domain"
)

// SagaStepRepo implements storage.SagaStepRepository using PostgreSQL.
type SagaStepRepo struct {
	db *DB
}

// NewSagaStepRepo creates a new PostgreSQL saga step repository.
func NewSagaStepRepo(db *DB) *SagaStepRepo {
	return &SagaStepRepo{db: db}
}

type sagaStepRow struct {
	StepID        string `db:"step_id"`
	TransactionID string `db:"transaction_id"`
	Name          string `db:"name"`
	Status        string `db:"status"`
	Points        int64  `db:"points"`
	Beneficiary   string `db:"beneficiary"`
	Attempts      int    `db:"attempts"`
	LastError     string `db:"last_error"`
	RecordedAt    int64  `db:"recorded_at"`
}

// Save inserts or updates a step record, keyed by (transaction_id, name).
func (r *SagaStepRepo) Save(ctx context.Context, step *domain.SagaStep) error {
	query := `
		INSERT INTO saga_steps (step_id, transaction_id, name, status, points, beneficiary, attempts, last_error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_id, name) DO UPDATE SET
			status = EXCLUDED.status,
			points = EXCLUDED.points,
			beneficiary = EXCLUDED.beneficiary,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			recorded_at = EXCLUDED.recorded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		step.StepID, step.TransactionID, string(step.Name), string(step.Status),
		int64(step.Points), step.Beneficiary, step.Attempts, step.LastError, int64(step.RecordedAt))
	if err != nil {
		return fmt.Errorf("failed to save saga step: %w", err)
	}
	return nil
}

// GetByTransaction retrieves all recorded steps for a flow, oldest first.
func (r *SagaStepRepo) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.SagaStep, error) {
	var rows []sagaStepRow
	query := `
		SELECT step_id, transaction_id, name, status, points, beneficiary, attempts, last_error, recorded_at
		FROM saga_steps WHERE transaction_id = $1
		ORDER BY recorded_at ASC, name ASC
	`
	if err := r.db.SelectContext(ctx, &rows, query, transactionID); err != nil {
		return nil, fmt.Errorf("failed to list saga steps: %w", err)
	}

	steps := make([]*domain.SagaStep, 0, len(rows))
	for i := range rows {
		row := rows[i]
		steps = append(steps, &domain.SagaStep{
			StepID:        row.StepID,
			TransactionID: row.TransactionID,
			Name:          domain.StepName(row.Name),
			Status:        domain.StepStatus(row.Status),
			Points:        uint64(row.Points),
			Beneficiary:   row.Beneficiary,
			Attempts:      row.Attempts,
			LastError:     row.LastError,
			RecordedAt:    uint64(row.RecordedAt),
		})
	}
	return steps, nil
}
