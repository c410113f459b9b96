package domain

// SagaStep is one recorded step of an orchestrated flow. The step log is the
// basis for partial-failure recovery: a completed transfer step is never
// replayed, a failed tail step may be retried alone.
type SagaStep struct {
	StepID        string     `json:"step_id"`
	TransactionID string     `json:"transaction_id"`
	Name          StepName   `json:"name"`
	Status        StepStatus `json:"status"`
	Points        uint64     `json:"points,omitempty"`      // award target for loyalty steps
	Beneficiary   string     `json:"beneficiary,omitempty"` // award recipient for loyalty steps
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	RecordedAt    uint64     `json:"recorded_at"`
}

type StepName string

// Step names per flow phase. Transfer steps are irreversible and run first;
// award and complete steps are the idempotent tail.
const (
	StepTransfer        StepName = "transfer"         // processor payment or escrow lock
	StepAward           StepName = "award"            // loyalty points to payer
	StepComplete        StepName = "complete"         // transaction status advance
	StepRelease         StepName = "release"          // escrow payout
	StepReleaseAward    StepName = "release_award"    // reputation points to recipient
	StepReleaseComplete StepName = "release_complete" // status advance after release
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)
