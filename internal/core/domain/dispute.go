package domain

// Dispute is a claim against a transaction with a fixed resolution deadline.
// The deadline is set once at filing time and never moves.
type Dispute struct {
	DisputeID          string        `json:"dispute_id"`
	TransactionID      string        `json:"transaction_id"`
	Claimant           string        `json:"claimant"`
	Respondent         string        `json:"respondent"`
	Amount             int64         `json:"amount"`
	Reason             string        `json:"reason"`
	Evidence           string        `json:"evidence"`
	FiledAt            uint64        `json:"filed_at"`
	ResolutionDeadline uint64        `json:"resolution_deadline"`
	Status             DisputeStatus `json:"status"`
}

type DisputeStatus string

const (
	DisputeStatusFiled       DisputeStatus = "filed"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRefunded    DisputeStatus = "refunded"
)

// ValidDisputeTransitions defines the dispute state machine.
// The timeout path goes Filed -> Refunded directly, bypassing review.
// Resolved and Refunded are terminal and mutually exclusive.
var ValidDisputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusFiled:       {DisputeStatusUnderReview, DisputeStatusResolved, DisputeStatusRefunded},
	DisputeStatusUnderReview: {DisputeStatusResolved, DisputeStatusRefunded},
}

// CanTransitionDispute checks if a dispute status transition is valid.
func CanTransitionDispute(from, to DisputeStatus) bool {
	for _, target := range ValidDisputeTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the dispute can be reopened or acted on.
func (s DisputeStatus) Terminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRefunded
}

// Resolvable reports whether the timeout refund path is open at the given
// ledger sequence. Status must be non-terminal and the deadline reached.
func (d *Dispute) Resolvable(now uint64) bool {
	return !d.Status.Terminal() && now >= d.ResolutionDeadline
}
