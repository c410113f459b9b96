package domain

// Event is an emitted settlement audit record. Events are fire-and-forget:
// they never participate in control flow.
type Event struct {
	EventID   string         `json:"event_id"`
	EventType EventType      `json:"event_type"`
	LedgerSeq uint64         `json:"ledger_seq"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type EventType string

const (
	EventTypePaymentProcessed   EventType = "payment_processed"
	EventTypeFeesWithdrawn      EventType = "fees_withdrawn"
	EventTypeEscrowCreated      EventType = "escrow_created"
	EventTypeEscrowReleased     EventType = "escrow_released"
	EventTypeEscrowRefunded     EventType = "escrow_refunded"
	EventTypeDisputeFiled       EventType = "dispute_filed"
	EventTypeDisputeUnderReview EventType = "dispute_under_review"
	EventTypeDisputeResolved    EventType = "dispute_resolved"
	EventTypeDisputeRefunded    EventType = "dispute_refunded"
	EventTypePointsAwarded      EventType = "points_awarded"
	EventTypePointsRedeemed     EventType = "points_redeemed"
	EventTypeRewardIssued       EventType = "reward_issued"
)
