package domain

// EscrowAccount holds funds in custody for one transaction.
// Balance only ever decreases; a terminal transition zeroes it.
// Accounts are kept as history after release or refund.
type EscrowAccount struct {
	TransactionID string       `json:"transaction_id"`
	Owner         string       `json:"owner"`
	Balance       int64        `json:"balance"`
	Asset         string       `json:"asset"`
	LockedUntil   uint64       `json:"locked_until"` // ledger sequence
	Status        EscrowStatus `json:"status"`
	CreatedAt     uint64       `json:"created_at"`
}

type EscrowStatus string

const (
	EscrowStatusLocked   EscrowStatus = "locked"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

// ValidEscrowTransitions defines the escrow state machine.
// Released and Refunded are terminal.
var ValidEscrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusLocked: {EscrowStatusReleased, EscrowStatusRefunded},
}

// CanTransitionEscrow checks if an escrow status transition is valid.
func CanTransitionEscrow(from, to EscrowStatus) bool {
	for _, target := range ValidEscrowTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the escrow can no longer move funds.
func (s EscrowStatus) Terminal() bool {
	return s != EscrowStatusLocked
}
