package domain

// Transaction is the orchestrator's durable log entry for one settlement flow.
// Rows are never deleted; terminal statuses are never left.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	Payer         string   `json:"payer"`
	Payee         string   `json:"payee"`
	Amount        int64    `json:"amount"`
	Status        TxStatus `json:"status"`
	Type          TxType   `json:"transaction_type"`
	CreatedAt     uint64   `json:"created_at"` // ledger sequence at flow start
}

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusEscrowed  TxStatus = "escrowed"
	TxStatusCompleted TxStatus = "completed"
	TxStatusDisputed  TxStatus = "disputed"
	TxStatusRefunded  TxStatus = "refunded"
)

type TxType string

const (
	TxTypeSimple      TxType = "simple"
	TxTypeEscrow      TxType = "escrow"
	TxTypeConditional TxType = "conditional"
)

// ValidTxTransitions defines allowed transaction status transitions.
// Key is the current status, value is the list of valid next statuses.
// Completed and Refunded are terminal.
var ValidTxTransitions = map[TxStatus][]TxStatus{
	TxStatusPending:  {TxStatusEscrowed, TxStatusCompleted, TxStatusDisputed, TxStatusRefunded},
	TxStatusEscrowed: {TxStatusCompleted, TxStatusDisputed, TxStatusRefunded},
	TxStatusDisputed: {TxStatusCompleted, TxStatusRefunded},
}

// CanTransitionTx checks if a transaction status transition is valid.
func CanTransitionTx(from, to TxStatus) bool {
	for _, target := range ValidTxTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transitions.
func (s TxStatus) Terminal() bool {
	return len(ValidTxTransitions[s]) == 0
}
