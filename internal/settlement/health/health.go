// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full system health report.
type Report struct {
	Status          SystemStatus `json:"status"`
	Storage         string       `json:"storage"`
	StorageError    string       `json:"storage_error,omitempty"`
	Paused          bool         `json:"paused"`
	ExpiredDisputes int          `json:"expired_disputes"`
	LedgerSeq       uint64       `json:"ledger_seq"`
}
