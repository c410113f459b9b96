package health

import (
	"context"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
)

// StorageHealth reports on the backing store.
type StorageHealth interface {
	Health(ctx context.Context) error
}

// DisputeStatus exposes the dispute ledger state the monitor reports on.
type DisputeStatus interface {
	Paused() bool
	ListResolvable(ctx context.Context) ([]*domain.Dispute, error)
}

// Monitor aggregates component states into a health report.
type Monitor struct {
	storage     StorageHealth // nil for in-memory storage
	storageName string
	disputes    DisputeStatus
	clock       ledger.Clock
}

// NewMonitor creates a new health monitor. Pass a nil storage when running on
// in-memory storage.
func NewMonitor(storage StorageHealth, storageName string, disputes DisputeStatus, clock ledger.Clock) *Monitor {
	return &Monitor{
		storage:     storage,
		storageName: storageName,
		disputes:    disputes,
		clock:       clock,
	}
}

// CheckHealth builds the current health report. An unreachable store is
// critical; a paused engine or a timeout refund backlog is degraded.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{
		Status:  StatusHealthy,
		Storage: m.storageName,
	}

	if m.storage != nil {
		if err := m.storage.Health(ctx); err != nil {
			report.Status = StatusCritical
			report.StorageError = err.Error()
		}
	}

	if now, err := m.clock.Now(ctx); err == nil {
		report.LedgerSeq = now
	}

	report.Paused = m.disputes.Paused()
	if expired, err := m.disputes.ListResolvable(ctx); err == nil {
		report.ExpiredDisputes = len(expired)
	}

	if report.Status == StatusHealthy && (report.Paused || report.ExpiredDisputes > 0) {
		report.Status = StatusDegraded
	}

	return report
}
