package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/paywow/settlement/internal/core/domain"
)

// Emitter publishes settlement audit events. Emission is fire-and-forget:
// failures are logged, never propagated into the calling flow.
type Emitter interface {
	Emit(ctx context.Context, eventType domain.EventType, ledgerSeq uint64, metadata map[string]any)
}

// LogEmitter writes events to slog. The default sink.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(ctx context.Context, eventType domain.EventType, ledgerSeq uint64, metadata map[string]any) {
	event := domain.Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		LedgerSeq: ledgerSeq,
		Metadata:  metadata,
	}
	e.log.Info("event",
		"event_id", event.EventID,
		"event_type", string(event.EventType),
		"ledger_seq", event.LedgerSeq,
		"metadata", event.Metadata,
	)
}

// NopEmitter discards events. Used in tests that don't assert on emission.
type NopEmitter struct{}

func (NopEmitter) Emit(ctx context.Context, eventType domain.EventType, ledgerSeq uint64, metadata map[string]any) {
}

// Recorder captures events in memory for test assertions.
type Recorder struct {
	Events []domain.Event
}

func (r *Recorder) Emit(ctx context.Context, eventType domain.EventType, ledgerSeq uint64, metadata map[string]any) {
	r.Events = append(r.Events, domain.Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		LedgerSeq: ledgerSeq,
		Metadata:  metadata,
	})
}
