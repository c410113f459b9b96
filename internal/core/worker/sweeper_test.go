package worker

import (
	"context"
	"testing"
	"time"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
)

type fakeSource struct {
	disputes []*domain.Dispute
}

func (s *fakeSource) ListResolvable(ctx context.Context) ([]*domain.Dispute, error) {
	return s.disputes, nil
}

type fakeRefunder struct {
	calls []string
	errs  map[string]error
}

func (r *fakeRefunder) RefundOnTimeout(ctx context.Context, disputeID string) error {
	r.calls = append(r.calls, disputeID)
	return r.errs[disputeID]
}

func TestSweep_RefundsAllDue(t *testing.T) {
	source := &fakeSource{disputes: []*domain.Dispute{
		{DisputeID: "d-1"},
		{DisputeID: "d-2"},
	}}
	refunder := &fakeRefunder{}
	s := NewSweeper(time.Second, source, refunder, ledger.NewMemoryClock(0), nil)

	s.Sweep(context.Background())

	if len(refunder.calls) != 2 {
		t.Fatalf("Expected 2 refund calls, got %d", len(refunder.calls))
	}
}

func TestSweep_OneFailureDoesNotBlockOthers(t *testing.T) {
	source := &fakeSource{disputes: []*domain.Dispute{
		{DisputeID: "d-1"},
		{DisputeID: "d-2"},
	}}
	refunder := &fakeRefunder{errs: map[string]error{"d-1": domain.ErrAlreadyResolved}}
	s := NewSweeper(time.Second, source, refunder, ledger.NewMemoryClock(0), nil)

	s.Sweep(context.Background())

	if len(refunder.calls) != 2 {
		t.Fatalf("Expected both disputes attempted, got %d calls", len(refunder.calls))
	}
}

func TestSweep_StopsWhenPaused(t *testing.T) {
	source := &fakeSource{disputes: []*domain.Dispute{
		{DisputeID: "d-1"},
		{DisputeID: "d-2"},
	}}
	refunder := &fakeRefunder{errs: map[string]error{"d-1": domain.ErrPaused}}
	s := NewSweeper(time.Second, source, refunder, ledger.NewMemoryClock(0), nil)

	s.Sweep(context.Background())

	// A pause gates everything; no point hammering the remaining disputes.
	if len(refunder.calls) != 1 {
		t.Fatalf("Expected sweep to stop at the pause, got %d calls", len(refunder.calls))
	}
}

type fakeIndex struct {
	due []string
}

func (i *fakeIndex) Due(ctx context.Context, now uint64) ([]string, error) {
	return i.due, nil
}

func TestSweep_PrefersDeadlineIndex(t *testing.T) {
	source := &fakeSource{disputes: []*domain.Dispute{{DisputeID: "from-store"}}}
	refunder := &fakeRefunder{}
	s := NewSweeper(time.Second, source, refunder, ledger.NewMemoryClock(0), nil)
	s.SetDeadlineIndex(&fakeIndex{due: []string{"from-index"}})

	s.Sweep(context.Background())

	if len(refunder.calls) != 1 || refunder.calls[0] != "from-index" {
		t.Fatalf("Expected the index to drive the sweep, got %v", refunder.calls)
	}
}
