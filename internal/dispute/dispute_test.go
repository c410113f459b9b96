package dispute

import (
	"context"
	"errors"
	"testing"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/infra/storage/memory"
)

const admin = "admin"

// countingRefunder records refund invocations per transaction.
type countingRefunder struct {
	calls map[string]int
	err   error
}

func (r *countingRefunder) Refund(ctx context.Context, transactionID string) error {
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[transactionID]++
	return r.err
}

func newTestLedger(t *testing.T, window uint64) (*Ledger, *ledger.MemoryClock, *countingRefunder) {
	t.Helper()
	store := memory.NewMemoryStorage()
	clock := ledger.NewMemoryClock(1000)
	refunder := &countingRefunder{}
	l := New(Config{Owner: admin, DisputeWindow: window},
		memory.NewDisputeRepo(store), clock, nil, nil)
	l.SetRefunder(refunder)
	return l, clock, refunder
}

func TestFileDispute_DeadlineFixedAtFiling(t *testing.T) {
	l, _, _ := newTestLedger(t, 2000)
	ctx := context.Background()

	d, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", "")
	if err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}
	if d.FiledAt != 1000 {
		t.Errorf("Expected filed_at 1000, got %d", d.FiledAt)
	}
	if d.ResolutionDeadline != 3000 {
		t.Errorf("Expected deadline 3000, got %d", d.ResolutionDeadline)
	}
	if d.Status != domain.DisputeStatusFiled {
		t.Errorf("Expected status filed, got %s", d.Status)
	}

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "again", ""); !errors.Is(err, domain.ErrDuplicateDispute) {
		t.Errorf("Expected ErrDuplicateDispute, got %v", err)
	}
	if _, err := l.FileDispute(ctx, "d-2", "tx-1", "buyer", "seller", 0, "zero", ""); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
}

func TestRefundOnTimeout_DeadlineBoundary(t *testing.T) {
	l, clock, refunder := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	// One sequence before the deadline the refund path is still closed.
	clock.Advance(1999) // ledger 2999
	if err := l.RefundOnTimeout(ctx, "d-1"); !errors.Is(err, domain.ErrNotYetResolvable) {
		t.Errorf("Expected ErrNotYetResolvable at 2999, got %v", err)
	}
	if ok, _ := l.IsResolvable(ctx, "d-1"); ok {
		t.Error("Dispute must not be resolvable at 2999")
	}

	// Exactly at the deadline the refund goes through.
	clock.Advance(1) // ledger 3000
	if ok, _ := l.IsResolvable(ctx, "d-1"); !ok {
		t.Error("Dispute must be resolvable at 3000")
	}
	if err := l.RefundOnTimeout(ctx, "d-1"); err != nil {
		t.Fatalf("RefundOnTimeout failed: %v", err)
	}
	if refunder.calls["tx-1"] != 1 {
		t.Errorf("Expected exactly one refund call, got %d", refunder.calls["tx-1"])
	}

	d, _ := l.GetDispute(ctx, "d-1")
	if d.Status != domain.DisputeStatusRefunded {
		t.Errorf("Expected status refunded, got %s", d.Status)
	}
}

func TestResolveDispute_ExactlyOneOutcome(t *testing.T) {
	l, clock, refunder := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	if err := l.ResolveDispute(ctx, "buyer", "d-1", true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for non-owner, got %v", err)
	}

	if err := l.ResolveDispute(ctx, admin, "d-1", true); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if refunder.calls["tx-1"] != 1 {
		t.Errorf("Expected one refund call, got %d", refunder.calls["tx-1"])
	}

	// A resolved dispute admits no second outcome, by ruling or timeout.
	if err := l.ResolveDispute(ctx, admin, "d-1", false); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved on re-resolution, got %v", err)
	}
	clock.Advance(5000)
	if err := l.RefundOnTimeout(ctx, "d-1"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved on timeout after resolve, got %v", err)
	}
	if refunder.calls["tx-1"] != 1 {
		t.Errorf("Refund ran twice: %d calls", refunder.calls["tx-1"])
	}
}

func TestResolveDispute_FavorRespondentSkipsRefund(t *testing.T) {
	l, _, refunder := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}
	if err := l.ResolveDispute(ctx, admin, "d-1", false); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if refunder.calls["tx-1"] != 0 {
		t.Errorf("Refund must not run for a respondent-favoring ruling, got %d calls", refunder.calls["tx-1"])
	}

	d, _ := l.GetDispute(ctx, "d-1")
	if d.Status != domain.DisputeStatusResolved {
		t.Errorf("Expected status resolved, got %s", d.Status)
	}
}

func TestMarkUnderReview(t *testing.T) {
	l, _, _ := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}
	if err := l.MarkUnderReview(ctx, "buyer", "d-1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if err := l.MarkUnderReview(ctx, admin, "d-1"); err != nil {
		t.Fatalf("MarkUnderReview failed: %v", err)
	}

	d, _ := l.GetDispute(ctx, "d-1")
	if d.Status != domain.DisputeStatusUnderReview {
		t.Errorf("Expected status under_review, got %s", d.Status)
	}

	// Review does not reopen once terminal.
	if err := l.ResolveDispute(ctx, admin, "d-1", false); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}
	if err := l.MarkUnderReview(ctx, admin, "d-1"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
}

func TestPause_GatesAllMovement(t *testing.T) {
	l, clock, _ := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	if err := l.Pause(ctx, "buyer"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for non-owner pause, got %v", err)
	}
	if err := l.Pause(ctx, admin); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	if _, err := l.FileDispute(ctx, "d-2", "tx-2", "buyer", "seller", 1000, "x", ""); !errors.Is(err, domain.ErrPaused) {
		t.Errorf("Expected ErrPaused on filing, got %v", err)
	}
	if err := l.ResolveDispute(ctx, admin, "d-1", true); !errors.Is(err, domain.ErrPaused) {
		t.Errorf("Expected ErrPaused on resolution, got %v", err)
	}
	clock.Advance(5000)
	if err := l.RefundOnTimeout(ctx, "d-1"); !errors.Is(err, domain.ErrPaused) {
		t.Errorf("Expected ErrPaused on timeout refund, got %v", err)
	}

	if err := l.Unpause(ctx, admin); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}
	if err := l.RefundOnTimeout(ctx, "d-1"); err != nil {
		t.Fatalf("RefundOnTimeout after unpause failed: %v", err)
	}
}

func TestListResolvable(t *testing.T) {
	l, clock, _ := newTestLedger(t, 2000)
	ctx := context.Background()

	if _, err := l.FileDispute(ctx, "d-1", "tx-1", "buyer", "seller", 1000, "first", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}
	clock.Advance(500)
	if _, err := l.FileDispute(ctx, "d-2", "tx-2", "buyer", "seller", 1000, "second", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	// Only the first dispute's deadline (3000) has passed at 3200.
	clock.Advance(1700)
	due, err := l.ListResolvable(ctx)
	if err != nil {
		t.Fatalf("ListResolvable failed: %v", err)
	}
	if len(due) != 1 || due[0].DisputeID != "d-1" {
		t.Fatalf("Expected [d-1], got %v", due)
	}
}
