package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/paywow/settlement/internal/core/domain"
)

func TestTransactionRepo_Duplicate(t *testing.T) {
	repo := NewTransactionRepo(NewMemoryStorage())
	ctx := context.Background()

	tx := &domain.Transaction{TransactionID: "tx-1", Status: domain.TxStatusPending}
	if err := repo.Create(ctx, tx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, tx); !errors.Is(err, domain.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransactionRepo_CopiesOnReadAndWrite(t *testing.T) {
	repo := NewTransactionRepo(NewMemoryStorage())
	ctx := context.Background()

	tx := &domain.Transaction{TransactionID: "tx-1", Status: domain.TxStatusPending}
	if err := repo.Create(ctx, tx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Mutating the caller's struct after Create must not leak into the store.
	tx.Status = domain.TxStatusCompleted
	got, err := repo.Get(ctx, "tx-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.TxStatusPending {
		t.Errorf("Store shares memory with caller: status %s", got.Status)
	}

	// Mutating a Get result must not change the store either.
	got.Status = domain.TxStatusRefunded
	again, _ := repo.Get(ctx, "tx-1")
	if again.Status != domain.TxStatusPending {
		t.Errorf("Get leaks store internals: status %s", again.Status)
	}
}

func TestSagaStepRepo_UpsertByName(t *testing.T) {
	repo := NewSagaStepRepo(NewMemoryStorage())
	ctx := context.Background()

	step := &domain.SagaStep{StepID: "s-1", TransactionID: "tx-1", Name: domain.StepTransfer, Status: domain.StepStatusPending, RecordedAt: 1}
	if err := repo.Save(ctx, step); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	step.Status = domain.StepStatusCompleted
	step.Attempts = 2
	if err := repo.Save(ctx, step); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	steps, err := repo.GetByTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetByTransaction failed: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("Expected 1 step after upsert, got %d", len(steps))
	}
	if steps[0].Status != domain.StepStatusCompleted || steps[0].Attempts != 2 {
		t.Errorf("Upsert lost fields: %+v", steps[0])
	}
}

func TestDisputeRepo_ListExpired(t *testing.T) {
	repo := NewDisputeRepo(NewMemoryStorage())
	ctx := context.Background()

	disputes := []*domain.Dispute{
		{DisputeID: "d-late", ResolutionDeadline: 5000, Status: domain.DisputeStatusFiled},
		{DisputeID: "d-early", ResolutionDeadline: 2000, Status: domain.DisputeStatusFiled},
		{DisputeID: "d-done", ResolutionDeadline: 1000, Status: domain.DisputeStatusResolved},
		{DisputeID: "d-review", ResolutionDeadline: 3000, Status: domain.DisputeStatusUnderReview},
	}
	for _, d := range disputes {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	expired, err := repo.ListExpired(ctx, 3000)
	if err != nil {
		t.Fatalf("ListExpired failed: %v", err)
	}
	// Terminal disputes are excluded; results come back oldest deadline first.
	if len(expired) != 2 {
		t.Fatalf("Expected 2 expired disputes, got %d", len(expired))
	}
	if expired[0].DisputeID != "d-early" || expired[1].DisputeID != "d-review" {
		t.Errorf("Wrong order: %s, %s", expired[0].DisputeID, expired[1].DisputeID)
	}
}

func TestRewardRepo_MonotonicIDs(t *testing.T) {
	repo := NewRewardRepo(NewMemoryStorage())
	ctx := context.Background()

	id1, err := repo.Create(ctx, &domain.LoyaltyReward{Owner: "alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id2, err := repo.Create(ctx, &domain.LoyaltyReward{Owner: "bob"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("Token ids not monotonic: %d then %d", id1, id2)
	}

	count, _ := repo.Count(ctx)
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestProcessorStateRepo(t *testing.T) {
	repo := NewProcessorStateRepo(NewMemoryStorage())
	ctx := context.Background()

	if allowed, _ := repo.IsWhitelisted(ctx, "USDC"); allowed {
		t.Error("Tokens must start off the whitelist")
	}
	if err := repo.SetWhitelisted(ctx, "USDC", true); err != nil {
		t.Fatalf("SetWhitelisted failed: %v", err)
	}
	if allowed, _ := repo.IsWhitelisted(ctx, "USDC"); !allowed {
		t.Error("Whitelist entry not persisted")
	}

	_ = repo.AddCollectedFees(ctx, 100)
	_ = repo.AddCollectedFees(ctx, -30)
	fees, _ := repo.CollectedFees(ctx)
	if fees != 70 {
		t.Errorf("Expected collected fees 70, got %d", fees)
	}
}
