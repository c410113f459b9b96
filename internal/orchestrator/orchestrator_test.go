package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paywow/settlement/internal/core/domain"
	"github.com/paywow/settlement/internal/core/ledger"
	"github.com/paywow/settlement/internal/dispute"
	"github.com/paywow/settlement/internal/escrow"
	"github.com/paywow/settlement/internal/fees"
	"github.com/paywow/settlement/internal/infra/storage"
	"github.com/paywow/settlement/internal/infra/storage/memory"
	"github.com/paywow/settlement/internal/infra/token"
	"github.com/paywow/settlement/internal/loyalty"
	"github.com/paywow/settlement/internal/processor"
)

const (
	admin   = "admin"
	feePool = "fee_pool"
	custody = "custody"
	asset   = "USDC"
)

// flakyLoyaltyRepo fails a configurable number of saves, then recovers.
type flakyLoyaltyRepo struct {
	storage.LoyaltyRepository
	failures int
}

func (r *flakyLoyaltyRepo) Save(ctx context.Context, account *domain.LoyaltyAccount) error {
	if r.failures > 0 {
		r.failures--
		return fmt.Errorf("storage briefly down")
	}
	return r.LoyaltyRepository.Save(ctx, account)
}

type fixture struct {
	orch    *Orchestrator
	tokens  *token.MemoryService
	clock   *ledger.MemoryClock
	loyalty *loyalty.Ledger
	awards  *flakyLoyaltyRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewMemoryStorage()
	tokens := token.NewMemoryService()
	clock := ledger.NewMemoryClock(1000)

	proc, err := processor.New(processor.Config{
		Owner:          admin,
		FeeAccount:     feePool,
		PaymentToken:   asset,
		PlatformFeeBps: 100,
	}, tokens, memory.NewProcessorStateRepo(store), clock, nil, nil)
	if err != nil {
		t.Fatalf("processor.New failed: %v", err)
	}
	if err := proc.SetWhitelist(context.Background(), admin, asset, true); err != nil {
		t.Fatalf("SetWhitelist failed: %v", err)
	}

	escrows := escrow.New(escrow.Config{Owner: admin, CustodyAccount: custody},
		tokens, memory.NewEscrowRepo(store), clock, nil, nil)
	disputes := dispute.New(dispute.Config{Owner: admin, DisputeWindow: 2000},
		memory.NewDisputeRepo(store), clock, nil, nil)

	awards := &flakyLoyaltyRepo{LoyaltyRepository: memory.NewLoyaltyRepo(store)}
	loyaltyLedger := loyalty.New(awards, memory.NewRewardRepo(store), clock, nil, nil)

	orch := New(Config{Owner: admin, PointsPer: 100},
		memory.NewTransactionRepo(store), memory.NewSagaStepRepo(store),
		proc, escrows, disputes, loyaltyLedger, clock, nil)

	return &fixture{
		orch:    orch,
		tokens:  tokens,
		clock:   clock,
		loyalty: loyaltyLedger,
		awards:  awards,
	}
}

func (f *fixture) steps(t *testing.T, transactionID string) map[domain.StepName]*domain.SagaStep {
	t.Helper()
	recorded, err := f.orch.GetSteps(context.Background(), transactionID)
	if err != nil {
		t.Fatalf("GetSteps failed: %v", err)
	}
	byName := make(map[domain.StepName]*domain.SagaStep)
	for _, s := range recorded {
		byName[s.Name] = s
	}
	return byName
}

func TestProcessSimplePayment_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "alice", 1000)

	split, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0)
	if err != nil {
		t.Fatalf("ProcessSimplePayment failed: %v", err)
	}
	want := fees.Split{PayeeAmount: 990, PlatformFee: 10, MerchantFee: 0}
	if split != want {
		t.Errorf("Expected split %+v, got %+v", want, split)
	}

	tx, err := f.orch.GetTransaction(ctx, "pay-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if tx.Status != domain.TxStatusCompleted {
		t.Errorf("Expected status completed, got %s", tx.Status)
	}

	// 990 settled to the payee earns the payer floor(990/100) = 9 points.
	points, _ := f.loyalty.GetCustomerPoints(ctx, "alice")
	if points != 9 {
		t.Errorf("Expected 9 points, got %d", points)
	}
	tier, _ := f.loyalty.GetCustomerTier(ctx, "alice")
	if tier != domain.TierBronze {
		t.Errorf("Expected bronze, got %s", tier)
	}

	byName := f.steps(t, "pay-1")
	for _, name := range []domain.StepName{domain.StepTransfer, domain.StepAward, domain.StepComplete} {
		s := byName[name]
		if s == nil || s.Status != domain.StepStatusCompleted {
			t.Errorf("Expected step %s completed, got %+v", name, s)
		}
	}
}

func TestProcessSimplePayment_DuplicateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "alice", 5000)

	if _, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0); err != nil {
		t.Fatalf("ProcessSimplePayment failed: %v", err)
	}
	if _, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0); !errors.Is(err, domain.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestProcessSimplePayment_TransferFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Alice has nothing; the transfer leg fails.

	if _, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0); !errors.Is(err, domain.ErrTransferFailed) {
		t.Errorf("Expected ErrTransferFailed, got %v", err)
	}

	tx, err := f.orch.GetTransaction(ctx, "pay-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if tx.Status != domain.TxStatusPending {
		t.Errorf("Expected status pending after transfer failure, got %s", tx.Status)
	}

	// No loyalty for a payment that never settled.
	if points, _ := f.loyalty.GetCustomerPoints(ctx, "alice"); points != 0 {
		t.Errorf("Expected 0 points, got %d", points)
	}

	byName := f.steps(t, "pay-1")
	if s := byName[domain.StepTransfer]; s == nil || s.Status != domain.StepStatusFailed {
		t.Errorf("Expected failed transfer step, got %+v", s)
	}

	// The tail cannot be retried: nothing was committed.
	if err := f.orch.RetryTail(ctx, "pay-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from RetryTail, got %v", err)
	}
}

func TestRetryTail_ReplaysOnlyTheTail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "alice", 1000)
	f.awards.failures = 1 // first award save fails

	_, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0)
	if err == nil {
		t.Fatal("Expected tail failure")
	}

	// Funds moved even though the tail failed.
	if bal, _ := f.tokens.Balance(ctx, asset, "bob"); bal != 990 {
		t.Errorf("Expected payee balance 990, got %d", bal)
	}
	tx, _ := f.orch.GetTransaction(ctx, "pay-1")
	if tx.Status != domain.TxStatusPending {
		t.Errorf("Expected status pending before retry, got %s", tx.Status)
	}

	if err := f.orch.RetryTail(ctx, "pay-1"); err != nil {
		t.Fatalf("RetryTail failed: %v", err)
	}

	tx, _ = f.orch.GetTransaction(ctx, "pay-1")
	if tx.Status != domain.TxStatusCompleted {
		t.Errorf("Expected status completed after retry, got %s", tx.Status)
	}
	// The award ran exactly once, on the retry.
	if points, _ := f.loyalty.GetCustomerPoints(ctx, "alice"); points != 9 {
		t.Errorf("Expected 9 points after retry, got %d", points)
	}
	// The payee balance is untouched by the retry.
	if bal, _ := f.tokens.Balance(ctx, asset, "bob"); bal != 990 {
		t.Errorf("Payee balance changed on retry: %d", bal)
	}

	byName := f.steps(t, "pay-1")
	if s := byName[domain.StepAward]; s == nil || s.Attempts < 2 {
		t.Errorf("Expected award step with retry attempts, got %+v", s)
	}
}

func TestProcessEscrowPayment_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "buyer", 20000)

	account, err := f.orch.ProcessEscrowPayment(ctx, "esc-1", "buyer", "seller", 20000, 3000)
	if err != nil {
		t.Fatalf("ProcessEscrowPayment failed: %v", err)
	}
	if account.Status != domain.EscrowStatusLocked {
		t.Errorf("Expected escrow locked, got %s", account.Status)
	}

	tx, _ := f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusEscrowed {
		t.Errorf("Expected status escrowed, got %s", tx.Status)
	}
	if points, _ := f.loyalty.GetCustomerPoints(ctx, "buyer"); points != 200 {
		t.Errorf("Expected 200 points for the buyer, got %d", points)
	}

	// Early third-party release is rejected; the ledger stays escrowed.
	if err := f.orch.ReleaseEscrow(ctx, "seller", "esc-1", "seller"); !errors.Is(err, domain.ErrFundsLocked) {
		t.Errorf("Expected ErrFundsLocked, got %v", err)
	}
	tx, _ = f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusEscrowed {
		t.Errorf("Status changed on failed release: %s", tx.Status)
	}

	// The owner releases early; the seller is paid and earns the points.
	if err := f.orch.ReleaseEscrow(ctx, admin, "esc-1", "seller"); err != nil {
		t.Fatalf("ReleaseEscrow failed: %v", err)
	}
	if bal, _ := f.tokens.Balance(ctx, asset, "seller"); bal != 20000 {
		t.Errorf("Expected seller balance 20000, got %d", bal)
	}
	tx, _ = f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusCompleted {
		t.Errorf("Expected status completed, got %s", tx.Status)
	}
	if points, _ := f.loyalty.GetCustomerPoints(ctx, "seller"); points != 200 {
		t.Errorf("Expected 200 reputation points for the seller, got %d", points)
	}
}

func TestDispute_FavorClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "buyer", 20000)

	if _, err := f.orch.ProcessEscrowPayment(ctx, "esc-1", "buyer", "seller", 20000, 9000); err != nil {
		t.Fatalf("ProcessEscrowPayment failed: %v", err)
	}
	if _, err := f.orch.FileDispute(ctx, "d-1", "esc-1", "buyer", "seller", "not delivered", "tracking shows no shipment"); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	tx, _ := f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusDisputed {
		t.Errorf("Expected status disputed, got %s", tx.Status)
	}

	if err := f.orch.ResolveDispute(ctx, admin, "d-1", true); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}

	// The escrow refunded the buyer in full.
	if bal, _ := f.tokens.Balance(ctx, asset, "buyer"); bal != 20000 {
		t.Errorf("Expected buyer balance restored to 20000, got %d", bal)
	}
	tx, _ = f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusRefunded {
		t.Errorf("Expected status refunded, got %s", tx.Status)
	}
}

func TestDispute_FavorRespondent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "buyer", 20000)

	if _, err := f.orch.ProcessEscrowPayment(ctx, "esc-1", "buyer", "seller", 20000, 9000); err != nil {
		t.Fatalf("ProcessEscrowPayment failed: %v", err)
	}
	if _, err := f.orch.FileDispute(ctx, "d-1", "esc-1", "buyer", "seller", "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}
	if err := f.orch.ResolveDispute(ctx, admin, "d-1", false); err != nil {
		t.Fatalf("ResolveDispute failed: %v", err)
	}

	// The escrow paid out to the respondent.
	if bal, _ := f.tokens.Balance(ctx, asset, "seller"); bal != 20000 {
		t.Errorf("Expected seller balance 20000, got %d", bal)
	}
	tx, _ := f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusCompleted {
		t.Errorf("Expected status completed, got %s", tx.Status)
	}
}

func TestDispute_RefundOnTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "buyer", 20000)

	if _, err := f.orch.ProcessEscrowPayment(ctx, "esc-1", "buyer", "seller", 20000, 9000); err != nil {
		t.Fatalf("ProcessEscrowPayment failed: %v", err)
	}
	if _, err := f.orch.FileDispute(ctx, "d-1", "esc-1", "buyer", "seller", "not delivered", ""); err != nil {
		t.Fatalf("FileDispute failed: %v", err)
	}

	// The window has not elapsed yet.
	if err := f.orch.RefundOnTimeout(ctx, "d-1"); !errors.Is(err, domain.ErrNotYetResolvable) {
		t.Errorf("Expected ErrNotYetResolvable, got %v", err)
	}

	f.clock.Advance(3000)
	if err := f.orch.RefundOnTimeout(ctx, "d-1"); err != nil {
		t.Fatalf("RefundOnTimeout failed: %v", err)
	}

	if bal, _ := f.tokens.Balance(ctx, asset, "buyer"); bal != 20000 {
		t.Errorf("Expected buyer balance restored, got %d", bal)
	}
	tx, _ := f.orch.GetTransaction(ctx, "esc-1")
	if tx.Status != domain.TxStatusRefunded {
		t.Errorf("Expected status refunded, got %s", tx.Status)
	}
}

func TestFileDispute_TerminalTransactionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "alice", 1000)

	if _, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0); err != nil {
		t.Fatalf("ProcessSimplePayment failed: %v", err)
	}
	if _, err := f.orch.FileDispute(ctx, "d-1", "pay-1", "alice", "bob", "regret", ""); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Errorf("Expected ErrAlreadyFinalized for a completed transaction, got %v", err)
	}
}

func TestPreviewSplit_MatchesProcessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tokens.Mint(asset, "alice", 1000)

	preview, err := f.orch.PreviewSplit(1000, 0)
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}
	actual, err := f.orch.ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0)
	if err != nil {
		t.Fatalf("ProcessSimplePayment failed: %v", err)
	}
	if preview != actual {
		t.Errorf("Preview %+v differs from settlement %+v", preview, actual)
	}
}
