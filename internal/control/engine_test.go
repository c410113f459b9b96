package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paywow/settlement/internal/core/config"
	"github.com/paywow/settlement/internal/core/domain"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 0}, // Random port
		Settlement: config.SettlementConfig{
			Owner:          "admin",
			FeeAccount:     "fee_pool",
			CustodyAccount: "custody",
			PaymentToken:   "USDC",
			PlatformFeeBps: 100,
			DisputeWindow:  2000,
			PointsPer:      100,
		},
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	e, err := NewEngine(memoryConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if e == nil {
		t.Fatal("Engine is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait a bit to let goroutines spin up
	time.Sleep(100 * time.Millisecond)

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestEngine_PaymentRoundTrip(t *testing.T) {
	e, err := NewEngine(memoryConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	ctx := context.Background()

	// The engine whitelists the payment token at construction.
	e.Tokens().Mint("USDC", "alice", 1000)
	split, err := e.Orchestrator().ProcessSimplePayment(ctx, "pay-1", "alice", "bob", 1000, "", 0)
	if err != nil {
		t.Fatalf("ProcessSimplePayment failed: %v", err)
	}
	if split.PayeeAmount != 990 || split.PlatformFee != 10 {
		t.Errorf("Unexpected split: %+v", split)
	}

	tx, err := e.Orchestrator().GetTransaction(ctx, "pay-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if tx.Status != domain.TxStatusCompleted {
		t.Errorf("Expected completed, got %s", tx.Status)
	}
}

func TestEngine_RejectsBadFeeConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Settlement.PlatformFeeBps = 10001
	if _, err := NewEngine(cfg); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment, got %v", err)
	}
}
