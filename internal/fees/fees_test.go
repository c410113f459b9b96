package fees

import (
	"errors"
	"testing"

	"github.com/paywow/settlement/internal/core/domain"
)

func TestComputeSplit_Exact(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		platformBps uint32
		merchantBps uint32
		want        Split
	}{
		{
			name:        "one percent platform fee",
			amount:      1000,
			platformBps: 100,
			want:        Split{PayeeAmount: 990, PlatformFee: 10, MerchantFee: 0},
		},
		{
			name:        "platform and merchant fees",
			amount:      20000,
			platformBps: 100,
			merchantBps: 250,
			want:        Split{PayeeAmount: 19300, PlatformFee: 200, MerchantFee: 500},
		},
		{
			name:        "fee rounds down to zero",
			amount:      5,
			platformBps: 100,
			want:        Split{PayeeAmount: 5, PlatformFee: 0, MerchantFee: 0},
		},
		{
			name:        "odd amount floors each fee independently",
			amount:      999,
			platformBps: 150,
			merchantBps: 33,
			// floor(999*150/10000)=14, floor(999*33/10000)=3
			want: Split{PayeeAmount: 982, PlatformFee: 14, MerchantFee: 3},
		},
		{
			name:        "full fee consumes the payment",
			amount:      1000,
			platformBps: 10000,
			want:        Split{PayeeAmount: 0, PlatformFee: 1000, MerchantFee: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeSplit(tt.amount, tt.platformBps, tt.merchantBps)
			if err != nil {
				t.Fatalf("ComputeSplit failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			// The three legs must always reassemble the original amount.
			if got.PayeeAmount+got.PlatformFee+got.MerchantFee != tt.amount {
				t.Errorf("Split legs sum to %d, want %d",
					got.PayeeAmount+got.PlatformFee+got.MerchantFee, tt.amount)
			}
		})
	}
}

func TestComputeSplit_LargeAmount(t *testing.T) {
	// Near the int64 ceiling the naive amount*bps product would overflow.
	amount := int64(9_000_000_000_000_000_000)
	split, err := ComputeSplit(amount, 100, 0)
	if err != nil {
		t.Fatalf("ComputeSplit failed: %v", err)
	}
	wantFee := amount / 100
	if split.PlatformFee != wantFee {
		t.Errorf("Expected platform fee %d, got %d", wantFee, split.PlatformFee)
	}
	if split.PayeeAmount != amount-wantFee {
		t.Errorf("Expected payee amount %d, got %d", amount-wantFee, split.PayeeAmount)
	}
}

func TestComputeSplit_Errors(t *testing.T) {
	if _, err := ComputeSplit(0, 100, 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := ComputeSplit(-5, 100, 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for negative amount, got %v", err)
	}
	if _, err := ComputeSplit(1000, 6000, 5000); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment for 110%% total fees, got %v", err)
	}
	// Exactly 100% total is allowed.
	if _, err := ComputeSplit(1000, 5000, 5000); err != nil {
		t.Errorf("Expected 100%% total fees to be accepted, got %v", err)
	}
}

func TestComputeSplit_RejectsEachRateAboveScale(t *testing.T) {
	// A single out-of-range rate must fail even when the uint32 sum wraps
	// back under the scale.
	if _, err := ComputeSplit(1000, 100, 4294967295); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment for wrapping merchant rate, got %v", err)
	}
	if _, err := ComputeSplit(1000, 4294967295, 100); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment for wrapping platform rate, got %v", err)
	}
	if _, err := ComputeSplit(1000, 10001, 0); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment for 10001 bps, got %v", err)
	}
	if _, err := ComputeSplit(1000, 0, 60000); !errors.Is(err, domain.ErrFeeExceedsPayment) {
		t.Errorf("Expected ErrFeeExceedsPayment for 60000 bps, got %v", err)
	}
}
