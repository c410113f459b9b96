// Package fees computes basis-point fee splits.
//
// The same split logic backs both the processor's transfer path and the
// orchestrator's preview path, so it must be deterministic: identical inputs
// always produce identical outputs.
package fees

import (
	"github.com/paywow/settlement/internal/core/domain"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10000

// Split is the ephemeral result of a fee computation.
// PayeeAmount + PlatformFee + MerchantFee == the original amount, exactly.
type Split struct {
	PayeeAmount int64
	PlatformFee int64
	MerchantFee int64
}

// ComputeSplit splits amount into payee, platform and merchant portions.
// Fees are floor(amount * bps / 10000); the payee absorbs all rounding, so no
// value leaks in either direction. Amounts below 10000/bps round a fee to 0;
// that is accepted, there is no minimum-fee floor.
func ComputeSplit(amount int64, platformFeeBps, merchantFeeBps uint32) (Split, error) {
	if amount <= 0 {
		return Split{}, domain.ErrInvalidAmount
	}
	// Each rate is checked on its own before the sum: uint32 addition wraps,
	// and merchantFeeBps arrives straight from callers.
	if platformFeeBps > BpsDenominator || merchantFeeBps > BpsDenominator {
		return Split{}, domain.ErrFeeExceedsPayment
	}
	if platformFeeBps+merchantFeeBps > BpsDenominator {
		return Split{}, domain.ErrFeeExceedsPayment
	}

	platformFee := feeOf(amount, platformFeeBps)
	merchantFee := feeOf(amount, merchantFeeBps)

	return Split{
		PayeeAmount: amount - platformFee - merchantFee,
		PlatformFee: platformFee,
		MerchantFee: merchantFee,
	}, nil
}

// feeOf computes floor(amount * bps / 10000) without overflowing int64.
// Decomposing amount as q*10000 + r keeps every intermediate within range:
// r*bps < 10^8 and q*bps <= amount for bps <= 10000.
func feeOf(amount int64, bps uint32) int64 {
	q := amount / BpsDenominator
	r := amount % BpsDenominator
	return q*int64(bps) + r*int64(bps)/BpsDenominator
}
