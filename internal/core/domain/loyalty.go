package domain

// LoyaltyAccount tracks cumulative points per customer.
// The tier is never stored; it is derived from points at read time.
type LoyaltyAccount struct {
	Customer string `json:"customer"`
	Points   uint64 `json:"points"`
}

// Tier returns the loyalty tier for the account's current balance.
func (a *LoyaltyAccount) Tier() Tier {
	return TierForPoints(a.Points)
}

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier thresholds. A balance exactly at a boundary belongs to the higher tier.
const (
	SilverThreshold   = 10
	GoldThreshold     = 50
	PlatinumThreshold = 100
)

// TierForPoints derives the tier from a points balance.
func TierForPoints(points uint64) Tier {
	switch {
	case points >= PlatinumThreshold:
		return TierPlatinum
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// LoyaltyReward is an issued reward record. Token ids are assigned from a
// monotonic counter and never reused. Rewards are immutable once issued.
type LoyaltyReward struct {
	TokenID       uint64 `json:"token_id"`
	Owner         string `json:"owner"`
	PointsEarned  uint64 `json:"points_earned"`
	Tier          Tier   `json:"tier"` // tier at issuance
	TransactionID string `json:"transaction_id"`
	IssuedAt      uint64 `json:"issued_at"`
}

// Redemption is the audit record emitted when points are redeemed.
// It does not itself create a credit; downstream settlement consumes it.
type Redemption struct {
	Customer   string `json:"customer"`
	Points     uint64 `json:"points"`
	Remaining  uint64 `json:"remaining"`
	OccurredAt uint64 `json:"occurred_at"`
}
