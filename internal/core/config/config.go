package config

import (
	"time"

	redisclient "github.com/paywow/settlement/internal/infra/redis"
	"github.com/paywow/settlement/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Settlement SettlementConfig   `yaml:"settlement"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SettlementConfig holds the settlement engine's business parameters.
type SettlementConfig struct {
	// Owner is the admin identity: fee withdrawal, whitelist changes,
	// dispute resolution and escrow release all check against it.
	Owner string `yaml:"owner"`

	// FeeAccount accumulates the platform fee leg of every payment.
	FeeAccount string `yaml:"fee_account"`

	// CustodyAccount holds escrowed funds between lock and release.
	CustodyAccount string `yaml:"custody_account"`

	// PaymentToken is the asset all payments settle in. It is whitelisted
	// at startup.
	PaymentToken string `yaml:"payment_token"`

	// PlatformFeeBps is the platform's cut in basis points (100 = 1%).
	PlatformFeeBps uint32 `yaml:"platform_fee_bps"`

	// DisputeWindow is the number of ledger sequences between filing a
	// dispute and its resolution deadline.
	DisputeWindow uint64 `yaml:"dispute_window"`

	// PointsPer is the payment volume, in minor units, earning one
	// loyalty point.
	PointsPer int64 `yaml:"points_per"`

	// SweepInterval is how often the timeout sweeper looks for expired
	// disputes. 0 disables the sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}
