package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// LedgerSettings holds the tunables of the investment and commission ledger
type LedgerSettings struct {
	Level1Commission           int64         `env:"COMMISSION_LEVEL1" envDefault:"3000"`
	Level2Commission           int64         `env:"COMMISSION_LEVEL2" envDefault:"1500"`
	Level3Commission           int64         `env:"COMMISSION_LEVEL3" envDefault:"600"`
	CommissionTrigger          string        `env:"COMMISSION_TRIGGER" envDefault:"registration"` // registration or investment
	MinimumWithdrawal          int64         `env:"MINIMUM_WITHDRAWAL" envDefault:"25"`
	EarlyWithdrawalPenaltyPct  int64         `env:"EARLY_WITHDRAWAL_PENALTY_PERCENT" envDefault:"30"`
	EarlyWithdrawalLockDays    int           `env:"EARLY_WITHDRAWAL_LOCK_DAYS" envDefault:"30"`
	WithdrawalProcessingWindow time.Duration `env:"WITHDRAWAL_PROCESSING_WINDOW" envDefault:"24h"`
	ConflictRetries            uint          `env:"CONFLICT_RETRIES" envDefault:"3"`
}

// DefaultLedgerSettings returns the settings used when no environment overrides exist
func DefaultLedgerSettings() LedgerSettings {
	return LedgerSettings{
		Level1Commission:           3000,
		Level2Commission:           1500,
		Level3Commission:           600,
		CommissionTrigger:          "registration",
		MinimumWithdrawal:          25,
		EarlyWithdrawalPenaltyPct:  30,
		EarlyWithdrawalLockDays:    30,
		WithdrawalProcessingWindow: 24 * time.Hour,
		ConflictRetries:            3,
	}
}

// CommissionFor returns the flat commission paid at the given referral level
func (s LedgerSettings) CommissionFor(level int) int64 {
	switch level {
	case 1:
		return s.Level1Commission
	case 2:
		return s.Level2Commission
	case 3:
		return s.Level3Commission
	}
	return 0
}

// EarlyWithdrawalLock is the minimum holding period before an early exit
func (s LedgerSettings) EarlyWithdrawalLock() time.Duration {
	return time.Duration(s.EarlyWithdrawalLockDays) * 24 * time.Hour
}

// Validate checks the settings for values the ledger cannot operate with
func (s LedgerSettings) Validate() error {
	if s.CommissionTrigger != "registration" && s.CommissionTrigger != "investment" {
		return fmt.Errorf("COMMISSION_TRIGGER must be registration or investment, got %q", s.CommissionTrigger)
	}
	if s.EarlyWithdrawalPenaltyPct < 0 || s.EarlyWithdrawalPenaltyPct > 100 {
		return fmt.Errorf("EARLY_WITHDRAWAL_PENALTY_PERCENT must be within [0, 100], got %d", s.EarlyWithdrawalPenaltyPct)
	}
	if s.MinimumWithdrawal <= 0 {
		return fmt.Errorf("MINIMUM_WITHDRAWAL must be positive, got %d", s.MinimumWithdrawal)
	}
	for level := 1; level <= 3; level++ {
		if s.CommissionFor(level) < 0 {
			return fmt.Errorf("commission for level %d must not be negative", level)
		}
	}
	return nil
}

// LoadEnv reads a local .env file when present
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}
}

// LoadLedgerSettings parses ledger settings from the environment
func LoadLedgerSettings() LedgerSettings {
	settings, err := env.ParseAs[LedgerSettings]()
	if err != nil {
		log.Fatal("Failed to parse ledger settings: ", err)
	}
	if err := settings.Validate(); err != nil {
		log.Fatal("Invalid ledger settings: ", err)
	}
	return settings
}
