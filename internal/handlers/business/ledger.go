package business

import (
	"coopledger/pkg/config"

	"gorm.io/gorm"
)

// Ledger wires the stores of the investment and commission ledger around one database
type Ledger struct {
	Settings    config.LedgerSettings
	Campaigns   *CampaignStore
	Investments *InvestmentStore
	Cascade     *CommissionCascade
	Wallets     *WalletLedger
	Members     *MemberRegistry
	Lifecycle   *InvestmentLifecycleCoordinator
	Reconciler  *Reconciler
	Audit       *AuditTrail

	clock *ledgerClock
}

// NewLedger builds a ledger. A nil publisher drops events.
func NewLedger(db *gorm.DB, settings config.LedgerSettings, publisher EventPublisher) *Ledger {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	clock := &ledgerClock{now: systemClock}

	campaigns := &CampaignStore{db: db, clock: clock, publisher: publisher}
	investments := &InvestmentStore{db: db, clock: clock, lock: settings.EarlyWithdrawalLock(), publisher: publisher}
	wallets := &WalletLedger{db: db, clock: clock, settings: settings, publisher: publisher}
	cascade := &CommissionCascade{db: db, clock: clock, settings: settings, wallets: wallets, publisher: publisher}

	return &Ledger{
		Settings:    settings,
		Campaigns:   campaigns,
		Investments: investments,
		Cascade:     cascade,
		Wallets:     wallets,
		Members: &MemberRegistry{
			db:        db,
			clock:     clock,
			settings:  settings,
			cascade:   cascade,
			publisher: publisher,
		},
		Lifecycle: &InvestmentLifecycleCoordinator{
			db:          db,
			clock:       clock,
			settings:    settings,
			campaigns:   campaigns,
			investments: investments,
			cascade:     cascade,
			wallets:     wallets,
			publisher:   publisher,
		},
		Reconciler: &Reconciler{db: db, wallets: wallets},
		Audit:      &AuditTrail{db: db},
		clock:      clock,
	}
}

// SetClock replaces the wall clock of every store. Call before serving requests.
func (l *Ledger) SetClock(c Clock) {
	l.clock.now = c
}
