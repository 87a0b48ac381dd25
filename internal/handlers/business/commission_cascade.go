package business

import (
	"errors"
	"fmt"

	"coopledger/internal/models"
	"coopledger/pkg/config"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxCascadeLevels is the depth of the upstream referral chain that gets paid
const MaxCascadeLevels = 3

// CommissionCascade pays flat per-level commissions up the referral chain
type CommissionCascade struct {
	db        *gorm.DB
	clock     *ledgerClock
	settings  config.LedgerSettings
	wallets   *WalletLedger
	publisher EventPublisher
}

// LevelPayout is the outcome of one cascade level
type LevelPayout struct {
	Level      int   `json:"level"`
	ReferrerID uint  `json:"referrer_id"`
	Commission int64 `json:"commission"`
	Duplicate  bool  `json:"duplicate"`
}

// CascadeResult reports what one trigger paid. Warning is non-fatal: levels
// applied before it stay applied.
type CascadeResult struct {
	ReferredID   uint          `json:"referred_id"`
	TriggerEvent string        `json:"trigger_event"`
	Payouts      []LevelPayout `json:"payouts"`
	Warning      error         `json:"-"`
}

// Paid counts the levels credited by this run, excluding duplicates
func (r *CascadeResult) Paid() int {
	n := 0
	for _, p := range r.Payouts {
		if !p.Duplicate {
			n++
		}
	}
	return n
}

// TriggerKey builds the idempotency key for a triggering event
func TriggerKey(trigger string, investmentID uint) string {
	if trigger == models.TriggerInvestment {
		return fmt.Sprintf("%s:%d", models.TriggerInvestment, investmentID)
	}
	return models.TriggerRegistration
}

// Run walks from the referred member's direct referrer upward, at most three
// levels. Each level's record and credit commit together; a failing level
// stops the walk without rolling back the levels before it.
func (c *CommissionCascade) Run(referredID uint, triggerEvent string) *CascadeResult {
	result := &CascadeResult{ReferredID: referredID, TriggerEvent: triggerEvent}

	referred, err := loadMember(c.db, referredID)
	if err != nil {
		result.Warning = fmt.Errorf("commission cascade for member %d: %w", referredID, err)
		c.logWarning(result)
		return result
	}

	next := referred.ReferredBy
	for level := 1; next != nil && level <= MaxCascadeLevels; level++ {
		referrer, err := loadMember(c.db, *next)
		if err != nil {
			result.Warning = fmt.Errorf("level %d referrer %d: %w", level, *next, err)
			c.logWarning(result)
			break
		}
		if referrer.ID == referredID {
			result.Warning = fmt.Errorf("level %d: referral chain loops back to member %d", level, referredID)
			c.logWarning(result)
			break
		}

		payout, err := c.payLevel(referrer.ID, referredID, level, triggerEvent)
		if err != nil {
			result.Warning = fmt.Errorf("level %d referrer %d: %w", level, referrer.ID, err)
			c.logWarning(result)
			break
		}
		result.Payouts = append(result.Payouts, *payout)
		if !payout.Duplicate {
			c.publishPaid(payout, referredID, triggerEvent)
		}

		next = referrer.ReferredBy
	}

	log.WithFields(log.Fields{
		"referred_id": referredID,
		"trigger":     triggerEvent,
		"levels":      len(result.Payouts),
		"paid":        result.Paid(),
	}).Info("Commission cascade finished")
	return result
}

// payLevel creates the commission record and credits the wallet as one unit.
// An existing record for the same tuple makes the level a silent no-op.
func (c *CommissionCascade) payLevel(referrerID, referredID uint, level int, triggerEvent string) (*LevelPayout, error) {
	commission := c.settings.CommissionFor(level)
	payout := &LevelPayout{Level: level, ReferrerID: referrerID, Commission: commission}
	now := c.clock.now()

	err := c.db.Transaction(func(tx *gorm.DB) error {
		record := models.Referral{
			ReferrerID:   referrerID,
			ReferredID:   referredID,
			Level:        level,
			TriggerEvent: triggerEvent,
			Commission:   commission,
			Status:       models.ReferralStatusPaid,
			PaidAt:       &now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				payout.Duplicate = true
				return nil
			}
			return fmt.Errorf("record commission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			payout.Duplicate = true
			return nil
		}
		return c.wallets.creditCommissionTx(tx, referrerID, level, commission)
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

// Received lists commission records paid to a referrer, newest first
func (c *CommissionCascade) Received(referrerID uint) ([]models.Referral, error) {
	var records []models.Referral
	if err := c.db.Where("referrer_id = ?", referrerID).Order("id desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	return records, nil
}

func (c *CommissionCascade) logWarning(result *CascadeResult) {
	log.WithFields(log.Fields{
		"referred_id": result.ReferredID,
		"trigger":     result.TriggerEvent,
		"applied":     len(result.Payouts),
	}).Warnf("Commission cascade stopped early: %v", result.Warning)
}

func (c *CommissionCascade) publishPaid(p *LevelPayout, referredID uint, triggerEvent string) {
	evt := newEvent(EventCommissionPaid, c.clock.now())
	evt.MemberID = p.ReferrerID
	evt.Amount = p.Commission
	evt.Data = map[string]interface{}{
		"level":       p.Level,
		"referred_id": referredID,
		"trigger":     triggerEvent,
	}
	c.publisher.Publish(evt)
}
