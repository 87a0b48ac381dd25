package business

import (
	"errors"
	"fmt"

	"coopledger/internal/models"
	"coopledger/pkg/config"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InvestmentLifecycleCoordinator orchestrates campaigns, investments, the
// commission cascade and wallets when an investment is created, confirmed,
// claimed or withdrawn early.
type InvestmentLifecycleCoordinator struct {
	db          *gorm.DB
	clock       *ledgerClock
	settings    config.LedgerSettings
	campaigns   *CampaignStore
	investments *InvestmentStore
	cascade     *CommissionCascade
	wallets     *WalletLedger
	publisher   EventPublisher
}

// CreateInvestmentInput describes a new stake. The terms always come from
// the campaign; RoiPercentage and DurationMonths, when set, must match them.
type CreateInvestmentInput struct {
	UserID         uint
	CampaignID     uint
	Amount         int64
	RoiPercentage  float64
	DurationMonths int
}

// ConfirmResult reports a payment confirmation. AlreadyConfirmed marks a
// duplicate delivery that changed nothing.
type ConfirmResult struct {
	Investment       *models.Investment `json:"investment"`
	Campaign         *CampaignView      `json:"campaign,omitempty"`
	AlreadyConfirmed bool               `json:"already_confirmed"`
	Cascade          *CascadeResult     `json:"cascade,omitempty"`
}

// ClaimResult reports a maturity claim
type ClaimResult struct {
	Investment *models.Investment `json:"investment"`
	Profit     int64              `json:"profit"`
	Wallet     models.Wallet      `json:"wallet"`
}

// CreateInvestment validates the stake against the campaign and stores it in
// the pending payment state with the campaign's ROI and duration. Campaign and
// wallet are untouched until payment.
func (l *InvestmentLifecycleCoordinator) CreateInvestment(in CreateInvestmentInput) (*models.Investment, error) {
	if in.Amount <= 0 {
		return nil, invalidAmount("investment amount must be positive")
	}

	now := l.clock.now()
	inv := models.Investment{
		UserID:         in.UserID,
		CampaignID:     in.CampaignID,
		Amount:         in.Amount,
		InvestmentDate: now,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadMember(tx, in.UserID); err != nil {
			return err
		}
		campaign, err := l.campaigns.load(tx, in.CampaignID)
		if err != nil {
			return err
		}
		if campaign.Status != models.CampaignStatusActive {
			return invalidState("campaign %d is %s, not accepting investments", campaign.ID, campaign.Status)
		}
		if in.RoiPercentage != 0 && in.RoiPercentage != campaign.RoiPercentage {
			return invalidInput("campaign %d pays %g%%, not %g%%", campaign.ID, campaign.RoiPercentage, in.RoiPercentage)
		}
		if in.DurationMonths != 0 && in.DurationMonths != campaign.DurationMonths {
			return invalidInput("campaign %d runs %d months, not %d", campaign.ID, campaign.DurationMonths, in.DurationMonths)
		}
		if in.Amount < campaign.MinimumInvestment {
			return invalidAmount("minimum investment for campaign %d is %d", campaign.ID, campaign.MinimumInvestment)
		}

		inv.RoiPercentage = campaign.RoiPercentage
		inv.DurationMonths = campaign.DurationMonths
		inv.ExpectedReturn = ExpectedReturn(in.Amount, campaign.RoiPercentage)
		inv.MaturityDate = now.AddDate(0, campaign.DurationMonths, 0)
		return l.investments.createTx(tx, &inv)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"investment_id":   inv.ID,
		"user_id":         inv.UserID,
		"campaign_id":     inv.CampaignID,
		"amount":          inv.Amount,
		"expected_return": inv.ExpectedReturn,
		"maturity_date":   inv.MaturityDate,
	}).Info("Investment created")

	evt := newEvent(EventInvestmentCreated, now)
	evt.MemberID = inv.UserID
	evt.CampaignID = inv.CampaignID
	evt.InvestmentID = inv.ID
	evt.Amount = inv.Amount
	l.publisher.Publish(evt)

	return &inv, nil
}

// ConfirmPayment is called by the payment collaborator. The confirmation and
// the campaign counters commit together; duplicate calls are no-ops. When the
// cascade is triggered by investments it runs after commit and on duplicates
// too, so an interrupted cascade completes without paying any level twice.
// A payment for a campaign that no longer accepts money leaves the investment
// pending and emits EventPaymentRefused so the payment can be returned.
func (l *InvestmentLifecycleCoordinator) ConfirmPayment(investmentID uint, reference string) (*ConfirmResult, error) {
	result := &ConfirmResult{}
	var refused *models.Investment

	err := l.db.Transaction(func(tx *gorm.DB) error {
		inv, err := l.investments.load(tx, investmentID)
		if err != nil {
			return err
		}
		result.Investment = inv

		changed, err := l.investments.markConfirmedTx(tx, inv, reference)
		if err != nil {
			return err
		}
		if !changed {
			result.AlreadyConfirmed = true
			return nil
		}

		campaign, err := l.campaigns.recordConfirmedInvestmentTx(tx, inv.CampaignID, inv.Amount)
		if err != nil {
			if errors.Is(err, ErrInvalidState) {
				refused = inv
			}
			return fmt.Errorf("record investment %d on campaign: %w", inv.ID, err)
		}
		result.Campaign = l.campaigns.view(campaign)
		return nil
	})
	if err != nil {
		if refused != nil {
			l.publishRefused(refused, reference, err)
		}
		return nil, err
	}

	if !result.AlreadyConfirmed {
		inv := result.Investment
		log.WithFields(log.Fields{
			"investment_id": inv.ID,
			"campaign_id":   inv.CampaignID,
			"amount":        inv.Amount,
			"raised":        result.Campaign.CurrentAmount,
			"status":        result.Campaign.Status,
		}).Info("Investment payment confirmed")

		evt := newEvent(EventInvestmentConfirmed, l.clock.now())
		evt.MemberID = inv.UserID
		evt.CampaignID = inv.CampaignID
		evt.InvestmentID = inv.ID
		evt.Amount = inv.Amount
		l.publisher.Publish(evt)

		if result.Campaign.Status != models.CampaignStatusActive {
			l.campaigns.publishStatus(&result.Campaign.Campaign, models.CampaignStatusActive)
		}
	}

	if l.settings.CommissionTrigger == models.TriggerInvestment {
		result.Cascade = l.cascade.Run(result.Investment.UserID, TriggerKey(models.TriggerInvestment, result.Investment.ID))
	}

	if err := l.investments.refreshAndPublish(result.Investment); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *InvestmentLifecycleCoordinator) publishRefused(inv *models.Investment, reference string, cause error) {
	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"campaign_id":   inv.CampaignID,
		"amount":        inv.Amount,
		"reference":     reference,
	}).Warnf("Investment payment refused: %v", cause)

	evt := newEvent(EventPaymentRefused, l.clock.now())
	evt.MemberID = inv.UserID
	evt.CampaignID = inv.CampaignID
	evt.InvestmentID = inv.ID
	evt.Amount = inv.Amount
	evt.Data = map[string]interface{}{"reference": reference, "reason": cause.Error()}
	l.publisher.Publish(evt)
}

// FailPayment records a negative payment outcome. Failed investments never
// count toward campaign totals.
func (l *InvestmentLifecycleCoordinator) FailPayment(investmentID uint, reference string) (*models.Investment, error) {
	var inv *models.Investment
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = l.investments.load(tx, investmentID)
		if err != nil {
			return err
		}
		_, err = l.investments.markFailedTx(tx, inv, reference)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"reference":     reference,
	}).Warn("Investment payment failed")
	return inv, nil
}

// ClaimProfit settles a matured investment and credits its profit
func (l *InvestmentLifecycleCoordinator) ClaimProfit(investmentID uint, actor Actor) (*ClaimResult, error) {
	result := &ClaimResult{}
	matured := false

	err := l.db.Transaction(func(tx *gorm.DB) error {
		inv, err := l.investments.load(tx, investmentID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(inv, actor); err != nil {
			return err
		}
		if matured, err = l.investments.refresh(tx, inv); err != nil {
			return err
		}

		profit, err := l.investments.claimTx(tx, inv)
		if err != nil {
			return err
		}
		if err := l.wallets.creditProfitTx(tx, inv.UserID, profit); err != nil {
			return err
		}

		member, err := loadMember(tx, inv.UserID)
		if err != nil {
			return err
		}
		result.Investment = inv
		result.Profit = profit
		result.Wallet = member.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv := result.Investment
	if matured {
		l.investments.publishMatured(inv)
	}
	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"profit":        result.Profit,
	}).Info("Investment profit claimed")

	evt := newEvent(EventProfitClaimed, l.clock.now())
	evt.MemberID = inv.UserID
	evt.CampaignID = inv.CampaignID
	evt.InvestmentID = inv.ID
	evt.Amount = result.Profit
	l.publisher.Publish(evt)

	return result, nil
}

// WithdrawEarly exits an active investment after the lock period, paying the
// principal plus accrued profit minus the penalty.
func (l *InvestmentLifecycleCoordinator) WithdrawEarly(investmentID uint, actor Actor) (*EarlyWithdrawal, error) {
	var result *EarlyWithdrawal
	var loaded *models.Investment
	matured := false

	err := l.db.Transaction(func(tx *gorm.DB) error {
		inv, err := l.investments.load(tx, investmentID)
		if err != nil {
			return err
		}
		loaded = inv
		if err := authorizeOwner(inv, actor); err != nil {
			return err
		}
		if matured, err = l.investments.refresh(tx, inv); err != nil {
			return err
		}
		if matured {
			// keep the flip; a matured investment is claimed, not exited
			return nil
		}

		result, err = l.investments.withdrawEarlyTx(tx, inv, l.settings.EarlyWithdrawalPenaltyPct)
		if err != nil {
			return err
		}
		return l.wallets.creditProfitTx(tx, inv.UserID, result.Payout)
	})
	if err != nil {
		return nil, err
	}
	if matured {
		l.investments.publishMatured(loaded)
		return nil, invalidState("investment %d has matured; claim its profit instead", investmentID)
	}

	inv := result.Investment
	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"profit":        result.Profit,
		"penalty":       result.Penalty,
		"payout":        result.Payout,
	}).Info("Investment withdrawn early")

	evt := newEvent(EventEarlyWithdrawal, l.clock.now())
	evt.MemberID = inv.UserID
	evt.CampaignID = inv.CampaignID
	evt.InvestmentID = inv.ID
	evt.Amount = result.Payout
	evt.Data = map[string]interface{}{"penalty": result.Penalty}
	l.publisher.Publish(evt)

	return result, nil
}

// authorizeOwner lets members act on their own investments; admins act on any
func authorizeOwner(inv *models.Investment, actor Actor) error {
	if actor.IsAdmin() || actor.ID == inv.UserID {
		return nil
	}
	return forbidden("investment %d belongs to another member", inv.ID)
}
