package business

import (
	"errors"
	"fmt"
	"time"

	"coopledger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InvestmentStore persists investments and applies accrual on every access
type InvestmentStore struct {
	db        *gorm.DB
	clock     *ledgerClock
	lock      time.Duration
	publisher EventPublisher
}

// InvestmentFilter narrows investment listings
type InvestmentFilter struct {
	UserID        uint
	CampaignID    uint
	Status        models.InvestmentStatus
	PaymentStatus models.PaymentStatus
	Page          int
	PageSize      int
}

// Get loads one investment with its accrual recomputed for now
func (s *InvestmentStore) Get(id uint) (*models.Investment, error) {
	inv, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.refreshAndPublish(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns investments newest first, each refreshed for now
func (s *InvestmentStore) List(filter InvestmentFilter) ([]models.Investment, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	query := s.db.Model(&models.Investment{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.CampaignID != 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count investments: %w", err)
	}

	var investments []models.Investment
	if err := query.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&investments).Error; err != nil {
		return nil, 0, fmt.Errorf("list investments: %w", err)
	}
	for i := range investments {
		if err := s.refreshAndPublish(&investments[i]); err != nil {
			return nil, 0, err
		}
	}
	return investments, total, nil
}

func (s *InvestmentStore) refreshAndPublish(inv *models.Investment) error {
	matured, err := s.refresh(s.db, inv)
	if err != nil {
		return err
	}
	if matured {
		s.publishMatured(inv)
	}
	return nil
}

// refresh recomputes the derived fields of an active, confirmed investment.
// Only an actual active -> matured flip is written, guarded by the current
// status so concurrent readers cannot regress or double-apply it.
func (s *InvestmentStore) refresh(tx *gorm.DB, inv *models.Investment) (bool, error) {
	if inv.Status != models.InvestmentStatusActive || inv.PaymentStatus != models.PaymentStatusConfirmed {
		return false, nil
	}

	acc := accrualFor(inv, s.clock.now(), s.lock)
	inv.Progress = acc.Progress
	inv.CurrentProfit = acc.CurrentProfit
	inv.CanWithdrawEarly = acc.CanWithdrawEarly
	if !acc.Matured {
		return false, nil
	}

	res := tx.Model(&models.Investment{}).
		Where("id = ? AND status = ?", inv.ID, models.InvestmentStatusActive).
		Updates(map[string]interface{}{
			"status":             models.InvestmentStatusMatured,
			"progress":           acc.Progress,
			"current_profit":     acc.CurrentProfit,
			"can_withdraw_early": acc.CanWithdrawEarly,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark investment %d matured: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		fresh, err := s.load(tx, inv.ID)
		if err != nil {
			return false, err
		}
		*inv = *fresh
		return false, nil
	}
	inv.Status = models.InvestmentStatusMatured

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"profit":        inv.CurrentProfit,
	}).Info("Investment matured")
	return true, nil
}

func (s *InvestmentStore) publishMatured(inv *models.Investment) {
	evt := newEvent(EventInvestmentMatured, s.clock.now())
	evt.MemberID = inv.UserID
	evt.CampaignID = inv.CampaignID
	evt.InvestmentID = inv.ID
	evt.Amount = inv.Profit()
	s.publisher.Publish(evt)
}

// createTx inserts a new investment in the pending payment state
func (s *InvestmentStore) createTx(tx *gorm.DB, inv *models.Investment) error {
	inv.Status = models.InvestmentStatusActive
	inv.PaymentStatus = models.PaymentStatusPending
	if err := tx.Create(inv).Error; err != nil {
		return fmt.Errorf("create investment: %w", err)
	}
	return nil
}

// markConfirmedTx moves payment_status pending -> confirmed. It reports false
// when the investment was already confirmed, which callers treat as a no-op.
func (s *InvestmentStore) markConfirmedTx(tx *gorm.DB, inv *models.Investment, reference string) (bool, error) {
	switch inv.PaymentStatus {
	case models.PaymentStatusConfirmed:
		return false, nil
	case models.PaymentStatusFailed:
		return false, invalidState("payment for investment %d already failed", inv.ID)
	}

	now := s.clock.now()
	updates := map[string]interface{}{
		"payment_status": models.PaymentStatusConfirmed,
		"confirmed_at":   now,
	}
	if reference != "" {
		updates["payment_reference"] = reference
	}
	res := tx.Model(&models.Investment{}).
		Where("id = ? AND payment_status = ?", inv.ID, models.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("confirm investment %d: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	inv.PaymentStatus = models.PaymentStatusConfirmed
	inv.ConfirmedAt = &now
	if reference != "" {
		inv.PaymentReference = reference
	}
	return true, nil
}

// markFailedTx moves payment_status pending -> failed
func (s *InvestmentStore) markFailedTx(tx *gorm.DB, inv *models.Investment, reference string) (bool, error) {
	switch inv.PaymentStatus {
	case models.PaymentStatusFailed:
		return false, nil
	case models.PaymentStatusConfirmed:
		return false, invalidState("payment for investment %d is already confirmed", inv.ID)
	}

	res := tx.Model(&models.Investment{}).
		Where("id = ? AND payment_status = ?", inv.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusFailed,
			"payment_reference": reference,
		})
	if res.Error != nil {
		return false, fmt.Errorf("fail investment %d: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, conflict("investment %d payment changed concurrently", inv.ID)
	}
	inv.PaymentStatus = models.PaymentStatusFailed
	inv.PaymentReference = reference
	return true, nil
}

// claimTx settles a matured investment at its full expected return
func (s *InvestmentStore) claimTx(tx *gorm.DB, inv *models.Investment) (int64, error) {
	if inv.ProfitClaimed || inv.Status == models.InvestmentStatusWithdrawn {
		return 0, &LedgerError{Kind: KindInvalidState, Reason: ReasonAlreadyClaimed}
	}
	if inv.Status == models.InvestmentStatusEarlyWithdrawn {
		return 0, &LedgerError{Kind: KindInvalidState, Reason: ReasonEarlyWithdrawn}
	}
	if inv.Status != models.InvestmentStatusMatured {
		return 0, &LedgerError{Kind: KindInvalidState, Reason: ReasonNotYetMatured}
	}

	res := tx.Model(&models.Investment{}).
		Where("id = ? AND status = ? AND profit_claimed = ?", inv.ID, models.InvestmentStatusMatured, false).
		Updates(map[string]interface{}{
			"status":         models.InvestmentStatusWithdrawn,
			"profit_claimed": true,
			"actual_return":  inv.ExpectedReturn,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("claim investment %d: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, conflict("investment %d was claimed concurrently", inv.ID)
	}

	inv.Status = models.InvestmentStatusWithdrawn
	inv.ProfitClaimed = true
	inv.ActualReturn = inv.ExpectedReturn
	return inv.Profit(), nil
}

// EarlyWithdrawal describes the settlement of an early exit
type EarlyWithdrawal struct {
	Investment   *models.Investment `json:"investment"`
	Profit       int64              `json:"current_profit"`
	Penalty      int64              `json:"penalty"`
	Withdrawable int64              `json:"withdrawable_profit"`
	Payout       int64              `json:"total_payout"`
}

// withdrawEarlyTx exits an active investment, forfeiting penaltyPct of the
// accrued profit. The principal is never penalised.
func (s *InvestmentStore) withdrawEarlyTx(tx *gorm.DB, inv *models.Investment, penaltyPct int64) (*EarlyWithdrawal, error) {
	if inv.PaymentStatus != models.PaymentStatusConfirmed {
		return nil, invalidState("investment %d payment is %s", inv.ID, inv.PaymentStatus)
	}
	if inv.Status != models.InvestmentStatusActive {
		return nil, invalidState("investment %d is %s, not active", inv.ID, inv.Status)
	}
	if !inv.CanWithdrawEarly {
		return nil, invalidState("investment %d is still inside the early withdrawal lock period", inv.ID)
	}

	penalty := PercentOf(inv.CurrentProfit, penaltyPct)
	withdrawable := inv.CurrentProfit - penalty
	payout := inv.Amount + withdrawable
	now := s.clock.now()

	res := tx.Model(&models.Investment{}).
		Where("id = ? AND status = ?", inv.ID, models.InvestmentStatusActive).
		Updates(map[string]interface{}{
			"status":                models.InvestmentStatusEarlyWithdrawn,
			"actual_return":         payout,
			"early_withdrawal_date": now,
			"progress":              inv.Progress,
			"current_profit":        inv.CurrentProfit,
			"can_withdraw_early":    inv.CanWithdrawEarly,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("withdraw investment %d early: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, conflict("investment %d changed concurrently", inv.ID)
	}

	inv.Status = models.InvestmentStatusEarlyWithdrawn
	inv.ActualReturn = payout
	inv.EarlyWithdrawalDate = &now

	return &EarlyWithdrawal{
		Investment:   inv,
		Profit:       inv.CurrentProfit,
		Penalty:      penalty,
		Withdrawable: withdrawable,
		Payout:       payout,
	}, nil
}

func (s *InvestmentStore) load(tx *gorm.DB, id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := tx.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("investment %d not found", id)
		}
		return nil, fmt.Errorf("load investment %d: %w", id, err)
	}
	return &inv, nil
}
