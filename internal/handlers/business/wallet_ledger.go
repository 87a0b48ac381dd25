package business

import (
	"errors"
	"fmt"
	"time"

	"coopledger/internal/models"
	"coopledger/pkg/config"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// availableExpr is the wallet balance invariant expressed over member columns
const availableExpr = "(wallet_level1_earnings + wallet_level2_earnings + wallet_level3_earnings + wallet_donation_profits" +
	" - wallet_total_withdrawn - wallet_pending_withdrawal)"

// WalletLedger owns every write to the wallet embedded in member rows
type WalletLedger struct {
	db        *gorm.DB
	clock     *ledgerClock
	settings  config.LedgerSettings
	publisher EventPublisher
}

// WithdrawalReceipt is returned to the member after a successful request
type WithdrawalReceipt struct {
	Request             models.WithdrawalRequest `json:"request"`
	Wallet              models.Wallet            `json:"wallet"`
	ProcessingWindow    string                   `json:"processing_window"`
	EstimatedCompletion time.Time                `json:"estimated_completion"`
}

// Get returns a member's wallet snapshot
func (w *WalletLedger) Get(userID uint) (*models.Wallet, error) {
	member, err := loadMember(w.db, userID)
	if err != nil {
		return nil, err
	}
	return &member.Wallet, nil
}

// History returns a member's withdrawal requests newest first
func (w *WalletLedger) History(userID uint) ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	if err := w.db.Where("user_id = ?", userID).Order("id desc").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return requests, nil
}

// Pending returns every withdrawal awaiting manual processing, oldest first
func (w *WalletLedger) Pending() ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	if err := w.db.Where("status = ?", models.WithdrawalStatusPending).Order("id asc").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	return requests, nil
}

// CreditCommission adds a referral commission to the levelN earnings component
func (w *WalletLedger) CreditCommission(userID uint, level int, amount int64) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		return w.creditCommissionTx(tx, userID, level, amount)
	})
}

// CreditProfit adds investment proceeds to the donation profits component
func (w *WalletLedger) CreditProfit(userID uint, amount int64) error {
	return w.db.Transaction(func(tx *gorm.DB) error {
		return w.creditProfitTx(tx, userID, amount)
	})
}

func (w *WalletLedger) creditCommissionTx(tx *gorm.DB, userID uint, level int, amount int64) error {
	var column string
	switch level {
	case 1:
		column = "wallet_level1_earnings"
	case 2:
		column = "wallet_level2_earnings"
	case 3:
		column = "wallet_level3_earnings"
	default:
		return invalidInput("commission level %d out of range", level)
	}
	return w.addTx(tx, userID, column, amount)
}

func (w *WalletLedger) creditProfitTx(tx *gorm.DB, userID uint, amount int64) error {
	return w.addTx(tx, userID, "wallet_donation_profits", amount)
}

// addTx is purely additive: earning components never decrease here
func (w *WalletLedger) addTx(tx *gorm.DB, userID uint, column string, amount int64) error {
	if amount < 0 {
		return invalidAmount("credit must not be negative")
	}
	if amount == 0 {
		return nil
	}

	res := tx.Model(&models.Member{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit %s for member %d: %w", column, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("member %d not found", userID)
	}
	return w.recomputeAvailableTx(tx, userID)
}

// recomputeAvailableTx re-derives available_withdrawal from the components, clamped at zero
func (w *WalletLedger) recomputeAvailableTx(tx *gorm.DB, userID uint) error {
	expr := fmt.Sprintf("CASE WHEN %s > 0 THEN %s ELSE 0 END", availableExpr, availableExpr)
	if err := tx.Model(&models.Member{}).
		Where("id = ?", userID).
		Update("wallet_available_withdrawal", gorm.Expr(expr)).Error; err != nil {
		return fmt.Errorf("recompute wallet for member %d: %w", userID, err)
	}
	return nil
}

// RequestWithdrawal reserves amount from the available balance and queues a
// pending history entry. Fund movement is a manual step outside the ledger.
func (w *WalletLedger) RequestWithdrawal(userID uint, amount int64) (*WithdrawalReceipt, error) {
	if amount <= 0 {
		return nil, invalidAmount("withdrawal amount must be positive")
	}
	if amount < w.settings.MinimumWithdrawal {
		return nil, invalidAmount("minimum withdrawal is %d", w.settings.MinimumWithdrawal)
	}

	now := w.clock.now()
	receipt := &WithdrawalReceipt{
		ProcessingWindow:    w.settings.WithdrawalProcessingWindow.String(),
		EstimatedCompletion: now.Add(w.settings.WithdrawalProcessingWindow),
	}

	err := w.db.Transaction(func(tx *gorm.DB) error {
		member, err := loadMember(tx, userID)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Member{}).
			Where("id = ? AND "+availableExpr+" >= ?", userID, amount).
			Update("wallet_pending_withdrawal", gorm.Expr("wallet_pending_withdrawal + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("reserve withdrawal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &LedgerError{
				Kind:   KindInsufficientFunds,
				Reason: fmt.Sprintf("requested %d but only %d is available", amount, member.Wallet.ExpectedAvailable()),
			}
		}
		if err := w.recomputeAvailableTx(tx, userID); err != nil {
			return err
		}

		receipt.Request = models.WithdrawalRequest{
			UserID:              userID,
			Reference:           uuid.NewString(),
			Amount:              amount,
			Status:              models.WithdrawalStatusPending,
			EstimatedCompletion: receipt.EstimatedCompletion,
		}
		if err := tx.Create(&receipt.Request).Error; err != nil {
			return fmt.Errorf("record withdrawal: %w", err)
		}

		fresh, err := loadMember(tx, userID)
		if err != nil {
			return err
		}
		receipt.Wallet = fresh.Wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"amount":    amount,
		"reference": receipt.Request.Reference,
		"available": receipt.Wallet.AvailableWithdrawal,
	}).Info("Withdrawal requested")

	evt := newEvent(EventWithdrawalRequested, now)
	evt.MemberID = userID
	evt.Amount = amount
	evt.Data = map[string]interface{}{"reference": receipt.Request.Reference}
	w.publisher.Publish(evt)

	return receipt, nil
}

// CompleteWithdrawal marks a pending request paid out and moves its amount
// from pending_withdrawal to total_withdrawn.
func (w *WalletLedger) CompleteWithdrawal(requestID uint, actor Actor) (*models.WithdrawalRequest, error) {
	return w.settle(requestID, actor, models.WithdrawalStatusCompleted, "")
}

// RejectWithdrawal releases the reserved amount back to the available balance
func (w *WalletLedger) RejectWithdrawal(requestID uint, actor Actor, note string) (*models.WithdrawalRequest, error) {
	return w.settle(requestID, actor, models.WithdrawalStatusRejected, note)
}

func (w *WalletLedger) settle(requestID uint, actor Actor, to models.WithdrawalStatus, note string) (*models.WithdrawalRequest, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("processing withdrawals requires admin capability")
	}

	now := w.clock.now()
	var request models.WithdrawalRequest
	err := w.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("withdrawal %d not found", requestID)
			}
			return fmt.Errorf("load withdrawal %d: %w", requestID, err)
		}
		if request.Status != models.WithdrawalStatusPending {
			return invalidState("withdrawal %d is already %s", requestID, request.Status)
		}

		res := tx.Model(&models.WithdrawalRequest{}).
			Where("id = ? AND status = ?", requestID, models.WithdrawalStatusPending).
			Updates(map[string]interface{}{
				"status":       to,
				"processed_at": now,
				"processed_by": actor.ID,
				"note":         note,
			})
		if res.Error != nil {
			return fmt.Errorf("settle withdrawal %d: %w", requestID, res.Error)
		}
		if res.RowsAffected == 0 {
			return conflict("withdrawal %d was processed concurrently", requestID)
		}

		updates := map[string]interface{}{
			"wallet_pending_withdrawal": gorm.Expr("wallet_pending_withdrawal - ?", request.Amount),
		}
		if to == models.WithdrawalStatusCompleted {
			updates["wallet_total_withdrawn"] = gorm.Expr("wallet_total_withdrawn + ?", request.Amount)
		}
		if err := tx.Model(&models.Member{}).Where("id = ?", request.UserID).Updates(updates).Error; err != nil {
			return fmt.Errorf("settle wallet for member %d: %w", request.UserID, err)
		}
		if err := w.recomputeAvailableTx(tx, request.UserID); err != nil {
			return err
		}

		request.Status = to
		request.ProcessedAt = &now
		request.ProcessedBy = actor.ID
		request.Note = note

		return recordAudit(tx, models.AuditLog{
			ActorID:  actor.ID,
			Action:   "withdrawal." + string(to),
			Entity:   "withdrawal",
			EntityID: request.ID,
			Message:  fmt.Sprintf("%d for member %d", request.Amount, request.UserID),
			Meta: models.JSONMap{
				"reference": request.Reference,
				"note":      note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawal_id": requestID,
		"user_id":       request.UserID,
		"amount":        request.Amount,
		"status":        to,
		"actor_id":      actor.ID,
	}).Info("Withdrawal processed")

	evt := newEvent(EventWithdrawalProcessed, now)
	evt.MemberID = request.UserID
	evt.Amount = request.Amount
	evt.Data = map[string]interface{}{"reference": request.Reference, "status": string(to)}
	w.publisher.Publish(evt)

	return &request, nil
}

func loadMember(tx *gorm.DB, id uint) (*models.Member, error) {
	var member models.Member
	if err := tx.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("member %d not found", id)
		}
		return nil, fmt.Errorf("load member %d: %w", id, err)
	}
	return &member, nil
}
