package business

import (
	"fmt"

	"coopledger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reconciler audits the ledger invariants: campaign totals against confirmed
// investments, and wallet availability against the earning components.
type Reconciler struct {
	db      *gorm.DB
	wallets *WalletLedger
}

// ReconcileReport summarises one audit run
type ReconcileReport struct {
	CampaignsChecked int      `json:"campaigns_checked"`
	CampaignDrifts   []string `json:"campaign_drifts"`
	WalletsChecked   int      `json:"wallets_checked"`
	WalletsRepaired  int      `json:"wallets_repaired"`
}

type campaignTotals struct {
	CampaignID  uint
	Total       int64
	Investments int
}

// Run checks every campaign and wallet. Campaign drift is reported only;
// wallet availability is re-derived from its components when it drifted.
func (r *Reconciler) Run() (*ReconcileReport, error) {
	report := &ReconcileReport{}

	var totals []campaignTotals
	if err := r.db.Model(&models.Investment{}).
		Select("campaign_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS investments").
		Where("payment_status = ?", models.PaymentStatusConfirmed).
		Group("campaign_id").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("sum confirmed investments: %w", err)
	}
	byCampaign := make(map[uint]campaignTotals, len(totals))
	for _, t := range totals {
		byCampaign[t.CampaignID] = t
	}

	var campaigns []models.Campaign
	if err := r.db.Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	for _, c := range campaigns {
		report.CampaignsChecked++
		t := byCampaign[c.ID]
		if t.Total != c.CurrentAmount || t.Investments != c.Participants {
			drift := fmt.Sprintf("campaign %d: recorded %d/%d, confirmed %d/%d",
				c.ID, c.CurrentAmount, c.Participants, t.Total, t.Investments)
			report.CampaignDrifts = append(report.CampaignDrifts, drift)
			log.WithFields(log.Fields{
				"campaign_id":           c.ID,
				"current_amount":        c.CurrentAmount,
				"participants":          c.Participants,
				"confirmed_total":       t.Total,
				"confirmed_investments": t.Investments,
			}).Error("Campaign total drifted from confirmed investments")
		}
	}

	var batch []models.Member
	err := r.db.FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, m := range batch {
			report.WalletsChecked++
			if m.Wallet.AvailableWithdrawal == m.Wallet.ExpectedAvailable() {
				continue
			}
			log.WithFields(log.Fields{
				"member_id": m.ID,
				"stored":    m.Wallet.AvailableWithdrawal,
				"expected":  m.Wallet.ExpectedAvailable(),
			}).Warn("Wallet availability drifted, recomputing")
			if err := r.wallets.recomputeAvailableTx(r.db, m.ID); err != nil {
				return err
			}
			report.WalletsRepaired++
		}
		return nil
	}).Error
	if err != nil {
		return nil, fmt.Errorf("reconcile wallets: %w", err)
	}

	log.WithFields(log.Fields{
		"campaigns":       report.CampaignsChecked,
		"campaign_drifts": len(report.CampaignDrifts),
		"wallets":         report.WalletsChecked,
		"repaired":        report.WalletsRepaired,
	}).Info("Ledger reconciliation finished")
	return report, nil
}
