package schedule

import (
	"coopledger/internal/handlers/business"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultReconcileSpec uses the six-field cron format with seconds
const DefaultReconcileSpec = "0 */15 * * * *"

// ReconcileLedger runs one reconciliation pass
func ReconcileLedger(ledger *business.Ledger) {
	log.Info("> Starting ledger reconciliation")
	report, err := ledger.Reconciler.Run()
	if err != nil {
		log.Errorf("> Ledger reconciliation failed: %v", err)
		return
	}
	if len(report.CampaignDrifts) > 0 || report.WalletsRepaired > 0 {
		log.WithFields(log.Fields{
			"campaign_drifts":  len(report.CampaignDrifts),
			"wallets_repaired": report.WalletsRepaired,
		}).Warn("> Ledger reconciliation found drift")
	}
}

// Start registers the reconciliation audit and starts the scheduler. A pass
// still running when the next one is due is skipped.
func Start(ledger *business.Ledger, reconcileSpec string) (*cron.Cron, error) {
	if reconcileSpec == "" {
		reconcileSpec = DefaultReconcileSpec
	}

	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(reconcileSpec, func() { ReconcileLedger(ledger) }); err != nil {
		return nil, err
	}

	c.Start()
	log.WithFields(log.Fields{
		"reconcile": reconcileSpec,
	}).Info("> Ledger scheduler started")
	return c, nil
}
