package schedule

import (
	"testing"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"
	"coopledger/internal/testutil"
	"coopledger/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLedger(t *testing.T) (*business.Ledger, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	ledger := business.NewLedger(db, config.DefaultLedgerSettings(), nil)
	ledger.SetClock(testutil.NewFixedClock().Now)
	return ledger, db
}

func TestReconcileLedger(t *testing.T) {
	ledger, db := newLedger(t)

	reg, err := ledger.Members.Register(business.RegisterInput{Username: "drifted"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Member{}).
		Where("id = ?", reg.Member.ID).
		Updates(map[string]interface{}{
			"wallet_donation_profits":     200,
			"wallet_available_withdrawal": 0,
		}).Error)

	ReconcileLedger(ledger)

	wallet, err := ledger.Wallets.Get(reg.Member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), wallet.AvailableWithdrawal)
}

func TestStart(t *testing.T) {
	ledger, _ := newLedger(t)

	t.Run("Defaults", func(t *testing.T) {
		c, err := Start(ledger, "")
		require.NoError(t, err)
		defer c.Stop()
		assert.Len(t, c.Entries(), 1)
	})

	t.Run("Invalid Spec", func(t *testing.T) {
		_, err := Start(ledger, "every now and then")
		assert.Error(t, err)
	})
}
