package business

import (
	"testing"

	"coopledger/internal/models"
	"coopledger/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countReferrals(t *testing.T, tl *testLedger) int64 {
	t.Helper()
	var n int64
	require.NoError(t, tl.Cascade.db.Model(&models.Referral{}).Count(&n).Error)
	return n
}

func wallet(t *testing.T, tl *testLedger, id uint) *models.Wallet {
	t.Helper()
	w, err := tl.Wallets.Get(id)
	require.NoError(t, err)
	return w
}

func TestCommissionCascade(t *testing.T) {
	t.Run("Three Levels On Registration", func(t *testing.T) {
		tl := newTestLedger(t)
		a := tl.member(t, "a", "")
		b := tl.member(t, "b", a.ReferralCode)
		c := tl.member(t, "c", b.ReferralCode)
		before := wallet(t, tl, a.ID).Level2Earnings

		reg, err := tl.Members.Register(RegisterInput{Username: "d", ReferralCode: c.ReferralCode})
		require.NoError(t, err)
		require.NotNil(t, reg.Cascade)
		assert.NoError(t, reg.Cascade.Warning)
		require.Len(t, reg.Cascade.Payouts, 3)

		assert.Equal(t, LevelPayout{Level: 1, ReferrerID: c.ID, Commission: 3000}, reg.Cascade.Payouts[0])
		assert.Equal(t, LevelPayout{Level: 2, ReferrerID: b.ID, Commission: 1500}, reg.Cascade.Payouts[1])
		assert.Equal(t, LevelPayout{Level: 3, ReferrerID: a.ID, Commission: 600}, reg.Cascade.Payouts[2])

		assert.Equal(t, int64(3000), wallet(t, tl, c.ID).Level1Earnings)
		assert.Equal(t, int64(1500), wallet(t, tl, b.ID).Level2Earnings)
		aw := wallet(t, tl, a.ID)
		assert.Equal(t, int64(600), aw.Level3Earnings)
		assert.Equal(t, before, aw.Level2Earnings)
		assert.Equal(t, aw.ExpectedAvailable(), aw.AvailableWithdrawal)
	})

	t.Run("Short Chain Stops Without Warning", func(t *testing.T) {
		tl := newTestLedger(t)
		b := tl.member(t, "b", "")
		c := tl.member(t, "c", b.ReferralCode)

		reg, err := tl.Members.Register(RegisterInput{Username: "d", ReferralCode: c.ReferralCode})
		require.NoError(t, err)
		assert.NoError(t, reg.Cascade.Warning)
		assert.Len(t, reg.Cascade.Payouts, 2)
		assert.Equal(t, int64(3000), wallet(t, tl, c.ID).Level1Earnings)
		assert.Equal(t, int64(1500), wallet(t, tl, b.ID).Level2Earnings)
	})

	t.Run("Rerun Creates No Records", func(t *testing.T) {
		tl := newTestLedger(t)
		a := tl.member(t, "a", "")
		b := tl.member(t, "b", a.ReferralCode)
		d := tl.member(t, "d", b.ReferralCode)
		records := countReferrals(t, tl)

		res := tl.Cascade.Run(d.ID, TriggerKey(models.TriggerRegistration, 0))
		assert.NoError(t, res.Warning)
		assert.Equal(t, 0, res.Paid())
		require.Len(t, res.Payouts, 2)
		assert.True(t, res.Payouts[0].Duplicate)

		assert.Equal(t, records, countReferrals(t, tl))
		assert.Equal(t, int64(3000), wallet(t, tl, b.ID).Level1Earnings)
		assert.Equal(t, int64(4500), wallet(t, tl, a.ID).TotalEarnings())
	})

	t.Run("Interrupted Chain Keeps Earlier Levels", func(t *testing.T) {
		tl := newTestLedger(t)
		a := tl.member(t, "a", "")
		b := tl.member(t, "b", a.ReferralCode)
		c := tl.member(t, "c", b.ReferralCode)

		// point b at a referrer that does not exist
		missing := uint(9999)
		require.NoError(t, tl.Cascade.db.Model(&models.Member{}).Where("id = ?", b.ID).Update("referred_by", missing).Error)

		reg, err := tl.Members.Register(RegisterInput{Username: "d", ReferralCode: c.ReferralCode})
		require.NoError(t, err)
		require.Error(t, reg.Cascade.Warning)
		assert.Len(t, reg.Cascade.Payouts, 2)
		assert.Equal(t, int64(3000), wallet(t, tl, c.ID).Level1Earnings)
		assert.Equal(t, int64(1500), wallet(t, tl, b.ID).Level2Earnings)
	})

	t.Run("Investment Trigger Pays Per Confirmed Investment", func(t *testing.T) {
		tl := newTestLedger(t, func(s *config.LedgerSettings) { s.CommissionTrigger = models.TriggerInvestment })
		a := tl.member(t, "a", "")
		b := tl.member(t, "b", a.ReferralCode)
		assert.Equal(t, int64(0), wallet(t, tl, a.ID).Level1Earnings)

		camp := tl.campaignWith(t, 1000000, 0, 10, 3)
		first := tl.invest(t, b.ID, camp.ID, 100)

		res, err := tl.Lifecycle.ConfirmPayment(first.ID, "p1")
		require.NoError(t, err)
		require.NotNil(t, res.Cascade)
		assert.Equal(t, 1, res.Cascade.Paid())
		assert.Equal(t, int64(3000), wallet(t, tl, a.ID).Level1Earnings)

		// a duplicate delivery re-walks the chain but pays nothing
		res, err = tl.Lifecycle.ConfirmPayment(first.ID, "p1")
		require.NoError(t, err)
		assert.True(t, res.AlreadyConfirmed)
		assert.Equal(t, 0, res.Cascade.Paid())
		assert.Equal(t, int64(3000), wallet(t, tl, a.ID).Level1Earnings)

		tl.confirmed(t, b.ID, camp.ID, 100000)
		assert.Equal(t, int64(6000), wallet(t, tl, a.ID).Level1Earnings)

		received, err := tl.Cascade.Received(a.ID)
		require.NoError(t, err)
		require.Len(t, received, 2)
		assert.Equal(t, TriggerKey(models.TriggerInvestment, first.ID), received[1].TriggerEvent)
		assert.Equal(t, models.ReferralStatusPaid, received[1].Status)
		assert.Len(t, tl.events.ofType(EventCommissionPaid), 2)
	})

	t.Run("Pending Investment Pays Nothing", func(t *testing.T) {
		tl := newTestLedger(t, func(s *config.LedgerSettings) { s.CommissionTrigger = models.TriggerInvestment })
		a := tl.member(t, "a", "")
		b := tl.member(t, "b", a.ReferralCode)
		camp := tl.campaignWith(t, 1000000, 0, 10, 3)

		tl.invest(t, b.ID, camp.ID, 100)
		assert.Equal(t, int64(0), countReferrals(t, tl))
	})

	t.Run("Trigger Keys", func(t *testing.T) {
		assert.Equal(t, "registration", TriggerKey(models.TriggerRegistration, 7))
		assert.Equal(t, "investment:7", TriggerKey(models.TriggerInvestment, 7))
	})
}
