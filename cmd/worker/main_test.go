package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"coopledger/internal/handlers/business"
	"coopledger/internal/models"
	"coopledger/internal/testutil"
	"coopledger/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog []business.LedgerEvent

func (l *eventLog) Publish(evt business.LedgerEvent) { *l = append(*l, evt) }

func paymentMessage(t *testing.T, pc PaymentConfirmation) []byte {
	t.Helper()
	msg, err := json.Marshal(pc)
	require.NoError(t, err)
	return msg
}

func TestHandlePaymentMessage(t *testing.T) {
	ctx := context.Background()
	ledger := business.NewLedger(testutil.OpenDB(t), config.DefaultLedgerSettings(), nil)
	ledger.SetClock(testutil.NewFixedClock().Now)

	admin, err := ledger.Members.Register(business.RegisterInput{Username: "root", Role: models.MemberRoleAdmin})
	require.NoError(t, err)
	investor, err := ledger.Members.Register(business.RegisterInput{Username: "investor"})
	require.NoError(t, err)
	campaign, err := ledger.Campaigns.Create(business.CreateCampaignInput{
		Title:          "Orchard",
		TargetAmount:   5000,
		RoiPercentage:  8,
		DurationMonths: 6,
	}, business.Actor{ID: admin.Member.ID, Role: models.MemberRoleAdmin})
	require.NoError(t, err)

	newInvestment := func() *models.Investment {
		inv, err := ledger.Lifecycle.CreateInvestment(business.CreateInvestmentInput{
			UserID:         investor.Member.ID,
			CampaignID:     campaign.ID,
			Amount:         1000,
			RoiPercentage:  8,
			DurationMonths: 6,
		})
		require.NoError(t, err)
		return inv
	}

	t.Run("Confirmed Is Applied Once", func(t *testing.T) {
		inv := newInvestment()
		msg := paymentMessage(t, PaymentConfirmation{InvestmentID: inv.ID, Status: "confirmed", Reference: "pay-1"})

		require.NoError(t, handlePaymentMessage(ctx, ledger, msg))
		require.NoError(t, handlePaymentMessage(ctx, ledger, msg))

		c, err := ledger.Campaigns.Get(campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), c.CurrentAmount)
		assert.Equal(t, 1, c.Participants)
	})

	t.Run("Failed Is Applied", func(t *testing.T) {
		inv := newInvestment()
		msg := paymentMessage(t, PaymentConfirmation{InvestmentID: inv.ID, Status: "failed", Reference: "pay-2"})
		require.NoError(t, handlePaymentMessage(ctx, ledger, msg))

		stored, err := ledger.Investments.Get(inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	})

	t.Run("Poison Messages Are Discarded", func(t *testing.T) {
		cases := map[string][]byte{
			"malformed":      []byte("{not json"),
			"missing id":     paymentMessage(t, PaymentConfirmation{Status: "confirmed"}),
			"unknown status": paymentMessage(t, PaymentConfirmation{InvestmentID: 1, Status: "refunded"}),
			"unknown id":     paymentMessage(t, PaymentConfirmation{InvestmentID: 999, Status: "confirmed"}),
		}
		for name, msg := range cases {
			err := handlePaymentMessage(ctx, ledger, msg)
			assert.True(t, errors.Is(err, config.ErrDiscard), "%s: %v", name, err)
		}
	})

	t.Run("Payment For Closed Campaign Is Reported", func(t *testing.T) {
		published := &eventLog{}
		ledger := business.NewLedger(testutil.OpenDB(t), config.DefaultLedgerSettings(), published)
		ledger.SetClock(testutil.NewFixedClock().Now)

		admin, err := ledger.Members.Register(business.RegisterInput{Username: "root", Role: models.MemberRoleAdmin})
		require.NoError(t, err)
		adminActor := business.Actor{ID: admin.Member.ID, Role: models.MemberRoleAdmin}
		investor, err := ledger.Members.Register(business.RegisterInput{Username: "investor"})
		require.NoError(t, err)
		campaign, err := ledger.Campaigns.Create(business.CreateCampaignInput{
			Title:          "Bakery",
			TargetAmount:   5000,
			RoiPercentage:  8,
			DurationMonths: 6,
		}, adminActor)
		require.NoError(t, err)
		inv, err := ledger.Lifecycle.CreateInvestment(business.CreateInvestmentInput{
			UserID:     investor.Member.ID,
			CampaignID: campaign.ID,
			Amount:     1000,
		})
		require.NoError(t, err)
		_, err = ledger.Campaigns.SetStatus(campaign.ID, models.CampaignStatusClosed, adminActor)
		require.NoError(t, err)

		msg := paymentMessage(t, PaymentConfirmation{InvestmentID: inv.ID, Status: "confirmed", Reference: "pay-3"})
		err = handlePaymentMessage(ctx, ledger, msg)
		assert.True(t, errors.Is(err, config.ErrDiscard))

		stored, err := ledger.Investments.Get(inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)

		var refused []business.LedgerEvent
		for _, evt := range *published {
			if evt.Type == business.EventPaymentRefused {
				refused = append(refused, evt)
			}
		}
		require.Len(t, refused, 1)
		assert.Equal(t, inv.ID, refused[0].InvestmentID)
		assert.Equal(t, int64(1000), refused[0].Amount)
		assert.Equal(t, "pay-3", refused[0].Data["reference"])
	})
}
