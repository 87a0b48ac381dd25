package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"coopledger/internal/handlers/business"
	"coopledger/internal/middleware"
	"coopledger/internal/models"
	"coopledger/internal/testutil"
	"coopledger/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiTest struct {
	t      *testing.T
	router *gin.Engine
	ledger *business.Ledger
	clock  *testutil.FixedClock
	admin  business.Actor
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("RATE_LIMIT_BURST", "1000")

	clock := testutil.NewFixedClock()
	ledger := business.NewLedger(testutil.OpenDB(t), config.DefaultLedgerSettings(), nil)
	ledger.SetClock(clock.Now)

	reg, err := ledger.Members.Register(business.RegisterInput{Username: "root", Role: models.MemberRoleAdmin})
	require.NoError(t, err)

	return &apiTest{
		t:      t,
		router: SetupRouter(ledger, nil),
		ledger: ledger,
		clock:  clock,
		admin:  business.Actor{ID: reg.Member.ID, Role: models.MemberRoleAdmin},
	}
}

func (a *apiTest) do(method, path string, body interface{}, actor *business.Actor) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set(middleware.HeaderMemberID, strconv.FormatUint(uint64(actor.ID), 10))
		req.Header.Set(middleware.HeaderMemberRole, string(actor.Role))
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (a *apiTest) register(username, referralCode string) business.Actor {
	a.t.Helper()
	w := a.do(http.MethodPost, "/members", gin.H{"username": username, "referral_code": referralCode}, nil)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Member models.Member `json:"member"`
	}
	decode(a.t, w, &resp)
	return business.Actor{ID: resp.Member.ID, Role: resp.Member.Role}
}

func (a *apiTest) createCampaign(target, minimum int64) business.CampaignView {
	a.t.Helper()
	w := a.do(http.MethodPost, "/admin/campaigns", gin.H{
		"title":              "Community bakery",
		"category":           "food",
		"target_amount":      target,
		"minimum_investment": minimum,
		"roi_percentage":     12,
		"duration_months":    12,
	}, &a.admin)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var campaign business.CampaignView
	decode(a.t, w, &campaign)
	return campaign
}

func (a *apiTest) invest(actor business.Actor, campaignID uint, amount int64) models.Investment {
	a.t.Helper()
	w := a.do(http.MethodPost, "/investments", gin.H{"campaign_id": campaignID, "amount": amount}, &actor)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var inv models.Investment
	decode(a.t, w, &inv)
	return inv
}

func TestHealth(t *testing.T) {
	api := newAPITest(t)
	w := api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestAuthentication(t *testing.T) {
	api := newAPITest(t)
	alice := api.register("alice", "")

	t.Run("Anonymous Member Route", func(t *testing.T) {
		w := api.do(http.MethodGet, "/wallet", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Member Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
		req.Header.Set(middleware.HeaderMemberID, "alice")
		w := httptest.NewRecorder()
		api.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Member On Admin Route", func(t *testing.T) {
		w := api.do(http.MethodPost, "/admin/campaigns", gin.H{"title": "x"}, &alice)
		assert.Equal(t, http.StatusForbidden, w.Code)

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, string(business.KindForbidden), body["kind"])
	})

	t.Run("Reading Another Member", func(t *testing.T) {
		bob := api.register("bob", "")
		w := api.do(http.MethodGet, fmt.Sprintf("/members/%d", bob.ID), nil, &alice)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = api.do(http.MethodGet, fmt.Sprintf("/members/%d", bob.ID), nil, &api.admin)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Preflight", func(t *testing.T) {
		w := api.do(http.MethodOptions, "/investments", nil, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	api := newAPITest(t)
	alice := api.register("alice", "")
	campaign := api.createCampaign(1000, 100)

	t.Run("Not Found", func(t *testing.T) {
		w := api.do(http.MethodGet, "/campaigns/999", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, string(business.KindNotFound), body["kind"])
	})

	t.Run("Invalid ID", func(t *testing.T) {
		w := api.do(http.MethodGet, "/campaigns/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Below Minimum Investment", func(t *testing.T) {
		w := api.do(http.MethodPost, "/investments", gin.H{"campaign_id": campaign.ID, "amount": 50}, &alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, string(business.KindInvalidAmount), body["kind"])
	})

	t.Run("Same Status Lists Allowed Targets", func(t *testing.T) {
		w := api.do(http.MethodPut, fmt.Sprintf("/admin/campaigns/%d/status", campaign.ID), gin.H{"status": "active"}, &api.admin)
		assert.Equal(t, http.StatusConflict, w.Code)

		var body struct {
			Kind    string   `json:"kind"`
			Allowed []string `json:"allowed"`
		}
		decode(t, w, &body)
		assert.Equal(t, string(business.KindInvalidState), body.Kind)
		assert.ElementsMatch(t, []string{"paused", "closed", "completed"}, body.Allowed)
	})

	t.Run("Overdraw", func(t *testing.T) {
		w := api.do(http.MethodPost, "/wallet/withdrawals", gin.H{"amount": 500}, &alice)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Missing Body", func(t *testing.T) {
		w := api.do(http.MethodPost, "/members", gin.H{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvestmentFlow(t *testing.T) {
	api := newAPITest(t)
	parent := api.register("parent", "")
	child := api.register("child", "parent")
	campaign := api.createCampaign(1000, 100)

	var inv models.Investment

	t.Run("Registration Pays Referrer", func(t *testing.T) {
		w := api.do(http.MethodGet, "/wallet", nil, &parent)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Wallet        models.Wallet `json:"wallet"`
			TotalEarnings int64         `json:"total_earnings"`
		}
		decode(t, w, &body)
		assert.Equal(t, int64(3000), body.Wallet.Level1Earnings)
		assert.Equal(t, int64(3000), body.Wallet.AvailableWithdrawal)
		assert.Equal(t, int64(3000), body.TotalEarnings)
	})

	t.Run("Create Investment", func(t *testing.T) {
		inv = api.invest(child, campaign.ID, 1000)
		assert.Equal(t, models.PaymentStatusPending, inv.PaymentStatus)
		assert.Equal(t, int64(1120), inv.ExpectedReturn)
		assert.Equal(t, 12, inv.DurationMonths)
	})

	t.Run("Confirm Completes Campaign", func(t *testing.T) {
		path := fmt.Sprintf("/admin/investments/%d/confirm", inv.ID)
		w := api.do(http.MethodPost, path, gin.H{"reference": "pay-1"}, &api.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body struct {
			Campaign         business.CampaignView `json:"campaign"`
			AlreadyConfirmed bool                  `json:"already_confirmed"`
		}
		decode(t, w, &body)
		assert.False(t, body.AlreadyConfirmed)
		assert.Equal(t, models.CampaignStatusCompleted, body.Campaign.Status)
		assert.Equal(t, 100.0, body.Campaign.ProgressPercent)

		w = api.do(http.MethodPost, path, nil, &api.admin)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &body)
		assert.True(t, body.AlreadyConfirmed)

		c, err := api.ledger.Campaigns.Get(campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), c.CurrentAmount)
		assert.Equal(t, 1, c.Participants)
	})

	t.Run("Listing Is Scoped To Member", func(t *testing.T) {
		var page struct {
			Data []models.Investment `json:"data"`
		}
		w := api.do(http.MethodGet, "/investments", nil, &child)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &page)
		assert.Len(t, page.Data, 1)

		w = api.do(http.MethodGet, "/investments", nil, &parent)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &page)
		assert.Empty(t, page.Data)

		w = api.do(http.MethodGet, fmt.Sprintf("/investments/%d", inv.ID), nil, &parent)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Claim Before Maturity", func(t *testing.T) {
		w := api.do(http.MethodPost, fmt.Sprintf("/investments/%d/claim", inv.ID), nil, &child)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Claim After Maturity", func(t *testing.T) {
		api.clock.Advance(366 * 24 * time.Hour)

		w := api.do(http.MethodPost, fmt.Sprintf("/investments/%d/claim", inv.ID), nil, &child)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result business.ClaimResult
		decode(t, w, &result)
		assert.Equal(t, int64(120), result.Profit)
		assert.Equal(t, int64(120), result.Wallet.DonationProfits)
		assert.Equal(t, models.InvestmentStatusWithdrawn, result.Investment.Status)

		w = api.do(http.MethodPost, fmt.Sprintf("/investments/%d/claim", inv.ID), nil, &child)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Downline", func(t *testing.T) {
		w := api.do(http.MethodGet, fmt.Sprintf("/members/%d/downline", parent.ID), nil, &parent)
		require.Equal(t, http.StatusOK, w.Code)

		var downline business.Downline
		decode(t, w, &downline)
		require.Len(t, downline.Level1, 1)
		assert.Equal(t, "child", downline.Level1[0].Username)
	})
}

func TestInvestmentTermsBelongToCampaign(t *testing.T) {
	api := newAPITest(t)
	alice := api.register("alice", "")
	campaign := api.createCampaign(100000, 100)

	w := api.do(http.MethodPost, "/investments", gin.H{
		"campaign_id":     campaign.ID,
		"amount":          1000,
		"roi_percentage":  10000,
		"duration_months": 1,
	}, &alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var inv models.Investment
	decode(t, w, &inv)
	assert.Equal(t, 12.0, inv.RoiPercentage)
	assert.Equal(t, 12, inv.DurationMonths)
	assert.Equal(t, int64(1120), inv.ExpectedReturn)
	assert.True(t, inv.InvestmentDate.AddDate(0, 12, 0).Equal(inv.MaturityDate))

	w = api.do(http.MethodPost, fmt.Sprintf("/admin/investments/%d/confirm", inv.ID), gin.H{"reference": "pay-1"}, &api.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	api.clock.Advance(32 * 24 * time.Hour)
	w = api.do(http.MethodPost, fmt.Sprintf("/investments/%d/claim", inv.ID), nil, &alice)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodGet, "/wallet", nil, &alice)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Wallet models.Wallet `json:"wallet"`
	}
	decode(t, w, &body)
	assert.Zero(t, body.Wallet.DonationProfits)
	assert.Zero(t, body.Wallet.AvailableWithdrawal)
}

func TestWithdrawalFlow(t *testing.T) {
	api := newAPITest(t)
	parent := api.register("parent", "")
	api.register("child", "parent")

	var receipt business.WithdrawalReceipt

	t.Run("Request", func(t *testing.T) {
		w := api.do(http.MethodPost, "/wallet/withdrawals", gin.H{"amount": 25}, &parent)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		decode(t, w, &receipt)
		assert.Equal(t, int64(25), receipt.Wallet.PendingWithdrawal)
		assert.Equal(t, int64(2975), receipt.Wallet.AvailableWithdrawal)
		assert.Equal(t, "24h0m0s", receipt.ProcessingWindow)
	})

	t.Run("Below Minimum", func(t *testing.T) {
		w := api.do(http.MethodPost, "/wallet/withdrawals", gin.H{"amount": 24}, &parent)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Admin Completes", func(t *testing.T) {
		w := api.do(http.MethodGet, "/admin/withdrawals/pending", nil, &api.admin)
		require.Equal(t, http.StatusOK, w.Code)

		var pending []models.WithdrawalRequest
		decode(t, w, &pending)
		require.Len(t, pending, 1)
		assert.Equal(t, receipt.Request.ID, pending[0].ID)

		w = api.do(http.MethodPost, fmt.Sprintf("/admin/withdrawals/%d/complete", receipt.Request.ID), nil, &api.admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var done models.WithdrawalRequest
		decode(t, w, &done)
		assert.Equal(t, models.WithdrawalStatusCompleted, done.Status)

		wallet, err := api.ledger.Wallets.Get(parent.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), wallet.TotalWithdrawn)
		assert.Equal(t, int64(0), wallet.PendingWithdrawal)
		assert.Equal(t, int64(2975), wallet.AvailableWithdrawal)
	})

	t.Run("Audit Trail", func(t *testing.T) {
		w := api.do(http.MethodGet, "/admin/audit-logs?entity=withdrawal", nil, &api.admin)
		require.Equal(t, http.StatusOK, w.Code)

		var page struct {
			Data []models.AuditLog `json:"data"`
		}
		decode(t, w, &page)
		require.Len(t, page.Data, 1)
		assert.Equal(t, "withdrawal.completed", page.Data[0].Action)
		assert.Equal(t, receipt.Request.ID, page.Data[0].EntityID)
		assert.Equal(t, api.admin.ID, page.Data[0].ActorID)

		w = api.do(http.MethodGet, "/admin/audit-logs", nil, &parent)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("History", func(t *testing.T) {
		w := api.do(http.MethodGet, "/wallet/withdrawals", nil, &parent)
		require.Equal(t, http.StatusOK, w.Code)

		var history []models.WithdrawalRequest
		decode(t, w, &history)
		assert.Len(t, history, 1)
	})

	t.Run("Reconcile", func(t *testing.T) {
		w := api.do(http.MethodPost, "/admin/reconcile", nil, &api.admin)
		require.Equal(t, http.StatusOK, w.Code)

		var report business.ReconcileReport
		decode(t, w, &report)
		assert.Equal(t, 3, report.WalletsChecked)
		assert.Zero(t, report.WalletsRepaired)
		assert.Empty(t, report.CampaignDrifts)
	})
}

func TestParseOrigins(t *testing.T) {
	origins := parseOrigins(" http://a.test , ,http://b.test")
	assert.Equal(t, map[string]bool{"http://a.test": true, "http://b.test": true}, origins)
	assert.Empty(t, parseOrigins(""))
}
