package business

import (
	"sync"
	"testing"

	"coopledger/internal/models"
	"coopledger/internal/testutil"
	"coopledger/pkg/config"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (p *recordingPublisher) Publish(evt LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) ofType(t EventType) []LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []LedgerEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testLedger struct {
	*Ledger
	clock  *testutil.FixedClock
	events *recordingPublisher
	admin  Actor
}

func newTestLedger(t *testing.T, tweak ...func(*config.LedgerSettings)) *testLedger {
	t.Helper()

	settings := config.DefaultLedgerSettings()
	for _, fn := range tweak {
		fn(&settings)
	}
	clock := testutil.NewFixedClock()
	events := &recordingPublisher{}

	l := NewLedger(testutil.OpenDB(t), settings, events)
	l.SetClock(clock.Now)

	tl := &testLedger{Ledger: l, clock: clock, events: events}
	reg, err := l.Members.Register(RegisterInput{Username: "root", Role: models.MemberRoleAdmin})
	require.NoError(t, err)
	tl.admin = Actor{ID: reg.Member.ID, Role: models.MemberRoleAdmin}
	return tl
}

func (tl *testLedger) member(t *testing.T, username, referralCode string) *models.Member {
	t.Helper()
	reg, err := tl.Members.Register(RegisterInput{Username: username, ReferralCode: referralCode})
	require.NoError(t, err)
	return reg.Member
}

func (tl *testLedger) campaign(t *testing.T, target, minimum int64) *CampaignView {
	t.Helper()
	return tl.campaignWith(t, target, minimum, 12, 12)
}

func (tl *testLedger) campaignWith(t *testing.T, target, minimum int64, roi float64, months int) *CampaignView {
	t.Helper()
	c, err := tl.Campaigns.Create(CreateCampaignInput{
		Title:             "Solar cooperative",
		TargetAmount:      target,
		MinimumInvestment: minimum,
		RoiPercentage:     roi,
		DurationMonths:    months,
	}, tl.admin)
	require.NoError(t, err)
	return c
}

func (tl *testLedger) invest(t *testing.T, userID, campaignID uint, amount int64) *models.Investment {
	t.Helper()
	inv, err := tl.Lifecycle.CreateInvestment(CreateInvestmentInput{
		UserID:     userID,
		CampaignID: campaignID,
		Amount:     amount,
	})
	require.NoError(t, err)
	return inv
}

func (tl *testLedger) confirmed(t *testing.T, userID, campaignID uint, amount int64) *models.Investment {
	t.Helper()
	inv := tl.invest(t, userID, campaignID, amount)
	_)
	require.NoError(t, err)
	return inv
}

func actorFor(m *models.Member) Actor {
	return Actor{ID: m.ID, Role: m.Role}
}
