package business

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger event consumed by the notification collaborator
type EventType string

const (
	EventMemberRegistered    EventType = "member.registered"
	EventInvestmentCreated   EventType = "investment.created"
	EventInvestmentConfirmed EventType = "investment.confirmed"
	EventPaymentRefused      EventType = "investment.payment_refused"
	EventInvestmentMatured   EventType = "investment.matured"
	EventProfitClaimed       EventType = "investment.profit_claimed"
	EventEarlyWithdrawal     EventType = "investment.early_withdrawn"
	EventCampaignStatus      EventType = "campaign.status_changed"
	EventCommissionPaid      EventType = "commission.paid"
	EventWithdrawalRequested EventType = "withdrawal.requested"
	EventWithdrawalProcessed EventType = "withdrawal.processed"
)

// LedgerEvent is emitted after a ledger mutation commits
type LedgerEvent struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	MemberID     uint                   `json:"member_id,omitempty"`
	CampaignID   uint                   `json:"campaign_id,omitempty"`
	InvestmentID uint                   `json:"investment_id,omitempty"`
	Amount       int64                  `json:"amount,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

// EventPublisher delivers ledger events. Publishing is fire-and-forget:
// implementations log their own failures and never affect ledger state.
type EventPublisher interface {
	Publish(evt LedgerEvent)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(LedgerEvent) {}

// MultiPublisher fans one event out to several publishers
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(evt LedgerEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(evt)
		}
	}
}

func newEvent(t EventType, at time.Time) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: at,
	}
}
