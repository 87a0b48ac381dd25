package models

import (
	"time"
)

// InvestmentStatus is the lifecycle state of an investment
type InvestmentStatus string

const (
	InvestmentStatusActive         InvestmentStatus = "active"
	InvestmentStatusMatured        InvestmentStatus = "matured"
	InvestmentStatusEarlyWithdrawn InvestmentStatus = "early_withdrawn"
	InvestmentStatusWithdrawn      InvestmentStatus = "withdrawn"
)

// PaymentStatus gates whether an investment counts toward campaign totals
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Investment represents one member's stake in one campaign
type Investment struct {
	ID                  uint             `gorm:"primarykey" json:"id"`
	UserID              uint             `gorm:"column:user_id;not null;index" json:"user_id"`
	CampaignID          uint             `gorm:"column:campaign_id;not null;index" json:"campaign_id"`
	Amount              int64            `gorm:"column:amount;not null" json:"amount"`
	RoiPercentage       float64          `gorm:"column:roi_percentage;not null" json:"roi_percentage"`
	ExpectedReturn      int64            `gorm:"column:expected_return;not null" json:"expected_return"`
	DurationMonths      int              `gorm:"column:duration_months;not null" json:"duration_months"`
	InvestmentDate      time.Time        `gorm:"column:investment_date;not null" json:"investment_date"`
	MaturityDate        time.Time        `gorm:"column:maturity_date;not null" json:"maturity_date"`
	Progress            int              `gorm:"column:progress;not null;default:0" json:"progress"`
	CurrentProfit       int64            `gorm:"column:current_profit;not null;default:0" json:"current_profit"`
	CanWithdrawEarly    bool             `gorm:"column:can_withdraw_early;not null;default:false" json:"can_withdraw_early"`
	Status              InvestmentStatus `gorm:"column:status;size:20;not null;index" json:"status"`
	ProfitClaimed       bool             `gorm:"column:profit_claimed;not null;default:false" json:"profit_claimed"`
	ActualReturn        int64            `gorm:"column:actual_return;not null;default:0" json:"actual_return"`
	EarlyWithdrawalDate *time.Time       `gorm:"column:early_withdrawal_date" json:"early_withdrawal_date,omitempty"`
	PaymentStatus       PaymentStatus    `gorm:"column:payment_status;size:16;not null;index" json:"payment_status"`
	PaymentReference    string           `gorm:"column:payment_reference;size:128" json:"payment_reference"`
	ConfirmedAt         *time.Time       `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
}

func (Investment) TableName() string {
	return "investments"
}

// Profit is the full return above principal fixed at creation
func (i *Investment) Profit() int64 {
	return i.ExpectedReturn - i.Amount
}
