package models

import (
	"time"
)

type ReferralStatus string

const (
	ReferralStatusPending ReferralStatus = "pending"
	ReferralStatusPaid    ReferralStatus = "paid"
)

// Trigger events recorded on commission rows
const (
	TriggerRegistration = "registration"
	TriggerInvestment   = "investment"
)

// Referral is one commission payout to an upstream referrer. The unique index
// on (referrer, referred, level, trigger) is the double-payment guard.
type Referral struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	ReferrerID   uint           `gorm:"column:referrer_id;not null;index;uniqueIndex:idx_referral_trigger" json:"referrer_id"`
	ReferredID   uint           `gorm:"column:referred_id;not null;uniqueIndex:idx_referral_trigger" json:"referred_id"`
	Level        int            `gorm:"column:level;not null;uniqueIndex:idx_referral_trigger" json:"level"`
	TriggerEvent string         `gorm:"column:trigger_event;size:64;not null;uniqueIndex:idx_referral_trigger" json:"trigger_event"`
	Commission   int64          `gorm:"column:commission;not null" json:"commission"`
	Status       ReferralStatus `gorm:"column:status;size:16;not null" json:"status"`
	PaidAt       *time.Time     `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
