package models

import (
	"time"
)

type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

// Wallet holds the earning components of a member. It is embedded in the
// members row with a wallet_ column prefix.
type Wallet struct {
	Level1Earnings      int64 `gorm:"column:level1_earnings;not null;default:0" json:"level1_earnings"`
	Level2Earnings      int64 `gorm:"column:level2_earnings;not null;default:0" json:"level2_earnings"`
	Level3Earnings      int64 `gorm:"column:level3_earnings;not null;default:0" json:"level3_earnings"`
	DonationProfits     int64 `gorm:"column:donation_profits;not null;default:0" json:"donation_profits"`
	TotalWithdrawn      int64 `gorm:"column:total_withdrawn;not null;default:0" json:"total_withdrawn"`
	PendingWithdrawal   int64 `gorm:"column:pending_withdrawal;not null;default:0" json:"pending_withdrawal"`
	AvailableWithdrawal int64 `gorm:"column:available_withdrawal;not null;default:0" json:"available_withdrawal"`
}

// TotalEarnings sums every earning component
func (w Wallet) TotalEarnings() int64 {
	return w.Level1Earnings + w.Level2Earnings + w.Level3Earnings + w.DonationProfits
}

// ExpectedAvailable recomputes the available balance from the components
func (w Wallet) ExpectedAvailable() int64 {
	avail := w.TotalEarnings() - w.TotalWithdrawn - w.PendingWithdrawal
	if avail < 0 {
		return 0
	}
	return avail
}

// Member represents a record in members table
type Member struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"column:username;size:64;not null;uniqueIndex" json:"username"`
	ReferralCode string     `gorm:"column:referral_code;size:32;not null;uniqueIndex" json:"referral_code"`
	ReferredBy   *uint      `gorm:"column:referred_by;index" json:"referred_by,omitempty"`
	Role         MemberRole `gorm:"column:role;size:16;not null;default:'member'" json:"role"`
	Wallet       Wallet     `gorm:"embedded;embeddedPrefix:wallet_" json:"wallet"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// IsAdmin reports whether the member carries admin capability
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}
