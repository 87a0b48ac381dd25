package models

import (
	"time"
)

// CampaignStatus is the funding state of a campaign
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusClosed    CampaignStatus = "closed"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// CampaignStatuses lists every status an admin may set explicitly
var CampaignStatuses = []CampaignStatus{
	CampaignStatusActive,
	CampaignStatusPaused,
	CampaignStatusClosed,
	CampaignStatusCompleted,
}

// Valid reports whether s is a known campaign status
func (s CampaignStatus) Valid() bool {
	for _, known := range CampaignStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no system-driven transition leaves s
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusClosed || s == CampaignStatusCompleted
}

// Campaign represents a record in campaigns table
type Campaign struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	Title             string         `gorm:"column:title;size:128;not null" json:"title"`
	Description       string         `gorm:"column:description;type:text" json:"description"`
	Category          string         `gorm:"column:category;size:64" json:"category"`
	RiskLevel         string         `gorm:"column:risk_level;size:16;not null;default:'medium'" json:"risk_level"` // low, medium, high
	TargetAmount      int64          `gorm:"column:target_amount;not null" json:"target_amount"`
	CurrentAmount     int64          `gorm:"column:current_amount;not null;default:0" json:"current_amount"`
	MinimumInvestment int64          `gorm:"column:minimum_investment;not null;default:0" json:"minimum_investment"`
	Participants      int            `gorm:"column:participants;not null;default:0" json:"participants"`
	RoiPercentage     float64        `gorm:"column:roi_percentage;not null;default:0" json:"roi_percentage"`
	DurationMonths    int            `gorm:"column:duration_months;not null" json:"duration_months"`
	StartDate         time.Time      `gorm:"column:start_date;not null" json:"start_date"`
	EndDate           time.Time      `gorm:"column:end_date;not null;index" json:"end_date"`
	Status            CampaignStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	Version           uint           `gorm:"column:version;not null;default:1" json:"version"`
	CreatedBy         uint           `gorm:"column:created_by;default:0" json:"created_by"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// ProgressPercent returns min(100, current/target*100)
func (c *Campaign) ProgressPercent() float64 {
	if c.TargetAmount <= 0 {
		return 0
	}
	pct := float64(c.CurrentAmount) / float64(c.TargetAmount) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// IsExpired reports whether now is past the campaign end date
func (c *Campaign) IsExpired(now time.Time) bool {
	return now.After(c.EndDate)
}

// IsFullyFunded reports whether the raised amount reached the target
func (c *Campaign) IsFullyFunded() bool {
	return c.CurrentAmount >= c.TargetAmount
}

// StatusDisplay returns the label shown on admin listings
func (c *Campaign) StatusDisplay(now time.Time) string {
	switch c.Status {
	case CampaignStatusActive:
		if c.IsExpired(now) {
			return "Expired"
		}
		return "Active"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusCompleted:
		return "Fully Funded"
	case CampaignStatusClosed:
		return "Closed"
	}
	return string(c.Status)
}
