package models

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// WithdrawalRequest is one entry of a member's withdrawal history
type WithdrawalRequest struct {
	ID                  uint             `gorm:"primarykey" json:"id"`
	UserID              uint             `gorm:"column:user_id;not null;index" json:"user_id"`
	Reference           string           `gorm:"column:reference;size:64;not null;uniqueIndex" json:"reference"`
	Amount              int64            `gorm:"column:amount;not null" json:"amount"`
	Status              WithdrawalStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	EstimatedCompletion time.Time        `gorm:"column:estimated_completion;not null" json:"estimated_completion"`
	ProcessedAt         *time.Time       `gorm:"column:processed_at" json:"processed_at,omitempty"`
	ProcessedBy         uint             `gorm:"column:processed_by;default:0" json:"processed_by"`
	Note                string           `gorm:"column:note;size:255" json:"note"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
