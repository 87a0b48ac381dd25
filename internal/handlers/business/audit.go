package business

import (
	"fmt"

	"coopledger/internal/models"

	"gorm.io/gorm"
)

// AuditFilter narrows audit log listings
type AuditFilter struct {
	Entity   string
	EntityID uint
	ActorID  uint
	Page     int
	PageSize int
}

// AuditTrail reads the admin actions recorded alongside ledger mutations
type AuditTrail struct {
	db *gorm.DB
}

// List returns audit entries newest first together with the total count
func (a *AuditTrail) List(filter AuditFilter) ([]models.AuditLog, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	query := a.db.Model(&models.AuditLog{})
	if filter.Entity != "" {
		query = query.Where("entity = ?", filter.Entity)
	}
	if filter.EntityID != 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorID != 0 {
		query = query.Where("actor_id = ?", filter.ActorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := query.Order("id desc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, total, nil
}

// recordAudit must run inside the transaction of the audited change
func recordAudit(tx *gorm.DB, entry models.AuditLog) error {
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
