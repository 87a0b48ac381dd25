package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap stores free-form metadata in a json column
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("JSONMap: unsupported column type")
	}
	return json.Unmarshal(data, j)
}

// AuditLog represents a record in audit_logs table
type AuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ActorID   uint      `gorm:"column:actor_id;not null;index" json:"actor_id"`
	Action    string    `gorm:"column:action;size:64;not null" json:"action"`
	Entity    string    `gorm:"column:entity;size:32;not null" json:"entity"`
	EntityID  uint      `gorm:"column:entity_id;not null" json:"entity_id"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	Meta      JSONMap   `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
