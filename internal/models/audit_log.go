package models

import (
	"time"
)

type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`           // Nullable for failed logins and reset requests
	Action     string    `gorm:"size:50;not null" json:"action"` // e.g., "LOGIN", "ADD_FAVORITE", "PASSWORD_RESET"
	EntityID   string    `gorm:"size:120" json:"entity_id"`      // Email, favorite ID or city affected
	Details    string    `gorm:"type:text" json:"details"`       // JSON description
	IPAddress  string    `gorm:"size:45" json:"ip_address"`
	UserAgent  string    `gorm:"size:255" json:"-"` // Raw header, parsed by the audit worker
	Browser    string    `gorm:"size:50" json:"browser"`
	OS         string    `gorm:"size:100" json:"os"`
	DeviceType string    `gorm:"size:50" json:"device_type"`
	Timestamp  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
