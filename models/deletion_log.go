package models

import (
	"time"
)

// DeletionLog is a dedicated record of case file retirements, written in the
// same transaction as the soft delete itself (unlike audit entries, which are
// best-effort).
type DeletionLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CaseFileID uint      `gorm:"not null;index" json:"case_file_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	DeletedAt  time.Time `gorm:"not null" json:"deleted_at"`
}

// TableName specifies the table name for DeletionLog model
func (DeletionLog) TableName() string {
	return "deletion_logs"
}
