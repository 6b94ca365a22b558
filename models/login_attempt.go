package models

import (
	"time"
)

// LoginAttempt records every login try, successful or not. Username is the CI
// the caller supplied; it may not match any existing user.
type LoginAttempt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Username  string `gorm:"index" json:"username"`
	Success   bool   `gorm:"not null;index" json:"success"`
	Reason    string `gorm:"not null" json:"reason"`
	IPAddress string `gorm:"type:varchar(45)" json:"ip_address"`
}

// TableName specifies the table name for LoginAttempt model
func (LoginAttempt) TableName() string {
	return "login_attempts"
}
