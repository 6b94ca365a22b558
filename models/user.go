package models

import (
	"time"
)

// Role constants. The role set is closed; permission checks live in
// services/permissions.go as a role x transition matrix.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleOperator   = "operator"
	RoleViewer     = "viewer"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	CI       string `gorm:"uniqueIndex;not null" json:"ci"` // identity document number, used as login name
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"not null;default:viewer" json:"role"`

	UnitID *uint               `gorm:"index" json:"unit_id,omitempty"`
	Unit   *OrganizationalUnit `gorm:"foreignKey:UnitID" json:"unit,omitempty"`

	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidRole checks if the role is one of the closed role set
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleOperator, RoleViewer:
		return true
	}
	return false
}
