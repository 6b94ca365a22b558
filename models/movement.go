package models

import (
	"time"
)

// Movement kind constants
const (
	MovementKindInbound  = "inbound"
	MovementKindOutbound = "outbound"
)

// Movement is one entry in a case file's transfer ledger. MovementDate is the
// business date written by the clerk, not the row creation timestamp; history
// and reporting always order by MovementDate, never by insertion order.
type Movement struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseFileID   uint      `gorm:"not null;index" json:"case_file_id"`
	Kind         string    `gorm:"not null" json:"kind"`
	MovementDate time.Time `gorm:"not null;index" json:"movement_date"`

	DestinationUnitID uint  `gorm:"not null" json:"destination_unit_id"`
	OriginUnitID      *uint `json:"origin_unit_id,omitempty"` // null means originated in this office

	Notes       string `gorm:"type:text" json:"notes"`
	PerformedBy uint   `gorm:"not null;index" json:"performed_by"`

	// Soft delete flag; cascades from case file retirement
	Deleted bool `gorm:"not null;default:false;index" json:"deleted"`

	// Scanned transfer receipt (optional)
	AttachmentKey  string `json:"-"`
	AttachmentName string `json:"attachment_name,omitempty"`

	// Relationships
	CaseFile        *CaseFile           `gorm:"foreignKey:CaseFileID" json:"case_file,omitempty"`
	DestinationUnit *OrganizationalUnit `gorm:"foreignKey:DestinationUnitID" json:"destination_unit,omitempty"`
	OriginUnit      *OrganizationalUnit `gorm:"foreignKey:OriginUnitID" json:"origin_unit,omitempty"`
	Performer       *User               `gorm:"foreignKey:PerformedBy" json:"performer,omitempty"`
}

// TableName specifies the table name for Movement model
func (Movement) TableName() string {
	return "movements"
}

// IsValidMovementKind checks if the movement kind is valid
func IsValidMovementKind(kind string) bool {
	return kind == MovementKindInbound || kind == MovementKindOutbound
}
