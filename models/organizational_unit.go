package models

import (
	"time"
)

// Unit kind constants: whether the unit belongs to this institution or is an
// outside body. Reports can filter movement destinations by this kind.
const (
	UnitKindInternal = "internal"
	UnitKindExternal = "external"
)

// OrganizationalUnit is a reference entity: an office a case file can move
// to or from. The core only ever checks existence and reads the kind.
type OrganizationalUnit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name            string `gorm:"uniqueIndex;not null" json:"name"`
	Kind            string `gorm:"not null" json:"kind"`
	InstitutionType string `gorm:"size:80;not null;default:agency" json:"institution_type"`
}

// TableName specifies the table name for OrganizationalUnit model
func (OrganizationalUnit) TableName() string {
	return "organizational_units"
}

// IsValidUnitKind checks if the unit kind is valid
func IsValidUnitKind(kind string) bool {
	return kind == UnitKindInternal || kind == UnitKindExternal
}
