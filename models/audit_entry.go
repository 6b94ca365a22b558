package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionClose  AuditAction = "CLOSE"
	AuditActionReopen AuditAction = "REOPEN"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditEntry is an immutable record of a state-machine operation. The core
// only writes these; it never reads them back except for activity reports.
type AuditEntry struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	ActorID uint `gorm:"not null;index:idx_audit_actor" json:"actor_id"`

	// Target entity
	Entity   string `gorm:"size:50;not null;index:idx_audit_entity" json:"entity"` // e.g. "case_file", "movement"
	EntityID uint   `gorm:"not null;index:idx_audit_entity" json:"entity_id"`

	Action      AuditAction `gorm:"size:20;not null" json:"action"`
	Description string      `gorm:"type:text" json:"description,omitempty"`

	// Change tracking (for UPDATE operations), JSON encoded
	OldValues string `gorm:"type:text" json:"old_values,omitempty"`
	NewValues string `gorm:"type:text" json:"new_values,omitempty"`

	// Relationships (for reading, not for data integrity)
	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}

// BeforeCreate hook to generate UUID
func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditEntry) Changes() []AuditChange {
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	var changes []AuditChange
	for field, newVal := range newMap {
		changes = append(changes, AuditChange{
			Field: field,
			Old:   oldMap[field],
			New:   newVal,
		})
	}
	return changes
}
