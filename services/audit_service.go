package services

import (
	"encoding/json"
	"log"
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// RecordAudit creates an audit entry asynchronously. Audit recording is
// best-effort: failures are logged and swallowed, they never fail or roll
// back the operation that produced them.
func RecordAudit(
	db *gorm.DB,
	actorID uint,
	entity string,
	entityID uint,
	action models.AuditAction,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	// Run in goroutine to avoid blocking the request
	go func() {
		var oldJSON, newJSON string

		if oldValues != nil {
			if bytes, err := json.Marshal(oldValues); err == nil {
				oldJSON = string(bytes)
			}
		}
		if newValues != nil {
			if bytes, err := json.Marshal(newValues); err == nil {
				newJSON = string(bytes)
			}
		}

		entry := models.AuditEntry{
			ActorID:     actorID,
			Entity:      entity,
			EntityID:    entityID,
			Action:      action,
			Description: description,
			OldValues:   oldJSON,
			NewValues:   newJSON,
		}

		if err := db.Create(&entry).Error; err != nil {
			log.Printf("[AUDIT] Failed to create audit entry: %v", err)
		}
	}()
}

// AuditTrailFilters contains filter options for audit trail queries
type AuditTrailFilters struct {
	DateFrom time.Time
	DateTo   time.Time
}

// GetUserAuditTrail retrieves paginated audit entries produced by one actor,
// newest first. Used by the single-user activity report.
func GetUserAuditTrail(db *gorm.DB, actorID uint, filters AuditTrailFilters, limit, offset int) ([]models.AuditEntry, int64, error) {
	query := db.Model(&models.AuditEntry{}).Where("actor_id = ?", actorID)

	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditEntry
	err := query.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error

	return entries, total, err
}
