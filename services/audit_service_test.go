package services

import (
	"encoding/json"
	"testing"
	"time"

	"case_track_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuditTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.AuditEntry{}, &models.User{})
	return db
}

func TestRecordAudit(t *testing.T) {
	db := setupAuditTestDB()

	oldVals := map[string]interface{}{"state": "open"}
	newVals := map[string]interface{}{"state": "closed"}

	RecordAudit(db, 7, "case_file", 42, models.AuditActionClose, "Case file OM-1 closed", oldVals, newVals)

	// RecordAudit is async
	time.Sleep(100 * time.Millisecond)

	var entry models.AuditEntry
	err := db.Where("entity = ? AND entity_id = ?", "case_file", 42).First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, uint(7), entry.ActorID)
	assert.Equal(t, models.AuditActionClose, entry.Action)
	assert.NotEmpty(t, entry.ID)

	var savedOld, savedNew map[string]interface{}
	json.Unmarshal([]byte(entry.OldValues), &savedOld)
	json.Unmarshal([]byte(entry.NewValues), &savedNew)
	assert.Equal(t, "open", savedOld["state"])
	assert.Equal(t, "closed", savedNew["state"])
}

func TestAuditFailureNeverFailsPrimaryOperation(t *testing.T) {
	db := setupCaseFileTestDB()

	// Break the audit sink: every RecordAudit insert will now fail and must be
	// logged and swallowed without touching the caller.
	assert.NoError(t, db.Migrator().DropTable(&models.AuditEntry{}))

	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)
	assert.NotNil(t, caseFile)

	closed, err := CloseCaseFile(db, supervisorActor, caseFile.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.CaseFileStateClosed, closed.State)

	// Give the async audit goroutines time to hit the missing table
	time.Sleep(100 * time.Millisecond)

	var count int64
	db.Model(&models.CaseFile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetUserAuditTrail(t *testing.T) {
	db := setupAuditTestDB()

	for i := 0; i < 3; i++ {
		RecordAudit(db, 7, "case_file", uint(i+1), models.AuditActionCreate, "created", nil, nil)
	}
	RecordAudit(db, 8, "case_file", 99, models.AuditActionCreate, "someone else", nil, nil)
	time.Sleep(150 * time.Millisecond)

	entries, total, err := GetUserAuditTrail(db, 7, AuditTrailFilters{}, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, uint(7), entry.ActorID)
	}

	t.Run("pagination", func(t *testing.T) {
		entries, total, err := GetUserAuditTrail(db, 7, AuditTrailFilters{}, 2, 0)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, entries, 2)
	})

	t.Run("date filter excludes everything in the past window", func(t *testing.T) {
		entries, total, err := GetUserAuditTrail(db, 7, AuditTrailFilters{
			DateFrom: time.Now().Add(time.Hour),
		}, 10, 0)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, entries)
	})
}
