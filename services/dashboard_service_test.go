package services

import (
	"testing"
	"time"

	"case_track_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDashboardTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(
		&models.OrganizationalUnit{},
		&models.User{},
		&models.CaseFile{},
		&models.Movement{},
		&models.AuditEntry{},
		&models.DeletionLog{},
		&models.LoginAttempt{},
	)
	return db
}

func TestGetDashboardStats(t *testing.T) {
	db := setupDashboardTestDB()
	now := time.Now()

	seedOpenCaseFile(db, models.UrgencyUrgent, now.AddDate(0, 0, -1))
	seedOpenCaseFile(db, models.UrgencyCommon, now.AddDate(0, 0, -10))
	seedClosedCaseFile(db, models.UrgencyCommon, now.AddDate(0, 0, -10), now.AddDate(0, 0, -5))

	retired := seedOpenCaseFile(db, models.UrgencyCommon, now)
	db.Model(retired).Update("deleted", true)

	stats, err := GetDashboardStats(db, operatorActor, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCaseFiles)
	assert.Equal(t, int64(2), stats.OpenCaseFiles)
	assert.Equal(t, int64(1), stats.ClosedCaseFiles)
	assert.Equal(t, int64(1), stats.UrgentOpen)
	assert.Equal(t, int64(1), stats.CommonOpen)

	t.Run("operators get no management block", func(t *testing.T) {
		assert.Nil(t, stats.Management)
	})

	t.Run("supervisors get breakdowns", func(t *testing.T) {
		stats, err := GetDashboardStats(db, supervisorActor, now)
		assert.NoError(t, err)
		assert.NotNil(t, stats.Management)
		assert.NotEmpty(t, stats.Management.ByDocumentType)
		assert.NotEmpty(t, stats.Management.ByUrgency)

		var total int64
		for _, bucket := range stats.Management.ByUrgency {
			total += bucket.Count
		}
		assert.Equal(t, stats.TotalCaseFiles, total)
	})
}

func TestDashboardStalledOpen(t *testing.T) {
	db := setupDashboardTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	now := time.Now()

	// One open case file with a fresh movement, one without any
	moving := seedOpenCaseFile(db, models.UrgencyCommon, now.AddDate(0, 0, -10))
	seedOpenCaseFile(db, models.UrgencyCommon, now.AddDate(0, 0, -10))

	db.Create(&models.Movement{
		CaseFileID:        moving.ID,
		Kind:              models.MovementKindInbound,
		MovementDate:      now,
		DestinationUnitID: unit.ID,
		PerformedBy:       3,
	})

	stats, err := GetDashboardStats(db, adminActor, now)
	assert.NoError(t, err)
	assert.NotNil(t, stats.Management)
	assert.Equal(t, int64(1), stats.Management.StalledOpen)
	assert.Equal(t, int64(1), stats.MovementsWeek)
}
