package services

import (
	"errors"
	"testing"
	"time"

	"case_track_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCaseFileTestDB() *gorm.DB {
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
	)
	return db
}

var (
	adminActor      = Actor{ID: 1, Role: models.RoleAdmin}
	supervisorActor = Actor{ID: 2, Role: models.RoleSupervisor}
	operatorActor   = Actor{ID: 3, Role: models.RoleOperator}
	viewerActor     = Actor{ID: 4, Role: models.RoleViewer}
)

func validCaseFileInput() CreateCaseFileInput {
	return CreateCaseFileInput{
		DocumentType:   models.DocumentTypeOfficeMemo,
		DocumentNumber: "OM-2026-001",
		IntakeChannel:  models.IntakeChannelMail,
		IntakeDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Reference:      "Budget inquiry",
		Detail:         "Initial intake",
		Urgency:        models.UrgencyCommon,
	}
}

func createTestUnit(db *gorm.DB, name, kind string) models.OrganizationalUnit {
	unit := models.OrganizationalUnit{Name: name, Kind: kind}
	db.Create(&unit)
	return unit
}

func TestCreateCaseFile(t *testing.T) {
	db := setupCaseFileTestDB()

	t.Run("operator can create", func(t *testing.T) {
		caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
		assert.NoError(t, err)
		assert.Equal(t, models.CaseFileStateOpen, caseFile.State)
		assert.Equal(t, operatorActor.ID, caseFile.CreatedBy)
		assert.False(t, caseFile.Deleted)
		assert.Nil(t, caseFile.ClosedAt)
		assert.Nil(t, caseFile.ClosedBy)
	})

	t.Run("viewer is denied", func(t *testing.T) {
		_, err := CreateCaseFile(db, viewerActor, validCaseFileInput())
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("missing urgency is reported before other fields", func(t *testing.T) {
		input := validCaseFileInput()
		input.Urgency = ""
		input.DocumentType = "bogus"
		_, err := CreateCaseFile(db, operatorActor, input)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "urgency")
	})

	t.Run("invalid document type", func(t *testing.T) {
		input := validCaseFileInput()
		input.DocumentType = "bogus"
		_, err := CreateCaseFile(db, operatorActor, input)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("markup is stripped from free text", func(t *testing.T) {
		input := validCaseFileInput()
		input.Reference = "<script>alert(1)</script>Quarterly report"
		caseFile, err := CreateCaseFile(db, operatorActor, input)
		assert.NoError(t, err)
		assert.Equal(t, "Quarterly report", caseFile.Reference)
	})
}

func TestCreateCaseFileWithFirstMovement(t *testing.T) {
	db := setupCaseFileTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)

	input := validCaseFileInput()
	input.FirstMovement = &AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      input.IntakeDate,
		DestinationUnitID: unit.ID,
		Notes:             "Received by desk",
	}

	caseFile, err := CreateCaseFile(db, operatorActor, input)
	assert.NoError(t, err)

	var movements []models.Movement
	db.Where("case_file_id = ?", caseFile.ID).Find(&movements)
	assert.Len(t, movements, 1)
	assert.Equal(t, models.MovementKindInbound, movements[0].Kind)
	assert.Equal(t, operatorActor.ID, movements[0].PerformedBy)
}

func TestCreateCaseFileFirstMovementRejectedBeforeWrite(t *testing.T) {
	db := setupCaseFileTestDB()

	input := validCaseFileInput()
	input.FirstMovement = &AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      input.IntakeDate,
		DestinationUnitID: 999, // unit does not exist
	}

	_, err := CreateCaseFile(db, operatorActor, input)
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	db.Model(&models.CaseFile{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateCaseFileFirstMovementRollsBack(t *testing.T) {
	db := setupCaseFileTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)

	input := validCaseFileInput()
	input.FirstMovement = &AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      input.IntakeDate,
		DestinationUnitID: unit.ID,
	}

	// Valid input passes every pre-check; break the movement insert itself so
	// the failure happens inside the transaction.
	assert.NoError(t, db.Migrator().DropTable(&models.Movement{}))

	_, err := CreateCaseFile(db, operatorActor, input)
	assert.Error(t, err)

	var count int64
	db.Model(&models.CaseFile{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGetCaseFileVisibility(t *testing.T) {
	db := setupCaseFileTestDB()

	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)

	_, err = SoftDeleteCaseFile(db, adminActor, caseFile.ID)
	assert.NoError(t, err)

	t.Run("operator gets gone", func(t *testing.T) {
		_, err := GetCaseFile(db, operatorActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrCaseFileGone)
	})

	t.Run("admin gets gone too", func(t *testing.T) {
		_, err := GetCaseFile(db, adminActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrCaseFileGone)
	})

	t.Run("supervisor still sees it", func(t *testing.T) {
		found, err := GetCaseFile(db, supervisorActor, caseFile.ID)
		assert.NoError(t, err)
		assert.True(t, found.Deleted)
	})

	t.Run("missing id is not found", func(t *testing.T) {
		_, err := GetCaseFile(db, supervisorActor, 9999)
		assert.ErrorIs(t, err, ErrCaseFileNotFound)
	})
}

func TestCloseAndReopenCaseFile(t *testing.T) {
	db := setupCaseFileTestDB()

	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)

	t.Run("operator cannot close", func(t *testing.T) {
		_, err := CloseCaseFile(db, operatorActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("admin cannot close either", func(t *testing.T) {
		_, err := CloseCaseFile(db, adminActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("supervisor closes with attribution", func(t *testing.T) {
		_, err := CloseCaseFile(db, supervisorActor, caseFile.ID)
		assert.NoError(t, err)

		var stored models.CaseFile
		db.First(&stored, caseFile.ID)
		assert.Equal(t, models.CaseFileStateClosed, stored.State)
		assert.NotNil(t, stored.ClosedAt)
		assert.NotNil(t, stored.ClosedBy)
		assert.Equal(t, supervisorActor.ID, *stored.ClosedBy)
	})

	t.Run("closing a closed file is a conflict", func(t *testing.T) {
		_, err := CloseCaseFile(db, supervisorActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrCaseFileAlreadyClosed)
	})

	t.Run("reopen clears closure attribution", func(t *testing.T) {
		_, err := ReopenCaseFile(db, supervisorActor, caseFile.ID)
		assert.NoError(t, err)

		var stored models.CaseFile
		db.First(&stored, caseFile.ID)
		assert.Equal(t, models.CaseFileStateOpen, stored.State)
		assert.Nil(t, stored.ClosedAt)
		assert.Nil(t, stored.ClosedBy)
	})

	t.Run("reopening an open file is a conflict", func(t *testing.T) {
		_, err := ReopenCaseFile(db, supervisorActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrCaseFileAlreadyOpen)
	})
}

func TestUpdateCaseFile(t *testing.T) {
	db := setupCaseFileTestDB()

	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)

	t.Run("operator cannot update", func(t *testing.T) {
		ref := "changed"
		_, err := UpdateCaseFile(db, operatorActor, caseFile.ID, UpdateCaseFileInput{Reference: &ref})
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("admin updates fields", func(t *testing.T) {
		newNumber := "OM-2026-002"
		newChannel := models.IntakeChannelPaper
		updated, err := UpdateCaseFile(db, adminActor, caseFile.ID, UpdateCaseFileInput{
			DocumentNumber: &newNumber,
			IntakeChannel:  &newChannel,
		})
		assert.NoError(t, err)
		assert.Equal(t, newNumber, updated.DocumentNumber)

		var stored models.CaseFile
		db.First(&stored, caseFile.ID)
		assert.Equal(t, newNumber, stored.DocumentNumber)
		assert.Equal(t, newChannel, stored.IntakeChannel)
	})

	t.Run("invalid channel is rejected", func(t *testing.T) {
		bad := "carrier-pigeon"
		_, err := UpdateCaseFile(db, adminActor, caseFile.ID, UpdateCaseFileInput{IntakeChannel: &bad})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("retired case file answers gone", func(t *testing.T) {
		_, err := SoftDeleteCaseFile(db, adminActor, caseFile.ID)
		assert.NoError(t, err)

		ref := "too late"
		_, err = UpdateCaseFile(db, adminActor, caseFile.ID, UpdateCaseFileInput{Reference: &ref})
		assert.ErrorIs(t, err, ErrCaseFileGone)
	})
}

func TestSoftDeleteCascade(t *testing.T) {
	db := setupCaseFileTestDB()
	unit := createTestUnit(db, "Legal Affairs", models.UnitKindInternal)

	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      time.Date(2026, 3, 3+i, 0, 0, 0, 0, time.UTC),
			DestinationUnitID: unit.ID,
		})
		assert.NoError(t, err)
	}

	t.Run("viewer cannot delete", func(t *testing.T) {
		_, err := SoftDeleteCaseFile(db, viewerActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("delete cascades to every movement", func(t *testing.T) {
		_, err := SoftDeleteCaseFile(db, adminActor, caseFile.ID)
		assert.NoError(t, err)

		var liveMovements int64
		db.Model(&models.Movement{}).
			Where("case_file_id = ? AND deleted = ?", caseFile.ID, false).
			Count(&liveMovements)
		assert.Equal(t, int64(0), liveMovements)

		var deletedMovements int64
		db.Model(&models.Movement{}).
			Where("case_file_id = ? AND deleted = ?", caseFile.ID, true).
			Count(&deletedMovements)
		assert.Equal(t, int64(3), deletedMovements)

		var logEntry models.DeletionLog
		err = db.Where("case_file_id = ?", caseFile.ID).First(&logEntry).Error
		assert.NoError(t, err)
		assert.Equal(t, adminActor.ID, logEntry.UserID)
	})

	t.Run("double delete is a conflict", func(t *testing.T) {
		_, err := SoftDeleteCaseFile(db, adminActor, caseFile.ID)
		assert.ErrorIs(t, err, ErrCaseFileAlreadyDeleted)
	})
}

func TestListCaseFiles(t *testing.T) {
	db := setupCaseFileTestDB()

	first := validCaseFileInput()
	first.IntakeDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	second := validCaseFileInput()
	second.DocumentNumber = "OM-2026-002"
	second.Urgency = models.UrgencyUrgent
	second.IntakeDate = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	older, err := CreateCaseFile(db, operatorActor, first)
	assert.NoError(t, err)
	newer, err := CreateCaseFile(db, operatorActor, second)
	assert.NoError(t, err)

	deleted := validCaseFileInput()
	deleted.DocumentNumber = "OM-2026-003"
	retired, err := CreateCaseFile(db, operatorActor, deleted)
	assert.NoError(t, err)
	_, err = SoftDeleteCaseFile(db, adminActor, retired.ID)
	assert.NoError(t, err)

	t.Run("newest intake first, retired excluded", func(t *testing.T) {
		list, err := ListCaseFiles(db, operatorActor, CaseFileFilters{})
		assert.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("urgency filter", func(t *testing.T) {
		list, err := ListCaseFiles(db, operatorActor, CaseFileFilters{Urgency: models.UrgencyUrgent})
		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.Equal(t, newer.ID, list[0].ID)
	})

	t.Run("include_deleted is gated", func(t *testing.T) {
		_, err := ListCaseFiles(db, operatorActor, CaseFileFilters{IncludeDeleted: true})
		assert.ErrorIs(t, err, ErrNotAllowed)

		list, err := ListCaseFiles(db, supervisorActor, CaseFileFilters{IncludeDeleted: true})
		assert.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("unknown filters return empty, not error", func(t *testing.T) {
		list, err := ListCaseFiles(db, operatorActor, CaseFileFilters{DocumentType: models.DocumentTypePhysical})
		assert.NoError(t, err)
		assert.Empty(t, list)
		assert.False(t, errors.Is(err, ErrCaseFileNotFound))
	})
}
