package services

import (
	"testing"
	"time"

	"case_track_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMovementTestDB() *gorm.DB {
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

func march(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func createOpenCaseFile(t *testing.T, db *gorm.DB) *models.CaseFile {
	t.Helper()
	caseFile, err := CreateCaseFile(db, operatorActor, validCaseFileInput())
	assert.NoError(t, err)
	return caseFile
}

func TestAppendMovement(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	t.Run("operator appends", func(t *testing.T) {
		movement, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      march(2),
			DestinationUnitID: unit.ID,
			Notes:             "  received <b>with</b> annexes  ",
		})
		assert.NoError(t, err)
		assert.Equal(t, operatorActor.ID, movement.PerformedBy)
		assert.Equal(t, "received with annexes", movement.Notes)
	})

	t.Run("viewer is denied and nothing is written", func(t *testing.T) {
		var before int64
		db.Model(&models.Movement{}).Count(&before)

		_, err := AppendMovement(db, viewerActor, caseFile.ID, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      march(2),
			DestinationUnitID: unit.ID,
		})
		assert.ErrorIs(t, err, ErrNotAllowed)

		var after int64
		db.Model(&models.Movement{}).Count(&after)
		assert.Equal(t, before, after)
	})

	t.Run("missing destination unit", func(t *testing.T) {
		_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
			Kind:         models.MovementKindInbound,
			MovementDate: march(2),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("nonexistent destination unit", func(t *testing.T) {
		_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      march(2),
			DestinationUnitID: 999,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown case file", func(t *testing.T) {
		_, err := AppendMovement(db, operatorActor, 9999, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      march(2),
			DestinationUnitID: unit.ID,
		})
		assert.ErrorIs(t, err, ErrCaseFileNotFound)
	})
}

func TestAppendMovementClosedCaseFile(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	_, err := CloseCaseFile(db, supervisorActor, caseFile.ID)
	assert.NoError(t, err)

	var before int64
	db.Model(&models.Movement{}).Count(&before)

	_, err = AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindOutbound,
		MovementDate:      march(3),
		DestinationUnitID: unit.ID,
	})
	assert.ErrorIs(t, err, ErrCaseFileClosed)

	var after int64
	db.Model(&models.Movement{}).Count(&after)
	assert.Equal(t, before, after)
}

func TestAppendMovementRetiredCaseFile(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	_, err := SoftDeleteCaseFile(db, adminActor, caseFile.ID)
	assert.NoError(t, err)

	// Retired case files behave like missing ones for the ledger
	_, err = AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(3),
		DestinationUnitID: unit.ID,
	})
	assert.ErrorIs(t, err, ErrCaseFileNotFound)
}

func TestHistoryOrdering(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	// Insert out of chronological order; a backdated entry lands in the middle
	dates := []time.Time{march(10), march(2), march(6)}
	for _, d := range dates {
		_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
			Kind:              models.MovementKindInbound,
			MovementDate:      d,
			DestinationUnitID: unit.ID,
		})
		assert.NoError(t, err)
	}

	_, movements, err := History(db, operatorActor, caseFile.ID, false, "")
	assert.NoError(t, err)
	assert.Len(t, movements, 3)
	assert.True(t, movements[0].MovementDate.Equal(march(2)))
	assert.True(t, movements[1].MovementDate.Equal(march(6)))
	assert.True(t, movements[2].MovementDate.Equal(march(10)))

	// Same-date entries keep insertion order via the id tiebreak
	_, err = AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindOutbound,
		MovementDate:      march(6),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)

	_, movements, err = History(db, operatorActor, caseFile.ID, false, "")
	assert.NoError(t, err)
	assert.Len(t, movements, 4)
	assert.Equal(t, models.MovementKindInbound, movements[1].Kind)
	assert.Equal(t, models.MovementKindOutbound, movements[2].Kind)
}

func TestHistoryDeletedGating(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	movement, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(2),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)
	err = SoftDeleteMovement(db, adminActor, movement.ID)
	assert.NoError(t, err)

	t.Run("deleted rows hidden by default", func(t *testing.T) {
		_, movements, err := History(db, operatorActor, caseFile.ID, false, "")
		assert.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("include_deleted is gated", func(t *testing.T) {
		_, _, err := History(db, operatorActor, caseFile.ID, true, "")
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("supervisor sees deleted rows", func(t *testing.T) {
		_, movements, err := History(db, supervisorActor, caseFile.ID, true, "")
		assert.NoError(t, err)
		assert.Len(t, movements, 1)
		assert.True(t, movements[0].Deleted)
	})

	t.Run("retired case file history is supervisor only", func(t *testing.T) {
		_, err := SoftDeleteCaseFile(db, adminActor, caseFile.ID)
		assert.NoError(t, err)

		_, _, err = History(db, operatorActor, caseFile.ID, false, "")
		assert.ErrorIs(t, err, ErrNotAllowed)

		_, _, err = History(db, supervisorActor, caseFile.ID, false, "")
		assert.NoError(t, err)
	})
}

func TestHistoryDestinationKindFilter(t *testing.T) {
	db := setupMovementTestDB()
	internal := createTestUnit(db, "Records Office", models.UnitKindInternal)
	external := createTestUnit(db, "Regional Authority", models.UnitKindExternal)
	caseFile := createOpenCaseFile(t, db)

	_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(2),
		DestinationUnitID: internal.ID,
	})
	assert.NoError(t, err)
	_, err = AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindOutbound,
		MovementDate:      march(3),
		DestinationUnitID: external.ID,
	})
	assert.NoError(t, err)

	_, movements, err := History(db, operatorActor, caseFile.ID, false, models.UnitKindExternal)
	assert.NoError(t, err)
	assert.Len(t, movements, 1)
	assert.Equal(t, external.ID, movements[0].DestinationUnitID)
}

func TestUpdateMovement(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	movement, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(2),
		DestinationUnitID: unit.ID,
		Notes:             "original",
	})
	assert.NoError(t, err)

	t.Run("operator cannot update", func(t *testing.T) {
		notes := "changed"
		_, err := UpdateMovement(db, operatorActor, movement.ID, UpdateMovementInput{Notes: &notes})
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("admin updates notes and date", func(t *testing.T) {
		notes := "corrected entry"
		newDate := march(4)
		_, err := UpdateMovement(db, adminActor, movement.ID, UpdateMovementInput{
			Notes:        &notes,
			MovementDate: &newDate,
		})
		assert.NoError(t, err)

		var stored models.Movement
		db.First(&stored, movement.ID)
		assert.Equal(t, "corrected entry", stored.Notes)
		assert.True(t, stored.MovementDate.Equal(march(4)))
	})

	t.Run("closed owner blocks edits", func(t *testing.T) {
		_, err := CloseCaseFile(db, supervisorActor, caseFile.ID)
		assert.NoError(t, err)

		notes := "too late"
		_, err = UpdateMovement(db, adminActor, movement.ID, UpdateMovementInput{Notes: &notes})
		assert.ErrorIs(t, err, ErrCaseFileClosed)
	})
}

func TestUpdateDeletedMovementOverride(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	movement, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(2),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)
	err = SoftDeleteMovement(db, adminActor, movement.ID)
	assert.NoError(t, err)

	notes := "post-deletion correction"

	_, err = UpdateMovement(db, adminActor, movement.ID, UpdateMovementInput{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = UpdateMovement(db, supervisorActor, movement.ID, UpdateMovementInput{Notes: &notes})
	assert.NoError(t, err)
}

func TestSoftDeleteMovement(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Records Office", models.UnitKindInternal)
	caseFile := createOpenCaseFile(t, db)

	movement, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(2),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)

	t.Run("operator cannot delete", func(t *testing.T) {
		err := SoftDeleteMovement(db, operatorActor, movement.ID)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("admin deletes", func(t *testing.T) {
		err := SoftDeleteMovement(db, adminActor, movement.ID)
		assert.NoError(t, err)

		var stored models.Movement
		db.First(&stored, movement.ID)
		assert.True(t, stored.Deleted)
	})

	t.Run("double delete is a conflict", func(t *testing.T) {
		err := SoftDeleteMovement(db, adminActor, movement.ID)
		assert.ErrorIs(t, err, ErrMovementAlreadyDeleted)
	})
}

func TestLatestOutboundPerCaseFile(t *testing.T) {
	db := setupMovementTestDB()
	unit := createTestUnit(db, "Regional Authority", models.UnitKindExternal)
	caseFile := createOpenCaseFile(t, db)

	// Inbound entries never count as the closure hand-off
	_, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindInbound,
		MovementDate:      march(9),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)

	first, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindOutbound,
		MovementDate:      march(5),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)

	// Same date as the first outbound: the higher id wins the tie
	second, err := AppendMovement(db, operatorActor, caseFile.ID, AppendMovementInput{
		Kind:              models.MovementKindOutbound,
		MovementDate:      march(5),
		DestinationUnitID: unit.ID,
	})
	assert.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, err := LatestOutboundPerCaseFile(db, []uint{caseFile.ID})
	assert.NoError(t, err)
	assert.Equal(t, second.ID, latest[caseFile.ID].ID)

	t.Run("deleted outbound is ignored", func(t *testing.T) {
		err := SoftDeleteMovement(db, adminActor, second.ID)
		assert.NoError(t, err)

		latest, err := LatestOutboundPerCaseFile(db, []uint{caseFile.ID})
		assert.NoError(t, err)
		assert.Equal(t, first.ID, latest[caseFile.ID].ID)
	})

	t.Run("empty input yields empty map", func(t *testing.T) {
		latest, err := LatestOutboundPerCaseFile(db, nil)
		assert.NoError(t, err)
		assert.Empty(t, latest)
	})
}
