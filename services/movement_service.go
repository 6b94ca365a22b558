package services

import (
	"errors"
	"fmt"
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// Movement ledger errors
var (
	ErrMovementNotFound       = errors.New("movement not found")
	ErrMovementAlreadyDeleted = errors.New("movement is already deleted")
)

// AppendMovementInput contains the fields for a new ledger entry
type AppendMovementInput struct {
	Kind              string
	MovementDate      time.Time
	DestinationUnitID uint
	OriginUnitID      *uint
	Notes             string
}

// AppendMovement adds a ledger entry to a case file. The ledger is
// append-only: entries can be added only while the owning case file is open
// and not retired. No ledger entries after closure is a hard business rule.
func AppendMovement(db *gorm.DB, actor Actor, caseFileID uint, input AppendMovementInput) (*models.Movement, error) {
	if !CanPerform(actor.Role, TransitionAppendMovement) {
		return nil, ErrNotAllowed
	}

	var caseFile models.CaseFile
	if err := db.First(&caseFile, caseFileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseFileNotFound
		}
		return nil, err
	}
	// A retired case file accepts no movements; callers see the same
	// not-found condition a missing one produces
	if caseFile.Deleted {
		return nil, ErrCaseFileNotFound
	}
	if caseFile.IsClosed() {
		return nil, ErrCaseFileClosed
	}

	if err := validateMovementFields(db, input); err != nil {
		return nil, err
	}

	movement := newMovement(caseFileID, actor, input)
	if err := db.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to create movement: %w", err)
	}

	RecordAudit(db, actor.ID, "movement", movement.ID, models.AuditActionCreate,
		fmt.Sprintf("Movement %s recorded on case file %d", movement.Kind, caseFileID), nil, nil)

	return movement, nil
}

// UpdateMovementInput contains the mutable movement fields
type UpdateMovementInput struct {
	Kind              *string
	MovementDate      *time.Time
	DestinationUnitID *uint
	OriginUnitID      *uint
	Notes             *string
}

// UpdateMovement mutates a ledger entry. Editing the history of a closed case
// file is blocked, mirroring the append rule. A soft-deleted movement may
// only be edited by the override role.
func UpdateMovement(db *gorm.DB, actor Actor, id uint, input UpdateMovementInput) (*models.Movement, error) {
	if !CanPerform(actor.Role, TransitionUpdateMovement) {
		return nil, ErrNotAllowed
	}

	movement, err := findMovement(db, id)
	if err != nil {
		return nil, err
	}
	if movement.Deleted && !CanEditDeletedMovement(actor.Role) {
		return nil, ErrNotAllowed
	}

	if err := guardOwnerOpen(db, movement.CaseFileID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	oldValues := map[string]interface{}{}
	newValues := map[string]interface{}{}

	if input.Kind != nil && *input.Kind != movement.Kind {
		if !models.IsValidMovementKind(*input.Kind) {
			return nil, fmt.Errorf("%w: invalid movement kind %q", ErrValidation, *input.Kind)
		}
		updates["kind"] = *input.Kind
		oldValues["kind"] = movement.Kind
		newValues["kind"] = *input.Kind
	}
	if input.MovementDate != nil && !input.MovementDate.Equal(movement.MovementDate) {
		updates["movement_date"] = *input.MovementDate
		oldValues["movement_date"] = movement.MovementDate
		newValues["movement_date"] = *input.MovementDate
	}
	if input.DestinationUnitID != nil && *input.DestinationUnitID != movement.DestinationUnitID {
		if err := ensureUnitExists(db, *input.DestinationUnitID, "destination"); err != nil {
			return nil, err
		}
		updates["destination_unit_id"] = *input.DestinationUnitID
		oldValues["destination_unit_id"] = movement.DestinationUnitID
		newValues["destination_unit_id"] = *input.DestinationUnitID
	}
	if input.OriginUnitID != nil {
		if err := ensureUnitExists(db, *input.OriginUnitID, "origin"); err != nil {
			return nil, err
		}
		updates["origin_unit_id"] = *input.OriginUnitID
		oldValues["origin_unit_id"] = movement.OriginUnitID
		newValues["origin_unit_id"] = *input.OriginUnitID
	}
	if input.Notes != nil {
		clean := SanitizeText(*input.Notes)
		if clean != movement.Notes {
			updates["notes"] = clean
			oldValues["notes"] = movement.Notes
			newValues["notes"] = clean
		}
	}

	if len(updates) > 0 {
		if err := db.Model(movement).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update movement: %w", err)
		}
		RecordAudit(db, actor.ID, "movement", movement.ID, models.AuditActionUpdate,
			fmt.Sprintf("Movement %d updated", movement.ID), oldValues, newValues)
	}

	return movement, nil
}

// SoftDeleteMovement retires a single ledger entry. Re-deleting an already
// deleted movement is a conflict, never a silent success.
func SoftDeleteMovement(db *gorm.DB, actor Actor, id uint) error {
	if !CanPerform(actor.Role, TransitionSoftDeleteMovement) {
		return ErrNotAllowed
	}

	movement, err := findMovement(db, id)
	if err != nil {
		return err
	}

	if err := guardOwnerOpen(db, movement.CaseFileID); err != nil {
		return err
	}
	if movement.Deleted {
		return ErrMovementAlreadyDeleted
	}

	if err := db.Model(movement).Update("deleted", true).Error; err != nil {
		return fmt.Errorf("failed to delete movement: %w", err)
	}

	RecordAudit(db, actor.ID, "movement", movement.ID, models.AuditActionDelete,
		fmt.Sprintf("Movement %d deleted", movement.ID), nil, nil)

	return nil
}

// GetMovement retrieves a single ledger entry with its units
func GetMovement(db *gorm.DB, id uint) (*models.Movement, error) {
	var movement models.Movement
	err := db.Preload("DestinationUnit").Preload("OriginUnit").Preload("Performer").
		First(&movement, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// History returns a case file's ledger ordered by movement date then id, so
// repeated reads of unchanged data return identical order even when entries
// were backdated. includeDeleted adds soft-deleted rows and is gated to the
// deleted-visibility role, as is any access to a retired case file's history.
// destinationKind optionally post-filters by the destination unit's kind
// (internal/external) after the unit data is joined in.
func History(db *gorm.DB, actor Actor, caseFileID uint, includeDeleted bool, destinationKind string) (*models.CaseFile, []models.Movement, error) {
	var caseFile models.CaseFile
	err := db.Preload("Creator").First(&caseFile, caseFileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCaseFileNotFound
		}
		return nil, nil, err
	}

	if caseFile.Deleted && !CanViewDeleted(actor.Role) {
		return nil, nil, ErrNotAllowed
	}
	if includeDeleted && !CanViewDeleted(actor.Role) {
		return nil, nil, ErrNotAllowed
	}

	query := db.Where("case_file_id = ?", caseFileID)
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
	}

	var movements []models.Movement
	err = query.
		Preload("DestinationUnit").
		Preload("OriginUnit").
		Preload("Performer").
		Order("movement_date ASC").
		Order("id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, nil, err
	}

	if destinationKind != "" {
		filtered := movements[:0]
		for _, m := range movements {
			if m.DestinationUnit != nil && m.DestinationUnit.Kind == destinationKind {
				filtered = append(filtered, m)
			}
		}
		movements = filtered
	}

	return &caseFile, movements, nil
}

// LatestOutboundPerCaseFile returns, for each given case file, the active
// outbound movement with the latest movement date (ties broken by highest
// id). This is the "effective closure hand-off" used by the SLA classifier
// and reporting, independent of whether the case file's ClosedAt is set.
func LatestOutboundPerCaseFile(db *gorm.DB, caseFileIDs []uint) (map[uint]*models.Movement, error) {
	latest := make(map[uint]*models.Movement)
	if len(caseFileIDs) == 0 {
		return latest, nil
	}

	var movements []models.Movement
	err := db.
		Where("case_file_id IN ? AND kind = ? AND deleted = ?", caseFileIDs, models.MovementKindOutbound, false).
		Preload("DestinationUnit").
		Order("movement_date DESC").
		Order("id DESC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}

	for i := range movements {
		m := &movements[i]
		if _, seen := latest[m.CaseFileID]; !seen {
			latest[m.CaseFileID] = m
		}
	}
	return latest, nil
}

// newMovement builds a ledger row attributed to the actor
func newMovement(caseFileID uint, actor Actor, input AppendMovementInput) *models.Movement {
	return &models.Movement{
		CaseFileID:        caseFileID,
		Kind:              input.Kind,
		MovementDate:      input.MovementDate,
		DestinationUnitID: input.DestinationUnitID,
		OriginUnitID:      input.OriginUnitID,
		Notes:             SanitizeText(input.Notes),
		PerformedBy:       actor.ID,
	}
}

// findMovement loads a movement or reports not-found
func findMovement(db *gorm.DB, id uint) (*models.Movement, error) {
	var movement models.Movement
	if err := db.First(&movement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// guardOwnerOpen blocks ledger mutations when the owning case file is closed
func guardOwnerOpen(db *gorm.DB, caseFileID uint) error {
	var caseFile models.CaseFile
	if err := db.First(&caseFile, caseFileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCaseFileNotFound
		}
		return err
	}
	if caseFile.IsClosed() {
		return ErrCaseFileClosed
	}
	return nil
}

func validateMovementFields(db *gorm.DB, input AppendMovementInput) error {
	if !models.IsValidMovementKind(input.Kind) {
		return fmt.Errorf("%w: invalid movement kind %q", ErrValidation, input.Kind)
	}
	if input.MovementDate.IsZero() {
		return fmt.Errorf("%w: movement date is required", ErrValidation)
	}
	if input.DestinationUnitID == 0 {
		return fmt.Errorf("%w: destination unit is required", ErrValidation)
	}
	if err := ensureUnitExists(db, input.DestinationUnitID, "destination"); err != nil {
		return err
	}
	if input.OriginUnitID != nil {
		if err := ensureUnitExists(db, *input.OriginUnitID, "origin"); err != nil {
			return err
		}
	}
	return nil
}

func ensureUnitExists(db *gorm.DB, unitID uint, kind string) error {
	var count int64
	if err := db.Model(&models.OrganizationalUnit{}).Where("id = ?", unitID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s unit: %w", kind, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s unit %d does not exist", ErrValidation, kind, unitID)
	}
	return nil
}
