package services

import (
	"errors"
	"fmt"
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// Case file state machine errors. Each sentinel maps to one caller-facing
// condition: NotFound, Gone (retired), Conflict, Forbidden or ValidationFailed.
// Gone is never collapsed into NotFound: the record exists but is permanently
// retired, and callers need to tell the two apart.
var (
	ErrCaseFileNotFound       = errors.New("case file not found")
	ErrCaseFileGone           = errors.New("case file has been retired")
	ErrCaseFileClosed         = errors.New("case file is closed")
	ErrCaseFileAlreadyClosed  = errors.New("case file is already closed")
	ErrCaseFileAlreadyOpen    = errors.New("case file is already open")
	ErrCaseFileAlreadyDeleted = errors.New("case file is already retired")
	ErrNotAllowed             = errors.New("role is not allowed to perform this operation")
	ErrValidation             = errors.New("validation failed")
)

// Actor is the authenticated party performing an operation. It is always
// passed explicitly; core operations never read identity from ambient state.
type Actor struct {
	ID   uint
	Role string
}

// CreateCaseFileInput contains the fields for creating a case file
type CreateCaseFileInput struct {
	DocumentType   string
	DocumentNumber string
	IntakeChannel  string
	IntakeDate     time.Time
	Reference      string
	Detail         string
	Urgency        string

	// Optional first movement, created atomically with the case file
	FirstMovement *AppendMovementInput
}

// CreateCaseFile creates a new case file in the open state, with an optional
// first movement in the same transaction.
func CreateCaseFile(db *gorm.DB, actor Actor, input CreateCaseFileInput) (*models.CaseFile, error) {
	if !CanPerform(actor.Role, TransitionCreateCaseFile) {
		return nil, ErrNotAllowed
	}
	if err := validateCaseFileFields(input); err != nil {
		return nil, err
	}
	if input.FirstMovement != nil {
		if err := validateMovementFields(db, *input.FirstMovement); err != nil {
			return nil, err
		}
	}

	caseFile := &models.CaseFile{
		DocumentType:   input.DocumentType,
		DocumentNumber: input.DocumentNumber,
		IntakeChannel:  input.IntakeChannel,
		IntakeDate:     input.IntakeDate,
		Reference:      SanitizeText(input.Reference),
		Detail:         SanitizeText(input.Detail),
		Urgency:        input.Urgency,
		State:          models.CaseFileStateOpen,
		CreatedBy:      actor.ID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(caseFile).Error; err != nil {
			return fmt.Errorf("failed to create case file: %w", err)
		}

		if input.FirstMovement != nil {
			movement := newMovement(caseFile.ID, actor, *input.FirstMovement)
			if err := tx.Create(movement).Error; err != nil {
				return fmt.Errorf("failed to create first movement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(db, actor.ID, "case_file", caseFile.ID, models.AuditActionCreate,
		fmt.Sprintf("Case file %s created", caseFile.DocumentNumber), nil, nil)

	return caseFile, nil
}

// GetCaseFile retrieves a case file by id. Retired case files are visible
// only to roles with the deleted-visibility privilege; everyone else gets the
// gone condition even when supplying the id directly.
func GetCaseFile(db *gorm.DB, actor Actor, id uint) (*models.CaseFile, error) {
	var caseFile models.CaseFile
	err := db.Preload("Creator").Preload("Closer").First(&caseFile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseFileNotFound
		}
		return nil, err
	}

	if caseFile.Deleted && !CanViewDeleted(actor.Role) {
		return nil, ErrCaseFileGone
	}

	return &caseFile, nil
}

// CaseFileFilters contains filter options for listing case files
type CaseFileFilters struct {
	DocumentType   string
	State          string
	Urgency        string
	DateFrom       time.Time // intake date range
	DateTo         time.Time
	IncludeDeleted bool
}

// ListCaseFiles lists case files newest intake first. Retired records are
// excluded unless IncludeDeleted is set, which is itself gated.
func ListCaseFiles(db *gorm.DB, actor Actor, filters CaseFileFilters) ([]models.CaseFile, error) {
	if filters.IncludeDeleted && !CanViewDeleted(actor.Role) {
		return nil, ErrNotAllowed
	}

	query := db.Model(&models.CaseFile{})
	if !filters.IncludeDeleted {
		query = query.Where("deleted = ?", false)
	}
	if filters.DocumentType != "" {
		query = query.Where("document_type = ?", filters.DocumentType)
	}
	if filters.State != "" {
		query = query.Where("state = ?", filters.State)
	}
	if filters.Urgency != "" {
		query = query.Where("urgency = ?", filters.Urgency)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("intake_date >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("intake_date <= ?", filters.DateTo)
	}

	var caseFiles []models.CaseFile
	err := query.Order("intake_date DESC").Order("id DESC").Find(&caseFiles).Error
	return caseFiles, err
}

// UpdateCaseFileInput contains the mutable case file fields. Urgency and
// intake date are immutable after creation.
type UpdateCaseFileInput struct {
	DocumentType   *string
	DocumentNumber *string
	IntakeChannel  *string
	Reference      *string
	Detail         *string
}

// UpdateCaseFile mutates non-lifecycle fields of a case file. The changed
// fields' old and new values are recorded for audit.
func UpdateCaseFile(db *gorm.DB, actor Actor, id uint, input UpdateCaseFileInput) (*models.CaseFile, error) {
	if !CanPerform(actor.Role, TransitionUpdateCaseFile) {
		return nil, ErrNotAllowed
	}

	caseFile, err := findCaseFile(db, id)
	if err != nil {
		return nil, err
	}
	if caseFile.Deleted {
		return nil, ErrCaseFileGone
	}

	updates := map[string]interface{}{}
	oldValues := map[string]interface{}{}
	newValues := map[string]interface{}{}

	if input.DocumentType != nil && *input.DocumentType != caseFile.DocumentType {
		if !models.IsValidDocumentType(*input.DocumentType) {
			return nil, fmt.Errorf("%w: invalid document type %q", ErrValidation, *input.DocumentType)
		}
		updates["document_type"] = *input.DocumentType
		oldValues["document_type"] = caseFile.DocumentType
		newValues["document_type"] = *input.DocumentType
	}
	if input.DocumentNumber != nil && *input.DocumentNumber != caseFile.DocumentNumber {
		if *input.DocumentNumber == "" {
			return nil, fmt.Errorf("%w: document number is required", ErrValidation)
		}
		updates["document_number"] = *input.DocumentNumber
		oldValues["document_number"] = caseFile.DocumentNumber
		newValues["document_number"] = *input.DocumentNumber
	}
	if input.IntakeChannel != nil && *input.IntakeChannel != caseFile.IntakeChannel {
		if !models.IsValidIntakeChannel(*input.IntakeChannel) {
			return nil, fmt.Errorf("%w: invalid intake channel %q", ErrValidation, *input.IntakeChannel)
		}
		updates["intake_channel"] = *input.IntakeChannel
		oldValues["intake_channel"] = caseFile.IntakeChannel
		newValues["intake_channel"] = *input.IntakeChannel
	}
	if input.Reference != nil {
		clean := SanitizeText(*input.Reference)
		if clean != caseFile.Reference {
			updates["reference"] = clean
			oldValues["reference"] = caseFile.Reference
			newValues["reference"] = clean
		}
	}
	if input.Detail != nil {
		clean := SanitizeText(*input.Detail)
		if clean != caseFile.Detail {
			updates["detail"] = clean
			oldValues["detail"] = caseFile.Detail
			newValues["detail"] = clean
		}
	}

	if len(updates) > 0 {
		if err := db.Model(caseFile).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update case file: %w", err)
		}
		RecordAudit(db, actor.ID, "case_file", caseFile.ID, models.AuditActionUpdate,
			fmt.Sprintf("Case file %s updated", caseFile.DocumentNumber), oldValues, newValues)
	}

	return caseFile, nil
}

// CloseCaseFile transitions an open case file to closed, recording who closed
// it and when. Supervisor only.
func CloseCaseFile(db *gorm.DB, actor Actor, id uint) (*models.CaseFile, error) {
	if !CanPerform(actor.Role, TransitionCloseCaseFile) {
		return nil, ErrNotAllowed
	}

	caseFile, err := findCaseFile(db, id)
	if err != nil {
		return nil, err
	}
	if caseFile.Deleted {
		return nil, ErrCaseFileGone
	}
	if caseFile.IsClosed() {
		return nil, ErrCaseFileAlreadyClosed
	}

	now := time.Now()
	err = db.Model(caseFile).Updates(map[string]interface{}{
		"state":     models.CaseFileStateClosed,
		"closed_by": actor.ID,
		"closed_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to close case file: %w", err)
	}

	RecordAudit(db, actor.ID, "case_file", caseFile.ID, models.AuditActionClose,
		fmt.Sprintf("Case file %s closed", caseFile.DocumentNumber), nil, nil)

	return caseFile, nil
}

// ReopenCaseFile transitions a closed case file back to open and clears the
// closure attribution. Supervisor only.
func ReopenCaseFile(db *gorm.DB, actor Actor, id uint) (*models.CaseFile, error) {
	if !CanPerform(actor.Role, TransitionReopenCaseFile) {
		return nil, ErrNotAllowed
	}

	caseFile, err := findCaseFile(db, id)
	if err != nil {
		return nil, err
	}
	if caseFile.Deleted {
		return nil, ErrCaseFileGone
	}
	if caseFile.IsOpen() {
		return nil, ErrCaseFileAlreadyOpen
	}

	err = db.Model(caseFile).Updates(map[string]interface{}{
		"state":     models.CaseFileStateOpen,
		"closed_by": nil,
		"closed_at": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reopen case file: %w", err)
	}

	RecordAudit(db, actor.ID, "case_file", caseFile.ID, models.AuditActionReopen,
		fmt.Sprintf("Case file %s reopened", caseFile.DocumentNumber), nil, nil)

	return caseFile, nil
}

// SoftDeleteCaseFile retires a case file. The case file flag, the cascade to
// its active movements and the deletion log row commit in one transaction; no
// reader can observe a retired case file with live movements. The audit entry
// is requested after commit, fire-and-forget.
func SoftDeleteCaseFile(db *gorm.DB, actor Actor, id uint) (*models.CaseFile, error) {
	if !CanPerform(actor.Role, TransitionSoftDeleteCaseFile) {
		return nil, ErrNotAllowed
	}

	caseFile, err := findCaseFile(db, id)
	if err != nil {
		return nil, err
	}
	if caseFile.Deleted {
		return nil, ErrCaseFileAlreadyDeleted
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(caseFile).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to retire case file: %w", err)
		}
		if err := tx.Model(&models.Movement{}).
			Where("case_file_id = ? AND deleted = ?", caseFile.ID, false).
			Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to cascade retirement to movements: %w", err)
		}
		deletionLog := models.DeletionLog{
			CaseFileID: caseFile.ID,
			UserID:     actor.ID,
			DeletedAt:  time.Now(),
		}
		if err := tx.Create(&deletionLog).Error; err != nil {
			return fmt.Errorf("failed to write deletion log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(db, actor.ID, "case_file", caseFile.ID, models.AuditActionDelete,
		fmt.Sprintf("Case file %s retired", caseFile.DocumentNumber), nil, nil)

	return caseFile, nil
}

// findCaseFile loads a case file or reports not-found
func findCaseFile(db *gorm.DB, id uint) (*models.CaseFile, error) {
	var caseFile models.CaseFile
	if err := db.First(&caseFile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseFileNotFound
		}
		return nil, err
	}
	return &caseFile, nil
}

func validateCaseFileFields(input CreateCaseFileInput) error {
	if input.Urgency == "" {
		return fmt.Errorf("%w: urgency is required", ErrValidation)
	}
	if !models.IsValidUrgency(input.Urgency) {
		return fmt.Errorf("%w: invalid urgency %q", ErrValidation, input.Urgency)
	}
	if !models.IsValidDocumentType(input.DocumentType) {
		return fmt.Errorf("%w: invalid document type %q", ErrValidation, input.DocumentType)
	}
	if input.DocumentNumber == "" {
		return fmt.Errorf("%w: document number is required", ErrValidation)
	}
	if !models.IsValidIntakeChannel(input.IntakeChannel) {
		return fmt.Errorf("%w: invalid intake channel %q", ErrValidation, input.IntakeChannel)
	}
	if input.IntakeDate.IsZero() {
		return fmt.Errorf("%w: intake date is required", ErrValidation)
	}
	return nil
}
