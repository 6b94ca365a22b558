package models

import (
	"time"
)

// Case file state constants
const (
	CaseFileStateOpen   = "open"
	CaseFileStateClosed = "closed"
)

// Document type constants
const (
	DocumentTypeOfficeMemo   = "office-memo"
	DocumentTypeInternalMemo = "internal-memo"
	DocumentTypePhysical     = "physical"
	DocumentTypeElectronic   = "electronic"
)

// Intake channel constants
const (
	IntakeChannelMail       = "mail"
	IntakeChannelElectronic = "electronic-system"
	IntakeChannelPaper      = "paper"
)

// Urgency constants. Urgency is set at creation, has no default, and drives
// the allowed processing window (2 days urgent, 5 days common).
const (
	UrgencyCommon = "common"
	UrgencyUrgent = "urgent"
)

// CaseFile represents an administrative record under processing.
// It is never physically deleted; Deleted marks it as permanently retired.
type CaseFile struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DocumentType   string    `gorm:"not null;index" json:"document_type"`
	DocumentNumber string    `gorm:"not null" json:"document_number"`
	IntakeChannel  string    `gorm:"not null" json:"intake_channel"`
	IntakeDate     time.Time `gorm:"not null;index" json:"intake_date"` // calendar date, immutable
	Reference      string    `json:"reference"`
	Detail         string    `gorm:"type:text" json:"detail"`
	Urgency        string    `gorm:"not null;index" json:"urgency"`

	// Lifecycle. ClosedBy and ClosedAt are both set or both null, and only
	// while State is closed.
	State    string     `gorm:"not null;default:open;index" json:"state"`
	ClosedBy *uint      `json:"closed_by,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	Deleted  bool       `gorm:"not null;default:false;index" json:"deleted"`

	CreatedBy uint `gorm:"not null;index" json:"created_by"`

	// Relationships
	Creator   *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Closer    *User      `gorm:"foreignKey:ClosedBy" json:"closer,omitempty"`
	Movements []Movement `gorm:"foreignKey:CaseFileID" json:"movements,omitempty"`
}

// TableName specifies the table name for CaseFile model
func (CaseFile) TableName() string {
	return "case_files"
}

// IsOpen checks if the case file is open
func (cf *CaseFile) IsOpen() bool {
	return cf.State == CaseFileStateOpen
}

// IsClosed checks if the case file is closed
func (cf *CaseFile) IsClosed() bool {
	return cf.State == CaseFileStateClosed
}

// IsValidDocumentType checks if the document type is one of the four fixed values
func IsValidDocumentType(documentType string) bool {
	switch documentType {
	case DocumentTypeOfficeMemo, DocumentTypeInternalMemo, DocumentTypePhysical, DocumentTypeElectronic:
		return true
	}
	return false
}

// IsValidIntakeChannel checks if the intake channel is valid
func IsValidIntakeChannel(channel string) bool {
	switch channel {
	case IntakeChannelMail, IntakeChannelElectronic, IntakeChannelPaper:
		return true
	}
	return false
}

// IsValidUrgency checks if the urgency is valid
func IsValidUrgency(urgency string) bool {
	return urgency == UrgencyCommon || urgency == UrgencyUrgent
}

// IsValidCaseFileState checks if the state is valid
func IsValidCaseFileState(state string) bool {
	return state == CaseFileStateOpen || state == CaseFileStateClosed
}
