package services

import (
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// DashboardStats are the counters shown on the landing view. Management holds
// extra breakdowns and is only populated for admins and supervisors.
type DashboardStats struct {
	TotalCaseFiles  int64 `json:"total_case_files"`
	OpenCaseFiles   int64 `json:"open_case_files"`
	ClosedCaseFiles int64 `json:"closed_case_files"`
	TotalMovements  int64 `json:"total_movements"`

	CaseFilesToday int64 `json:"case_files_today"`
	CaseFilesWeek  int64 `json:"case_files_week"`
	MovementsToday int64 `json:"movements_today"`
	MovementsWeek  int64 `json:"movements_week"`

	UrgentOpen int64 `json:"urgent_open"`
	CommonOpen int64 `json:"common_open"`

	Management *ManagementStats `json:"management,omitempty"`
}

// ManagementStats are breakdowns reserved for admins and supervisors
type ManagementStats struct {
	ByDocumentType   []GroupCount `json:"by_document_type"`
	ByUrgency        []GroupCount `json:"by_urgency"`
	StalledOpen      int64        `json:"stalled_open"` // open, no movement in the trailing week
	ReopenedThisWeek int64        `json:"reopened_this_week"`
	TotalUsers       int64        `json:"total_users"`
	ActiveUsersWeek  int64        `json:"active_users_week"`
}

// GroupCount is one bucket of a grouped breakdown
type GroupCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// GetDashboardStats assembles the dashboard counters for the given actor.
// Soft-deleted case files and movements are excluded everywhere.
func GetDashboardStats(db *gorm.DB, actor Actor, now time.Time) (*DashboardStats, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	stats := &DashboardStats{}
	active := db.Model(&models.CaseFile{}).Where("deleted = ?", false)

	if err := active.Session(&gorm.Session{}).Count(&stats.TotalCaseFiles).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("state = ?", models.CaseFileStateOpen).Count(&stats.OpenCaseFiles).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("state = ?", models.CaseFileStateClosed).Count(&stats.ClosedCaseFiles).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("created_at >= ?", today).Count(&stats.CaseFilesToday).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("created_at >= ?", weekAgo).Count(&stats.CaseFilesWeek).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("state = ? AND urgency = ?", models.CaseFileStateOpen, models.UrgencyUrgent).Count(&stats.UrgentOpen).Error; err != nil {
		return nil, err
	}
	if err := active.Session(&gorm.Session{}).Where("state = ? AND urgency = ?", models.CaseFileStateOpen, models.UrgencyCommon).Count(&stats.CommonOpen).Error; err != nil {
		return nil, err
	}

	movements := db.Model(&models.Movement{}).Where("deleted = ?", false)
	if err := movements.Session(&gorm.Session{}).Count(&stats.TotalMovements).Error; err != nil {
		return nil, err
	}
	if err := movements.Session(&gorm.Session{}).Where("created_at >= ?", today).Count(&stats.MovementsToday).Error; err != nil {
		return nil, err
	}
	if err := movements.Session(&gorm.Session{}).Where("created_at >= ?", weekAgo).Count(&stats.MovementsWeek).Error; err != nil {
		return nil, err
	}

	if actor.Role == models.RoleAdmin || actor.Role == models.RoleSupervisor {
		management, err := getManagementStats(db, weekAgo)
		if err != nil {
			return nil, err
		}
		stats.Management = management
	}

	return stats, nil
}

func getManagementStats(db *gorm.DB, weekAgo time.Time) (*ManagementStats, error) {
	management := &ManagementStats{}

	if err := groupCaseFiles(db, "document_type", &management.ByDocumentType); err != nil {
		return nil, err
	}
	if err := groupCaseFiles(db, "urgency", &management.ByUrgency); err != nil {
		return nil, err
	}

	// Open case files with no active movement in the trailing week
	err := db.Model(&models.CaseFile{}).
		Where("deleted = ? AND state = ?", false, models.CaseFileStateOpen).
		Where("id NOT IN (?)", db.Model(&models.Movement{}).
			Select("case_file_id").
			Where("deleted = ? AND created_at >= ?", false, weekAgo)).
		Count(&management.StalledOpen).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.AuditEntry{}).
		Where("action = ? AND created_at >= ?", models.AuditActionReopen, weekAgo).
		Count(&management.ReopenedThisWeek).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&models.User{}).Count(&management.TotalUsers).Error; err != nil {
		return nil, err
	}
	err = db.Model(&models.LoginAttempt{}).
		Where("success = ? AND created_at >= ?", true, weekAgo).
		Distinct("username").
		Count(&management.ActiveUsersWeek).Error
	if err != nil {
		return nil, err
	}

	return management, nil
}

func groupCaseFiles(db *gorm.DB, column string, out *[]GroupCount) error {
	return db.Model(&models.CaseFile{}).
		Select(column+" as value, COUNT(*) as count").
		Where("deleted = ?", false).
		Group(column).
		Order("count DESC").
		Scan(out).Error
}
