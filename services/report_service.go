package services

import (
	"errors"
	"time"

	"case_track_go/models"

	"gorm.io/gorm"
)

// Reporting errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// Report pagination bounds
const (
	ReportDefaultLimit = 100
	ReportMaxLimit     = 200
)

// Quick range values accepted by reports
const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

// reportOrderAllow whitelists sortable columns for the case file report
var reportOrderAllow = map[string]bool{
	"intake_date": true,
	"closed_at":   true,
	"urgency":     true,
	"state":       true,
	"id":          true,
}

// CaseFileReportFilters contains filter options for the compliance report
type CaseFileReportFilters struct {
	DateFrom     time.Time // intake date range
	DateTo       time.Time
	QuickRange   string // today | week | month, used when no explicit range given
	DocumentType string
	Urgency      string
	Reference    string // substring match
	// Post-filters, applied after the latest outbound unit is joined in
	DestinationKind string // internal | external
	Compliance      string // met | missed

	OrderBy  string
	OrderDir string
	Page     int
	Limit    int
}

// ReportDestination is the destination unit of the effective closure hand-off
type ReportDestination struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// CaseFileReportRow is one case file with its SLA verdict
type CaseFileReportRow struct {
	ID                 uint               `json:"id"`
	DocumentType       string             `json:"document_type"`
	DocumentNumber     string             `json:"document_number"`
	IntakeDate         time.Time          `json:"intake_date"`
	State              string             `json:"state"`
	Urgency            string             `json:"urgency"`
	EffectiveCloseDate *time.Time         `json:"effective_close_date,omitempty"`
	Verdict            Verdict            `json:"verdict"`
	Overdue            bool               `json:"overdue"`
	Destination        *ReportDestination `json:"destination,omitempty"`
}

// CaseFileReportSummary aggregates the verdicts of the returned rows. It is
// computed from the same ClassifyDeadline results as the rows themselves.
type CaseFileReportSummary struct {
	Total      int `json:"total"`
	Met        int `json:"met"`
	Missed     int `json:"missed"`
	Pending    int `json:"pending"`
	ClosedLate int `json:"closed_late"`
}

// CaseFileReport is the paginated compliance report
type CaseFileReport struct {
	Rows     []CaseFileReportRow   `json:"rows"`
	Summary  CaseFileReportSummary `json:"summary"`
	Page     int                   `json:"page"`
	Limit    int                   `json:"limit"`
	Returned int                   `json:"returned"`
}

// BuildCaseFileReport builds the paginated compliance view: case files joined
// with their latest outbound movement, classified by ClassifyDeadline. SQL
// pagination happens before the destination-kind and compliance post-filters,
// so Returned reflects the post-filter row count.
func BuildCaseFileReport(db *gorm.DB, filters CaseFileReportFilters, today time.Time) (*CaseFileReport, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = ReportDefaultLimit
	}
	if limit > ReportMaxLimit {
		limit = ReportMaxLimit
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}

	dateFrom, dateTo := resolveQuickRange(filters.QuickRange, filters.DateFrom, filters.DateTo, today)

	query := db.Model(&models.CaseFile{}).Where("deleted = ?", false)
	if !dateFrom.IsZero() {
		query = query.Where("intake_date >= ?", dateFrom)
	}
	if !dateTo.IsZero() {
		query = query.Where("intake_date <= ?", dateTo)
	}
	if filters.DocumentType != "" {
		query = query.Where("document_type = ?", filters.DocumentType)
	}
	if filters.Urgency != "" {
		query = query.Where("urgency = ?", filters.Urgency)
	}
	if filters.Reference != "" {
		query = query.Where("reference LIKE ?", "%"+filters.Reference+"%")
	}

	orderBy := filters.OrderBy
	if !reportOrderAllow[orderBy] {
		orderBy = "intake_date"
	}
	orderDir := "DESC"
	if filters.OrderDir == "ASC" {
		orderDir = "ASC"
	}

	var caseFiles []models.CaseFile
	err := query.
		Order(orderBy + " " + orderDir).
		Order("id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&caseFiles).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(caseFiles))
	for i, cf := range caseFiles {
		ids[i] = cf.ID
	}
	latestOutbound, err := LatestOutboundPerCaseFile(db, ids)
	if err != nil {
		return nil, err
	}

	report := &CaseFileReport{Page: page, Limit: limit}
	for i := range caseFiles {
		cf := &caseFiles[i]
		outbound := latestOutbound[cf.ID]
		result := ClassifyDeadline(cf, outbound, today)

		row := CaseFileReportRow{
			ID:                 cf.ID,
			DocumentType:       cf.DocumentType,
			DocumentNumber:     cf.DocumentNumber,
			IntakeDate:         cf.IntakeDate,
			State:              cf.State,
			Urgency:            cf.Urgency,
			EffectiveCloseDate: result.EffectiveCloseDate,
			Verdict:            result.Verdict,
			Overdue:            result.Overdue,
		}
		if outbound != nil && outbound.DestinationUnit != nil {
			row.Destination = &ReportDestination{
				Name: outbound.DestinationUnit.Name,
				Kind: outbound.DestinationUnit.Kind,
			}
		}

		if filters.DestinationKind != "" && (row.Destination == nil || row.Destination.Kind != filters.DestinationKind) {
			continue
		}
		if filters.Compliance != "" && string(row.Verdict) != filters.Compliance {
			continue
		}

		report.Rows = append(report.Rows, row)
	}

	for _, row := range report.Rows {
		report.Summary.Total++
		switch row.Verdict {
		case VerdictMet:
			report.Summary.Met++
		case VerdictMissed:
			report.Summary.Missed++
			if row.State == models.CaseFileStateClosed {
				report.Summary.ClosedLate++
			}
		case VerdictPending:
			report.Summary.Pending++
		}
	}
	report.Returned = len(report.Rows)

	return report, nil
}

// UsersReportFilters contains filter options for the per-user rollup report
type UsersReportFilters struct {
	Role       string
	UnitID     uint
	Search     string // name / email / ci substring
	ActiveOnly bool   // only users active in the trailing week
}

// UsersReportRow is the activity rollup for one user
type UsersReportRow struct {
	ID    uint                       `json:"id"`
	Name  string                     `json:"name"`
	Email string                     `json:"email"`
	CI    string                     `json:"ci"`
	Role  string                     `json:"role"`
	Unit  *models.OrganizationalUnit `json:"unit,omitempty"`

	// Historical totals
	TotalCaseFilesCreated   int64 `json:"total_case_files_created"`
	TotalMovementsPerformed int64 `json:"total_movements_performed"`

	// Trailing-week activity
	CaseFilesWeek    int64 `json:"case_files_week"`
	MovementsWeek    int64 `json:"movements_week"`
	LoginsOKWeek     int64 `json:"logins_ok_week"`
	LoginsFailedWeek int64 `json:"logins_failed_week"`

	LastLogin      *time.Time `json:"last_login,omitempty"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
	ActiveThisWeek bool       `json:"active_this_week"`
}

// UsersReportSummary aggregates the rollup rows
type UsersReportSummary struct {
	Total                int `json:"total"`
	ActiveWeek           int `json:"active_week"`
	InactiveWeek         int `json:"inactive_week"`
	WithFailedLoginsWeek int `json:"with_failed_logins_week"`
}

// UsersReport is the per-user activity report
type UsersReport struct {
	Summary UsersReportSummary `json:"summary"`
	Users   []UsersReportRow   `json:"users"`
}

type groupedCount struct {
	Key   uint
	Total int64
}

type groupedCountByName struct {
	Key   string
	Total int64
}

type groupedMax struct {
	Key    uint
	Latest time.Time
}

type groupedMaxByName struct {
	Key    string
	Latest time.Time
}

// BuildUsersReport combines grouped counts from the case file and movement
// tables with the login attempt log into one rollup per user. Counts are
// fetched in blocks, never per user.
func BuildUsersReport(db *gorm.DB, filters UsersReportFilters, now time.Time) (*UsersReport, error) {
	weekAgo := now.AddDate(0, 0, -7)

	userQuery := db.Model(&models.User{}).Preload("Unit")
	if filters.Role != "" {
		userQuery = userQuery.Where("role = ?", filters.Role)
	}
	if filters.UnitID != 0 {
		userQuery = userQuery.Where("unit_id = ?", filters.UnitID)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		userQuery = userQuery.Where("name LIKE ? OR email LIKE ? OR ci LIKE ?", pattern, pattern, pattern)
	}

	var users []models.User
	if err := userQuery.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	report := &UsersReport{Users: []UsersReportRow{}}
	if len(users) == 0 {
		return report, nil
	}

	caseTotals, err := countCaseFilesByCreator(db, time.Time{})
	if err != nil {
		return nil, err
	}
	caseWeek, err := countCaseFilesByCreator(db, weekAgo)
	if err != nil {
		return nil, err
	}
	movTotals, err := countMovementsByPerformer(db, time.Time{})
	if err != nil {
		return nil, err
	}
	movWeek, err := countMovementsByPerformer(db, weekAgo)
	if err != nil {
		return nil, err
	}

	var lastLogins []groupedMaxByName
	err = db.Model(&models.LoginAttempt{}).
		Select("username as key, MAX(created_at) as latest").
		Where("success = ?", true).
		Group("username").
		Scan(&lastLogins).Error
	if err != nil {
		return nil, err
	}
	lastLoginByCI := map[string]time.Time{}
	for _, row := range lastLogins {
		lastLoginByCI[row.Key] = row.Latest
	}

	loginsOKWeek, err := countLoginAttempts(db, true, weekAgo)
	if err != nil {
		return nil, err
	}
	loginsFailWeek, err := countLoginAttempts(db, false, weekAgo)
	if err != nil {
		return nil, err
	}

	lastCaseActivity, err := latestByColumn(db, &models.CaseFile{}, "created_by")
	if err != nil {
		return nil, err
	}
	lastMovActivity, err := latestByColumn(db, &models.Movement{}, "performed_by")
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		row := UsersReportRow{
			ID:                      u.ID,
			Name:                    u.Name,
			Email:                   u.Email,
			CI:                      u.CI,
			Role:                    u.Role,
			Unit:                    u.Unit,
			TotalCaseFilesCreated:   caseTotals[u.ID],
			TotalMovementsPerformed: movTotals[u.ID],
			CaseFilesWeek:           caseWeek[u.ID],
			MovementsWeek:           movWeek[u.ID],
			LoginsOKWeek:            loginsOKWeek[u.CI],
			LoginsFailedWeek:        loginsFailWeek[u.CI],
		}

		if t, ok := lastLoginByCI[u.CI]; ok {
			login := t
			row.LastLogin = &login
		}

		// Last activity: latest of case file creation, movement, login
		var candidates []time.Time
		if t, ok := lastCaseActivity[u.ID]; ok {
			candidates = append(candidates, t)
		}
		if t, ok := lastMovActivity[u.ID]; ok {
			candidates = append(candidates, t)
		}
		if row.LastLogin != nil {
			candidates = append(candidates, *row.LastLogin)
		}
		for _, t := range candidates {
			if row.LastActivity == nil || t.After(*row.LastActivity) {
				latest := t
				row.LastActivity = &latest
			}
		}

		row.ActiveThisWeek = row.CaseFilesWeek > 0 || row.MovementsWeek > 0 || row.LoginsOKWeek > 0

		if filters.ActiveOnly && !row.ActiveThisWeek {
			continue
		}
		report.Users = append(report.Users, row)
	}

	for _, row := range report.Users {
		report.Summary.Total++
		if row.ActiveThisWeek {
			report.Summary.ActiveWeek++
		} else {
			report.Summary.InactiveWeek++
		}
		if row.LoginsFailedWeek > 0 {
			report.Summary.WithFailedLoginsWeek++
		}
	}

	return report, nil
}

// UserActivityFilters contains filter options for the single-user activity view
type UserActivityFilters struct {
	DateFrom   time.Time
	DateTo     time.Time
	QuickRange string
	Limit      int
	Offset     int
}

// CreatedCaseFileRow is a case file the user created, with its latest movement
type CreatedCaseFileRow struct {
	CaseFile     models.CaseFile  `json:"case_file"`
	LastMovement *models.Movement `json:"last_movement,omitempty"`
}

// UserActivity is the activity detail for one user
type UserActivity struct {
	User               models.User          `json:"user"`
	TotalCreated       int64                `json:"total_case_files_created"`
	TotalMovements     int64                `json:"total_movements_performed"`
	TotalAuditEntries  int64                `json:"total_audit_entries"`
	Created            []CreatedCaseFileRow `json:"created"`
	MovementsPerformed []models.Movement    `json:"movements_performed"`
	AuditTrail         []models.AuditEntry  `json:"audit_trail"`
}

// BuildUserActivity builds the activity view for one user. Admins and
// supervisors may inspect anyone; other roles only themselves.
func BuildUserActivity(db *gorm.DB, requester Actor, userID uint, filters UserActivityFilters, now time.Time) (*UserActivity, error) {
	if !CanViewUserActivity(requester.Role, requester.ID, userID) {
		return nil, ErrNotAllowed
	}

	var user models.User
	if err := db.Preload("Unit").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > ReportMaxLimit {
		limit = ReportMaxLimit
	}

	dateFrom, dateTo := resolveQuickRange(filters.QuickRange, filters.DateFrom, filters.DateTo, now)

	activity := &UserActivity{User: user}

	// Case files created
	createdQuery := db.Model(&models.CaseFile{}).Where("created_by = ?", userID)
	createdQuery = applyCreatedAtRange(createdQuery, dateFrom, dateTo)
	if err := createdQuery.Count(&activity.TotalCreated).Error; err != nil {
		return nil, err
	}

	var created []models.CaseFile
	err := createdQuery.
		Order("id DESC").
		Limit(limit).
		Offset(filters.Offset).
		Find(&created).Error
	if err != nil {
		return nil, err
	}

	createdIDs := make([]uint, len(created))
	for i, cf := range created {
		createdIDs[i] = cf.ID
	}
	lastMovements, err := latestMovementPerCaseFile(db, createdIDs)
	if err != nil {
		return nil, err
	}
	for _, cf := range created {
		activity.Created = append(activity.Created, CreatedCaseFileRow{
			CaseFile:     cf,
			LastMovement: lastMovements[cf.ID],
		})
	}

	// Movements performed
	movQuery := db.Model(&models.Movement{}).Where("performed_by = ? AND deleted = ?", userID, false)
	movQuery = applyCreatedAtRange(movQuery, dateFrom, dateTo)
	if err := movQuery.Count(&activity.TotalMovements).Error; err != nil {
		return nil, err
	}
	err = movQuery.
		Preload("CaseFile").
		Preload("DestinationUnit").
		Preload("OriginUnit").
		Order("movement_date DESC").
		Order("id DESC").
		Limit(limit).
		Offset(filters.Offset).
		Find(&activity.MovementsPerformed).Error
	if err != nil {
		return nil, err
	}

	// Audit trail
	trail, totalTrail, err := GetUserAuditTrail(db, userID, AuditTrailFilters{
		DateFrom: dateFrom,
		DateTo:   dateTo,
	}, limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	activity.AuditTrail = trail
	activity.TotalAuditEntries = totalTrail

	return activity, nil
}

// resolveQuickRange expands a quick range keyword into explicit bounds when
// no explicit range was supplied
func resolveQuickRange(quickRange string, dateFrom, dateTo, now time.Time) (time.Time, time.Time) {
	if !dateFrom.IsZero() || !dateTo.IsZero() || quickRange == "" {
		return dateFrom, dateTo
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch quickRange {
	case RangeToday:
		return today, now
	case RangeWeek:
		return StartOfWeek(now), now
	case RangeMonth:
		return StartOfMonth(now), now
	}
	return dateFrom, dateTo
}

func applyCreatedAtRange(query *gorm.DB, dateFrom, dateTo time.Time) *gorm.DB {
	if !dateFrom.IsZero() {
		query = query.Where("created_at >= ?", dateFrom)
	}
	if !dateTo.IsZero() {
		query = query.Where("created_at <= ?", dateTo)
	}
	return query
}

func countCaseFilesByCreator(db *gorm.DB, since time.Time) (map[uint]int64, error) {
	query := db.Model(&models.CaseFile{}).
		Select("created_by as key, COUNT(*) as total").
		Group("created_by")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var rows []groupedCount
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := map[uint]int64{}
	for _, row := range rows {
		result[row.Key] = row.Total
	}
	return result, nil
}

func countMovementsByPerformer(db *gorm.DB, since time.Time) (map[uint]int64, error) {
	query := db.Model(&models.Movement{}).
		Select("performed_by as key, COUNT(*) as total").
		Where("deleted = ?", false).
		Group("performed_by")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var rows []groupedCount
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := map[uint]int64{}
	for _, row := range rows {
		result[row.Key] = row.Total
	}
	return result, nil
}

func countLoginAttempts(db *gorm.DB, success bool, since time.Time) (map[string]int64, error) {
	var rows []groupedCountByName
	err := db.Model(&models.LoginAttempt{}).
		Select("username as key, COUNT(*) as total").
		Where("success = ? AND created_at >= ?", success, since).
		Group("username").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := map[string]int64{}
	for _, row := range rows {
		result[row.Key] = row.Total
	}
	return result, nil
}

func latestByColumn(db *gorm.DB, model interface{}, column string) (map[uint]time.Time, error) {
	var rows []groupedMax
	err := db.Model(model).
		Select(column + " as key, MAX(created_at) as latest").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := map[uint]time.Time{}
	for _, row := range rows {
		result[row.Key] = row.Latest
	}
	return result, nil
}

// latestMovementPerCaseFile returns the newest active movement per case file,
// any kind, for activity views
func latestMovementPerCaseFile(db *gorm.DB, caseFileIDs []uint) (map[uint]*models.Movement, error) {
	latest := make(map[uint]*models.Movement)
	if len(caseFileIDs) == 0 {
		return latest, nil
	}

	var movements []models.Movement
	err := db.
		Where("case_file_id IN ? AND deleted = ?", caseFileIDs, false).
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
