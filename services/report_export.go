package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// verdict labels used in exported sheets
var verdictLabels = map[Verdict]string{
	VerdictMet:     "Met",
	VerdictMissed:  "Missed",
	VerdictPending: "Pending",
}

// ExportCaseFileReport renders the compliance report as an XLSX workbook. It
// runs the same report pipeline with the pagination cap raised to the maximum,
// so the export covers one full page of up to ReportMaxLimit rows.
func ExportCaseFileReport(db *gorm.DB, filters CaseFileReportFilters, today time.Time) (*bytes.Buffer, error) {
	filters.Limit = ReportMaxLimit
	report, err := BuildCaseFileReport(db, filters, today)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Case Files"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"ID",             // A
		"Document Type",  // B
		"Document No.",   // C
		"Intake Date",    // D
		"State",          // E
		"Urgency",        // F
		"Effective Close", // G
		"Verdict",        // H
		"Destination",    // I
		"Dest. Kind",     // J
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "J1", headerStyle)
	f.SetColWidth(sheet, "A", "J", 18)

	for i, row := range report.Rows {
		rowNum := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), row.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), row.DocumentType)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), row.DocumentNumber)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), row.IntakeDate.Format("2006-01-02"))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), row.State)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), row.Urgency)
		if row.EffectiveCloseDate != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), row.EffectiveCloseDate.Format("2006-01-02"))
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), verdictLabels[row.Verdict])
		if row.Destination != nil {
			f.SetCellValue(sheet, fmt.Sprintf("I%d", rowNum), row.Destination.Name)
			f.SetCellValue(sheet, fmt.Sprintf("J%d", rowNum), row.Destination.Kind)
		}
	}

	// Summary sheet
	summarySheet := "Summary"
	f.NewSheet(summarySheet)
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellValue(summarySheet, "A1", "Deadline Compliance Summary")
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)

	summaryRows := []struct {
		label string
		value int
	}{
		{"Total", report.Summary.Total},
		{"Met", report.Summary.Met},
		{"Missed", report.Summary.Missed},
		{"Pending", report.Summary.Pending},
		{"Closed late", report.Summary.ClosedLate},
	}
	for i, s := range summaryRows {
		rowNum := i + 3
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", rowNum), s.label)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", rowNum), s.value)
	}
	f.SetCellValue(summarySheet, "A9", "Generated")
	f.SetCellValue(summarySheet, "B9", today.Format("2006-01-02"))
	f.SetColWidth(summarySheet, "A", "B", 25)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// ExportUsersReport renders the per-user activity rollup as an XLSX workbook
func ExportUsersReport(db *gorm.DB, filters UsersReportFilters, now time.Time) (*bytes.Buffer, error) {
	report, err := BuildUsersReport(db, filters, now)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Users"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Name",            // A
		"Email",           // B
		"CI",              // C
		"Role",            // D
		"Unit",            // E
		"Case Files",      // F
		"Movements",       // G
		"Case Files (7d)", // H
		"Movements (7d)",  // I
		"Logins (7d)",     // J
		"Failed (7d)",     // K
		"Last Login",      // L
		"Active (7d)",     // M
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "M1", headerStyle)
	f.SetColWidth(sheet, "A", "M", 18)

	for i, row := range report.Users {
		rowNum := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), row.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), row.Email)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), row.CI)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNum), row.Role)
		if row.Unit != nil {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNum), row.Unit.Name)
		}
		f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNum), row.TotalCaseFilesCreated)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", rowNum), row.TotalMovementsPerformed)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", rowNum), row.CaseFilesWeek)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", rowNum), row.MovementsWeek)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", rowNum), row.LoginsOKWeek)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", rowNum), row.LoginsFailedWeek)
		if row.LastLogin != nil {
			f.SetCellValue(sheet, fmt.Sprintf("L%d", rowNum), row.LastLogin.Format("2006-01-02 15:04"))
		}
		active := "No"
		if row.ActiveThisWeek {
			active = "Yes"
		}
		f.SetCellValue(sheet, fmt.Sprintf("M%d", rowNum), active)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
