package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"case_track_go/db"
	"case_track_go/middleware"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetCaseFileReportHandler returns the deadline compliance report
func GetCaseFileReportHandler(c echo.Context) error {
	filters, err := bindCaseFileReportFilters(c)
	if err != nil {
		return err
	}

	report, err := services.BuildCaseFileReport(db.DB, filters, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// ExportCaseFileReportHandler downloads the compliance report as XLSX
func ExportCaseFileReportHandler(c echo.Context) error {
	filters, err := bindCaseFileReportFilters(c)
	if err != nil {
		return err
	}

	buf, err := services.ExportCaseFileReport(db.DB, filters, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	filename := fmt.Sprintf("case-files-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))

	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetUsersReportHandler returns the per-user activity rollup
func GetUsersReportHandler(c echo.Context) error {
	filters := bindUsersReportFilters(c)

	report, err := services.BuildUsersReport(db.DB, filters, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// ExportUsersReportHandler downloads the user rollup as XLSX
func ExportUsersReportHandler(c echo.Context) error {
	filters := bindUsersReportFilters(c)

	buf, err := services.ExportUsersReport(db.DB, filters, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	filename := fmt.Sprintf("users-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))

	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetUserActivityHandler returns the activity detail for one user
func GetUserActivityHandler(c echo.Context) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	filters := services.UserActivityFilters{
		QuickRange: c.QueryParam("range"),
		Limit:      queryInt(c, "limit", 0),
		Offset:     queryInt(c, "offset", 0),
	}
	filters.DateFrom, filters.DateTo, err = bindDateRange(c)
	if err != nil {
		return err
	}

	activity, err := services.BuildUserActivity(db.DB, middleware.CurrentActor(c), userID, filters, time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, activity)
}

func bindCaseFileReportFilters(c echo.Context) (services.CaseFileReportFilters, error) {
	filters := services.CaseFileReportFilters{
		QuickRange:      c.QueryParam("range"),
		DocumentType:    c.QueryParam("document_type"),
		Urgency:         c.QueryParam("urgency"),
		Reference:       c.QueryParam("reference"),
		DestinationKind: c.QueryParam("destination_kind"),
		Compliance:      c.QueryParam("compliance"),
		OrderBy:         c.QueryParam("order_by"),
		OrderDir:        c.QueryParam("order_dir"),
		Page:            queryInt(c, "page", 0),
		Limit:           queryInt(c, "limit", 0),
	}

	var err error
	filters.DateFrom, filters.DateTo, err = bindDateRange(c)
	if err != nil {
		return services.CaseFileReportFilters{}, err
	}
	return filters, nil
}

func bindUsersReportFilters(c echo.Context) services.UsersReportFilters {
	return services.UsersReportFilters{
		Role:       c.QueryParam("role"),
		UnitID:     uint(queryInt(c, "unit_id", 0)),
		Search:     c.QueryParam("search"),
		ActiveOnly: c.QueryParam("active") == "week",
	}
}

func bindDateRange(c echo.Context) (time.Time, time.Time, error) {
	var dateFrom, dateTo time.Time
	if raw := c.QueryParam("date_from"); raw != "" {
		t, err := services.ParseDate(raw)
		if err != nil {
			return dateFrom, dateTo, echo.NewHTTPError(http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		}
		dateFrom = t
	}
	if raw := c.QueryParam("date_to"); raw != "" {
		t, err := services.ParseDate(raw)
		if err != nil {
			return dateFrom, dateTo, echo.NewHTTPError(http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		}
		dateTo = t
	}
	return dateFrom, dateTo, nil
}

func queryInt(c echo.Context, name string, defaultValue int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
