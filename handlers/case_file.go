package handlers

import (
	"net/http"
	"strconv"

	"case_track_go/config"
	"case_track_go/db"
	"case_track_go/middleware"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// CreateCaseFileRequest is the case file creation payload. Dates travel as
// YYYY-MM-DD strings.
type CreateCaseFileRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	IntakeChannel  string `json:"intake_channel"`
	IntakeDate     string `json:"intake_date"`
	Reference      string `json:"reference"`
	Detail         string `json:"detail"`
	Urgency        string `json:"urgency"`

	FirstMovement *MovementRequest `json:"first_movement,omitempty"`
}

// MovementRequest is the shared movement payload
type MovementRequest struct {
	Kind              string `json:"kind"`
	MovementDate      string `json:"movement_date"`
	DestinationUnitID uint   `json:"destination_unit_id"`
	OriginUnitID      *uint  `json:"origin_unit_id,omitempty"`
	Notes             string `json:"notes"`
}

// CreateCaseFileHandler creates a case file, optionally with its first movement
func CreateCaseFileHandler(c echo.Context) error {
	var req CreateCaseFileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	intakeDate, err := services.ParseDate(req.IntakeDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "intake_date must be YYYY-MM-DD",
		})
	}

	input := services.CreateCaseFileInput{
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		IntakeChannel:  req.IntakeChannel,
		IntakeDate:     intakeDate,
		Reference:      req.Reference,
		Detail:         req.Detail,
		Urgency:        req.Urgency,
	}
	if req.FirstMovement != nil {
		movementInput, err := toAppendMovementInput(*req.FirstMovement)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		input.FirstMovement = &movementInput
	}

	caseFile, err := services.CreateCaseFile(db.DB, middleware.CurrentActor(c), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, caseFile)
}

// GetCaseFileHandler returns a single case file
func GetCaseFileHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	caseFile, err := services.GetCaseFile(db.DB, middleware.CurrentActor(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, caseFile)
}

// ListCaseFilesHandler lists case files with filters
func ListCaseFilesHandler(c echo.Context) error {
	filters := services.CaseFileFilters{
		DocumentType:   c.QueryParam("document_type"),
		State:          c.QueryParam("state"),
		Urgency:        c.QueryParam("urgency"),
		IncludeDeleted: c.QueryParam("include_deleted") == "true",
	}
	if raw := c.QueryParam("date_from"); raw != "" {
		t, err := services.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "date_from must be YYYY-MM-DD",
			})
		}
		filters.DateFrom = t
	}
	if raw := c.QueryParam("date_to"); raw != "" {
		t, err := services.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "date_to must be YYYY-MM-DD",
			})
		}
		filters.DateTo = t
	}

	caseFiles, err := services.ListCaseFiles(db.DB, middleware.CurrentActor(c), filters)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, caseFiles)
}

// UpdateCaseFileRequest carries the mutable case file fields. Absent fields
// are left untouched.
type UpdateCaseFileRequest struct {
	DocumentType   *string `json:"document_type"`
	DocumentNumber *string `json:"document_number"`
	IntakeChannel  *string `json:"intake_channel"`
	Reference      *string `json:"reference"`
	Detail         *string `json:"detail"`
}

// UpdateCaseFileHandler mutates non-lifecycle fields of a case file
func UpdateCaseFileHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req UpdateCaseFileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	caseFile, err := services.UpdateCaseFile(db.DB, middleware.CurrentActor(c), id, services.UpdateCaseFileInput{
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		IntakeChannel:  req.IntakeChannel,
		Reference:      req.Reference,
		Detail:         req.Detail,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, caseFile)
}

// CloseCaseFileHandler closes an open case file and notifies the supervision
// mailbox
func CloseCaseFileHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	caseFile, err := services.CloseCaseFile(db.DB, middleware.CurrentActor(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	if cfg, ok := c.Get("config").(*config.Config); ok {
		closedBy := ""
		if user := middleware.GetCurrentUser(c); user != nil {
			closedBy = user.Name
		}
		services.NotifyCaseFileClosed(cfg, caseFile, closedBy)
	}

	return c.JSON(http.StatusOK, caseFile)
}

// ReopenCaseFileHandler reopens a closed case file
func ReopenCaseFileHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	caseFile, err := services.ReopenCaseFile(db.DB, middleware.CurrentActor(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, caseFile)
}

// DeleteCaseFileHandler retires a case file and cascades to its movements
func DeleteCaseFileHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	caseFile, err := services.SoftDeleteCaseFile(db.DB, middleware.CurrentActor(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	if cfg, ok := c.Get("config").(*config.Config); ok {
		deletedBy := ""
		if user := middleware.GetCurrentUser(c); user != nil {
			deletedBy = user.Name
		}
		services.NotifyCaseFileRetired(cfg, caseFile, deletedBy)
	}

	return c.NoContent(http.StatusNoContent)
}

// parseIDParam parses the :id path parameter
func parseIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

func toAppendMovementInput(req MovementRequest) (services.AppendMovementInput, error) {
	movementDate, err := services.ParseDate(req.MovementDate)
	if err != nil {
		return services.AppendMovementInput{}, err
	}
	return services.AppendMovementInput{
		Kind:              req.Kind,
		MovementDate:      movementDate,
		DestinationUnitID: req.DestinationUnitID,
		OriginUnitID:      req.OriginUnitID,
		Notes:             req.Notes,
	}, nil
}
