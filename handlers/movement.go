package handlers

import (
	"net/http"
	"strconv"

	"case_track_go/db"
	"case_track_go/middleware"
	"case_track_go/models"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// CreateMovementHandler appends a movement to a case file's ledger
func CreateMovementHandler(c echo.Context) error {
	caseFileID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req MovementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	input, err := toAppendMovementInput(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "movement_date must be YYYY-MM-DD",
		})
	}

	movement, err := services.AppendMovement(db.DB, middleware.CurrentActor(c), caseFileID, input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, movement)
}

// UpdateMovementRequest carries the mutable movement fields
type UpdateMovementRequest struct {
	Kind              *string `json:"kind"`
	MovementDate      *string `json:"movement_date"`
	DestinationUnitID *uint   `json:"destination_unit_id"`
	OriginUnitID      *uint   `json:"origin_unit_id"`
	Notes             *string `json:"notes"`
}

// UpdateMovementHandler mutates a ledger entry
func UpdateMovementHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req UpdateMovementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	input := services.UpdateMovementInput{
		Kind:              req.Kind,
		DestinationUnitID: req.DestinationUnitID,
		OriginUnitID:      req.OriginUnitID,
		Notes:             req.Notes,
	}
	if req.MovementDate != nil {
		t, err := services.ParseDate(*req.MovementDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "movement_date must be YYYY-MM-DD",
			})
		}
		input.MovementDate = &t
	}

	movement, err := services.UpdateMovement(db.DB, middleware.CurrentActor(c), id, input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, movement)
}

// DeleteMovementHandler retires a single ledger entry
func DeleteMovementHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := services.SoftDeleteMovement(db.DB, middleware.CurrentActor(c), id); err != nil {
		return respondServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// MovementHistoryResponse is the case file plus its ordered ledger
type MovementHistoryResponse struct {
	CaseFile  *models.CaseFile  `json:"case_file"`
	Movements []models.Movement `json:"movements"`
}

// GetMovementHistoryHandler returns a case file's ledger, oldest first
func GetMovementHistoryHandler(c echo.Context) error {
	caseFileID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	includeDeleted := c.QueryParam("include_deleted") == "true"
	destinationKind := c.QueryParam("destination_kind")

	caseFile, movements, err := services.History(db.DB, middleware.CurrentActor(c), caseFileID, includeDeleted, destinationKind)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, MovementHistoryResponse{
		CaseFile:  caseFile,
		Movements: movements,
	})
}

// UploadMovementAttachmentHandler attaches a file to a movement
func UploadMovementAttachmentHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	actor := middleware.CurrentActor(c)
	if !services.CanPerform(actor.Role, services.TransitionUpdateMovement) {
		return respondServiceError(c, services.ErrNotAllowed)
	}

	movement, err := services.GetMovement(db.DB, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file is required",
		})
	}

	key := services.GenerateMovementAttachmentKey(file.Filename)
	result, err := services.Storage.Upload(c.Request().Context(), file, key)
	if err != nil {
		return respondServiceError(c, err)
	}

	err = db.DB.Model(movement).Updates(map[string]interface{}{
		"attachment_key":  result.Key,
		"attachment_name": file.Filename,
	}).Error
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"attachment_key":  result.Key,
		"attachment_name": file.Filename,
	})
}

// DownloadMovementAttachmentHandler streams a movement attachment
func DownloadMovementAttachmentHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	movement, err := services.GetMovement(db.DB, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if movement.AttachmentKey == "" {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Movement has no attachment",
		})
	}

	reader, contentType, err := services.Storage.Get(c.Request().Context(), movement.AttachmentKey)
	if err != nil {
		return respondServiceError(c, err)
	}
	defer reader.Close()

	name := movement.AttachmentName
	if name == "" {
		name = "attachment"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(name))

	return c.Stream(http.StatusOK, contentType, reader)
}
