package handlers

import (
	"net/http"

	"case_track_go/db"
	"case_track_go/models"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// GetUnitsHandler returns all organizational units
func GetUnitsHandler(c echo.Context) error {
	var units []models.OrganizationalUnit

	query := db.DB.Order("name ASC")
	if kind := c.QueryParam("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	if err := query.Find(&units).Error; err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, units)
}

// GetUnitHandler returns a single organizational unit
func GetUnitHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var unit models.OrganizationalUnit
	if err := db.DB.First(&unit, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Unit not found",
		})
	}

	return c.JSON(http.StatusOK, unit)
}

// UnitRequest is the unit create/update payload
type UnitRequest struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	InstitutionType string `json:"institution_type"`
}

// CreateUnitHandler creates an organizational unit (admin only)
func CreateUnitHandler(c echo.Context) error {
	var req UnitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
	}
	if !models.IsValidUnitKind(req.Kind) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "kind must be internal or external",
		})
	}

	unit := models.OrganizationalUnit{
		Name:            services.SanitizeText(req.Name),
		Kind:            req.Kind,
		InstitutionType: req.InstitutionType,
	}
	if err := db.DB.Create(&unit).Error; err != nil {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "Unit name already exists",
		})
	}

	return c.JSON(http.StatusCreated, unit)
}

// UpdateUnitHandler updates an organizational unit (admin only)
func UpdateUnitHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var unit models.OrganizationalUnit
	if err := db.DB.First(&unit, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Unit not found",
		})
	}

	var req UnitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = services.SanitizeText(req.Name)
	}
	if req.Kind != "" {
		if !models.IsValidUnitKind(req.Kind) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "kind must be internal or external",
			})
		}
		updates["kind"] = req.Kind
	}
	if req.InstitutionType != "" {
		updates["institution_type"] = req.InstitutionType
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&unit).Updates(updates).Error; err != nil {
			return respondServiceError(c, err)
		}
	}

	return c.JSON(http.StatusOK, unit)
}
