package handlers

import (
	"errors"
	"log"
	"net/http"

	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// respondServiceError maps service-layer sentinel errors to JSON responses.
// Unknown errors are logged and answered as 500 without leaking detail.
func respondServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrCaseFileNotFound),
		errors.Is(err, services.ErrMovementNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrCaseFileGone):
		return c.JSON(http.StatusGone, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrCaseFileClosed),
		errors.Is(err, services.ErrCaseFileAlreadyClosed),
		errors.Is(err, services.ErrCaseFileAlreadyOpen),
		errors.Is(err, services.ErrCaseFileAlreadyDeleted),
		errors.Is(err, services.ErrMovementAlreadyDeleted):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrNotAllowed):
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "Insufficient permissions",
		})
	case errors.Is(err, services.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	default:
		log.Printf("[ERROR] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
