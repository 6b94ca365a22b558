package handlers

import (
	"net/http"
	"time"

	"case_track_go/db"
	"case_track_go/middleware"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// DashboardHandler returns the dashboard counters for the current user
func DashboardHandler(c echo.Context) error {
	stats, err := services.GetDashboardStats(db.DB, middleware.CurrentActor(c), time.Now())
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}
