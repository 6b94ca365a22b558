package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"case_track_go/config"
	"case_track_go/db"
	"case_track_go/handlers"
	"case_track_go/middleware"
	"case_track_go/models"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(
		&models.OrganizationalUnit{},
		&models.User{},
		&models.Session{},
		&models.CaseFile{},
		&models.Movement{},
		&models.AuditEntry{},
		&models.DeletionLog{},
		&models.LoginAttempt{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.SeedAdminFromEnv(db.DB); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	if err := services.SeedBaseUnits(db.DB); err != nil {
		log.Fatalf("Failed to seed base units: %v", err)
	}
	if err := services.SeedDemoData(db.DB); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	services.InitializeStorage(cfg)

	e := echo.New()

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogLatency:       true,
		LogRemoteIP:      true,
		LogHost:          true,
		LogMethod:        true,
		LogURI:           true,
		LogRequestID:     true,
		LogUserAgent:     true,
		LogStatus:        true,
		LogError:         true,
		LogContentLength: true,
		LogResponseSize:  true,
		HandleError:      true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			if v.Error == nil {
				slog.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
					slog.String("host", v.Host),
					slog.String("bytes_in", v.ContentLength),
					slog.Int64("bytes_out", v.ResponseSize),
					slog.String("user_agent", v.UserAgent),
					slog.String("remote_ip", v.RemoteIP),
					slog.String("request_id", v.RequestID),
				)
			} else {
				slog.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
					slog.String("host", v.Host),
					slog.String("bytes_in", v.ContentLength),
					slog.Int64("bytes_out", v.ResponseSize),
					slog.String("user_agent", v.UserAgent),
					slog.String("remote_ip", v.RemoteIP),
					slog.String("request_id", v.RequestID),
					slog.String("error", v.Error.Error()),
				)
			}
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes
	e.POST("/login", handlers.LoginHandler)

	// Protected routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/logout", handlers.LogoutHandler)
		api.GET("/me", handlers.GetCurrentUserHandler)
		api.GET("/dashboard", handlers.DashboardHandler)

		// Case files: the service layer enforces role gates per transition
		api.POST("/case-files", handlers.CreateCaseFileHandler)
		api.GET("/case-files", handlers.ListCaseFilesHandler)
		api.GET("/case-files/:id", handlers.GetCaseFileHandler)
		api.PUT("/case-files/:id", handlers.UpdateCaseFileHandler)
		api.POST("/case-files/:id/close", handlers.CloseCaseFileHandler)
		api.POST("/case-files/:id/reopen", handlers.ReopenCaseFileHandler)
		api.DELETE("/case-files/:id", handlers.DeleteCaseFileHandler)

		// Movements
		api.POST("/case-files/:id/movements", handlers.CreateMovementHandler)
		api.GET("/case-files/:id/movements", handlers.GetMovementHistoryHandler)
		api.PUT("/movements/:id", handlers.UpdateMovementHandler)
		api.DELETE("/movements/:id", handlers.DeleteMovementHandler)
		api.POST("/movements/:id/attachment", handlers.UploadMovementAttachmentHandler)
		api.GET("/movements/:id/attachment", handlers.DownloadMovementAttachmentHandler)

		// Units
		api.GET("/units", handlers.GetUnitsHandler)
		api.GET("/units/:id", handlers.GetUnitHandler)

		// Reports (management only)
		reportRoutes := api.Group("/reports")
		reportRoutes.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor))
		{
			reportRoutes.GET("/case-files", handlers.GetCaseFileReportHandler)
			reportRoutes.GET("/case-files/export", handlers.ExportCaseFileReportHandler)
			reportRoutes.GET("/users", handlers.GetUsersReportHandler)
			reportRoutes.GET("/users/export", handlers.ExportUsersReportHandler)
		}

		// User activity: handler checks self-or-management access
		api.GET("/users/:id/activity", handlers.GetUserActivityHandler)

		// Administration
		managementRoutes := api.Group("")
		managementRoutes.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSupervisor))
		{
			managementRoutes.GET("/users", handlers.GetUsersHandler)
		}

		adminRoutes := api.Group("")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.POST("/users", handlers.CreateUserHandler)
			adminRoutes.PUT("/users/:id", handlers.UpdateUserHandler)
			adminRoutes.DELETE("/users/:id", handlers.DeactivateUserHandler)
			adminRoutes.POST("/units", handlers.CreateUnitHandler)
			adminRoutes.PUT("/units/:id", handlers.UpdateUnitHandler)
		}
	}

	// Background session cleanup
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()

	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
