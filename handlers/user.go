package handlers

import (
	"net/http"

	"case_track_go/db"
	"case_track_go/middleware"
	"case_track_go/models"
	"case_track_go/services"

	"github.com/labstack/echo/v4"
)

// GetUsersHandler returns all users (admin and supervisor only, via routing)
func GetUsersHandler(c echo.Context) error {
	var users []models.User

	query := db.DB.Preload("Unit").Order("name ASC")
	if role := c.QueryParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(http.StatusOK, users)
}

// CreateUserRequest is the user creation payload
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	CI       string `json:"ci"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UnitID   *uint  `json:"unit_id"`
}

// CreateUserHandler creates a user (admin only)
func CreateUserHandler(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Email == "" || req.CI == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "name, email, ci and password are required",
		})
	}
	if !models.IsValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid role",
		})
	}

	hashedPassword, err := services.HashPassword(req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		CI:       req.CI,
		Password: hashedPassword,
		Role:     req.Role,
		UnitID:   req.UnitID,
		IsActive: true,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "Email or CI already in use",
		})
	}

	return c.JSON(http.StatusCreated, user)
}

// UpdateUserRequest carries the mutable user fields
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	UnitID   *uint   `json:"unit_id"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// UpdateUserHandler updates a user (admin only). Deactivating a user or
// changing their password drops their sessions.
func UpdateUserHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "User not found",
		})
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	updates := map[string]interface{}{}
	dropSessions := false

	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Email != nil && *req.Email != "" {
		updates["email"] = *req.Email
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid role",
			})
		}
		updates["role"] = *req.Role
	}
	if req.UnitID != nil {
		updates["unit_id"] = *req.UnitID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
		if !*req.IsActive {
			dropSessions = true
		}
	}
	if req.Password != nil && *req.Password != "" {
		hashedPassword, err := services.HashPassword(*req.Password)
		if err != nil {
			return respondServiceError(c, err)
		}
		updates["password"] = hashedPassword
		dropSessions = true
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "Email already in use",
			})
		}
	}

	if dropSessions {
		if err := services.DeleteAllUserSessions(db.DB, user.ID); err != nil {
			return respondServiceError(c, err)
		}
	}

	return c.JSON(http.StatusOK, user)
}

// DeactivateUserHandler disables a user account (admin only). Accounts are
// never hard-deleted: their id is referenced from case files and movements.
func DeactivateUserHandler(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	current := middleware.GetCurrentUser(c)
	if current != nil && current.ID == id {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Cannot deactivate your own account",
		})
	}

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "User not found",
		})
	}

	if err := db.DB.Model(&user).Update("is_active", false).Error; err != nil {
		return respondServiceError(c, err)
	}
	if err := services.DeleteAllUserSessions(db.DB, user.ID); err != nil {
		return respondServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
