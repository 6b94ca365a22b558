package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"case_track_go/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a bcrypt hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login authenticates a user by CI and password. Every attempt is recorded in
// the login attempt log, including the failure reason.
func Login(db *gorm.DB, ci, password, ipAddress, userAgent string) (*models.User, *models.Session, error) {
	var user models.User
	err := db.Preload("Unit").Where("ci = ?", ci).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RecordLoginAttempt(db, ci, false, "unknown user", ipAddress)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive {
		RecordLoginAttempt(db, ci, false, "inactive", ipAddress)
		return nil, nil, ErrUserInactive
	}

	if !CheckPassword(password, user.Password) {
		RecordLoginAttempt(db, ci, false, "wrong password", ipAddress)
		return nil, nil, ErrInvalidCredentials
	}

	session, err := CreateSession(db, user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		log.Printf("[AUTH] Failed to update last login for %s: %v", ci, err)
	}
	user.LastLoginAt = &now

	RecordLoginAttempt(db, ci, true, "", ipAddress)

	return &user, session, nil
}

// RecordLoginAttempt writes an entry to the login attempt log asynchronously
func RecordLoginAttempt(db *gorm.DB, username string, success bool, reason, ipAddress string) {
	go func() {
		attempt := models.LoginAttempt{
			Username:  username,
			Success:   success,
			Reason:    reason,
			IPAddress: ipAddress,
		}
		if err := db.Create(&attempt).Error; err != nil {
			log.Printf("[AUTH] Failed to record login attempt: %v", err)
		}
	}()
}

// CreateSession creates a new session for a user
func CreateSession(db *gorm.DB, userID uint, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(DefaultSessionDuration),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session

	err := db.Preload("User.Unit").
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired() {
		db.Delete(&session)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// DeleteAllUserSessions deletes all sessions for a specific user.
// Used when a password is reset or a user is deactivated.
func DeleteAllUserSessions(db *gorm.DB, userID uint) error {
	result := db.Where("user_id = ?", userID).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[AUTH] Deleted %d sessions for user %d", result.RowsAffected, userID)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("[AUTH] Cleaned up %d expired sessions", result.RowsAffected)
	}
	return nil
}
