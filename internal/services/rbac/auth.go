package rbac

import (
	"errors"

	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
)

const msgBadCredentials = "incorrect username or password"

// Authenticate checks username and password. Unknown users and wrong passwords
// share one message; a correct password on an inactive user is forbidden.
func (s *Service) Authenticate(username, password string) (*models.User, error) {
	var u models.User
	err := s.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("inactive user")
	}
	return &u, nil
}

// StartSession records the session behind an issued token and stamps the
// user's last login.
func (s *Service) StartSession(u *models.User, c auth.Claims) error {
	now := s.now()
	sess := models.Session{JTI: c.JWTID, UserID: u.ID, ExpiresAt: c.ExpiresAt}
	if err := s.db.Create(&sess).Error; err != nil {
		return err
	}
	u.LastLogin = &now
	if err := s.db.Model(u).Update("last_login", now).Error; err != nil {
		return err
	}
	s.actor = &u.ID
	return s.audit("LOGIN", "user", u.ID, map[string]any{"jti": c.JWTID})
}

// RevokeSession marks the session revoked. Revoking twice is a no-op.
func (s *Service) RevokeSession(jti string) error {
	var sess models.Session
	if err := s.db.First(&sess, "jti = ?", jti).Error; err != nil {
		return notFound(err, "session")
	}
	if sess.RevokedAt != nil {
		return nil
	}
	if err := s.db.Model(&sess).Update("revoked_at", s.now()).Error; err != nil {
		return err
	}
	return s.audit("LOGOUT", "user", sess.UserID, map[string]any{"jti": jti})
}

// ChangePassword replaces the user's password after checking the current one.
func (s *Service) ChangePassword(userID uint, current, next string) error {
	u, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return apperr.InvalidInput("current_password", "does not match")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return apperr.InvalidInput("new_password", err.Error())
	}
	if err := s.db.Model(u).Update("password_hash", hash).Error; err != nil {
		return err
	}
	return s.audit("PASSWORD_CHANGE", "user", userID, nil)
}
