package rbac

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
)

type UserCreate struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Password    string `json:"password"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser *bool  `json:"is_superuser"`
	RoleIDs     []uint `json:"role_ids"`
}

// UserUpdate changes only the non-nil fields. A non-nil RoleIDs replaces the
// user's roles.
type UserUpdate struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	Password    *string `json:"password"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	RoleIDs     []uint  `json:"role_ids"`
}

// Privileged reports whether the update touches fields only a superuser may set.
func (in UserUpdate) Privileged() bool {
	return in.IsActive != nil || in.IsSuperuser != nil || in.RoleIDs != nil
}

// UserDetail is a user with its active roles, effective modules and profile.
type UserDetail struct {
	models.User
	Roles   []models.Role   `json:"roles"`
	Modules []models.Module `json:"modules"`
	Person  *models.Person  `json:"person"`
}

func (s *Service) ListUsers(p Page, search string) ([]models.User, error) {
	q := s.db.Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like, like)
	}
	users := []models.User{}
	err := p.apply(q.Order("id")).Find(&users).Error
	return users, err
}

func (s *Service) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Service) UserDetail(id uint) (*UserDetail, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	d := &UserDetail{User: *u}
	if d.Roles, err = s.UserRoles(id); err != nil {
		return nil, err
	}
	if d.Modules, err = s.EffectiveModules(id); err != nil {
		return nil, err
	}
	var p models.Person
	switch err := s.db.Where("user_id = ?", id).First(&p).Error; {
	case err == nil:
		d.Person = &p
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return d, nil
}

func (s *Service) checkUsernameFree(username string) error {
	taken, err := s.exists(&models.User{}, "username = ?", username)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists("username")
	}
	return nil
}

func (s *Service) checkEmailFree(email string) error {
	taken, err := s.exists(&models.User{}, "email = ?", email)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists("email")
	}
	return nil
}

func (s *Service) CreateUser(in UserCreate) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	fullName := strings.TrimSpace(in.FullName)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := firstErr(
		checkLen("username", username, 3, 50),
		checkLen("full_name", fullName, 1, 200),
	); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(username); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(email); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.InvalidInput("password", err.Error())
	}
	u := models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     boolOr(in.IsActive, true),
		IsSuperuser:  boolOr(in.IsSuperuser, false),
	}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	if len(in.RoleIDs) > 0 {
		if err := s.AssignRoles(u.ID, in.RoleIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("USER_CREATE", "user", u.ID, map[string]any{"username": u.Username}); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) UpdateUser(id uint, in UserUpdate) (*models.User, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := checkLen("username", username, 3, 50); err != nil {
			return nil, err
		}
		if username != u.Username {
			if err := s.checkUsernameFree(username); err != nil {
				return nil, err
			}
			u.Username = username
		}
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			if err := s.checkEmailFree(email); err != nil {
				return nil, err
			}
			u.Email = email
		}
	}
	if in.FullName != nil {
		fullName := strings.TrimSpace(*in.FullName)
		if err := checkLen("full_name", fullName, 1, 200); err != nil {
			return nil, err
		}
		u.FullName = fullName
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.InvalidInput("password", err.Error())
		}
		u.PasswordHash = hash
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if err := s.db.Save(u).Error; err != nil {
		return nil, err
	}
	if in.RoleIDs != nil {
		if err := s.AssignRoles(id, in.RoleIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("USER_UPDATE", "user", id, nil); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the user together with its role links, profile and sessions.
func (s *Service) DeleteUser(id uint) error {
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	for _, m := range []any{&models.UserRole{}, &models.Person{}, &models.Session{}} {
		if err := s.db.Where("user_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := s.db.Delete(&models.User{}, id).Error; err != nil {
		return err
	}
	return s.audit("USER_DELETE", "user", id, nil)
}

// AssignRoles replaces all of the user's role links with roleIDs.
func (s *Service) AssignRoles(userID uint, roleIDs []uint) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	ids := uniqueIDs(roleIDs)
	if err := s.requireIDs(&models.Role{}, "role", ids); err != nil {
		return err
	}
	now := s.now()
	rows := make([]models.UserRole, 0, len(ids))
	for _, rid := range ids {
		rows = append(rows, models.UserRole{UserID: userID, RoleID: rid, IsActive: true, AssignedAt: now})
	}
	if err := replaceLinks(s.db, "user_id", userID, rows); err != nil {
		return err
	}
	return s.audit("USER_ASSIGN_ROLES", "user", userID, map[string]any{"role_ids": ids})
}

// UserRoles returns the user's roles whose link and role are both active,
// in assignment order.
func (s *Service) UserRoles(userID uint) ([]models.Role, error) {
	roles := []models.Role{}
	err := s.db.Model(&models.Role{}).
		Select("roles.*").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND user_roles.is_active = ? AND roles.is_active = ?", userID, true, true).
		Order("user_roles.id").
		Find(&roles).Error
	return roles, err
}

// EffectiveModules returns the active modules reachable through the user's
// active role links, active roles and active role-module links. Each module
// appears once, at the position where it is first reached.
func (s *Service) EffectiveModules(userID uint) ([]models.Module, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	var reached []models.Module
	err := s.db.Model(&models.Module{}).
		Select("modules.*").
		Joins("JOIN role_modules ON role_modules.module_id = modules.id").
		Joins("JOIN roles ON roles.id = role_modules.role_id").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Where("user_roles.is_active = ? AND roles.is_active = ? AND role_modules.is_active = ? AND modules.is_active = ?",
			true, true, true, true).
		Order("user_roles.id").
		Order("role_modules.id").
		Find(&reached).Error
	if err != nil {
		return nil, err
	}
	return dedupeModules(reached), nil
}

func dedupeModules(in []models.Module) []models.Module {
	seen := make(map[uint]struct{}, len(in))
	out := make([]models.Module, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
