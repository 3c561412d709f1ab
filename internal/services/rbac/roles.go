package rbac

import (
	"strings"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

type RoleCreate struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
	PermissionIDs []uint  `json:"permission_ids"`
	ModuleIDs     []uint  `json:"module_ids"`
}

type RoleUpdate struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	IsActive      *bool   `json:"is_active"`
	PermissionIDs []uint  `json:"permission_ids"`
	ModuleIDs     []uint  `json:"module_ids"`
}

type RoleDetail struct {
	models.Role
	Permissions []models.Permission `json:"permissions"`
	Modules     []models.Module     `json:"modules"`
	UsersCount  int64               `json:"users_count"`
}

func (s *Service) ListRoles(p Page, isActive *bool) ([]models.Role, error) {
	q := s.db.Model(&models.Role{})
	if isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}
	roles := []models.Role{}
	err := p.apply(q.Order("id")).Find(&roles).Error
	return roles, err
}

func (s *Service) GetRole(id uint) (*models.Role, error) {
	var r models.Role
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, notFound(err, "role")
	}
	return &r, nil
}

func (s *Service) RoleDetail(id uint) (*RoleDetail, error) {
	r, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}
	d := &RoleDetail{Role: *r, Permissions: []models.Permission{}, Modules: []models.Module{}}
	err = s.db.Model(&models.Permission{}).
		Select("permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND role_permissions.is_active = ?", id, true).
		Order("role_permissions.id").
		Find(&d.Permissions).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&models.Module{}).
		Select("modules.*").
		Joins("JOIN role_modules ON role_modules.module_id = modules.id").
		Where("role_modules.role_id = ? AND role_modules.is_active = ?", id, true).
		Order("role_modules.id").
		Find(&d.Modules).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&models.UserRole{}).
		Where("role_id = ? AND is_active = ?", id, true).
		Count(&d.UsersCount).Error
	return d, err
}

func (s *Service) checkRoleNameFree(name string) error {
	taken, err := s.exists(&models.Role{}, "name = ?", name)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists("role name")
	}
	return nil
}

func (s *Service) CreateRole(in RoleCreate) (*models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if err := checkLen("name", name, 1, 100); err != nil {
		return nil, err
	}
	if err := s.checkRoleNameFree(name); err != nil {
		return nil, err
	}
	r := models.Role{Name: name, Description: in.Description, IsActive: boolOr(in.IsActive, true)}
	if err := s.db.Create(&r).Error; err != nil {
		return nil, err
	}
	if len(in.PermissionIDs) > 0 {
		if err := s.AssignRolePermissions(r.ID, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if len(in.ModuleIDs) > 0 {
		if err := s.AssignRoleModules(r.ID, in.ModuleIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("ROLE_CREATE", "role", r.ID, map[string]any{"name": r.Name}); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) UpdateRole(id uint, in RoleUpdate) (*models.Role, error) {
	r, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := checkLen("name", name, 1, 100); err != nil {
			return nil, err
		}
		if name != r.Name {
			if err := s.checkRoleNameFree(name); err != nil {
				return nil, err
			}
			r.Name = name
		}
	}
	if in.Description != nil {
		r.Description = in.Description
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if err := s.db.Save(r).Error; err != nil {
		return nil, err
	}
	if in.PermissionIDs != nil {
		if err := s.AssignRolePermissions(id, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if in.ModuleIDs != nil {
		if err := s.AssignRoleModules(id, in.ModuleIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("ROLE_UPDATE", "role", id, nil); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRole removes the role and its user, module and permission links.
// The linked users, modules and permissions are kept.
func (s *Service) DeleteRole(id uint) error {
	if _, err := s.GetRole(id); err != nil {
		return err
	}
	for _, m := range []any{&models.UserRole{}, &models.RoleModule{}, &models.RolePermission{}} {
		if err := s.db.Where("role_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := s.db.Delete(&models.Role{}, id).Error; err != nil {
		return err
	}
	return s.audit("ROLE_DELETE", "role", id, nil)
}

// AssignRolePermissions replaces all of the role's permission links.
func (s *Service) AssignRolePermissions(roleID uint, permissionIDs []uint) error {
	if _, err := s.GetRole(roleID); err != nil {
		return err
	}
	ids := uniqueIDs(permissionIDs)
	if err := s.requireIDs(&models.Permission{}, "permission", ids); err != nil {
		return err
	}
	now := s.now()
	rows := make([]models.RolePermission, 0, len(ids))
	for _, pid := range ids {
		rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: pid, IsActive: true, AssignedAt: now})
	}
	if err := replaceLinks(s.db, "role_id", roleID, rows); err != nil {
		return err
	}
	return s.audit("ROLE_ASSIGN_PERMISSIONS", "role", roleID, map[string]any{"permission_ids": ids})
}

// AssignRoleModules replaces all of the role's module links.
func (s *Service) AssignRoleModules(roleID uint, moduleIDs []uint) error {
	if _, err := s.GetRole(roleID); err != nil {
		return err
	}
	ids := uniqueIDs(moduleIDs)
	if err := s.requireIDs(&models.Module{}, "module", ids); err != nil {
		return err
	}
	now := s.now()
	rows := make([]models.RoleModule, 0, len(ids))
	for _, mid := range ids {
		rows = append(rows, models.RoleModule{RoleID: roleID, ModuleID: mid, IsActive: true, AssignedAt: now})
	}
	if err := replaceLinks(s.db, "role_id", roleID, rows); err != nil {
		return err
	}
	return s.audit("ROLE_ASSIGN_MODULES", "role", roleID, map[string]any{"module_ids": ids})
}
