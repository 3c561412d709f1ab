package rbac

import (
	"strings"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

type PermissionCreate struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type PermissionUpdate struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type PermissionDetail struct {
	models.Permission
	RolesCount   int64 `json:"roles_count"`
	ModulesCount int64 `json:"modules_count"`
}

func (s *Service) ListPermissions(p Page, isActive *bool) ([]models.Permission, error) {
	q := s.db.Model(&models.Permission{})
	if isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}
	perms := []models.Permission{}
	err := p.apply(q.Order("id")).Find(&perms).Error
	return perms, err
}

func (s *Service) GetPermission(id uint) (*models.Permission, error) {
	var p models.Permission
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, notFound(err, "permission")
	}
	return &p, nil
}

func (s *Service) PermissionDetail(id uint) (*PermissionDetail, error) {
	p, err := s.GetPermission(id)
	if err != nil {
		return nil, err
	}
	d := &PermissionDetail{Permission: *p}
	err = s.db.Model(&models.RolePermission{}).
		Where("permission_id = ? AND is_active = ?", id, true).
		Count(&d.RolesCount).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&models.ModulePermission{}).
		Where("permission_id = ? AND is_active = ?", id, true).
		Count(&d.ModulesCount).Error
	return d, err
}

func (s *Service) checkPermissionFree(column, value, what string) error {
	taken, err := s.exists(&models.Permission{}, column+" = ?", value)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists(what)
	}
	return nil
}

func (s *Service) CreatePermission(in PermissionCreate) (*models.Permission, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if err := firstErr(checkLen("name", name, 1, 100), checkPermissionCode(code)); err != nil {
		return nil, err
	}
	if err := s.checkPermissionFree("code", code, "permission code"); err != nil {
		return nil, err
	}
	if err := s.checkPermissionFree("name", name, "permission name"); err != nil {
		return nil, err
	}
	p := models.Permission{Name: name, Code: code, Description: in.Description, IsActive: boolOr(in.IsActive, true)}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, err
	}
	if err := s.audit("PERMISSION_CREATE", "permission", p.ID, map[string]any{"code": p.Code}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) UpdatePermission(id uint, in PermissionUpdate) (*models.Permission, error) {
	p, err := s.GetPermission(id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := checkLen("name", name, 1, 100); err != nil {
			return nil, err
		}
		if name != p.Name {
			if err := s.checkPermissionFree("name", name, "permission name"); err != nil {
				return nil, err
			}
			p.Name = name
		}
	}
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if err := checkPermissionCode(code); err != nil {
			return nil, err
		}
		if code != p.Code {
			if err := s.checkPermissionFree("code", code, "permission code"); err != nil {
				return nil, err
			}
			p.Code = code
		}
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.db.Save(p).Error; err != nil {
		return nil, err
	}
	if err := s.audit("PERMISSION_UPDATE", "permission", id, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePermission removes the permission and its role and module links.
func (s *Service) DeletePermission(id uint) error {
	if _, err := s.GetPermission(id); err != nil {
		return err
	}
	for _, m := range []any{&models.RolePermission{}, &models.ModulePermission{}} {
		if err := s.db.Where("permission_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := s.db.Delete(&models.Permission{}, id).Error; err != nil {
		return err
	}
	return s.audit("PERMISSION_DELETE", "permission", id, nil)
}
