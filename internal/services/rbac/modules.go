package rbac

import (
	"strings"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

type ModuleCreate struct {
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Route         *string           `json:"route"`
	Icon          *string           `json:"icon"`
	Kind          models.ModuleKind `json:"kind"`
	Order         int               `json:"order"`
	IsActive      *bool             `json:"is_active"`
	ParentID      *uint             `json:"parent_id"`
	PermissionIDs []uint            `json:"permission_ids"`
}

// ModuleUpdate changes only the non-nil fields. ParentID set to 0 detaches
// the module from its parent.
type ModuleUpdate struct {
	Name          *string            `json:"name"`
	Description   *string            `json:"description"`
	Route         *string            `json:"route"`
	Icon          *string            `json:"icon"`
	Kind          *models.ModuleKind `json:"kind"`
	Order         *int               `json:"order"`
	IsActive      *bool              `json:"is_active"`
	ParentID      *uint              `json:"parent_id"`
	PermissionIDs []uint             `json:"permission_ids"`
}

type ModuleDetail struct {
	models.Module
	Permissions []models.Permission `json:"permissions"`
	Children    []models.Module     `json:"children"`
	RolesCount  int64               `json:"roles_count"`
}

// ModuleFilter narrows ListModules. Nil fields are not filtered on.
type ModuleFilter struct {
	IsActive *bool
	ParentID *uint
}

func (s *Service) ListModules(p Page, f ModuleFilter) ([]models.Module, error) {
	q := s.db.Model(&models.Module{})
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.ParentID != nil {
		q = q.Where("parent_id = ?", *f.ParentID)
	}
	mods := []models.Module{}
	err := p.apply(q.Order("display_order").Order("id")).Find(&mods).Error
	return mods, err
}

func (s *Service) GetModule(id uint) (*models.Module, error) {
	var m models.Module
	if err := s.db.First(&m, id).Error; err != nil {
		return nil, notFound(err, "module")
	}
	return &m, nil
}

func (s *Service) ModuleDetail(id uint) (*ModuleDetail, error) {
	m, err := s.GetModule(id)
	if err != nil {
		return nil, err
	}
	d := &ModuleDetail{Module: *m, Permissions: []models.Permission{}, Children: []models.Module{}}
	err = s.db.Model(&models.Permission{}).
		Select("permissions.*").
		Joins("JOIN module_permissions ON module_permissions.permission_id = permissions.id").
		Where("module_permissions.module_id = ? AND module_permissions.is_active = ?", id, true).
		Order("module_permissions.id").
		Find(&d.Permissions).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Where("parent_id = ?", id).Order("display_order").Order("id").Find(&d.Children).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&models.RoleModule{}).
		Where("module_id = ? AND is_active = ?", id, true).
		Count(&d.RolesCount).Error
	return d, err
}

func (s *Service) checkModuleNameFree(name string) error {
	taken, err := s.exists(&models.Module{}, "name = ?", name)
	if err != nil {
		return err
	}
	if taken {
		return apperr.AlreadyExists("module name")
	}
	return nil
}

func checkModuleFields(route, icon *string) error {
	return firstErr(
		checkOptLen("route", route, 255),
		checkOptLen("icon", icon, 100),
	)
}

// checkParent verifies parentID can become the parent of module id. id is 0
// for a module that does not exist yet.
func (s *Service) checkParent(id, parentID uint) error {
	if id != 0 && parentID == id {
		return apperr.InvalidInput("parent_id", "a module cannot be its own parent")
	}
	cur, err := s.GetModule(parentID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return apperr.NotFound("parent module")
		}
		return err
	}
	if id == 0 {
		return nil
	}
	// Walk up from the proposed parent; reaching id means a cycle.
	seen := map[uint]bool{cur.ID: true}
	for cur.ParentID != nil {
		if *cur.ParentID == id {
			return apperr.InvalidInput("parent_id", "would create a cycle")
		}
		if seen[*cur.ParentID] {
			break
		}
		seen[*cur.ParentID] = true
		if cur, err = s.GetModule(*cur.ParentID); err != nil {
			if apperr.IsCode(err, apperr.CodeNotFound) {
				break
			}
			return err
		}
	}
	return nil
}

func (s *Service) CreateModule(in ModuleCreate) (*models.Module, error) {
	name := strings.TrimSpace(in.Name)
	kind := in.Kind
	if kind == "" {
		kind = models.ModuleMenu
	}
	if err := checkLen("name", name, 1, 100); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperr.InvalidInput("kind", "must be one of menu, page, feature, api")
	}
	if err := checkModuleFields(in.Route, in.Icon); err != nil {
		return nil, err
	}
	if err := s.checkModuleNameFree(name); err != nil {
		return nil, err
	}
	var parentID *uint
	if in.ParentID != nil && *in.ParentID != 0 {
		if err := s.checkParent(0, *in.ParentID); err != nil {
			return nil, err
		}
		parentID = in.ParentID
	}
	m := models.Module{
		Name:        name,
		Description: in.Description,
		Route:       in.Route,
		Icon:        in.Icon,
		Kind:        kind,
		Order:       in.Order,
		IsActive:    boolOr(in.IsActive, true),
		ParentID:    parentID,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}
	if len(in.PermissionIDs) > 0 {
		if err := s.AssignModulePermissions(m.ID, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("MODULE_CREATE", "module", m.ID, map[string]any{"name": m.Name}); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) UpdateModule(id uint, in ModuleUpdate) (*models.Module, error) {
	m, err := s.GetModule(id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := checkLen("name", name, 1, 100); err != nil {
			return nil, err
		}
		if name != m.Name {
			if err := s.checkModuleNameFree(name); err != nil {
				return nil, err
			}
			m.Name = name
		}
	}
	if in.Kind != nil {
		if !in.Kind.Valid() {
			return nil, apperr.InvalidInput("kind", "must be one of menu, page, feature, api")
		}
		m.Kind = *in.Kind
	}
	if err := checkModuleFields(in.Route, in.Icon); err != nil {
		return nil, err
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.Route != nil {
		m.Route = in.Route
	}
	if in.Icon != nil {
		m.Icon = in.Icon
	}
	if in.Order != nil {
		m.Order = *in.Order
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.ParentID != nil {
		if *in.ParentID == 0 {
			m.ParentID = nil
		} else {
			if err := s.checkParent(id, *in.ParentID); err != nil {
				return nil, err
			}
			pid := *in.ParentID
			m.ParentID = &pid
		}
	}
	if err := s.db.Save(m).Error; err != nil {
		return nil, err
	}
	if in.PermissionIDs != nil {
		if err := s.AssignModulePermissions(id, in.PermissionIDs); err != nil {
			return nil, err
		}
	}
	if err := s.audit("MODULE_UPDATE", "module", id, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteModule removes the module and its role and permission links. Child
// modules are kept and become top-level.
func (s *Service) DeleteModule(id uint) error {
	if _, err := s.GetModule(id); err != nil {
		return err
	}
	for _, m := range []any{&models.RoleModule{}, &models.ModulePermission{}} {
		if err := s.db.Where("module_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := s.db.Model(&models.Module{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
		return err
	}
	if err := s.db.Delete(&models.Module{}, id).Error; err != nil {
		return err
	}
	return s.audit("MODULE_DELETE", "module", id, nil)
}

// AssignModulePermissions replaces all of the module's permission links.
func (s *Service) AssignModulePermissions(moduleID uint, permissionIDs []uint) error {
	if _, err := s.GetModule(moduleID); err != nil {
		return err
	}
	ids := uniqueIDs(permissionIDs)
	if err := s.requireIDs(&models.Permission{}, "permission", ids); err != nil {
		return err
	}
	now := s.now()
	rows := make([]models.ModulePermission, 0, len(ids))
	for _, pid := range ids {
		rows = append(rows, models.ModulePermission{ModuleID: moduleID, PermissionID: pid, IsActive: true, AssignedAt: now})
	}
	if err := replaceLinks(s.db, "module_id", moduleID, rows); err != nil {
		return err
	}
	return s.audit("MODULE_ASSIGN_PERMISSIONS", "module", moduleID, map[string]any{"permission_ids": ids})
}
