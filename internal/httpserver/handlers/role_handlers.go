package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

func ListRoles(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := pageFrom(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		active, err := optBool(r, "is_active")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var roles []models.Role
		err = inTx(db, r, func(s *rbac.Service) error {
			roles, err = s.ListRoles(p, active)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, roles)
	}
}

func GetRole(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.RoleDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			d, err = s.RoleDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func CreateRole(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.RoleCreate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var role *models.Role
		err := inTx(db, r, func(s *rbac.Service) (err error) {
			role, err = s.CreateRole(req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusCreated, role)
	}
}

func UpdateRole(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req rbac.RoleUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var role *models.Role
		err = inTx(db, r, func(s *rbac.Service) error {
			role, err = s.UpdateRole(id, req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, role)
	}
}

func DeleteRole(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := inTx(db, r, func(s *rbac.Service) error { return s.DeleteRole(id) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// assignToRole decodes an id list and replaces one kind of role link with it,
// answering with the refreshed role detail.
func assignToRole(db *gorm.DB, lg *zap.SugaredLogger, key string, assign func(s *rbac.Service, roleID uint, ids []uint) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		ids, err := decodeIDs(r, key)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.RoleDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			if err := assign(s, id, ids); err != nil {
				return err
			}
			d, err = s.RoleDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func AssignRolePermissions(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return assignToRole(db, lg, "permission_ids", (*rbac.Service).AssignRolePermissions)
}

func AssignRoleModules(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return assignToRole(db, lg, "module_ids", (*rbac.Service).AssignRoleModules)
}
