package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

func ListPermissions(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
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
		var perms []models.Permission
		err = inTx(db, r, func(s *rbac.Service) error {
			perms, err = s.ListPermissions(p, active)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, perms)
	}
}

func GetPermission(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.PermissionDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			d, err = s.PermissionDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func CreatePermission(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.PermissionCreate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var p *models.Permission
		err := inTx(db, r, func(s *rbac.Service) (err error) {
			p, err = s.CreatePermission(req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusCreated, p)
	}
}

func UpdatePermission(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req rbac.PermissionUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var p *models.Permission
		err = inTx(db, r, func(s *rbac.Service) error {
			p, err = s.UpdatePermission(id, req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, p)
	}
}

func DeletePermission(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := inTx(db, r, func(s *rbac.Service) error { return s.DeletePermission(id) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
